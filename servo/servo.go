// Package servo maps a servo pulse width to a signed command (§6 "Servo
// input") and implements the calibration state machine (§6 "Servo
// calibration"). Pulse-edge timestamping hardware is an external
// collaborator per §1; this package consumes already-measured pulse
// widths and periods in timer ticks.
package servo

// Widths holds the three calibration widths, in timer ticks, persisted
// in paramstore.Block.
type Widths struct {
	NegativeSpan uint32 // min..neutral span
	Neutral      uint32
	PositiveSpan uint32 // neutral..max span
}

// Params holds the calibration widths and tolerances. SlopTicks is the
// tolerance allowed around the ideal neutral (nominally a 1.5ms pulse),
// expressed in timer ticks by the caller's tick rate; this package
// takes it as a parameter so it is not coupled to a particular timer
// frequency.
type Params struct {
	Widths
	SlopTicks   uint32
	MinRangeTicks uint32 // minimum acceptable min..neutral / neutral..max span
	MinValidPeriod uint32
	MaxValidPeriod uint32
}

// Mapper converts pulse widths to signed commands using the calibrated
// widths.
type Mapper struct {
	widths Widths
}

// NewMapper returns a Mapper for the given calibration.
func NewMapper(w Widths) *Mapper {
	return &Mapper{widths: w}
}

// SetWidths updates the calibration in use.
func (m *Mapper) SetWidths(w Widths) { m.widths = w }

// Map converts a measured pulse width to a signed command in
// [-32768, 32767]. Widths in [neutral-negativeSpan, neutral] map
// linearly to [-32768, 0]; widths in [neutral, neutral+positiveSpan] map
// linearly to [0, 32767]. Widths outside [min, max] should be rejected
// by the caller (ValidPeriod/pulse-range checks) before calling Map.
func (m *Mapper) Map(width uint32) int16 {
	neutral := m.widths.Neutral
	switch {
	case width == neutral:
		return 0
	case width < neutral:
		span := m.widths.NegativeSpan
		if span == 0 {
			return -32768
		}
		delta := neutral - width
		if delta >= span {
			return -32768
		}
		return int16(-int64(delta) * 32768 / int64(span))
	default:
		span := m.widths.PositiveSpan
		if span == 0 {
			return 32767
		}
		delta := width - neutral
		if delta >= span {
			return 32767
		}
		return int16(int64(delta) * 32767 / int64(span))
	}
}

// PeriodValid reports whether a measured pulse period lies within the
// configured valid range; an invalid period marks the servo link as
// lost (§6 "Pulse period must lie in a configured valid range to be
// accepted; otherwise the servo link is marked lost").
func PeriodValid(period, min, max uint32) bool {
	return period >= min && period <= max
}
