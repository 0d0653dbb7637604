package servo

import "errors"

// CalState is the calibration state machine's current phase.
type CalState int

const (
	CalIdle CalState = iota
	CalWaitMin
	CalWaitMax
	CalDone
)

// ErrCalibrationFault is returned by StartCalibration when an active
// fault (other than communication loss, per the Open Question
// resolution below) blocks entering calibration.
var ErrCalibrationFault = errors.New("servo: calibration blocked by active fault")

// ErrCalibrationInvalid is returned by EndCalibration when the
// accumulated pulse widths fail validation.
var ErrCalibrationInvalid = errors.New("servo: calibration widths invalid")

// FaultSource reports whether any calibration-blocking fault is
// active. Communication faults never block calibration: the servo
// link, by definition, carries no command-plane traffic, so a
// communication-link fault (driven by CAN/UART watchdogs) has no
// bearing on whether the servo pulse itself is trustworthy.
type FaultSource interface {
	NonCommFaultActive() bool
}

// Calibrator runs the calibration sequence described in §6
// "Servo calibration": accumulate a minimum-pulse sample, a
// maximum-pulse sample, derive neutral as their midpoint, and validate
// the result before committing.
type Calibrator struct {
	params Params
	state  CalState

	minWidth uint32
	maxWidth uint32

	result Widths
}

// NewCalibrator returns a Calibrator using the given tolerances.
func NewCalibrator(p Params) *Calibrator {
	return &Calibrator{params: p, state: CalIdle}
}

// State reports the current calibration phase.
func (c *Calibrator) State() CalState { return c.state }

// StartCalibration begins the sequence. It is rejected while a
// non-communication fault is active.
func (c *Calibrator) StartCalibration(faults FaultSource) error {
	if faults != nil && faults.NonCommFaultActive() {
		return ErrCalibrationFault
	}
	c.state = CalWaitMin
	c.minWidth = 0
	c.maxWidth = 0
	return nil
}

// AbortCalibration cancels an in-progress sequence without committing
// anything; the previously active Widths remain in effect.
func (c *Calibrator) AbortCalibration() {
	c.state = CalIdle
}

// SampleMin records the minimum-end pulse width and advances to
// waiting for the maximum-end sample.
func (c *Calibrator) SampleMin(width uint32) {
	if c.state != CalWaitMin {
		return
	}
	c.minWidth = width
	c.state = CalWaitMax
}

// SampleMax records the maximum-end pulse width and advances to Done,
// ready for EndCalibration.
func (c *Calibrator) SampleMax(width uint32) {
	if c.state != CalWaitMax {
		return
	}
	c.maxWidth = width
	c.state = CalDone
}

// EndCalibration validates the accumulated samples against the rules
// from §6 and, on success, returns the derived Widths:
//  1. min < max (by at least MinRangeTicks on each side of neutral)
//  2. neutral is the midpoint of min and max
//  3. neither span collapses below MinRangeTicks
//  4. the measured neutral must fall within SlopTicks of the configured
//     ideal neutral (nominally the 1.5ms pulse)
//  5. the two measured spans must be within SlopTicks of each other
//     ("min..neutral and neutral..max spans within slop tolerance of
//     each other")
func (c *Calibrator) EndCalibration() (Widths, error) {
	if c.state != CalDone {
		return Widths{}, ErrCalibrationInvalid
	}
	defer func() { c.state = CalIdle }()

	min, max := c.minWidth, c.maxWidth
	if min >= max {
		return Widths{}, ErrCalibrationInvalid
	}
	total := max - min
	if total < 2*c.params.MinRangeTicks {
		return Widths{}, ErrCalibrationInvalid
	}

	neutral := min + total/2
	negSpan := neutral - min
	posSpan := max - neutral
	if negSpan < c.params.MinRangeTicks || posSpan < c.params.MinRangeTicks {
		return Widths{}, ErrCalibrationInvalid
	}
	if absDiff(neutral, c.params.Widths.Neutral) > c.params.SlopTicks {
		return Widths{}, ErrCalibrationInvalid
	}
	if absDiff(negSpan, posSpan) > c.params.SlopTicks {
		return Widths{}, ErrCalibrationInvalid
	}

	c.result = Widths{NegativeSpan: negSpan, Neutral: neutral, PositiveSpan: posSpan}
	return c.result, nil
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
