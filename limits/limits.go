// Package limits implements the hard limit-switch inputs and the
// configurable soft position limits with sticky-fault latching (§4.4
// "Limit module"). The two hardware limit-switch pins are external
// collaborators (GPIO pin assignment is out of scope per §1); this
// package polls a small HardwareInputs snapshot each tick.
package limits

// Sense is the comparison used by a soft limit against the current
// position.
type Sense int

const (
	LessThan Sense = iota
	GreaterThan
)

// ActivationMode selects which soft limits, if any, are enabled.
type ActivationMode int

const (
	Disabled ActivationMode = iota
	ForwardSoft
	ReverseSoft
	BothSoft
)

// HardwareInputs is the per-tick snapshot of the two physical limit
// switches. true means "triggered" (motion in that direction is
// physically blocked).
type HardwareInputs struct {
	ForwardTriggered bool
	ReverseTriggered bool
}

// SoftLimitConfig configures one soft-limit comparison.
type SoftLimitConfig struct {
	Threshold int32
	Sense     Sense
}

// Module polls the hardware limit inputs each tick and evaluates the
// optional soft position limits against a position reading.
type Module struct {
	mode ActivationMode

	forwardSoft SoftLimitConfig
	reverseSoft SoftLimitConfig

	forwardHard, reverseHard                 bool
	softForwardOK, softReverseOK              bool
	stickyForwardHard, stickyReverseHard      bool
	stickyForwardSoft, stickyReverseSoft      bool
}

// New returns a Module with soft limits disabled.
func New() *Module {
	return &Module{mode: Disabled, softForwardOK: true, softReverseOK: true}
}

// ActivationModeGet/Set configure which soft limits are evaluated.
func (m *Module) ActivationModeGet() ActivationMode { return m.mode }
func (m *Module) ActivationModeSet(mode ActivationMode) { m.mode = mode }

// SoftForwardConfigSet/SoftReverseConfigSet set the threshold and sense
// for each soft limit.
func (m *Module) SoftForwardConfigSet(c SoftLimitConfig) { m.forwardSoft = c }
func (m *Module) SoftReverseConfigSet(c SoftLimitConfig) { m.reverseSoft = c }

// Poll evaluates both hardware limits and any enabled soft limits
// against the current position, latching sticky mirrors along the way.
// It is called once per control tick, before the control law runs
// (§4.5 step 2).
func (m *Module) Poll(in HardwareInputs, position int32) {
	m.forwardHard = in.ForwardTriggered
	m.reverseHard = in.ReverseTriggered
	if m.forwardHard {
		m.stickyForwardHard = true
	}
	if m.reverseHard {
		m.stickyReverseHard = true
	}

	m.softForwardOK = true
	m.softReverseOK = true

	if m.mode == ForwardSoft || m.mode == BothSoft {
		if evaluate(m.forwardSoft, position) {
			m.softForwardOK = false
			m.stickyForwardSoft = true
		}
	}
	if m.mode == ReverseSoft || m.mode == BothSoft {
		if evaluate(m.reverseSoft, position) {
			m.softReverseOK = false
			m.stickyReverseSoft = true
		}
	}
}

// evaluate reports whether the soft limit's comparison trips (i.e. the
// limit is active / not-ok) for the given position.
func evaluate(c SoftLimitConfig, position int32) bool {
	switch c.Sense {
	case LessThan:
		return position < c.Threshold
	case GreaterThan:
		return position > c.Threshold
	default:
		return false
	}
}

// ForwardOK/ReverseOK report that the hardware limit is not triggered.
func (m *Module) ForwardOK() bool { return !m.forwardHard }
func (m *Module) ReverseOK() bool { return !m.reverseHard }

// SoftForwardOK/SoftReverseOK report that the soft limit is inactive or
// its comparison says "ok".
func (m *Module) SoftForwardOK() bool { return m.softForwardOK }
func (m *Module) SoftReverseOK() bool { return m.softReverseOK }

// ForwardInhibited/ReverseInhibited combine the hardware and soft
// checks exactly as the Controller must consult them before applying a
// positive/negative command (§4.5 step 6).
func (m *Module) ForwardInhibited() bool { return !(m.ForwardOK() && m.SoftForwardOK()) }
func (m *Module) ReverseInhibited() bool { return !(m.ReverseOK() && m.SoftReverseOK()) }

// StickyForwardHard/StickyReverseHard/StickyForwardSoft/StickyReverseSoft
// report whether the respective limit has ever been not-ok since the
// last ClearSticky call.
func (m *Module) StickyForwardHard() bool { return m.stickyForwardHard }
func (m *Module) StickyReverseHard() bool { return m.stickyReverseHard }
func (m *Module) StickyForwardSoft() bool { return m.stickyForwardSoft }
func (m *Module) StickyReverseSoft() bool { return m.stickyReverseSoft }

// ClearSticky clears all four sticky mirrors.
func (m *Module) ClearSticky() {
	m.stickyForwardHard = false
	m.stickyReverseHard = false
	m.stickyForwardSoft = false
	m.stickyReverseSoft = false
}

// Limit bitfield positions used by the periodic-status "limit"/
// "limit-clr" opcodes.
const (
	LimitBitForwardHard = 1 << iota
	LimitBitReverseHard
	LimitBitForwardSoft
	LimitBitReverseSoft
)

// LimitByte packs the four current (non-sticky) limit states into a
// single byte for telemetry.
func (m *Module) LimitByte() byte {
	var b byte
	if !m.ForwardOK() {
		b |= LimitBitForwardHard
	}
	if !m.ReverseOK() {
		b |= LimitBitReverseHard
	}
	if !m.SoftForwardOK() {
		b |= LimitBitForwardSoft
	}
	if !m.SoftReverseOK() {
		b |= LimitBitReverseSoft
	}
	return b
}

// StickyLimitByte packs the four sticky limit mirrors into a single
// byte for telemetry.
func (m *Module) StickyLimitByte() byte {
	var b byte
	if m.stickyForwardHard {
		b |= LimitBitForwardHard
	}
	if m.stickyReverseHard {
		b |= LimitBitReverseHard
	}
	if m.stickyForwardSoft {
		b |= LimitBitForwardSoft
	}
	if m.stickyReverseSoft {
		b |= LimitBitReverseSoft
	}
	return b
}
