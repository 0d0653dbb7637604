// Package hbridge drives the H-bridge output from a signed duty request
// (§4.2 "H-bridge driver"). PWM generation, gate timing, and the actual
// pin toggling are external collaborators per §1 of the core
// specification ("the low-level H-bridge PWM hardware" is out of scope);
// this package owns only the policy: clamping, polarity selection,
// brake/coast neutral, and the dead-time-through-neutral invariant on
// sign flips.
package hbridge

// NeutralPolicy selects what "zero" means on the bridge.
type NeutralPolicy int

const (
	// Coast tri-states all four switches.
	Coast NeutralPolicy = iota
	// Brake shorts the load through both low-side switches.
	Brake
)

// Output is the low-level command this package issues to the PWM/gate
// hardware collaborator. Exactly one of Forward/Reverse is true for a
// non-neutral command; both false means neutral (brake or coast per
// Policy).
type Output struct {
	Magnitude uint16 // 0..32767, pre-clamped duty magnitude
	Forward   bool
	Reverse   bool
	Policy    NeutralPolicy
}

// Sink is the external collaborator that actually drives the PWM
// peripheral from a computed Output. A TinyGo build wires this to real
// timer/PWM pins; host tests use a recording fake.
type Sink interface {
	Drive(Output)
}

// Driver converts a signed duty request into a Sink.Drive call,
// enforcing the max-voltage clamp, the brake/coast neutral policy (which
// may be locked by a hardware jumper), and the shoot-through dead time
// invariant: a transition from forward to reverse (or vice versa) always
// passes through one Output{} neutral call first.
type Driver struct {
	sink Sink

	voltageMax   uint16 // configured max output magnitude, 0..32767
	policy       NeutralPolicy
	policyLocked bool // set true if a hardware jumper locks brake/coast

	lastSign int // -1, 0, +1: sign of the last non-transitional output written
}

// New returns a Driver with the maximum allowed output magnitude and
// whether the brake/coast policy is hardware-locked. policyLocked is
// read once at construction, mirroring a jumper sampled at boot.
func New(sink Sink, voltageMax uint16, policyLocked bool) *Driver {
	return &Driver{
		sink:         sink,
		voltageMax:   voltageMax,
		policy:       Coast,
		policyLocked: policyLocked,
	}
}

// VoltageMaxGet returns the configured maximum output magnitude.
func (d *Driver) VoltageMaxGet() uint16 {
	return d.voltageMax
}

// VoltageMaxSet updates the configured maximum output magnitude.
func (d *Driver) VoltageMaxSet(max uint16) {
	d.voltageMax = max
}

// BrakeCoastGet returns the current neutral policy.
func (d *Driver) BrakeCoastGet() NeutralPolicy {
	return d.policy
}

// BrakeCoastSet updates the neutral policy, unless it is locked by a
// hardware jumper, in which case the write is silently ignored.
func (d *Driver) BrakeCoastSet(p NeutralPolicy) {
	if d.policyLocked {
		return
	}
	d.policy = p
}

// Set accepts a signed duty in the same units as the Voltage setpoint
// (-32768..32767). The magnitude is clamped to VoltageMaxGet(); the sign
// selects polarity; zero selects neutral under the current policy.
func (d *Driver) Set(duty int16) {
	clamped := clampDuty(duty, d.voltageMax)
	sign := sign16(clamped)

	if sign != 0 && d.lastSign != 0 && sign != d.lastSign {
		// Forward/reverse flip: force one tick of neutral first so the
		// bridge never has both polarities energized simultaneously.
		d.sink.Drive(Output{Policy: d.policy})
		d.lastSign = 0
	}

	switch {
	case sign > 0:
		d.sink.Drive(Output{Magnitude: uint16(clamped), Forward: true, Policy: d.policy})
	case sign < 0:
		d.sink.Drive(Output{Magnitude: uint16(-clamped), Reverse: true, Policy: d.policy})
	default:
		d.sink.Drive(Output{Policy: d.policy})
	}
	d.lastSign = sign
}

// ForceNeutral is the regulator's escape hatch, invoked on halt and on
// any active fault. It always succeeds immediately — a neutral command
// never needs the dead-time detour since it's not a polarity flip.
func (d *Driver) ForceNeutral() {
	d.sink.Drive(Output{Policy: d.policy})
	d.lastSign = 0
}

func clampDuty(duty int16, max uint16) int16 {
	if max > 32767 {
		max = 32767
	}
	m := int16(max)
	if duty > m {
		return m
	}
	if duty < -m {
		return -m
	}
	return duty
}

func sign16(v int16) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
