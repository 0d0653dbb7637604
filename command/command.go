// Package command implements the thin facade described in §4.6
// "Command layer": the only operations allowed to mutate the regulator
// from outside. Every call validates bounds and either applies
// immediately or is silently rejected while the controller is halted —
// rejection-while-halted is enforced inside regulator.Controller's
// setTarget helper; this layer's job is bounds validation and dispatch.
package command

import (
	"github.com/jaguarmc/core/internal/fixed"
	"github.com/jaguarmc/core/pid"
	"github.com/jaguarmc/core/regulator"
	"github.com/jaguarmc/core/sensors"
)

// Facade is the single mutation surface for the regulator.
type Facade struct {
	ctrl *regulator.Controller
}

// New wraps a regulator.Controller.
func New(ctrl *regulator.Controller) *Facade {
	return &Facade{ctrl: ctrl}
}

// SetMode switches the active control mode.
func (f *Facade) SetMode(m regulator.Mode) { f.ctrl.SetMode(m) }

// ForceNeutral is the regulator's escape hatch, callable independent of
// mode or fault state.
func (f *Facade) ForceNeutral() { f.ctrl.ForceNeutral() }

// SetVoltage applies a Voltage-mode setpoint, i16 range.
func (f *Facade) SetVoltage(v int16) { f.ctrl.VoltageTargetSet(v) }

// SetVoltageRate configures the Voltage ramp rate, value/tick.
func (f *Facade) SetVoltageRate(rate uint16) { f.ctrl.VoltageRateSet(rate) }

// SetCurrent applies a Current-mode setpoint, 8.8 fixed point amperes.
func (f *Facade) SetCurrent(v int16) { f.ctrl.CurrentTargetSet(fixed.Q8_8(v)) }

func (f *Facade) SetCurrentP(v int32) { setGain(f.ctrl.CurrentPIDGet, f.ctrl.CurrentPIDSet, gainP, v) }
func (f *Facade) SetCurrentI(v int32) { setGain(f.ctrl.CurrentPIDGet, f.ctrl.CurrentPIDSet, gainI, v) }
func (f *Facade) SetCurrentD(v int32) { setGain(f.ctrl.CurrentPIDGet, f.ctrl.CurrentPIDSet, gainD, v) }

// SetSpeed applies a Speed-mode setpoint, 16.16 fixed point rev/s.
func (f *Facade) SetSpeed(v int32) { f.ctrl.SpeedTargetSet(fixed.Q16_16(v)) }

func (f *Facade) SetSpeedP(v int32) { setGain(f.ctrl.SpeedPIDGet, f.ctrl.SpeedPIDSet, gainP, v) }
func (f *Facade) SetSpeedI(v int32) { setGain(f.ctrl.SpeedPIDGet, f.ctrl.SpeedPIDSet, gainI, v) }
func (f *Facade) SetSpeedD(v int32) { setGain(f.ctrl.SpeedPIDGet, f.ctrl.SpeedPIDSet, gainD, v) }

// SetSpeedSrc selects the Speed-mode measurement source. Out-of-range
// values (anything but 0/1) are ignored silently.
func (f *Facade) SetSpeedSrc(v uint8) {
	switch v {
	case 0:
		f.ctrl.SpeedSrcSet(sensors.SpeedFromEncoder)
	case 1:
		f.ctrl.SpeedSrcSet(sensors.SpeedFromPotentiometer)
	}
}

// SetPosition applies a Position-mode setpoint, 16.16 fixed point
// revolutions.
func (f *Facade) SetPosition(v int32) { f.ctrl.PositionTargetSet(fixed.Q16_16(v)) }

func (f *Facade) SetPositionP(v int32) { setGain(f.ctrl.PositionPIDGet, f.ctrl.PositionPIDSet, gainP, v) }
func (f *Facade) SetPositionI(v int32) { setGain(f.ctrl.PositionPIDGet, f.ctrl.PositionPIDSet, gainI, v) }
func (f *Facade) SetPositionD(v int32) { setGain(f.ctrl.PositionPIDGet, f.ctrl.PositionPIDSet, gainD, v) }

// SetPositionSrc selects the Position-mode measurement source.
func (f *Facade) SetPositionSrc(v uint8) {
	switch v {
	case 0:
		f.ctrl.PositionSrcSet(sensors.PositionFromEncoder)
	case 1:
		f.ctrl.PositionSrcSet(sensors.PositionFromPotentiometer)
	}
}

// SetVComp applies a VComp-mode setpoint, i16 range.
func (f *Facade) SetVComp(v int16) { f.ctrl.VCompTargetSet(v) }

// SetVCompInRamp/SetVCompCompRamp configure the two independent VComp
// ramp rates (§4.5 "the input and compensation paths ramped
// independently at independent configurable rates").
func (f *Facade) SetVCompInRamp(rate uint16)   { f.ctrl.VCompInRampSet(rate) }
func (f *Facade) SetVCompCompRamp(rate uint16) { f.ctrl.VCompCompRampSet(rate) }

type gainField int

const (
	gainP gainField = iota
	gainI
	gainD
)

func setGain(get func() pid.Gains, set func(pid.Gains), field gainField, v int32) {
	g := get()
	switch field {
	case gainP:
		g.P = fixed.Q16_16(v)
	case gainI:
		g.I = fixed.Q16_16(v)
	case gainD:
		g.D = fixed.Q16_16(v)
	}
	set(g)
}
