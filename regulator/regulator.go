// Package regulator implements the Controller: the main control tick,
// mode selection, per-mode control laws, fault aggregation, halt, and
// link-watchdog/selection (§4.5). It is the single owner struct
// referenced by Design Notes §9 ("global controller state becomes a
// single owner struct whose methods take &mut self").
package regulator

import (
	"time"

	"github.com/jaguarmc/core/hbridge"
	"github.com/jaguarmc/core/internal/fixed"
	"github.com/jaguarmc/core/internal/jlog"
	"github.com/jaguarmc/core/limits"
	"github.com/jaguarmc/core/pid"
	"github.com/jaguarmc/core/sensors"
)

// Mode is the tagged control-mode variant (§3 "Control mode"). Only one
// mode is active at a time.
type Mode int

const (
	ModeVoltage Mode = iota
	ModeVComp
	ModeCurrent
	ModeSpeed
	ModePosition
)

// Link identifies a command-plane input source (§3 "Link state").
type Link int

const (
	LinkNone Link = iota
	LinkServo
	LinkCAN
	LinkUART
)

// FaultBit is one bit of the fault bitfield (§3 "Fault state").
type FaultBit uint8

const (
	FaultCurrent FaultBit = 1 << iota
	FaultTemperature
	FaultBusVoltage
	FaultGateDriver
	FaultCommunication
)

// setpoint is the target/actual pair shared by every regulated mode
// (§3 "Setpoints").
type setpoint struct {
	target int32
	actual int32
	rate   int32 // ramp rate, value/tick
}

// Thresholds holds the fault thresholds configured on the Controller; these are plain
// numeric limits distinct from the limits.Module position limits.
type Thresholds struct {
	CurrentMax       fixed.Q8_8
	TemperatureMax   fixed.Q8_8
	BusVoltageMin    fixed.Q8_8
	BusVoltageMax    fixed.Q8_8
	FaultHoldOffTicks uint32
	LinkTimeout      map[Link]uint32 // ticks
}

// DefaultThresholds returns reasonable defaults for bench testing.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CurrentMax:        fixed.Q8_8FromFloat(40),
		TemperatureMax:     fixed.Q8_8FromFloat(85),
		BusVoltageMin:      fixed.Q8_8FromFloat(6),
		BusVoltageMax:      fixed.Q8_8FromFloat(30),
		FaultHoldOffTicks:  100,
		LinkTimeout: map[Link]uint32{
			LinkServo: 100,
			LinkCAN:   1000,
			LinkUART:  1000,
		},
	}
}

// NominalBusVoltage is used by VComp to compute the compensation ratio.
const NominalBusVoltage = 12.0

// UpdatesPerSecond is the fixed control-tick rate (§4.5).
const UpdatesPerSecond = 1000

// GateFault is the external collaborator signal for a reported gate
// driver fault; polled once per tick alongside the sensor/limit reads.
type GateFault func() bool

// Controller is the single owner of regulator state.
type Controller struct {
	bridge *hbridge.Driver
	sensor sensors.Reader
	limits *limits.Module
	gate   GateFault

	thresholds Thresholds

	mode Mode

	voltage  setpoint
	vcompIn  setpoint // VComp input path (the commanded fraction)
	vcompCmp setpoint // VComp compensation path (bus-ratio tracking ramp)
	current  setpoint
	speed    setpoint
	position setpoint

	currentPID  *pid.Controller
	speedPID    *pid.Controller
	positionPID *pid.Controller
	vcompPID    *pid.Controller // unused directly; VComp is pass-through+scale, kept for symmetry/tests

	speedSrc    sensors.SpeedSource
	positionSrc sensors.PositionSource

	halted bool

	faults       FaultBit
	stickyFaults FaultBit
	faultCounters map[FaultBit]uint32
	faultClearTick map[FaultBit]uint32 // tick at which condition most recently cleared
	tick          uint32

	lastGood map[Link]uint32
	active   Link

	onPendingCancel func() // hook the command layer's pending-group cancel into mode switches

	lastSample sensors.Sample
	lastDuty   int16
}

// New wires a Controller around its sensor/limit/h-bridge collaborators.
func New(bridge *hbridge.Driver, sensor sensors.Reader, lim *limits.Module, gate GateFault) *Controller {
	bound := float64(bridge.VoltageMaxGet())
	return &Controller{
		bridge:         bridge,
		sensor:         sensor,
		limits:         lim,
		gate:           gate,
		thresholds:     DefaultThresholds(),
		currentPID:     pid.New(bound),
		speedPID:       pid.New(bound),
		positionPID:    pid.New(bound),
		vcompPID:       pid.New(bound),
		faultCounters:  make(map[FaultBit]uint32),
		faultClearTick: make(map[FaultBit]uint32),
		lastGood:       make(map[Link]uint32),
		active:         LinkNone,
	}
}

// OnPendingCancel registers the callback invoked whenever a mode switch
// must cancel pending grouped setpoints (§4.5 "Mode switching"). The
// command/message layers own the pending record; the regulator only
// signals the cancellation point.
func (c *Controller) OnPendingCancel(fn func()) { c.onPendingCancel = fn }

// ThresholdsSet replaces the fault thresholds wholesale.
func (c *Controller) ThresholdsSet(t Thresholds) { c.thresholds = t }

// Mode returns the active control mode.
func (c *Controller) Mode() Mode { return c.mode }

// SetMode switches the active control mode. Per §4.5 "Mode switching":
// the ramped-actual setpoint of the new mode is reset to the sensor's
// current reading (so position mode engages smoothly at the current
// shaft position), every integrator is reset, and pending grouped
// setpoints are cancelled. Repeated identical calls are idempotent.
func (c *Controller) SetMode(m Mode) {
	sample := c.sensor.Sample()

	switch m {
	case ModeVoltage:
		c.voltage.actual = 0
		c.voltage.target = 0
	case ModeVComp:
		c.vcompIn.actual = 0
		c.vcompIn.target = 0
		c.vcompCmp.actual = 0
		c.vcompCmp.target = 0
		c.vcompPID.Reset()
	case ModeCurrent:
		c.current.actual = int32(sample.Current)
		c.current.target = c.current.actual
		c.currentPID.Reset()
	case ModeSpeed:
		c.speed.actual = int32(c.speedMeasurement(sample))
		c.speed.target = c.speed.actual
		c.speedPID.Reset()
	case ModePosition:
		c.position.actual = c.positionMeasurement(sample)
		c.position.target = c.position.actual
		c.positionPID.Reset()
	}

	c.mode = m
	if c.onPendingCancel != nil {
		c.onPendingCancel()
	}
}

func (c *Controller) speedMeasurement(s sensors.Sample) fixed.Q16_16 {
	switch c.speedSrc {
	case sensors.SpeedFromPotentiometer:
		return s.PotPosition
	default:
		return s.Speed
	}
}

func (c *Controller) positionMeasurement(s sensors.Sample) int32 {
	switch c.positionSrc {
	case sensors.PositionFromPotentiometer:
		return int32(s.PotPosition)
	default:
		return s.Position
	}
}

// SpeedSrcSet/PositionSrcSet select the measurement source for their
// respective modes.
func (c *Controller) SpeedSrcSet(src sensors.SpeedSource) { c.speedSrc = src }
func (c *Controller) PositionSrcSet(src sensors.PositionSource) { c.positionSrc = src }

// Halted reports whether motion commands are currently overridden.
func (c *Controller) Halted() bool { return c.halted }

// Halt forces neutral output until Resume is called. Per §4.5 "Halt",
// new setpoints arriving while halted are rejected — that rule is
// enforced by setTarget below, which drops target writes while halted.
func (c *Controller) Halt() { c.halted = true }

// Resume clears the halt flag.
func (c *Controller) Resume() { c.halted = false }

// FaultsActive/FaultsSticky expose the fault bitfields; StatusRead below
// provides the "read and optionally clear sticky" combined operation
// used by the status API.
func (c *Controller) FaultsActive() FaultBit { return c.faults }
func (c *Controller) FaultsSticky() FaultBit { return c.stickyFaults }

// FaultCounter returns the trip count for one fault kind.
func (c *Controller) FaultCounter(bit FaultBit) uint32 { return c.faultCounters[bit] }

// ClearStickyFaults clears the latched sticky fault bitfield (does not
// affect currently-active faults).
func (c *Controller) ClearStickyFaults() { c.stickyFaults = 0 }

// StatusRead returns the sticky fault bitfield and, if clear is true,
// atomically clears it — matching §8 scenario 6 ("a status-read with
// clear=true returns the bit set and atomically clears it").
func (c *Controller) StatusRead(clear bool) FaultBit {
	v := c.stickyFaults
	if clear {
		c.stickyFaults = 0
	}
	return v
}

// NoteLinkActivity records that a valid decoded frame was just received
// on link — per Design Notes §9, any valid frame is a liveness signal,
// not just heartbeat.
func (c *Controller) NoteLinkActivity(link Link) {
	c.lastGood[link] = c.tick
}

// ActiveLink returns the link currently selected as the command source.
func (c *Controller) ActiveLink() Link { return c.active }

// HardwareInputs bundles the per-tick external sensor/limit/gate
// readings the Tick method consumes, so callers (TinyGo ISR or host-test
// harness) assemble one struct instead of threading several arguments.
type HardwareInputs struct {
	LimitSwitches limits.HardwareInputs
}

// Tick runs exactly the seven-step sequence from §4.5:
//  1. Read sensors.
//  2. Evaluate limits and faults.
//  3. If halted or faulted, force neutral and return.
//  4. Ramp actual toward target.
//  5. Run the active control law.
//  6. Inhibit duty sign blocked by a limit.
//  7. Write the H-bridge.
func (c *Controller) Tick(hw HardwareInputs) {
	c.tick++

	sample := c.sensor.Sample()
	c.lastSample = sample
	c.limits.Poll(hw.LimitSwitches, c.positionMeasurement(sample))
	c.evaluateFaults(sample)
	c.evaluateLinkWatchdog()

	if c.halted || c.faults != 0 {
		c.bridge.ForceNeutral()
		c.lastDuty = 0
		return
	}

	c.ramp(sample)
	duty := c.runControlLaw(sample)
	duty = c.inhibitBySign(duty)
	c.bridge.Set(duty)
	c.lastDuty = duty
}

// LastSample returns the sensor snapshot taken on the most recent
// Tick, letting collaborators (periodic-status assembly) read a
// tick-coherent snapshot without resampling hardware (§4.9 "Assembly
// snapshots multi-byte sensor reads once per tick across all slots for
// coherence").
func (c *Controller) LastSample() sensors.Sample { return c.lastSample }

// LastDutyOut returns the signed duty command written to the H-bridge
// on the most recent Tick (the "voltage-out" telemetry value).
func (c *Controller) LastDutyOut() int16 { return c.lastDuty }

// Limits exposes the limits.Module for telemetry opcode assembly
// (limit/limit-clr/sticky-fault byte reads).
func (c *Controller) Limits() *limits.Module { return c.limits }

func (c *Controller) ramp(sample sensors.Sample) {
	switch c.mode {
	case ModeVoltage:
		c.voltage.actual = fixed.RampToward(c.voltage.actual, c.voltage.target, c.voltage.rate)
	case ModeVComp:
		c.vcompIn.actual = fixed.RampToward(c.vcompIn.actual, c.vcompIn.target, c.vcompIn.rate)

		bus := sample.BusVoltage.Float()
		if bus <= 0 {
			bus = NominalBusVoltage
		}
		ratio := NominalBusVoltage / bus
		c.vcompCmp.target = int32(fixed.Q16_16FromFloat(ratio))
		c.vcompCmp.actual = fixed.RampToward(c.vcompCmp.actual, c.vcompCmp.target, c.vcompCmp.rate)
	case ModeCurrent:
		c.current.actual = fixed.RampToward(c.current.actual, c.current.target, c.current.rate)
	case ModeSpeed:
		c.speed.actual = fixed.RampToward(c.speed.actual, c.speed.target, c.speed.rate)
	case ModePosition:
		c.position.actual = fixed.RampToward(c.position.actual, c.position.target, c.position.rate)
	}
}

func (c *Controller) runControlLaw(sample sensors.Sample) int16 {
	switch c.mode {
	case ModeVoltage:
		return clampToDuty(c.voltage.actual)

	case ModeVComp:
		ratio := fixed.Q16_16(c.vcompCmp.actual).Float()
		scaled := float64(c.vcompIn.actual) * ratio
		return clampToDuty(int32(scaled))

	case ModeCurrent:
		errVal := float64(c.current.target) - float64(int32(sample.Current))
		out := c.currentPID.Step(errVal)
		return clampToDuty(int32(out))

	case ModeSpeed:
		measured := c.speedMeasurement(sample)
		errVal := float64(c.speed.target) - float64(int32(measured))
		out := c.speedPID.Step(errVal)
		return clampToDuty(int32(out))

	case ModePosition:
		measured := c.positionMeasurement(sample)
		errVal := float64(c.position.target) - float64(measured)
		out := c.positionPID.Step(errVal)
		return clampToDuty(int32(out))
	}
	return 0
}

func clampToDuty(v int32) int16 {
	return int16(fixed.Clamp(v, -32768, 32767))
}

func (c *Controller) inhibitBySign(duty int16) int16 {
	if duty > 0 && c.limits.ForwardInhibited() {
		return 0
	}
	if duty < 0 && c.limits.ReverseInhibited() {
		return 0
	}
	return duty
}

func (c *Controller) evaluateFaults(sample sensors.Sample) {
	c.evalFault(FaultCurrent, sample.Current.Float() > c.thresholds.CurrentMax.Float())
	c.evalFault(FaultTemperature, sample.Temperature.Float() > c.thresholds.TemperatureMax.Float())
	busOutOfWindow := sample.BusVoltage.Float() < c.thresholds.BusVoltageMin.Float() ||
		sample.BusVoltage.Float() > c.thresholds.BusVoltageMax.Float()
	c.evalFault(FaultBusVoltage, busOutOfWindow)
	if c.gate != nil {
		c.evalFault(FaultGateDriver, c.gate())
	}
}

// evalFault folds one fault condition into the active/sticky bitfields
// and counters. A fault is cleared only once the condition is false AND
// the configured hold-off time has elapsed since it last cleared.
func (c *Controller) evalFault(bit FaultBit, tripped bool) {
	wasActive := c.faults&bit != 0
	if tripped {
		if !wasActive {
			c.faultCounters[bit]++
			jlog.Debugf("fault %d tripped", bit)
		}
		c.faults |= bit
		c.stickyFaults |= bit
		delete(c.faultClearTick, bit)
		return
	}

	if !wasActive {
		return
	}
	if _, clearing := c.faultClearTick[bit]; !clearing {
		c.faultClearTick[bit] = c.tick
	}
	if c.tick-c.faultClearTick[bit] >= c.thresholds.FaultHoldOffTicks {
		c.faults &^= bit
		delete(c.faultClearTick, bit)
	}
}

// evaluateLinkWatchdog implements §4.5 "Watchdog and link selection":
// the active link is the one with the most recent good timestamp; a
// link whose last-good timestamp is older than its timeout is lost. If
// the active link is lost and another has recent activity, ownership
// switches; if all are lost, raise the communication fault.
func (c *Controller) evaluateLinkWatchdog() {
	lost := func(l Link) bool {
		last, ok := c.lastGood[l]
		if !ok {
			return true
		}
		timeout, configured := c.thresholds.LinkTimeout[l]
		if !configured {
			return false
		}
		return c.tick-last > timeout
	}

	if c.active == LinkNone || lost(c.active) {
		best := LinkNone
		var bestTime uint32
		for _, l := range []Link{LinkServo, LinkCAN, LinkUART} {
			if lost(l) {
				continue
			}
			if t := c.lastGood[l]; best == LinkNone || t > bestTime {
				best = l
				bestTime = t
			}
		}
		c.active = best
	}

	if c.active == LinkNone {
		c.evalFault(FaultCommunication, true)
	} else {
		c.evalFault(FaultCommunication, false)
	}
}

// setpoint accessors used by the command layer. Each target write is
// rejected (silently, per §7) when the controller is halted.

func (c *Controller) setTarget(sp *setpoint, value int32) {
	if c.halted {
		return
	}
	sp.target = value
}

func (c *Controller) VoltageTargetSet(v int16)  { c.setTarget(&c.voltage, int32(v)) }
func (c *Controller) VoltageTargetGet() int16   { return int16(c.voltage.target) }
func (c *Controller) VoltageRateSet(rate uint16) { c.voltage.rate = int32(rate) }

func (c *Controller) VCompTargetSet(v int16)   { c.setTarget(&c.vcompIn, int32(v)) }
func (c *Controller) VCompTargetGet() int16    { return int16(c.vcompIn.target) }
func (c *Controller) VCompInRampSet(rate uint16)   { c.vcompIn.rate = int32(rate) }
func (c *Controller) VCompCompRampSet(rate uint16) { c.vcompCmp.rate = int32(rate) }

func (c *Controller) CurrentTargetSet(v fixed.Q8_8) { c.setTarget(&c.current, int32(v)) }
func (c *Controller) CurrentTargetGet() fixed.Q8_8  { return fixed.Q8_8(c.current.target) }
func (c *Controller) CurrentPIDGet() pid.Gains      { return c.currentPID.GainsGet() }
func (c *Controller) CurrentPIDSet(g pid.Gains)     { c.currentPID.GainsSet(g) }

func (c *Controller) SpeedTargetSet(v fixed.Q16_16) { c.setTarget(&c.speed, int32(v)) }
func (c *Controller) SpeedTargetGet() fixed.Q16_16  { return fixed.Q16_16(c.speed.target) }
func (c *Controller) SpeedPIDGet() pid.Gains        { return c.speedPID.GainsGet() }
func (c *Controller) SpeedPIDSet(g pid.Gains)       { c.speedPID.GainsSet(g) }

func (c *Controller) PositionTargetSet(v fixed.Q16_16) { c.setTarget(&c.position, int32(v)) }
func (c *Controller) PositionTargetGet() fixed.Q16_16  { return fixed.Q16_16(c.position.target) }
func (c *Controller) PositionPIDGet() pid.Gains        { return c.positionPID.GainsGet() }
func (c *Controller) PositionPIDSet(g pid.Gains)       { c.positionPID.GainsSet(g) }

// ForceNeutral is the command layer's force_neutral() escape hatch: it
// drives the bridge to neutral immediately without touching mode,
// setpoints, or fault state.
func (c *Controller) ForceNeutral() { c.bridge.ForceNeutral() }

// now is kept for future real-clock wiring on the TinyGo build; the
// control tick itself is driven by Tick() calls, not wall-clock time.
var now = time.Now
