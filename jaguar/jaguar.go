// Package jaguar is the top-level single-owner struct (Design Notes §9:
// "global controller state becomes a single owner struct whose methods
// take &mut self") wiring the command-plane and control-plane
// subsystems together behind one fixed-rate Tick entry point (§5).
package jaguar

import (
	"github.com/jaguarmc/core/can"
	"github.com/jaguarmc/core/canid"
	"github.com/jaguarmc/core/command"
	"github.com/jaguarmc/core/hbridge"
	"github.com/jaguarmc/core/internal/jlog"
	"github.com/jaguarmc/core/limits"
	"github.com/jaguarmc/core/message"
	"github.com/jaguarmc/core/paramstore"
	"github.com/jaguarmc/core/pstat"
	"github.com/jaguarmc/core/regulator"
	"github.com/jaguarmc/core/sensors"
	"github.com/jaguarmc/core/servo"
	"github.com/jaguarmc/core/uartproto"
)

// ServoInput is the external pulse-measurement collaborator (§1: servo
// pulse-edge timestamping is out of scope); it reports the most recent
// measured pulse width and period in timer ticks.
type ServoInput interface {
	PulseWidth() uint32
	PulsePeriod() uint32
}

// ConfirmButton is the external physical-button collaborator (§1) used
// to commit a pending device assignment.
type ConfirmButton func() bool

// Config bundles every external collaborator the Controller needs.
type Config struct {
	Bridge      hbridge.Sink
	VoltageMax  uint16
	PolicyLocked bool

	Sensors sensors.Reader
	Gate    regulator.GateFault

	ParamStore paramstore.Store

	CANBus  can.Bus
	UARTTX  *uartproto.TXRing

	Servo       ServoInput
	Confirm     ConfirmButton
	CalParams   servo.Params

	FirmwareVersion  uint32
	DeviceDescriptor []byte

	// StatusSink, if set, receives every periodic-status slot fired this
	// tick in addition to the normal CAN/UART transmission — e.g. a
	// telemetry republisher that should see the same payloads a bus
	// listener would see.
	StatusSink func([]pstat.Fired)
}

// Controller is the single owner of every subsystem.
type Controller struct {
	block paramstore.Block
	store paramstore.Store

	bridge *hbridge.Driver
	ctrl   *regulator.Controller
	lim    *limits.Module
	facade *command.Facade

	canIface   *can.Interface
	canBus     can.Bus
	uartBridge *uartproto.Bridge

	servoMapper *servo.Mapper
	servoCal    *servo.Calibrator
	servoInput  ServoInput
	calParams   servo.Params
	confirm     ConfirmButton
	wasConfirmed bool

	disp *message.Dispatcher

	statusSink func([]pstat.Fired)

	tick uint32
}

// New constructs a Controller, loading persisted parameters from the
// configured Store (falling back to defaults on a missing/invalid
// block, per paramstore.Store's contract).
func New(cfg Config) *Controller {
	block, err := cfg.ParamStore.Load()
	if err != nil {
		block = cfg.ParamStore.ResetToDefaults()
	}

	lim := limits.New()
	bridge := hbridge.New(cfg.Bridge, cfg.VoltageMax, cfg.PolicyLocked)
	ctrl := regulator.New(bridge, cfg.Sensors, lim, cfg.Gate)
	facade := command.New(ctrl)

	widths := servo.Widths{
		NegativeSpan: block.ServoNegativeWidth,
		Neutral:      block.ServoNeutralWidth,
		PositiveSpan: block.ServoPositiveWidth,
	}
	servoMapper := servo.NewMapper(widths)
	servoCal := servo.NewCalibrator(cfg.CalParams)

	cal := servoCal
	disp := message.New(facade, ctrl, cal, cfg.ParamStore)
	disp.FirmwareVersion = cfg.FirmwareVersion
	disp.DeviceDescriptor = cfg.DeviceDescriptor

	c := &Controller{
		block:       block,
		store:       cfg.ParamStore,
		bridge:      bridge,
		ctrl:        ctrl,
		lim:         lim,
		facade:      facade,
		canBus:      cfg.CANBus,
		servoMapper: servoMapper,
		servoCal:    servoCal,
		servoInput:  cfg.Servo,
		calParams:   cfg.CalParams,
		confirm:     cfg.Confirm,
		disp:        disp,
		statusSink:  cfg.StatusSink,
	}

	devNo := func() uint8 { return c.block.DeviceNumber }
	c.canIface = can.New(can.Config{
		Bus:          cfg.CANBus,
		Dispatcher:   disp,
		DeviceNumber: devNo,
		Enum:         can.EnumDescriptor{FirmwareVersion: cfg.FirmwareVersion},
		OnAssignPending: func() {},
		OnAssignCommit: func(newID uint8) {
			c.block.DeviceNumber = newID
			if err := c.store.Save(c.block); err != nil {
				jlog.Errorf("persist device assignment: %v", err)
			}
		},
		OnForceNeutral: ctrl.ForceNeutral,
		OnBusOff: func(active bool) {
			if active {
				// Link selection never reads LinkNone, so this raises no
				// fault: a bus-off leaves FaultCommunication to the CAN
				// link's own timeout.
				ctrl.NoteLinkActivity(regulator.LinkNone)
			}
		},
		OnActivity: func() { ctrl.NoteLinkActivity(regulator.LinkCAN) },
	})

	if cfg.UARTTX != nil {
		c.uartBridge = uartproto.NewBridge(devNo, disp, canSenderAdapter{cfg.CANBus}, cfg.UARTTX, nil)
		c.uartBridge.SetOnActivity(func() { ctrl.NoteLinkActivity(regulator.LinkUART) })
	}

	ctrl.OnPendingCancel(disp.CancelPending)

	return c
}

// canSenderAdapter adapts can.Interface to uartproto.CANSender by
// transmitting directly on its Bus rather than re-entering HandleFrame
// (the bridge forwards outward, it does not re-dispatch inbound).
type canSenderAdapter struct{ bus can.Bus }

func (a canSenderAdapter) Send(id uint32, data []byte) error {
	return a.bus.Send(can.Frame{ID: id, Data: data})
}

// Tick is the fixed-rate (1kHz) entry point (§5): it runs servo-link
// sampling, the confirm-button poll, the control tick, the message-layer
// periodic-status tick, and the CAN/UART interface schedulers, in that
// order.
func (c *Controller) Tick(hw regulator.HardwareInputs) {
	c.tick++

	c.pollServo()
	c.pollConfirmButton()

	c.ctrl.Tick(hw)

	snap := c.snapshot()
	fired := c.disp.Status.Tick(snap, pstat.ClearHooks{
		ClearStickyFaults: c.ctrl.ClearStickyFaults,
		ClearLimitSticky:  c.lim.ClearSticky,
	})
	c.transmitPeriodicStatus(fired)

	c.canIface.Tick()
	if c.uartBridge != nil {
		c.uartBridge.Tick()
	}
}

// transmitPeriodicStatus dispatches newly-assembled periodic-status
// payloads on whichever link is active (§4.9 "dispatched asynchronously
// on whichever link is active").
func (c *Controller) transmitPeriodicStatus(fired []pstat.Fired) {
	if len(fired) == 0 {
		return
	}
	if c.statusSink != nil {
		c.statusSink(fired)
	}
	switch c.ctrl.ActiveLink() {
	case regulator.LinkUART:
		if c.uartBridge == nil {
			return
		}
		for _, f := range fired {
			id := canid.PeriodicStatusData(f.Slot, c.block.DeviceNumber)
			c.uartBridge.HandleCANFrame(id.Encode(), f.Payload)
		}
	default:
		if c.canBus == nil {
			return
		}
		for _, f := range fired {
			id := canid.PeriodicStatusData(f.Slot, c.block.DeviceNumber)
			c.canBus.Send(can.Frame{ID: id.Encode(), Data: f.Payload})
		}
	}
}

func (c *Controller) pollServo() {
	if c.servoInput == nil {
		return
	}
	period := c.servoInput.PulsePeriod()
	if !servo.PeriodValid(period, c.calParams.MinValidPeriod, c.calParams.MaxValidPeriod) {
		return
	}
	width := c.servoInput.PulseWidth()
	c.ctrl.NoteLinkActivity(regulator.LinkServo)

	switch c.servoCal.State() {
	case servo.CalWaitMin:
		c.servoCal.SampleMin(width)
		return
	case servo.CalWaitMax:
		c.servoCal.SampleMax(width)
		return
	case servo.CalDone:
		// Awaiting a command-plane EndCalibration/AbortCalibration; do not
		// command the motor from a pulse stream mid-calibration (§6 "While
		// active, incoming pulses do not command the motor").
		return
	}

	duty := c.servoMapper.Map(width)
	c.facade.SetVoltage(duty)
}

func (c *Controller) pollConfirmButton() {
	if c.confirm == nil {
		return
	}
	pressed := c.confirm()
	if pressed && !c.wasConfirmed {
		c.canIface.ConfirmAssignment()
	}
	c.wasConfirmed = pressed
}

func (c *Controller) snapshot() pstat.Snapshot {
	s := c.ctrl.LastSample()
	return pstat.Snapshot{
		VoltageOut:   c.ctrl.LastDutyOut(),
		VoutMeasured: c.ctrl.LastDutyOut(), // no output-voltage sensor is sampled; same value as VoltageOut
		BusVoltage:   uint16(s.BusVoltage),
		Current:      uint16(s.Current),
		Temperature:  uint16(s.Temperature),
		Position:     s.Position,
		Speed:        int32(s.Speed),
		Limit:        c.lim.LimitByte(),
		StickyLimit:  c.lim.StickyLimitByte(),
		Faults:       byte(c.ctrl.FaultsActive()),
		StickyFaults: byte(c.ctrl.FaultsSticky()),
		FaultCounters: [5]uint8{
			uint8(c.ctrl.FaultCounter(regulator.FaultCurrent)),
			uint8(c.ctrl.FaultCounter(regulator.FaultTemperature)),
			uint8(c.ctrl.FaultCounter(regulator.FaultBusVoltage)),
			uint8(c.ctrl.FaultCounter(regulator.FaultGateDriver)),
			uint8(c.ctrl.FaultCounter(regulator.FaultCommunication)),
		},
	}
}

// Facade exposes the command layer for out-of-band wiring (e.g. a
// telemetry bridge that also wants to issue commands).
func (c *Controller) Facade() *command.Facade { return c.facade }

// Regulator exposes the regulator controller for read-only status
// wiring (ui/statusterm, telemetry/mqttbridge).
func (c *Controller) Regulator() *regulator.Controller { return c.ctrl }

// DeviceNumber reports the currently assigned bus address.
func (c *Controller) DeviceNumber() uint8 { return c.block.DeviceNumber }

// CANInterface exposes the internal can.Interface so a real transport
// binding (can.OpenSocketCAN) can subscribe to inbound frames. A host
// binary opens the bus against this pointer, then calls SetCANBus with
// the resulting Bus so outbound traffic uses the real transport too.
func (c *Controller) CANInterface() *can.Interface { return c.canIface }

// SetCANBus rewires outbound CAN transmission (periodic status, and the
// UART bridge's forwarding path) onto bus. Used once a host binary has
// finished opening the real transport against CANInterface().
func (c *Controller) SetCANBus(bus can.Bus) {
	c.canBus = bus
	c.canIface.SetBus(bus)
	if c.uartBridge != nil {
		c.uartBridge.SetCANSender(canSenderAdapter{bus})
	}
}

// HandleUARTPacket feeds one decoded UART packet into the bridge, if a
// UART transport is configured.
func (c *Controller) HandleUARTPacket(p uartproto.Packet) {
	if c.uartBridge != nil {
		c.uartBridge.HandlePacket(p)
	}
}
