// Package can implements the CAN command-plane interface (§4.7): RX
// slot routing, enumeration response scheduling, the device-assignment
// state machine, sync-group dispatch, and bus-off recovery. It is
// transport-agnostic — see socketcan.go for the host/Linux bench
// backend grounded on github.com/brutella/can, and a TinyGo peripheral
// backend would implement the same Bus interface.
package can

import (
	"github.com/jaguarmc/core/canid"
)

// Frame is a transport-agnostic CAN frame: a 29-bit extended
// identifier plus up to 8 data bytes.
type Frame struct {
	ID   uint32
	Data []byte
}

// Bus is the minimal transmit surface an Interface needs; Send should
// not block indefinitely — §4.7 calls for "a TX slot... polled for
// completion before being reused, with a bounded retry count on
// failure", which backend implementations enforce internally.
type Bus interface {
	Send(Frame) error
}

// Dispatcher is the message layer's single entry point (§4.9),
// decoupled here so the can package never imports it directly.
// Dispatch returns the response payload (nil if none) and whether an
// ACK identifier should be transmitted.
type Dispatcher interface {
	Dispatch(id canid.ID, payload []byte) (resp []byte, ack bool)
}

// EnumDescriptor is the fixed device-query response payload; device
// type/manufacturer/firmware version are compiled in, not computed.
type EnumDescriptor struct {
	FirmwareVersion uint32
}

// TicksPerMillisecond lets Interface convert the enumeration-delay and
// assignment-timeout constants (expressed in milliseconds by §4.7)
// into tick counts, independent of the caller's actual tick rate.
const TicksPerMillisecond = 1 // at the nominal 1kHz control tick, 1 tick == 1 ms

const assignmentTimeoutTicks = 5000 * TicksPerMillisecond

// pendingEnum is a scheduled, not-yet-sent enumeration response.
type pendingEnum struct {
	deadline uint32
	pending  bool
}

// Interface binds the assignment state machine, enumeration scheduler,
// and bus-off watchdog to a concrete Bus and Dispatcher.
type Interface struct {
	bus        Bus
	dispatcher Dispatcher
	enum       EnumDescriptor

	deviceNo func() uint8

	tick uint32

	pendingEnum pendingEnum

	assignState    AssignState
	assignPending  uint8
	assignDeadline uint32

	onAssignPending func()
	onAssignCommit  func(newID uint8)
	onForceNeutral  func()

	busOff     bool
	onBusOff   func(active bool)
	onActivity func()
}

// AssignState is the device-assignment state machine's phase (§4.7
// "Assignment state machine").
type AssignState int

const (
	AssignIdle AssignState = iota
	AssignPending
)

// Config bundles an Interface's collaborators.
type Config struct {
	Bus             Bus
	Dispatcher      Dispatcher
	DeviceNumber    func() uint8
	Enum            EnumDescriptor
	OnAssignPending func()
	OnAssignCommit  func(newID uint8)
	OnForceNeutral  func()
	OnBusOff        func(active bool)
	OnActivity      func()
}

// New builds an Interface from its collaborators.
func New(cfg Config) *Interface {
	return &Interface{
		bus:             cfg.Bus,
		dispatcher:      cfg.Dispatcher,
		enum:            cfg.Enum,
		deviceNo:        cfg.DeviceNumber,
		onAssignPending: cfg.OnAssignPending,
		onAssignCommit:  cfg.OnAssignCommit,
		onForceNeutral:  cfg.OnForceNeutral,
		onBusOff:        cfg.OnBusOff,
		onActivity:      cfg.OnActivity,
	}
}

// AssignmentState reports the current assignment-state-machine phase.
func (i *Interface) AssignmentState() AssignState { return i.assignState }

// SetBus rewires outbound transmission. Used once a host binary has
// finished opening a real transport against this Interface (the bus
// backend needs a constructed *Interface to subscribe inbound frames
// to, so construction and bus binding happen in two steps).
func (i *Interface) SetBus(bus Bus) { i.bus = bus }

// HandleFrame processes one received frame (an RX slot match). System
// messages (enumerate, assign) are handled here; everything else is
// routed to the Dispatcher, with its response (if any) transmitted and
// an ACK sent unless the message was a no-ack setpoint variant.
func (i *Interface) HandleFrame(f Frame) {
	if i.onActivity != nil {
		i.onActivity()
	}
	id := canid.Decode(f.ID & canid.WireMask)

	if id.APIClass == canid.APIClassSystem {
		switch id.APIIndex {
		case canid.SysEnumerate:
			i.handleEnumerate()
			return
		case canid.SysAssign:
			i.handleAssign(payloadDeviceNo(f.Data))
			return
		}
	}

	resp, ack := i.dispatcher.Dispatch(id, f.Data)
	if resp != nil {
		i.bus.Send(Frame{ID: id.Encode(), Data: resp})
	}
	if ack {
		i.bus.Send(Frame{ID: canid.Ack(i.deviceNo()).Encode()})
	}
}

func payloadDeviceNo(data []byte) (uint8, bool) {
	if len(data) < 1 {
		return 0, false
	}
	return data[0], true
}

// handleEnumerate schedules the device's enumeration response at
// (device-number x 1ms); a device number of 0 never responds.
func (i *Interface) handleEnumerate() {
	dev := i.deviceNo()
	if dev == canid.BroadcastDevice {
		return
	}
	i.pendingEnum = pendingEnum{deadline: i.tick + uint32(dev)*TicksPerMillisecond, pending: true}
}

// handleAssign drives the Idle/PendingAssign transitions of §4.7.
func (i *Interface) handleAssign(newID uint8, ok bool) {
	if !ok {
		return
	}
	if newID == 0 {
		i.assignState = AssignIdle
		if i.onAssignCommit != nil {
			i.onAssignCommit(0)
		}
		return
	}
	if newID > 63 {
		return // out-of-range, ignored per §4.9 error semantics
	}
	if i.deviceNo() == canid.BroadcastDevice {
		return // only an already-assigned device may be reassigned
	}
	i.assignState = AssignPending
	i.assignPending = newID
	i.assignDeadline = i.tick + assignmentTimeoutTicks
	if i.onForceNeutral != nil {
		i.onForceNeutral()
	}
	if i.onAssignPending != nil {
		i.onAssignPending()
	}
}

// ConfirmAssignment is the explicit physical-button-press call (§4.7):
// it commits the pending device number immediately, cancelling the
// timeout.
func (i *Interface) ConfirmAssignment() {
	if i.assignState != AssignPending {
		return
	}
	committed := i.assignPending
	i.assignState = AssignIdle
	if i.onAssignCommit != nil {
		i.onAssignCommit(committed)
	}
}

// Tick advances the enumeration-response and assignment-timeout
// schedulers by one control-tick period and services bus housekeeping.
func (i *Interface) Tick() {
	i.tick++

	if i.pendingEnum.pending && i.tick >= i.pendingEnum.deadline {
		i.pendingEnum.pending = false
		i.bus.Send(Frame{ID: canid.DeviceQuery(i.deviceNo()).Encode()})
	}

	if i.assignState == AssignPending && i.tick >= i.assignDeadline {
		i.assignState = AssignIdle
		// Special rule: pending == current commits to 0 (deassign);
		// any other pending ID is simply dropped on timeout.
		if i.assignPending == i.deviceNo() && i.onAssignCommit != nil {
			i.onAssignCommit(0)
		}
	}
}

// SetBusOff records a bus-off/error-active transition from the
// transport backend and passes it to the OnBusOff callback; the
// Interface itself holds no fault state (§4.7 "Bus-off recovery").
func (i *Interface) SetBusOff(active bool) {
	if active == i.busOff {
		return
	}
	i.busOff = active
	if i.onBusOff != nil {
		i.onBusOff(active)
	}
}

// BusOff reports whether the controller currently believes the bus is
// in the bus-off state.
func (i *Interface) BusOff() bool { return i.busOff }
