// Package message implements the single dispatch point for decoded API
// calls regardless of source interface (§4.9).
package message

import (
	"github.com/jaguarmc/core/canid"
	"github.com/jaguarmc/core/command"
	"github.com/jaguarmc/core/internal/fixed"
	"github.com/jaguarmc/core/paramstore"
	"github.com/jaguarmc/core/pstat"
	"github.com/jaguarmc/core/regulator"
	"github.com/jaguarmc/core/servo"
)

// Dispatcher is the message layer: it owns the pending-setpoint slots
// and the periodic-status scheduler, and mediates every decoded call
// into the command facade and regulator.
type Dispatcher struct {
	facade *command.Facade
	ctrl   *regulator.Controller
	cal    *servo.Calibrator
	store  paramstore.Store

	pending PendingSetpoints
	Status  pstat.Scheduler

	FirmwareVersion uint32
	DeviceDescriptor []byte

	OnReset          func()
	OnFirmwareUpdate func()
}

// New builds a Dispatcher over its collaborators. cal and store may be
// nil where calibration or persistence are not wired (e.g. unit tests
// exercising only setpoint dispatch).
func New(facade *command.Facade, ctrl *regulator.Controller, cal *servo.Calibrator, store paramstore.Store) *Dispatcher {
	return &Dispatcher{facade: facade, ctrl: ctrl, cal: cal, store: store, FirmwareVersion: 1}
}

// CancelPending discards every deferred grouped setpoint without
// applying it. Wired to regulator.Controller.OnPendingCancel so a mode
// switch cannot leave a stale setpoint to commit into the newly active
// mode on the next sync (§4.5 "Mode switching").
func (d *Dispatcher) CancelPending() { d.pending.Clear() }

// Dispatch is the single entry point described in §4.9: given a
// decoded ID and payload, it routes to a per-class handler and reports
// the response payload (nil if none) and whether an ACK should be
// transmitted.
func (d *Dispatcher) Dispatch(id canid.ID, payload []byte) (resp []byte, ack bool) {
	switch id.APIClass {
	case canid.APIClassSystem:
		return d.dispatchSystem(id, payload)
	case canid.APIClassVoltage:
		return d.dispatchI16Setpoint(id, payload, d.ctrl.VoltageTargetGet, d.facade.SetVoltage, &d.pending.Voltage)
	case canid.APIClassVCompensation:
		return d.dispatchI16Setpoint(id, payload, d.ctrl.VCompTargetGet, d.facade.SetVComp, &d.pending.VComp)
	case canid.APIClassCurrent:
		return d.dispatchCurrentSetpoint(id, payload)
	case canid.APIClassSpeed:
		return d.dispatchSpeedSetpoint(id, payload)
	case canid.APIClassPosition:
		return d.dispatchPositionSetpoint(id, payload)
	case canid.APIClassStatus:
		return d.dispatchStatus(id, payload)
	case canid.APIClassConfiguration:
		return d.dispatchConfiguration(id, payload)
	case canid.APIClassPeriodicStatus:
		return d.dispatchPeriodicStatusConfig(id, payload)
	case canid.APIClassFirmwareUpdate:
		if d.OnFirmwareUpdate != nil {
			d.OnFirmwareUpdate()
		}
		return nil, false
	}
	return nil, false
}

func (d *Dispatcher) dispatchSystem(id canid.ID, payload []byte) ([]byte, bool) {
	switch id.APIIndex {
	case canid.SysHalt:
		d.ctrl.Halt()
	case canid.SysResume:
		d.ctrl.Resume()
	case canid.SysReset:
		if d.OnReset != nil {
			d.OnReset()
		}
	case canid.SysSync:
		if len(payload) < 1 {
			return nil, false
		}
		d.CommitGroup(payload[0])
	case canid.SysHeartbeat:
		// Liveness is recorded by the transport layer for every valid
		// frame (Supplemented-from-original_source); nothing further
		// to do here.
	case canid.SysDeviceQuery:
		return d.DeviceDescriptor, false
	case canid.SysFirmwareVersion:
		v := d.FirmwareVersion
		return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}, false
	}
	return nil, false
}

// CommitGroup applies every pending slot whose mask ANDs non-zero with
// group, via the command facade.
func (d *Dispatcher) CommitGroup(group byte) {
	d.pending.CommitGroup(group, ApplyFuncs{
		Voltage:  d.facade.SetVoltage,
		VComp:    d.facade.SetVComp,
		Current:  func(v int16) { d.facade.SetCurrent(v) },
		Speed:    func(v int32) { d.facade.SetSpeed(v) },
		Position: func(v int32) { d.facade.SetPosition(v) },
	})
}

// dispatchI16Setpoint handles the Set/Get/SetNoAck triplet shared by
// Voltage and VComp (both i16, both group-able).
func (d *Dispatcher) dispatchI16Setpoint(id canid.ID, payload []byte, get func() int16, set func(int16), pend *Pending[int16]) ([]byte, bool) {
	switch id.APIIndex {
	case canid.IdxGet:
		if len(payload) != 0 {
			return nil, false
		}
		v := get()
		return []byte{byte(v), byte(v >> 8)}, false
	case canid.IdxSet, canid.IdxSetNoAck:
		v, group, ok := decodeI16(payload)
		if !ok {
			return nil, false
		}
		if group == 0 {
			set(v)
		} else if pend != nil {
			pend.Set(v, group)
		}
		return nil, id.APIIndex == canid.IdxSet
	}
	return nil, false
}

func (d *Dispatcher) dispatchCurrentSetpoint(id canid.ID, payload []byte) ([]byte, bool) {
	switch id.APIIndex {
	case canid.IdxGet:
		if len(payload) != 0 {
			return nil, false
		}
		v := int16(d.ctrl.CurrentTargetGet())
		return []byte{byte(v), byte(v >> 8)}, false
	case canid.IdxSet, canid.IdxSetNoAck:
		v, group, ok := decodeI16(payload)
		if !ok {
			return nil, false
		}
		if group == 0 {
			d.facade.SetCurrent(v)
		} else {
			d.pending.Current.Set(v, group)
		}
		return nil, id.APIIndex == canid.IdxSet
	case canid.IdxP:
		return d.dispatchGain(payload, func() fixed.Q16_16 { return d.ctrl.CurrentPIDGet().P }, d.facade.SetCurrentP)
	case canid.IdxI:
		return d.dispatchGain(payload, func() fixed.Q16_16 { return d.ctrl.CurrentPIDGet().I }, d.facade.SetCurrentI)
	case canid.IdxD:
		return d.dispatchGain(payload, func() fixed.Q16_16 { return d.ctrl.CurrentPIDGet().D }, d.facade.SetCurrentD)
	}
	return nil, false
}

func (d *Dispatcher) dispatchSpeedSetpoint(id canid.ID, payload []byte) ([]byte, bool) {
	switch id.APIIndex {
	case canid.IdxGet:
		if len(payload) != 0 {
			return nil, false
		}
		v := int32(d.ctrl.SpeedTargetGet())
		return le32(v), false
	case canid.IdxSet, canid.IdxSetNoAck:
		v, group, ok := decodeI32(payload)
		if !ok {
			return nil, false
		}
		if group == 0 {
			d.facade.SetSpeed(v)
		} else {
			d.pending.Speed.Set(v, group)
		}
		return nil, id.APIIndex == canid.IdxSet
	case canid.IdxP:
		return d.dispatchGain(payload, func() fixed.Q16_16 { return d.ctrl.SpeedPIDGet().P }, d.facade.SetSpeedP)
	case canid.IdxI:
		return d.dispatchGain(payload, func() fixed.Q16_16 { return d.ctrl.SpeedPIDGet().I }, d.facade.SetSpeedI)
	case canid.IdxD:
		return d.dispatchGain(payload, func() fixed.Q16_16 { return d.ctrl.SpeedPIDGet().D }, d.facade.SetSpeedD)
	case canid.IdxSrc:
		if len(payload) != 1 {
			return nil, false
		}
		d.facade.SetSpeedSrc(payload[0])
		return nil, true
	}
	return nil, false
}

func (d *Dispatcher) dispatchPositionSetpoint(id canid.ID, payload []byte) ([]byte, bool) {
	switch id.APIIndex {
	case canid.IdxGet:
		if len(payload) != 0 {
			return nil, false
		}
		v := int32(d.ctrl.PositionTargetGet())
		return le32(v), false
	case canid.IdxSet, canid.IdxSetNoAck:
		v, group, ok := decodeI32(payload)
		if !ok {
			return nil, false
		}
		if group == 0 {
			d.facade.SetPosition(v)
		} else {
			d.pending.Position.Set(v, group)
		}
		return nil, id.APIIndex == canid.IdxSet
	case canid.IdxP:
		return d.dispatchGain(payload, func() fixed.Q16_16 { return d.ctrl.PositionPIDGet().P }, d.facade.SetPositionP)
	case canid.IdxI:
		return d.dispatchGain(payload, func() fixed.Q16_16 { return d.ctrl.PositionPIDGet().I }, d.facade.SetPositionI)
	case canid.IdxD:
		return d.dispatchGain(payload, func() fixed.Q16_16 { return d.ctrl.PositionPIDGet().D }, d.facade.SetPositionD)
	case canid.IdxSrc:
		if len(payload) != 1 {
			return nil, false
		}
		d.facade.SetPositionSrc(payload[0])
		return nil, true
	}
	return nil, false
}

func (d *Dispatcher) dispatchGain(payload []byte, get func() fixed.Q16_16, set func(int32)) ([]byte, bool) {
	if len(payload) == 0 {
		v := int32(get())
		return le32(v), false
	}
	v, _, ok := decodeI32(payload)
	if !ok {
		return nil, false
	}
	set(v)
	return nil, true
}

func (d *Dispatcher) dispatchStatus(id canid.ID, payload []byte) ([]byte, bool) {
	clear := len(payload) >= 1 && payload[0] != 0
	faults := byte(d.ctrl.FaultsActive())
	sticky := byte(d.ctrl.StatusRead(clear))
	return []byte{faults, sticky}, false
}

// dispatchConfiguration handles servo calibration control (§6).
func (d *Dispatcher) dispatchConfiguration(id canid.ID, payload []byte) ([]byte, bool) {
	if d.cal == nil {
		return nil, false
	}
	switch id.APIIndex {
	case configIdxCalStart:
		err := d.cal.StartCalibration(nonCommFaults{d.ctrl})
		return nil, err == nil
	case configIdxCalEnd:
		_, err := d.cal.EndCalibration()
		return nil, err == nil
	case configIdxCalAbort:
		d.cal.AbortCalibration()
		return nil, true
	}
	return nil, false
}

// nonCommFaults reports the regulator's active faults, minus the
// communication fault, as a servo.FaultSource.
type nonCommFaults struct{ ctrl *regulator.Controller }

func (f nonCommFaults) NonCommFaultActive() bool {
	return f.ctrl.FaultsActive()&^regulator.FaultCommunication != 0
}

// Configuration-class sub-indices for servo calibration control.
const (
	configIdxCalStart = iota
	configIdxCalEnd
	configIdxCalAbort
)

// dispatchPeriodicStatusConfig handles pstat_per_en_Sn (idx 0..3) and
// pstat_cfg_Sn (idx 4..7); idx 8..11 (data frames) are outgoing-only
// and never dispatched.
func (d *Dispatcher) dispatchPeriodicStatusConfig(id canid.ID, payload []byte) ([]byte, bool) {
	switch {
	case id.APIIndex < 4:
		if len(payload) != 2 {
			return nil, false
		}
		period := uint16(payload[0]) | uint16(payload[1])<<8
		d.Status.PeriodSet(int(id.APIIndex), period)
		return nil, true
	case id.APIIndex >= 4 && id.APIIndex < 8:
		if len(payload) != pstat.DescriptorLen {
			return nil, false
		}
		var desc [pstat.DescriptorLen]pstat.Opcode
		for i, b := range payload {
			desc[i] = pstat.Opcode(b)
		}
		d.Status.DescriptorSet(int(id.APIIndex-4), desc)
		return nil, true
	}
	return nil, false
}

func decodeI16(payload []byte) (v int16, group byte, ok bool) {
	switch len(payload) {
	case 2:
		return int16(uint16(payload[0]) | uint16(payload[1])<<8), 0, true
	case 3:
		return int16(uint16(payload[0]) | uint16(payload[1])<<8), payload[2], true
	default:
		return 0, 0, false
	}
}

func decodeI32(payload []byte) (v int32, group byte, ok bool) {
	switch len(payload) {
	case 4:
		return le32ToInt(payload), 0, true
	case 5:
		return le32ToInt(payload), payload[4], true
	default:
		return 0, 0, false
	}
}

func le32ToInt(b []byte) int32 {
	return int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
}

func le32(v int32) []byte {
	u := uint32(v)
	return []byte{byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24)}
}
