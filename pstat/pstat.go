// Package pstat implements the periodic-status format-descriptor
// opcode enumeration and payload assembler (§4.9 "Periodic status").
package pstat

// Opcode is one byte of an 8-byte format descriptor.
type Opcode byte

// The closed enumeration of periodic-status opcodes. Values are this
// firmware's own assignment; what matters is that the set is closed
// and every opcode below is handled by Assemble.
const (
	OpVoltageOutLSB Opcode = iota
	OpVoltageOutMSB
	OpBusVoltageLSB
	OpBusVoltageMSB
	OpCurrentLSB
	OpCurrentMSB
	OpTemperatureLSB
	OpTemperatureMSB
	OpPositionB0
	OpPositionB1
	OpPositionB2
	OpPositionB3
	OpSpeedB0
	OpSpeedB1
	OpSpeedB2
	OpSpeedB3
	OpLimit
	OpLimitClr
	OpFaults
	OpStickyFaults
	OpStickyFaultsClr
	OpVoutLSB // measured output voltage, distinct from commanded voltage-out
	OpVoutMSB
	OpFaultCounterCurrent
	OpFaultCounterTemperature
	OpFaultCounterBusVoltage
	OpFaultCounterGateDriver
	OpFaultCounterCommunication
	OpCANStatus
	OpCANErrorLSB
	OpCANErrorMSB
	OpEndMarker
)

// DescriptorLen is the fixed size of a format descriptor (§4.9).
const DescriptorLen = 8

// Snapshot is the tick-coherent set of values a descriptor may draw
// from. Source collects it once per tick (§4.9 "Assembly snapshots
// multi-byte sensor reads once per tick across all slots for
// coherence").
type Snapshot struct {
	VoltageOut int16 // commanded duty, LastDutyOut()
	VoutMeasured int16 // measured output voltage, same units as VoltageOut

	BusVoltage  uint16 // Q8.8
	Current     uint16 // Q8.8
	Temperature uint16 // Q8.8

	Position int32
	Speed    int32

	Limit           byte
	StickyLimit     byte
	Faults          byte
	StickyFaults    byte

	FaultCounters [5]uint8 // indexed by regulator.FaultBit order: Current,Temp,BusVoltage,GateDriver,Communication

	CANStatus byte
	CANError  uint16
}

// ClearStickyFaults and ClearLimitSticky are invoked by Assemble when it
// encounters the corresponding "-clr" opcode, letting a descriptor
// double as a read-and-clear for sticky state.
type ClearHooks struct {
	ClearStickyFaults func()
	ClearLimitSticky  func()
}

// Assemble walks a descriptor, appending bytes per opcode until it hits
// OpEndMarker or the descriptor's own length, whichever comes first.
func Assemble(descriptor [DescriptorLen]Opcode, snap Snapshot, hooks ClearHooks) []byte {
	out := make([]byte, 0, DescriptorLen)
	for _, op := range descriptor {
		switch op {
		case OpEndMarker:
			return out
		case OpVoltageOutLSB:
			out = append(out, byte(snap.VoltageOut))
		case OpVoltageOutMSB:
			out = append(out, byte(snap.VoltageOut>>8))
		case OpVoutLSB:
			out = append(out, byte(snap.VoutMeasured))
		case OpVoutMSB:
			out = append(out, byte(snap.VoutMeasured>>8))
		case OpBusVoltageLSB:
			out = append(out, byte(snap.BusVoltage))
		case OpBusVoltageMSB:
			out = append(out, byte(snap.BusVoltage>>8))
		case OpCurrentLSB:
			out = append(out, byte(snap.Current))
		case OpCurrentMSB:
			out = append(out, byte(snap.Current>>8))
		case OpTemperatureLSB:
			out = append(out, byte(snap.Temperature))
		case OpTemperatureMSB:
			out = append(out, byte(snap.Temperature>>8))
		case OpPositionB0:
			out = append(out, byte(snap.Position))
		case OpPositionB1:
			out = append(out, byte(snap.Position>>8))
		case OpPositionB2:
			out = append(out, byte(snap.Position>>16))
		case OpPositionB3:
			out = append(out, byte(snap.Position>>24))
		case OpSpeedB0:
			out = append(out, byte(snap.Speed))
		case OpSpeedB1:
			out = append(out, byte(snap.Speed>>8))
		case OpSpeedB2:
			out = append(out, byte(snap.Speed>>16))
		case OpSpeedB3:
			out = append(out, byte(snap.Speed>>24))
		case OpLimit:
			out = append(out, snap.Limit)
		case OpLimitClr:
			out = append(out, snap.StickyLimit)
			if hooks.ClearLimitSticky != nil {
				hooks.ClearLimitSticky()
			}
		case OpFaults:
			out = append(out, snap.Faults)
		case OpStickyFaults:
			out = append(out, snap.StickyFaults)
		case OpStickyFaultsClr:
			out = append(out, snap.StickyFaults)
			if hooks.ClearStickyFaults != nil {
				hooks.ClearStickyFaults()
			}
		case OpFaultCounterCurrent:
			out = append(out, snap.FaultCounters[0])
		case OpFaultCounterTemperature:
			out = append(out, snap.FaultCounters[1])
		case OpFaultCounterBusVoltage:
			out = append(out, snap.FaultCounters[2])
		case OpFaultCounterGateDriver:
			out = append(out, snap.FaultCounters[3])
		case OpFaultCounterCommunication:
			out = append(out, snap.FaultCounters[4])
		case OpCANStatus:
			out = append(out, snap.CANStatus)
		case OpCANErrorLSB:
			out = append(out, byte(snap.CANError))
		case OpCANErrorMSB:
			out = append(out, byte(snap.CANError>>8))
		}
		if len(out) >= DescriptorLen {
			return out
		}
	}
	return out
}
