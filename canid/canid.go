// Package canid implements the Jaguar CAN message identifier layout and
// its well-known IDs (§3, §6 of the core specification).
//
// The identifier is a 29-bit extended CAN ID decomposed, high bit to low
// bit, as:
//
//	device-type : 8
//	manufacturer: 8
//	API class   : 6
//	API index   : 4
//	device-no   : 6
//
// That is 32 nominal bits packed onto a 29-bit wire identifier. In
// practice device-type and manufacturer are each fixed constants for this
// firmware (DeviceTypeMotorController, ManufacturerTI below) whose values never
// exceed 5 significant bits, so no information is lost when the ID is
// masked to 29 bits on the wire; Encode/Decode round-trip exactly for
// every value this firmware ever produces, which is the property
// exercised by the round-trip tests.
package canid

// Field widths, in bits.
const (
	deviceTypeBits   = 8
	manufacturerBits = 8
	apiClassBits     = 6
	apiIndexBits     = 4
	deviceNoBits     = 6
)

// Field shifts within the 32-bit packed word.
const (
	deviceNoShift     = 0
	apiIndexShift     = deviceNoShift + deviceNoBits
	apiClassShift     = apiIndexShift + apiIndexBits
	manufacturerShift = apiClassShift + apiClassBits
	deviceTypeShift   = manufacturerShift + manufacturerBits
)

// Field masks, pre-shift.
const (
	deviceNoMask     = 1<<deviceNoBits - 1
	apiIndexMask     = 1<<apiIndexBits - 1
	apiClassMask     = 1<<apiClassBits - 1
	manufacturerMask = 1<<manufacturerBits - 1
	deviceTypeMask   = 1<<deviceTypeBits - 1
)

// WireMask is the real 29-bit extended-identifier mask applied before the
// ID reaches a CAN peripheral or a socketcan frame.
const WireMask = 0x1FFFFFFF

// Well-known device-type and manufacturer values used by this firmware.
const (
	DeviceTypeMotorController = 0x02
	ManufacturerTI            = 0x01
)

// BroadcastDevice is the distinguished "no device" / broadcast device
// number.
const BroadcastDevice = 0

// ID is a decoded Jaguar CAN message identifier.
type ID struct {
	DeviceType   uint8
	Manufacturer uint8
	APIClass     uint8
	APIIndex     uint8
	DeviceNo     uint8
}

// Encode packs the ID into its 29-bit wire representation.
func (id ID) Encode() uint32 {
	w := uint32(id.DeviceType&deviceTypeMask)<<deviceTypeShift |
		uint32(id.Manufacturer&manufacturerMask)<<manufacturerShift |
		uint32(id.APIClass&apiClassMask)<<apiClassShift |
		uint32(id.APIIndex&apiIndexMask)<<apiIndexShift |
		uint32(id.DeviceNo&deviceNoMask)<<deviceNoShift
	return w & WireMask
}

// Decode unpacks a 29-bit wire identifier.
func Decode(w uint32) ID {
	return ID{
		DeviceType:   uint8((w >> deviceTypeShift) & deviceTypeMask),
		Manufacturer: uint8((w >> manufacturerShift) & manufacturerMask),
		APIClass:     uint8((w >> apiClassShift) & apiClassMask),
		APIIndex:     uint8((w >> apiIndexShift) & apiIndexMask),
		DeviceNo:     uint8((w >> deviceNoShift) & deviceNoMask),
	}
}

// IsBroadcast reports whether the ID targets every device (device number
// 0).
func (id ID) IsBroadcast() bool {
	return id.DeviceNo == BroadcastDevice
}

// API class values (LM_API_* class nibble equivalents).
const (
	APIClassVoltage = iota + 0
	APIClassSpeed
	APIClassVCompensation
	APIClassPosition
	APIClassCurrent
	APIClassStatus
	APIClassSystem // covers halt/resume/reset/enumerate/assign/sync/heartbeat/devquery/firmver
	APIClassConfiguration
	APIClassPeriodicStatus
	APIClassFirmwareUpdate
)

// API index values, grouped by class. Each setpoint class shares the same
// index layout: 0=Set, 1=Get, 2=SetNoAck, then the per-gain, source and
// ramp indices enumerated below.
const (
	IdxSet = iota
	IdxGet
	IdxSetNoAck
	IdxP
	IdxI
	IdxD
	IdxSrc
	IdxInRamp  // VComp input ramp rate
	IdxCompRamp
)

// System-class indices (well-known broadcast/addressed system messages).
const (
	SysHalt = iota
	SysResume
	SysReset
	SysEnumerate
	SysAssign
	SysSync
	SysHeartbeat
	SysDeviceQuery
	SysFirmwareVersion
	SysAck
)

func system(idx uint8, devNo uint8) ID {
	return ID{
		DeviceType:   DeviceTypeMotorController,
		Manufacturer: ManufacturerTI,
		APIClass:     APIClassSystem,
		APIIndex:     idx,
		DeviceNo:     devNo,
	}
}

// Broadcast system messages, device number 0.
func Halt() ID      { return system(SysHalt, BroadcastDevice) }
func Resume() ID    { return system(SysResume, BroadcastDevice) }
func Reset() ID     { return system(SysReset, BroadcastDevice) }
func Enumerate() ID { return system(SysEnumerate, BroadcastDevice) }
func Assign() ID    { return system(SysAssign, BroadcastDevice) }
func Sync() ID      { return system(SysSync, BroadcastDevice) }
func Heartbeat() ID { return system(SysHeartbeat, BroadcastDevice) }

// Device-addressed, auto-responding system messages.
func DeviceQuery(devNo uint8) ID      { return system(SysDeviceQuery, devNo) }
func FirmwareVersion(devNo uint8) ID  { return system(SysFirmwareVersion, devNo) }
func Ack(devNo uint8) ID              { return system(SysAck, devNo) }
func FirmwareUpdate(devNo uint8) ID {
	return ID{DeviceType: DeviceTypeMotorController, Manufacturer: ManufacturerTI, APIClass: APIClassFirmwareUpdate, DeviceNo: devNo}
}

func setpointClass(class uint8, idx uint8, devNo uint8) ID {
	return ID{DeviceType: DeviceTypeMotorController, Manufacturer: ManufacturerTI, APIClass: class, APIIndex: idx, DeviceNo: devNo}
}

// VoltageSet/Get/SetNoAck etc. follow the same pattern for every
// regulated mode; the PID-gain, src and ramp indices have no constructor
// here, and the message layer matches them on a decoded ID's APIIndex.
func VoltageSet(devNo uint8) ID      { return setpointClass(APIClassVoltage, IdxSet, devNo) }
func VoltageGet(devNo uint8) ID      { return setpointClass(APIClassVoltage, IdxGet, devNo) }
func VoltageSetNoAck(devNo uint8) ID { return setpointClass(APIClassVoltage, IdxSetNoAck, devNo) }

func VCompSet(devNo uint8) ID      { return setpointClass(APIClassVCompensation, IdxSet, devNo) }
func VCompGet(devNo uint8) ID      { return setpointClass(APIClassVCompensation, IdxGet, devNo) }
func VCompSetNoAck(devNo uint8) ID { return setpointClass(APIClassVCompensation, IdxSetNoAck, devNo) }

func CurrentSet(devNo uint8) ID      { return setpointClass(APIClassCurrent, IdxSet, devNo) }
func CurrentGet(devNo uint8) ID      { return setpointClass(APIClassCurrent, IdxGet, devNo) }
func CurrentSetNoAck(devNo uint8) ID { return setpointClass(APIClassCurrent, IdxSetNoAck, devNo) }

func SpeedSet(devNo uint8) ID      { return setpointClass(APIClassSpeed, IdxSet, devNo) }
func SpeedGet(devNo uint8) ID      { return setpointClass(APIClassSpeed, IdxGet, devNo) }
func SpeedSetNoAck(devNo uint8) ID { return setpointClass(APIClassSpeed, IdxSetNoAck, devNo) }

func PositionSet(devNo uint8) ID      { return setpointClass(APIClassPosition, IdxSet, devNo) }
func PositionGet(devNo uint8) ID      { return setpointClass(APIClassPosition, IdxGet, devNo) }
func PositionSetNoAck(devNo uint8) ID { return setpointClass(APIClassPosition, IdxSetNoAck, devNo) }

// Periodic-status slot data identifiers (LM_API_PSTAT_DATA_S0..S3).
func PeriodicStatusData(slot int, devNo uint8) ID {
	return ID{DeviceType: DeviceTypeMotorController, Manufacturer: ManufacturerTI, APIClass: APIClassPeriodicStatus, APIIndex: uint8(8 + slot), DeviceNo: devNo}
}
