package uartproto

import "github.com/jaguarmc/core/canid"

// CANSender is the minimal CAN transmit surface the bridge needs.
type CANSender interface {
	Send(id uint32, data []byte) error
}

// Dispatcher is the message layer's entry point, shared with the CAN
// interface (§4.9).
type Dispatcher interface {
	Dispatch(id canid.ID, payload []byte) (resp []byte, ack bool)
}

// LocalReset is invoked to perform the local system reset once any
// bounded-wait bus transmission has completed (§4.8 "System-reset
// bridge messages are transmitted with a bounded wait so the bus TX
// completes before the local reset, if the target is the local
// device").
type LocalReset func()

// Bridge ties the UART packet codec to the CAN bridge-forwarding rules
// of §4.8: commands not addressed to the local device (or pure
// broadcasts) go out on CAN; CAN frames received on the bridge slots
// are forwarded out the UART.
type Bridge struct {
	deviceNo   func() uint8
	dispatcher Dispatcher
	can        CANSender
	tx         *TXRing
	localReset LocalReset
	onActivity func()

	resetWaitRemaining int
}

// ResetBridgeWaitTicks bounds how long the bridge waits for a pending
// CAN transmission to drain before performing a local reset.
const ResetBridgeWaitTicks = 10

// NewBridge builds a Bridge over the given collaborators and transmit
// ring.
func NewBridge(deviceNo func() uint8, dispatcher Dispatcher, can CANSender, tx *TXRing, localReset LocalReset) *Bridge {
	return &Bridge{deviceNo: deviceNo, dispatcher: dispatcher, can: can, tx: tx, localReset: localReset}
}

// SetCANSender rewires the bridge's outbound CAN transmit path, used
// once a host binary has finished opening the real transport.
func (b *Bridge) SetCANSender(can CANSender) { b.can = can }

// SetOnActivity registers a callback invoked on every decoded UART
// packet, regardless of its destination — the link-watchdog liveness
// signal (§4.5 "any valid decoded frame refreshes link liveness") needs
// to see all traffic, not just locally-dispatched traffic.
func (b *Bridge) SetOnActivity(fn func()) { b.onActivity = fn }

// HandlePacket processes one decoded UART packet carrying a 4-byte
// little-endian CAN ID header followed by its payload. Local-destined
// traffic is dispatched directly; everything else (including pure
// broadcasts) is forwarded onto the CAN bus.
func (b *Bridge) HandlePacket(p Packet) {
	if b.onActivity != nil {
		b.onActivity()
	}
	if len(p.Data) < 4 {
		return
	}
	rawID := uint32(p.Data[0]) | uint32(p.Data[1])<<8 | uint32(p.Data[2])<<16 | uint32(p.Data[3])<<24
	payload := p.Data[4:]
	id := canid.Decode(rawID & canid.WireMask)

	local := id.DeviceNo == b.deviceNo()
	broadcast := id.IsBroadcast()

	if id.APIClass == canid.APIClassSystem && id.APIIndex == canid.SysReset && local {
		b.scheduleResetBridge(rawID, payload)
		return
	}

	if local && !broadcast {
		resp, ack := b.dispatcher.Dispatch(id, payload)
		if resp != nil {
			b.stageFrame(id.Encode(), resp)
		}
		if ack {
			b.stageFrame(canid.Ack(b.deviceNo()).Encode(), nil)
		}
		return
	}

	// Not locally destined, or a pure broadcast: forward onto CAN.
	// Broadcasts are also acted on locally per the system-message
	// contract (every device processes a broadcast).
	b.can.Send(rawID, payload)
	if broadcast {
		b.dispatcher.Dispatch(id, payload)
	}
}

func (b *Bridge) scheduleResetBridge(rawID uint32, payload []byte) {
	b.can.Send(rawID, payload)
	b.resetWaitRemaining = ResetBridgeWaitTicks
}

// Tick advances the bounded-wait reset timer; once it reaches zero (or
// the wait elapses) the local reset fires.
func (b *Bridge) Tick() {
	if b.resetWaitRemaining <= 0 {
		return
	}
	b.resetWaitRemaining--
	if b.resetWaitRemaining == 0 && b.localReset != nil {
		b.localReset()
	}
}

// HandleCANFrame forwards a frame received on a bridge RX slot out the
// UART (§4.8 "CAN messages received by the bridge slots are forwarded
// out the UART").
func (b *Bridge) HandleCANFrame(id uint32, data []byte) {
	payload := make([]byte, 4+len(data))
	payload[0] = byte(id)
	payload[1] = byte(id >> 8)
	payload[2] = byte(id >> 16)
	payload[3] = byte(id >> 24)
	copy(payload[4:], data)
	b.tx.Stage(Encode(payload))
}

func (b *Bridge) stageFrame(id uint32, data []byte) {
	payload := make([]byte, 4+len(data))
	payload[0] = byte(id)
	payload[1] = byte(id >> 8)
	payload[2] = byte(id >> 16)
	payload[3] = byte(id >> 24)
	copy(payload[4:], data)
	b.tx.Stage(Encode(payload))
}
