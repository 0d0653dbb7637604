//go:build !tinygo

// Host/Linux-bench backend: binds Interface to a real SocketCAN device
// via github.com/brutella/can, the way other_examples' gocanopen binds
// its emergency/PDO layers to a can.Bus.
package can

import (
	gocan "github.com/brutella/can"
)

// SocketCANBus adapts a *gocan.Bus to this package's Bus interface and
// forwards received frames to an Interface.
type SocketCANBus struct {
	bus *gocan.Bus
}

// OpenSocketCAN opens the named SocketCAN interface (e.g. "can0") and
// wires it to the given Interface.
func OpenSocketCAN(name string, iface *Interface) (*SocketCANBus, error) {
	bus, err := gocan.NewBusForInterfaceWithName(name)
	if err != nil {
		return nil, err
	}
	s := &SocketCANBus{bus: bus}
	bus.SubscribeFunc(func(frame gocan.Frame) {
		iface.HandleFrame(Frame{ID: frame.ID, Data: frame.Data[:frame.Length]})
	})
	return s, nil
}

// Send implements Bus by publishing onto the SocketCAN bus.
func (s *SocketCANBus) Send(f Frame) error {
	var data [8]uint8
	n := copy(data[:], f.Data)
	return s.bus.Publish(gocan.Frame{
		ID:     f.ID,
		Length: uint8(n),
		Data:   data,
	})
}

// Run blocks, dispatching received frames until the bus disconnects or
// ctx-style cancellation is triggered via Disconnect.
func (s *SocketCANBus) Run() error {
	return s.bus.ConnectAndPublish()
}

// Disconnect closes the underlying SocketCAN socket.
func (s *SocketCANBus) Disconnect() error {
	return s.bus.Disconnect()
}
