//go:build !tinygo

// Host/Linux-bench backend for the UART interface, grounded on
// github.com/tarm/serial the way the teacher's ch9120 and netdev
// packages wrap a byte-stream transport behind a small Config struct.
package uartproto

import (
	"github.com/tarm/serial"
)

// PortConfig mirrors the handful of serial.Config fields this
// protocol actually depends on (baud rate; framing is handled entirely
// in software by Decoder/Encode).
type PortConfig struct {
	Name string
	Baud int
}

// Port wraps a real serial port, feeding received bytes into a Decoder
// and draining a TXRing out to the wire.
type Port struct {
	port    *serial.Port
	decoder *Decoder
	tx      *TXRing
}

// OpenPort opens the named serial device at the given baud rate.
func OpenPort(cfg PortConfig, tx *TXRing) (*Port, error) {
	sp, err := serial.OpenPort(&serial.Config{Name: cfg.Name, Baud: cfg.Baud})
	if err != nil {
		return nil, err
	}
	return &Port{port: sp, decoder: NewDecoder(), tx: tx}, nil
}

// Poll reads any available bytes, feeding the decoder, and returns the
// packets assembled this call.
func (p *Port) Poll() ([]Packet, error) {
	buf := make([]byte, 256)
	n, err := p.port.Read(buf)
	if err != nil {
		return nil, err
	}
	var packets []Packet
	for i := 0; i < n; i++ {
		if pkt, ok := p.decoder.Feed(buf[i]); ok {
			packets = append(packets, pkt)
		}
	}
	return packets, nil
}

// Drain writes staged TX bytes out the serial port.
func (p *Port) Drain() error {
	if p.tx.Pending() == 0 {
		return nil
	}
	buf := make([]byte, p.tx.Pending())
	n := p.tx.Drain(buf)
	_, err := p.port.Write(buf[:n])
	return err
}

// Close releases the underlying serial port.
func (p *Port) Close() error { return p.port.Close() }
