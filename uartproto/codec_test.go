package uartproto

import (
	"bytes"
	"testing"
)

func feedAll(d *Decoder, bs []byte) []Packet {
	var got []Packet
	for _, b := range bs {
		if p, ok := d.Feed(b); ok {
			got = append(got, p)
		}
	}
	return got
}

func TestDecodeSimplePacket(t *testing.T) {
	d := NewDecoder()
	got := feedAll(d, []byte{0xFF, 3, 1, 2, 3})
	if len(got) != 1 {
		t.Fatalf("expected 1 packet, got %d", len(got))
	}
	if !bytes.Equal(got[0].Data, []byte{1, 2, 3}) {
		t.Fatalf("got %v, want [1 2 3]", got[0].Data)
	}
}

func TestDecodeEscapedBytes(t *testing.T) {
	d := NewDecoder()
	// payload [0xFF, 0xFE] stuffed as {0xFE,0xFE}{0xFE,0xFD}
	got := feedAll(d, []byte{0xFF, 2, 0xFE, 0xFE, 0xFE, 0xFD})
	if len(got) != 1 {
		t.Fatalf("expected 1 packet, got %d", len(got))
	}
	if !bytes.Equal(got[0].Data, []byte{0xFF, 0xFE}) {
		t.Fatalf("got %v, want [0xFF 0xFE]", got[0].Data)
	}
}

func TestZeroLengthPacket(t *testing.T) {
	d := NewDecoder()
	got := feedAll(d, []byte{0xFF, 0})
	if len(got) != 1 {
		t.Fatalf("expected 1 packet, got %d", len(got))
	}
	if len(got[0].Data) != 0 {
		t.Fatalf("expected empty payload, got %v", got[0].Data)
	}
}

func TestLengthOverMaxResetsToIdle(t *testing.T) {
	d := NewDecoder()
	got := feedAll(d, []byte{0xFF, 13, 1, 2, 3})
	if len(got) != 0 {
		t.Fatalf("expected no packet for over-max length, got %d", len(got))
	}
	if d.State() != StateIdle {
		t.Fatalf("expected Idle after over-max length, got %v", d.State())
	}
}

func TestMalformedEscapeReturnsToIdle(t *testing.T) {
	d := NewDecoder()
	feedAll(d, []byte{0xFF, 3, 1, 0xFE, 0xAA}) // 0xAA is not a valid escape continuation
	if d.State() != StateIdle {
		t.Fatalf("expected Idle after malformed escape, got %v", d.State())
	}
}

func TestNewStartByteAbandonsInFlightPacket(t *testing.T) {
	d := NewDecoder()
	got := feedAll(d, []byte{0xFF, 5, 1, 2, 0xFF, 2, 9, 9})
	if len(got) != 1 {
		t.Fatalf("expected 1 packet (the restarted one), got %d", len(got))
	}
	if !bytes.Equal(got[0].Data, []byte{9, 9}) {
		t.Fatalf("got %v, want [9 9]", got[0].Data)
	}
}

func TestEncodeRoundTripsThroughDecoder(t *testing.T) {
	payload := []byte{0x00, 0xFF, 0xFE, 0x7F, 0xFF}
	frame := Encode(payload)
	d := NewDecoder()
	got := feedAll(d, frame)
	if len(got) != 1 {
		t.Fatalf("expected 1 packet, got %d", len(got))
	}
	if !bytes.Equal(got[0].Data, payload) {
		t.Fatalf("got %v, want %v", got[0].Data, payload)
	}
}
