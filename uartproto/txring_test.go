package uartproto

import (
	"bytes"
	"testing"
)

func TestTXRingStageAndDrain(t *testing.T) {
	r := NewTXRing(16)
	if err := r.Stage([]byte{1, 2, 3}); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if r.Pending() != 3 {
		t.Fatalf("Pending() = %d, want 3", r.Pending())
	}
	out := make([]byte, 2)
	n := r.Drain(out)
	if n != 2 || !bytes.Equal(out, []byte{1, 2}) {
		t.Fatalf("Drain = %d %v, want 2 [1 2]", n, out)
	}
	if r.Pending() != 1 {
		t.Fatalf("Pending() after drain = %d, want 1", r.Pending())
	}
}

func TestTXRingFullRejectsWholeFrame(t *testing.T) {
	r := NewTXRing(4)
	if err := r.Stage([]byte{1, 2, 3, 4, 5}); err != ErrRingFull {
		t.Fatalf("got %v, want ErrRingFull", err)
	}
	if r.Pending() != 0 {
		t.Fatalf("a rejected frame must not partially stage, Pending() = %d", r.Pending())
	}
}

func TestTXRingWrapsAround(t *testing.T) {
	r := NewTXRing(4)
	r.Stage([]byte{1, 2, 3})
	r.Drain(make([]byte, 3))
	r.Stage([]byte{4, 5, 6})
	out := make([]byte, 3)
	r.Drain(out)
	if !bytes.Equal(out, []byte{4, 5, 6}) {
		t.Fatalf("got %v, want [4 5 6]", out)
	}
}
