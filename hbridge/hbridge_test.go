package hbridge

import "testing"

type recordingSink struct {
	outputs []Output
}

func (r *recordingSink) Drive(o Output) {
	r.outputs = append(r.outputs, o)
}

func TestSetClampsToVoltageMax(t *testing.T) {
	sink := &recordingSink{}
	d := New(sink, 10000, false)
	d.Set(32767)
	got := sink.outputs[len(sink.outputs)-1]
	if got.Magnitude != 10000 || !got.Forward {
		t.Errorf("got %+v, want magnitude clamped to 10000 forward", got)
	}
}

func TestSetZeroIsNeutral(t *testing.T) {
	sink := &recordingSink{}
	d := New(sink, 32767, false)
	d.Set(0)
	got := sink.outputs[len(sink.outputs)-1]
	if got.Forward || got.Reverse {
		t.Errorf("got %+v, want neutral", got)
	}
}

func TestDirectionFlipPassesThroughNeutral(t *testing.T) {
	sink := &recordingSink{}
	d := New(sink, 32767, false)
	d.Set(1000)
	d.Set(-1000)

	if len(sink.outputs) != 3 {
		t.Fatalf("got %d drive calls, want 3 (forward, neutral, reverse)", len(sink.outputs))
	}
	if !sink.outputs[0].Forward {
		t.Errorf("outputs[0] = %+v, want forward", sink.outputs[0])
	}
	if sink.outputs[1].Forward || sink.outputs[1].Reverse {
		t.Errorf("outputs[1] = %+v, want neutral dead-time tick", sink.outputs[1])
	}
	if !sink.outputs[2].Reverse {
		t.Errorf("outputs[2] = %+v, want reverse", sink.outputs[2])
	}
}

func TestSameDirectionDoesNotInsertNeutral(t *testing.T) {
	sink := &recordingSink{}
	d := New(sink, 32767, false)
	d.Set(1000)
	d.Set(2000)
	if len(sink.outputs) != 2 {
		t.Fatalf("got %d drive calls, want 2", len(sink.outputs))
	}
}

func TestBrakeCoastLockedByJumperIgnoresWrites(t *testing.T) {
	sink := &recordingSink{}
	d := New(sink, 32767, true)
	d.BrakeCoastSet(Brake)
	if d.BrakeCoastGet() != Coast {
		t.Errorf("policy = %v, want Coast (locked writes must be ignored)", d.BrakeCoastGet())
	}
}

func TestForceNeutralAlwaysNeutral(t *testing.T) {
	sink := &recordingSink{}
	d := New(sink, 32767, false)
	d.Set(5000)
	d.ForceNeutral()
	got := sink.outputs[len(sink.outputs)-1]
	if got.Forward || got.Reverse {
		t.Errorf("got %+v, want neutral", got)
	}
}

func TestDutyMagnitudeNeverExceedsVoltageMax(t *testing.T) {
	sink := &recordingSink{}
	d := New(sink, 5000, false)
	for _, duty := range []int16{-32768, -6000, -1, 0, 1, 6000, 32767} {
		d.Set(duty)
		got := sink.outputs[len(sink.outputs)-1]
		if got.Magnitude > 5000 {
			t.Errorf("Set(%d) magnitude = %d, want <= 5000", duty, got.Magnitude)
		}
	}
}
