package pstat

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestAssembleStopsAtEndMarker(t *testing.T) {
	var desc [DescriptorLen]Opcode
	desc[0] = OpVoltageOutLSB
	desc[1] = OpVoltageOutMSB
	desc[2] = OpEndMarker
	desc[3] = OpCurrentLSB // must never be reached

	snap := Snapshot{VoltageOut: 0x1234, Current: 0xFFFF}
	got := Assemble(desc, snap, ClearHooks{})
	want := []byte{0x34, 0x12}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestAssembleFaultCountersInOrder(t *testing.T) {
	var desc [DescriptorLen]Opcode
	desc[0] = OpFaultCounterCurrent
	desc[1] = OpFaultCounterTemperature
	desc[2] = OpFaultCounterBusVoltage
	desc[3] = OpFaultCounterGateDriver
	desc[4] = OpFaultCounterCommunication
	desc[5] = OpEndMarker

	snap := Snapshot{FaultCounters: [5]uint8{1, 2, 3, 4, 5}}
	got := Assemble(desc, snap, ClearHooks{})
	want := []byte{1, 2, 3, 4, 5}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestAssembleStickyFaultsClrInvokesHook(t *testing.T) {
	var desc [DescriptorLen]Opcode
	desc[0] = OpStickyFaultsClr
	desc[1] = OpEndMarker

	cleared := false
	snap := Snapshot{StickyFaults: 0x5}
	got := Assemble(desc, snap, ClearHooks{ClearStickyFaults: func() { cleared = true }})
	if !bytes.Equal(got, []byte{0x5}) {
		t.Fatalf("got %v, want [5]", got)
	}
	if !cleared {
		t.Fatal("expected ClearStickyFaults hook to fire")
	}
}

func TestSchedulerFiresOnPeriodBoundary(t *testing.T) {
	var s Scheduler
	s.PeriodSet(0, 3)
	var desc [DescriptorLen]Opcode
	desc[0] = OpFaults
	desc[1] = OpEndMarker
	s.DescriptorSet(0, desc)

	snap := Snapshot{Faults: 0xAA}
	var totalFired int
	for i := 0; i < 9; i++ {
		fired := s.Tick(snap, ClearHooks{})
		totalFired += len(fired)
	}
	if totalFired != 3 {
		t.Fatalf("expected 3 firings over 9 ticks at period 3, got %d", totalFired)
	}
}

func TestSchedulerDisabledSlotNeverFires(t *testing.T) {
	var s Scheduler
	for i := 0; i < 100; i++ {
		if fired := s.Tick(Snapshot{}, ClearHooks{}); len(fired) != 0 {
			t.Fatalf("disabled slot fired at tick %d", i)
		}
	}
}

func TestAssembleRespectsDescriptorLen(t *testing.T) {
	c := qt.New(t)

	var desc [DescriptorLen]Opcode
	for i := range desc {
		desc[i] = OpFaults
	}
	snap := Snapshot{Faults: 0x7}
	got := Assemble(desc, snap, ClearHooks{})
	c.Assert(got, qt.HasLen, DescriptorLen)
	for _, b := range got {
		c.Assert(b, qt.Equals, byte(0x7))
	}
}
