package can

import (
	"testing"

	"github.com/jaguarmc/core/canid"
)

type recordingBus struct {
	sent []Frame
}

func (b *recordingBus) Send(f Frame) error {
	b.sent = append(b.sent, f)
	return nil
}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(canid.ID, []byte) ([]byte, bool) { return nil, false }

func newTestInterface(bus Bus, dev uint8) *Interface {
	return New(Config{
		Bus:          bus,
		Dispatcher:   nopDispatcher{},
		DeviceNumber: func() uint8 { return dev },
	})
}

func TestEnumerationRespondsAfterDeviceNumberDelay(t *testing.T) {
	bus := &recordingBus{}
	iface := newTestInterface(bus, 5)

	iface.HandleFrame(Frame{ID: canid.Enumerate().Encode()})

	for i := 0; i < 4; i++ {
		iface.Tick()
	}
	if len(bus.sent) != 0 {
		t.Fatalf("responded too early: %d ticks", 4)
	}
	iface.Tick() // tick 5
	if len(bus.sent) != 1 {
		t.Fatalf("expected enumeration response at tick 5, got %d frames", len(bus.sent))
	}
}

func TestEnumerationSilentAtDeviceZero(t *testing.T) {
	bus := &recordingBus{}
	iface := newTestInterface(bus, 0)
	iface.HandleFrame(Frame{ID: canid.Enumerate().Encode()})
	for i := 0; i < 10; i++ {
		iface.Tick()
	}
	if len(bus.sent) != 0 {
		t.Fatalf("device 0 must never respond to enumerate, got %d frames", len(bus.sent))
	}
}

func TestAssignTransitionsToPendingAndCommitsOnConfirm(t *testing.T) {
	bus := &recordingBus{}
	iface := newTestInterface(bus, 5)
	var neutralForced bool
	var committed uint8
	var commitSeen bool
	iface.onForceNeutral = func() { neutralForced = true }
	iface.onAssignCommit = func(id uint8) { committed = id; commitSeen = true }

	iface.HandleFrame(Frame{ID: canid.Assign().Encode(), Data: []byte{9}})
	if iface.AssignmentState() != AssignPending {
		t.Fatal("expected AssignPending")
	}
	if !neutralForced {
		t.Fatal("expected force-neutral on entering PendingAssign")
	}

	iface.ConfirmAssignment()
	if iface.AssignmentState() != AssignIdle {
		t.Fatal("expected AssignIdle after confirm")
	}
	if !commitSeen || committed != 9 {
		t.Fatalf("expected commit(9), got commit=%v id=%d", commitSeen, committed)
	}
}

func TestAssignTimeoutWithoutConfirmLeavesIDUnchanged(t *testing.T) {
	bus := &recordingBus{}
	iface := newTestInterface(bus, 5)
	commits := 0
	iface.onAssignCommit = func(uint8) { commits++ }

	iface.HandleFrame(Frame{ID: canid.Assign().Encode(), Data: []byte{9}})
	for i := 0; i < assignmentTimeoutTicks; i++ {
		iface.Tick()
	}
	if iface.AssignmentState() != AssignIdle {
		t.Fatal("expected state to return to Idle on timeout")
	}
	if commits != 0 {
		t.Fatalf("expected no commit on timeout for a different pending id, got %d", commits)
	}
}

func TestAssignTimeoutToSameIDCommitsZero(t *testing.T) {
	bus := &recordingBus{}
	iface := newTestInterface(bus, 9) // pending id will equal current device number
	var committed uint8 = 255
	iface.onAssignCommit = func(id uint8) { committed = id }

	iface.HandleFrame(Frame{ID: canid.Assign().Encode(), Data: []byte{9}})
	for i := 0; i < assignmentTimeoutTicks; i++ {
		iface.Tick()
	}
	if committed != 0 {
		t.Fatalf("expected timeout-to-same-id to commit 0, got %d", committed)
	}
}

func TestAssignZeroIsImmediateUnassign(t *testing.T) {
	bus := &recordingBus{}
	iface := newTestInterface(bus, 5)
	var committed uint8 = 255
	iface.onAssignCommit = func(id uint8) { committed = id }

	iface.HandleFrame(Frame{ID: canid.Assign().Encode(), Data: []byte{0}})
	if iface.AssignmentState() != AssignIdle {
		t.Fatal("expected immediate Idle for new-id=0")
	}
	if committed != 0 {
		t.Fatalf("expected immediate commit(0), got %d", committed)
	}
}

func TestAssignOutOfRangeIgnored(t *testing.T) {
	bus := &recordingBus{}
	iface := newTestInterface(bus, 5)
	iface.HandleFrame(Frame{ID: canid.Assign().Encode(), Data: []byte{64}})
	if iface.AssignmentState() != AssignIdle {
		t.Fatal("expected out-of-range new-id to be ignored")
	}
}

func TestBusOffRaisesAndClearsOnlyOnTransition(t *testing.T) {
	iface := newTestInterface(&recordingBus{}, 5)
	events := 0
	iface.onBusOff = func(bool) { events++ }

	iface.SetBusOff(true)
	iface.SetBusOff(true) // no-op, already bus-off
	if events != 1 {
		t.Fatalf("expected exactly one raise event, got %d", events)
	}
	iface.SetBusOff(false)
	if events != 2 {
		t.Fatalf("expected exactly one clear event, got %d", events)
	}
}
