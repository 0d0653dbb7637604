package limits

import "testing"

func TestHardLimitInhibitsMotionUntilReleased(t *testing.T) {
	m := New()
	m.Poll(HardwareInputs{ForwardTriggered: true}, 0)

	if !m.ForwardInhibited() {
		t.Fatal("expected forward inhibited while hard limit triggered")
	}
	if m.ReverseInhibited() {
		t.Fatal("reverse should still be allowed")
	}

	m.Poll(HardwareInputs{}, 0)
	if m.ForwardInhibited() {
		t.Fatal("expected forward allowed once hard limit releases")
	}
}

func TestStickyLatchesUntilClear(t *testing.T) {
	m := New()
	m.Poll(HardwareInputs{ForwardTriggered: true}, 0)
	m.Poll(HardwareInputs{}, 0)

	if !m.StickyForwardHard() {
		t.Fatal("sticky forward-hard should remain latched after release")
	}
	m.ClearSticky()
	if m.StickyForwardHard() {
		t.Fatal("sticky forward-hard should clear on ClearSticky")
	}
}

func TestSoftLimitDisabledByDefault(t *testing.T) {
	m := New()
	m.SoftForwardConfigSet(SoftLimitConfig{Threshold: 100, Sense: GreaterThan})
	m.Poll(HardwareInputs{}, 1000)
	if m.ForwardInhibited() {
		t.Fatal("soft limit must be inactive unless activation mode enables it")
	}
}

func TestSoftLimitGreaterThanTripsForward(t *testing.T) {
	m := New()
	m.ActivationModeSet(ForwardSoft)
	m.SoftForwardConfigSet(SoftLimitConfig{Threshold: 100, Sense: GreaterThan})

	m.Poll(HardwareInputs{}, 50)
	if m.ForwardInhibited() {
		t.Fatal("position below threshold should not inhibit")
	}
	m.Poll(HardwareInputs{}, 150)
	if !m.ForwardInhibited() {
		t.Fatal("position above threshold with GreaterThan sense should inhibit forward")
	}
}

func TestSoftLimitLessThanTripsReverse(t *testing.T) {
	m := New()
	m.ActivationModeSet(ReverseSoft)
	m.SoftReverseConfigSet(SoftLimitConfig{Threshold: -100, Sense: LessThan})

	m.Poll(HardwareInputs{}, -50)
	if m.ReverseInhibited() {
		t.Fatal("position above threshold should not inhibit")
	}
	m.Poll(HardwareInputs{}, -150)
	if !m.ReverseInhibited() {
		t.Fatal("position below threshold with LessThan sense should inhibit reverse")
	}
}

func TestBothSoftEnablesBothDirections(t *testing.T) {
	m := New()
	m.ActivationModeSet(BothSoft)
	m.SoftForwardConfigSet(SoftLimitConfig{Threshold: 100, Sense: GreaterThan})
	m.SoftReverseConfigSet(SoftLimitConfig{Threshold: -100, Sense: LessThan})

	m.Poll(HardwareInputs{}, 150)
	if !m.ForwardInhibited() {
		t.Fatal("expected forward inhibited")
	}
	m.Poll(HardwareInputs{}, -150)
	if !m.ReverseInhibited() {
		t.Fatal("expected reverse inhibited")
	}
}
