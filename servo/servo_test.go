package servo

import "testing"

func testWidths() Widths {
	return Widths{NegativeSpan: 500, Neutral: 1500, PositiveSpan: 500}
}

func TestMapNeutralIsZero(t *testing.T) {
	m := NewMapper(testWidths())
	if got := m.Map(1500); got != 0 {
		t.Errorf("Map(neutral) = %d, want 0", got)
	}
}

func TestMapEndpointsSaturate(t *testing.T) {
	m := NewMapper(testWidths())
	if got := m.Map(1000); got != -32768 {
		t.Errorf("Map(min) = %d, want -32768", got)
	}
	if got := m.Map(2000); got != 32767 {
		t.Errorf("Map(max) = %d, want 32767", got)
	}
}

func TestMapMidpointsAreHalfScale(t *testing.T) {
	m := NewMapper(testWidths())
	neg := m.Map(1250)
	if neg > -16000 || neg < -16768 {
		t.Errorf("Map(neg midpoint) = %d, want near -16384", neg)
	}
	pos := m.Map(1750)
	if pos < 16000 || pos > 16768 {
		t.Errorf("Map(pos midpoint) = %d, want near 16384", pos)
	}
}

func TestPeriodValid(t *testing.T) {
	if !PeriodValid(20000, 18000, 22000) {
		t.Error("expected period within range to be valid")
	}
	if PeriodValid(10000, 18000, 22000) {
		t.Error("expected period below range to be invalid")
	}
	if PeriodValid(30000, 18000, 22000) {
		t.Error("expected period above range to be invalid")
	}
}

type fixedFault struct{ active bool }

func (f fixedFault) NonCommFaultActive() bool { return f.active }

func testCalParams() Params {
	return Params{
		Widths:      Widths{Neutral: 1500},
		MinRangeTicks: 100,
		SlopTicks:     50,
	}
}

func TestCalibrationHappyPath(t *testing.T) {
	c := NewCalibrator(testCalParams())
	if err := c.StartCalibration(fixedFault{active: false}); err != nil {
		t.Fatalf("StartCalibration: %v", err)
	}
	c.SampleMin(1000)
	c.SampleMax(2000)
	w, err := c.EndCalibration()
	if err != nil {
		t.Fatalf("EndCalibration: %v", err)
	}
	want := Widths{NegativeSpan: 500, Neutral: 1500, PositiveSpan: 500}
	if w != want {
		t.Errorf("got %+v, want %+v", w, want)
	}
	if c.State() != CalIdle {
		t.Errorf("state after EndCalibration = %v, want CalIdle", c.State())
	}
}

func TestCalibrationRejectsNeutralFarFromIdeal(t *testing.T) {
	c := NewCalibrator(testCalParams()) // ideal neutral 1500, slop 50
	c.StartCalibration(nil)
	c.SampleMin(1000)
	c.SampleMax(2300) // midpoint 1650, 150 ticks off ideal
	_, err := c.EndCalibration()
	if err != ErrCalibrationInvalid {
		t.Fatalf("got %v, want ErrCalibrationInvalid", err)
	}
}

func TestCalibrationAcceptsNeutralWithinSlop(t *testing.T) {
	c := NewCalibrator(testCalParams()) // ideal neutral 1500, slop 50
	c.StartCalibration(nil)
	c.SampleMin(1030)
	c.SampleMax(2070) // midpoint 1550, 50 ticks off ideal: right at the boundary
	if _, err := c.EndCalibration(); err != nil {
		t.Fatalf("EndCalibration: %v, want neutral within slop accepted", err)
	}
}

func TestCalibrationBlockedByFault(t *testing.T) {
	c := NewCalibrator(Params{MinRangeTicks: 100})
	err := c.StartCalibration(fixedFault{active: true})
	if err != ErrCalibrationFault {
		t.Fatalf("got %v, want ErrCalibrationFault", err)
	}
}

func TestCalibrationNotBlockedByCommFault(t *testing.T) {
	// FaultSource only reports non-comm faults, so a nil/false source
	// (the servo link has no command-plane presence) never blocks.
	c := NewCalibrator(Params{MinRangeTicks: 100})
	if err := c.StartCalibration(nil); err != nil {
		t.Fatalf("StartCalibration with nil fault source: %v", err)
	}
}

func TestCalibrationRejectsNarrowRange(t *testing.T) {
	c := NewCalibrator(Params{MinRangeTicks: 100})
	c.StartCalibration(nil)
	c.SampleMin(1490)
	c.SampleMax(1510)
	_, err := c.EndCalibration()
	if err != ErrCalibrationInvalid {
		t.Fatalf("got %v, want ErrCalibrationInvalid", err)
	}
}

func TestCalibrationRejectsInvertedRange(t *testing.T) {
	c := NewCalibrator(Params{MinRangeTicks: 100})
	c.StartCalibration(nil)
	c.SampleMin(2000)
	c.SampleMax(1000)
	_, err := c.EndCalibration()
	if err != ErrCalibrationInvalid {
		t.Fatalf("got %v, want ErrCalibrationInvalid", err)
	}
}

func TestAbortCalibrationResetsState(t *testing.T) {
	c := NewCalibrator(Params{MinRangeTicks: 100})
	c.StartCalibration(nil)
	c.SampleMin(1000)
	c.AbortCalibration()
	if c.State() != CalIdle {
		t.Errorf("state after abort = %v, want CalIdle", c.State())
	}
}
