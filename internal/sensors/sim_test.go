package sensors

import (
	"context"
	"testing"
)

func TestSimVacantBed(t *testing.T) {
	s := NewSim(1)
	ctx := context.Background()

	r, err := s.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if r.HRValid || r.SpO2Valid || r.FingerPresent {
		t.Error("vacant bed should carry no vitals")
	}
	if !r.BedValid {
		t.Error("bed temperature should always be valid")
	}
	if r.BedTemperature < 20 || r.BedTemperature > 24 {
		t.Errorf("vacant bed temperature %g out of ambient range", r.BedTemperature)
	}
}

func TestSimOccupiedWarmsAndSettles(t *testing.T) {
	s := NewSim(1)
	s.Occupy(true)
	ctx := context.Background()

	var first, last Readings
	for i := 0; i < 200; i++ {
		r, err := s.Read(ctx)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if !r.HRValid || !r.SpO2Valid {
			t.Fatalf("read %d: occupied bed should carry vitals", i)
		}
		if i == 0 {
			first = r
		}
		last = r
	}

	if last.BedTemperature <= first.BedTemperature {
		t.Errorf("bed should warm under an occupant: %g -> %g",
			first.BedTemperature, last.BedTemperature)
	}
	if last.HeartRate >= first.HeartRate {
		t.Errorf("heart rate should settle: %d -> %d", first.HeartRate, last.HeartRate)
	}
	if last.SpO2 < 95 || last.SpO2 > 100 {
		t.Errorf("implausible SpO2 %d", last.SpO2)
	}
}

func TestSimDeterministic(t *testing.T) {
	a, b := NewSim(7), NewSim(7)
	a.Occupy(true)
	b.Occupy(true)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		ra, _ := a.Read(ctx)
		rb, _ := b.Read(ctx)
		rb.Time = ra.Time
		if ra != rb {
			t.Fatalf("tick %d diverged: %+v vs %+v", i, ra, rb)
		}
	}
}
