package sleep

import (
	"testing"
	"time"
)

func testPresenceConfig() PresenceConfig {
	return PresenceConfig{
		EnterConfidence:    60,
		ExitConfidence:     20,
		ThermalThreshold:   1.5,
		ActivityThreshold:  0.001,
		HRMin:              40,
		HRMax:              150,
		HistorySize:        30,
		ConfirmationWindow: 15,
		LowCeiling:         30,
		BaselineAlpha:      0.05,
	}
}

// occupantInput yields a high-confidence tick: thermal (+30+10), movement
// (+25 capped), valid HR in the optimal band (+35+5), finger contact (+20).
func occupantInput() PresenceInput {
	return PresenceInput{
		BedTemperature: 26.0, // baseline starts at first reading; see tests
		Activity:       0.2,
		HeartRate:      65,
		HRValid:        true,
		FingerPresent:  true,
	}
}

func emptyInput(bedTemp float64) PresenceInput {
	return PresenceInput{BedTemperature: bedTemp}
}

func TestEnterOnHighConfidence(t *testing.T) {
	d := NewPresenceDetector(testPresenceConfig())
	now := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	// First tick establishes the baseline at 22, so no thermal points yet;
	// movement + HR + contact still clear the enter threshold.
	in := occupantInput()
	in.BedTemperature = 22.0
	res := d.Detect(in, now)

	if !res.Occupied {
		t.Fatalf("expected occupied, confidence %g", res.Confidence)
	}
	if !res.Changed {
		t.Error("expected Changed on the entering edge")
	}
	if res.Confidence < 60 {
		t.Errorf("expected confidence >= 60, got %g", res.Confidence)
	}
}

func TestThermalIndicatorAgainstBaseline(t *testing.T) {
	d := NewPresenceDetector(testPresenceConfig())
	now := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	// Establish a 22 degree baseline while empty.
	d.Detect(emptyInput(22.0), now)

	res := d.Detect(PresenceInput{BedTemperature: 24.0}, now.Add(2*time.Second))
	if !res.Indicators.Thermal {
		t.Error("expected thermal indicator with +2.0 elevation")
	}
	if res.TempElevation != 2.0 {
		t.Errorf("expected elevation 2.0, got %g", res.TempElevation)
	}

	// Large elevation earns the bonus: 30 + 10.
	res = d.Detect(PresenceInput{BedTemperature: 25.5}, now.Add(4*time.Second))
	if res.Confidence != 40 {
		t.Errorf("expected confidence 40 from thermal+bonus, got %g", res.Confidence)
	}
}

func TestNoExitOnSingleLowSample(t *testing.T) {
	d := NewPresenceDetector(testPresenceConfig())
	now := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	in := occupantInput()
	in.BedTemperature = 22.0
	d.Detect(in, now)
	if !d.Occupied() {
		t.Fatal("setup: expected occupied")
	}

	// One empty-bed sample must not release occupancy: the confirmation
	// window still holds high scores.
	res := d.Detect(emptyInput(22.0), now.Add(2*time.Second))
	if !res.Occupied {
		t.Error("expected still occupied after a single low-confidence sample")
	}
	if res.Changed {
		t.Error("expected no transition on a momentary dip")
	}
}

func TestExitRequiresFullConfirmationWindow(t *testing.T) {
	cfg := testPresenceConfig()
	d := NewPresenceDetector(cfg)
	now := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	in := occupantInput()
	in.BedTemperature = 22.0
	d.Detect(in, now)

	// 14 low samples: still occupied (window not yet uniformly low).
	tick := now
	for i := 0; i < cfg.ConfirmationWindow-1; i++ {
		tick = tick.Add(2 * time.Second)
		if res := d.Detect(emptyInput(22.0), tick); res.Changed {
			t.Fatalf("sample %d: premature exit", i+1)
		}
	}
	if !d.Occupied() {
		t.Fatal("expected occupied before window filled")
	}

	// The 15th consecutive low sample completes the window.
	tick = tick.Add(2 * time.Second)
	res := d.Detect(emptyInput(22.0), tick)
	if res.Occupied {
		t.Error("expected exit after full confirmation window")
	}
	if !res.Changed {
		t.Error("expected Changed on the exit edge")
	}
}

func TestBaselineOnlyUpdatesWhileAbsent(t *testing.T) {
	d := NewPresenceDetector(testPresenceConfig())
	now := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	d.Detect(emptyInput(20.0), now)
	d.UpdateBaseline(22.0)
	base, ok := d.Baseline()
	if !ok {
		t.Fatal("expected baseline established")
	}
	want := 0.95*20.0 + 0.05*22.0
	if diff := base - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected baseline %g, got %g", want, base)
	}

	// Occupy, then verify the baseline is frozen.
	in := occupantInput()
	in.BedTemperature = 20.0
	d.Detect(in, now.Add(2*time.Second))
	if !d.Occupied() {
		t.Fatal("setup: expected occupied")
	}
	d.UpdateBaseline(30.0)
	after, _ := d.Baseline()
	if after != base {
		t.Errorf("baseline moved while occupied: %g -> %g", base, after)
	}
}

func TestTemporalIndicator(t *testing.T) {
	d := NewPresenceDetector(testPresenceConfig())
	now := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	in := occupantInput()
	in.BedTemperature = 22.0
	var res PresenceResult
	for i := 0; i < 5; i++ {
		res = d.Detect(in, now.Add(time.Duration(i)*2*time.Second))
	}
	if !res.Indicators.Temporal {
		t.Error("expected temporal indicator after 5 sustained high scores")
	}
}

func TestTimeOccupied(t *testing.T) {
	d := NewPresenceDetector(testPresenceConfig())
	now := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	if d.TimeOccupied(now) != 0 {
		t.Error("expected zero time occupied while absent")
	}

	in := occupantInput()
	in.BedTemperature = 22.0
	d.Detect(in, now)
	got := d.TimeOccupied(now.Add(10 * time.Minute))
	if got != 10*time.Minute {
		t.Errorf("expected 10m occupied, got %v", got)
	}
}

func TestConfidenceClampedTo100(t *testing.T) {
	d := NewPresenceDetector(testPresenceConfig())
	now := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	d.Detect(emptyInput(22.0), now)
	in := occupantInput() // thermal 40 + movement 25 + HR 40 + contact 20 > 100
	var res PresenceResult
	for i := 1; i <= 6; i++ {
		res = d.Detect(in, now.Add(time.Duration(i)*2*time.Second))
	}
	if res.Confidence > 100 {
		t.Errorf("confidence exceeds 100: %g", res.Confidence)
	}
}
