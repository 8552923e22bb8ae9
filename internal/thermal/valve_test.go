package thermal

import "testing"

func testLimits() SafetyLimits {
	return SafetyLimits{
		MaxHeartRate: 120,
		MinHeartRate: 40,
		FeverC:       38.0,
		LowBodyC:     35.5,
	}
}

func normalVitals() Vitals {
	return Vitals{HeartRate: 62, HRValid: true, BodyTemperature: 36.8}
}

func TestArbitration(t *testing.T) {
	a := NewArbiter(testLimits())

	cases := []struct {
		name       string
		target     float64
		current    float64
		tolerance  float64
		wantAction Action
		wantHot    bool
		wantCold   bool
	}{
		{"cold bed heats", 22.0, 19.0, 0.5, ActionHeat, true, false},
		{"hot bed cools", 22.0, 24.0, 0.5, ActionCool, false, true},
		{"inside tolerance maintains", 22.0, 22.1, 0.5, ActionMaintain, false, false},
		{"exactly at tolerance maintains", 22.0, 22.5, 0.5, ActionMaintain, false, false},
		{"just past tolerance heats", 22.0, 21.4, 0.5, ActionHeat, true, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := a.Decide(tc.target, tc.current, tc.tolerance, normalVitals())
			if d.Action != tc.wantAction {
				t.Errorf("action: got %s, want %s", d.Action, tc.wantAction)
			}
			if d.HotOpen != tc.wantHot || d.ColdOpen != tc.wantCold {
				t.Errorf("valves: got hot=%v cold=%v, want hot=%v cold=%v",
					d.HotOpen, d.ColdOpen, tc.wantHot, tc.wantCold)
			}
		})
	}
}

func TestEmergencyOverrides(t *testing.T) {
	a := NewArbiter(testLimits())

	cases := []struct {
		name       string
		vitals     Vitals
		wantAction Action
	}{
		{"tachycardia forces cooling", Vitals{HeartRate: 130, HRValid: true, BodyTemperature: 36.8}, ActionEmergencyCool},
		{"bradycardia forces heating", Vitals{HeartRate: 35, HRValid: true, BodyTemperature: 36.8}, ActionEmergencyHeat},
		{"fever forces cooling", Vitals{HeartRate: 70, HRValid: true, BodyTemperature: 38.5}, ActionEmergencyCool},
		{"low body temperature forces heating", Vitals{HeartRate: 70, HRValid: true, BodyTemperature: 35.0}, ActionEmergencyHeat},
		{"invalid HR never triggers HR override", Vitals{HeartRate: 130, HRValid: false, BodyTemperature: 36.8}, ActionMaintain},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Bed already at target: normal arbitration would maintain.
			d := a.Decide(22.0, 22.0, 0.5, tc.vitals)
			if d.Action != tc.wantAction {
				t.Errorf("got %s, want %s", d.Action, tc.wantAction)
			}
		})
	}
}

func TestConflictingOverridesFailClosed(t *testing.T) {
	a := NewArbiter(testLimits())

	// Tachycardia demanding cool plus hypothermic body demanding heat.
	d := a.Decide(22.0, 19.0, 0.5, Vitals{HeartRate: 130, HRValid: true, BodyTemperature: 35.0})
	if d.Action != ActionSafetyBlock {
		t.Errorf("expected safety block, got %s", d.Action)
	}
	if d.HotOpen || d.ColdOpen {
		t.Error("safety block must close both valves")
	}
}

func TestMutualExclusionInvariant(t *testing.T) {
	a := NewArbiter(testLimits())

	targets := []float64{15, 18, 22, 26, 30}
	currents := []float64{10, 15, 19, 22, 25, 30, 35}
	tolerances := []float64{0.1, 0.25, 0.5, 0.75}
	vitals := []Vitals{
		normalVitals(),
		{HeartRate: 130, HRValid: true, BodyTemperature: 36.8},
		{HeartRate: 35, HRValid: true, BodyTemperature: 36.8},
		{HeartRate: 130, HRValid: true, BodyTemperature: 35.0},
		{HeartRate: 35, HRValid: true, BodyTemperature: 38.5},
		{HeartRate: 0, HRValid: false, BodyTemperature: 38.5},
	}

	for _, target := range targets {
		for _, current := range currents {
			for _, tol := range tolerances {
				for _, v := range vitals {
					d := a.Decide(target, current, tol, v)
					if d.HotOpen && d.ColdOpen {
						t.Fatalf("both valves open: target=%g current=%g tol=%g vitals=%+v",
							target, current, tol, v)
					}
				}
			}
		}
	}
}

func TestEnforceCorrectsDoubleOpen(t *testing.T) {
	d := enforce(Decision{Action: ActionHeat, HotOpen: true, ColdOpen: true})
	if d.Action != ActionSafetyBlock {
		t.Errorf("expected safety block, got %s", d.Action)
	}
	if d.HotOpen || d.ColdOpen {
		t.Error("expected both valves forced closed")
	}
}

func TestActionEmergency(t *testing.T) {
	if !ActionEmergencyCool.Emergency() || !ActionEmergencyHeat.Emergency() {
		t.Error("emergency actions should report Emergency()")
	}
	if ActionHeat.Emergency() || ActionSafetyBlock.Emergency() {
		t.Error("non-override actions should not report Emergency()")
	}
}
