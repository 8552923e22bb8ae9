package relay

import "testing"

func TestFakeDriverCommands(t *testing.T) {
	f := NewFakeDriver()

	if err := f.SetValves(true, false); err != nil {
		t.Fatalf("open hot: %v", err)
	}
	if err := f.SetValves(false, true); err != nil {
		t.Fatalf("open cold: %v", err)
	}
	hot, cold, safety := f.State()
	if hot || !cold || !safety {
		t.Errorf("state: hot=%v cold=%v safety=%v", hot, cold, safety)
	}
	if len(f.Commands) != 2 {
		t.Errorf("got %d commands, want 2", len(f.Commands))
	}
}

func TestFakeDriverRefusesDoubleOpen(t *testing.T) {
	f := NewFakeDriver()
	if err := f.SetValves(true, true); err == nil {
		t.Fatal("expected error opening both valves")
	}
	hot, cold, _ := f.State()
	if hot || cold {
		t.Error("refused command must not change valve state")
	}
}

func TestFakeDriverEmergencyStop(t *testing.T) {
	f := NewFakeDriver()
	if err := f.SetValves(true, false); err != nil {
		t.Fatalf("open hot: %v", err)
	}
	if err := f.EmergencyStop(); err != nil {
		t.Fatalf("emergency stop: %v", err)
	}
	hot, cold, safety := f.State()
	if hot || cold {
		t.Error("emergency stop must close both valves")
	}
	if safety {
		t.Error("emergency stop must drop the safety relay")
	}
	if f.Stopped != 1 {
		t.Errorf("got %d stops, want 1", f.Stopped)
	}
}
