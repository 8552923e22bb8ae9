package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mfuentes/smartbed/internal/sleep"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if c.Broker() != "tcp://localhost:1883" {
		t.Errorf("broker: %q", c.Broker())
	}
	if c.SampleInterval() != 2*time.Second {
		t.Errorf("sample interval: %v", c.SampleInterval())
	}
	if c.Tolerance() != 0.5 {
		t.Errorf("tolerance: %g", c.Tolerance())
	}

	hot, cold, safety := c.RelayPins()
	if hot != 18 || cold != 19 || safety != 20 {
		t.Errorf("pins: %d %d %d", hot, cold, safety)
	}

	ic := c.Integrator()
	if ic.MovementThreshold != 12.5 || ic.DecayConstant != 2*time.Minute {
		t.Errorf("integrator: %+v", ic)
	}

	st := c.StageThresholds()
	if st.ActivityREM != 0.008 || st.HRDeep != 55 || st.HRWake != 75 {
		t.Errorf("stage thresholds: %+v", st)
	}

	pc := c.Presence()
	if pc.EnterConfidence != 60 || pc.ConfirmationWindow != 15 {
		t.Errorf("presence: %+v", pc)
	}

	tc := c.Target()
	deep := tc.ComfortZones[sleep.Deep]
	if deep.Min != 17 || deep.Max != 21 {
		t.Errorf("deep comfort zone: %+v", deep)
	}
	if tc.StageOffsets[sleep.Deep] != -0.8 {
		t.Errorf("deep offset: %g", tc.StageOffsets[sleep.Deep])
	}
	if tc.SafeMin != 15 || tc.SafeMax != 30 {
		t.Errorf("safe range: %g..%g", tc.SafeMin, tc.SafeMax)
	}

	tr := c.Trend()
	if tr.WindowSize != 30 || tr.VarianceTolerance != 2.0 {
		t.Errorf("trend: %+v", tr)
	}

	sl := c.Safety()
	if sl.MaxHeartRate != 120 || sl.LowBodyC != 35.5 {
		t.Errorf("safety: %+v", sl)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	yml := []byte("mqtt:\n  broker: tcp://bed-broker:1883\ncontrol:\n  sample_interval: 5s\nsafety:\n  max_heart_rate: 130\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), yml, 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Broker() != "tcp://bed-broker:1883" {
		t.Errorf("broker: %q", c.Broker())
	}
	if c.SampleInterval() != 5*time.Second {
		t.Errorf("sample interval: %v", c.SampleInterval())
	}
	if c.Safety().MaxHeartRate != 130 {
		t.Errorf("max heart rate: %d", c.Safety().MaxHeartRate)
	}
	// Untouched keys keep their defaults.
	if c.Tolerance() != 0.5 {
		t.Errorf("tolerance: %g", c.Tolerance())
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Broker() != "tcp://localhost:1883" {
		t.Errorf("broker: %q", c.Broker())
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SMARTBED_MQTT_BROKER", "tcp://env-broker:1883")
	t.Setenv("SMARTBED_CONTROL_TOLERANCE", "0.75")

	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Broker() != "tcp://env-broker:1883" {
		t.Errorf("broker: %q", c.Broker())
	}
	if c.Tolerance() != 0.75 {
		t.Errorf("tolerance: %g", c.Tolerance())
	}
}

func TestComfortBandOverrideFromFile(t *testing.T) {
	dir := t.TempDir()
	yml := []byte("target:\n  comfort:\n    deep: [16.5, 20]\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), yml, 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	deep := c.Target().ComfortZones[sleep.Deep]
	if deep.Min != 16.5 || deep.Max != 20 {
		t.Errorf("deep band = %+v, want 16.5..20", deep)
	}
	// Untouched bands keep their defaults.
	wake := c.Target().ComfortZones[sleep.Wake]
	if wake.Min != 21 || wake.Max != 25 {
		t.Errorf("wake band = %+v, want 21..25", wake)
	}
}

func TestMalformedComfortBandFallsBack(t *testing.T) {
	dir := t.TempDir()
	yml := []byte("target:\n  comfort:\n    deep: [25]\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), yml, 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	band := c.Target().ComfortZones[sleep.Deep]
	if band.Min >= band.Max {
		t.Errorf("fallback band must be non-empty: %+v", band)
	}
}
