// Package config loads daemon configuration with viper. Every constant has
// a default matching the tuned controller; an optional configs/config.yml
// and SMARTBED_-prefixed environment variables override them.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mfuentes/smartbed/internal/sleep"
	"github.com/mfuentes/smartbed/internal/thermal"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// SMARTBED_MQTT_BROKER.
const EnvPrefix = "SMARTBED"

// Config exposes the loaded settings. Sub-configs for the sleep and
// thermal packages are built on demand from the backing viper instance.
type Config struct {
	v *viper.Viper
}

// Load reads configuration from the given directory (looking for
// config.yml) plus the environment. A missing config file is fine; all
// defaults apply.
func Load(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if dir != "" {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return &Config{v: v}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "smartbed")

	v.SetDefault("control.sample_interval", "2s")
	v.SetDefault("control.heartbeat_interval", "15m")
	v.SetDefault("control.analysis_interval", "30s")
	v.SetDefault("control.tolerance", 0.5)
	v.SetDefault("control.spo2_alert", 88)

	v.SetDefault("relay.hot_pin", 18)
	v.SetDefault("relay.cold_pin", 19)
	v.SetDefault("relay.safety_pin", 20)

	v.SetDefault("activity.movement_threshold", 12.5)
	v.SetDefault("activity.spike_fraction", 0.05)
	v.SetDefault("activity.decay_constant", "2m")
	v.SetDefault("activity.decay_delay", "5m")
	v.SetDefault("activity.lower_bound", 0.001)

	v.SetDefault("stage.activity_rem", 0.008)
	v.SetDefault("stage.activity_deep", 0.01)
	v.SetDefault("stage.activity_wake", 0.7)
	v.SetDefault("stage.hr_deep", 55)
	v.SetDefault("stage.hr_wake", 75)
	v.SetDefault("stage.hr_rem", 70)
	v.SetDefault("stage.hr_light_ceiling", 65)

	v.SetDefault("presence.enter_confidence", 60.0)
	v.SetDefault("presence.exit_confidence", 20.0)
	v.SetDefault("presence.thermal_threshold", 1.5)
	v.SetDefault("presence.activity_threshold", 0.001)
	v.SetDefault("presence.hr_min", 40)
	v.SetDefault("presence.hr_max", 150)
	v.SetDefault("presence.history_size", 30)
	v.SetDefault("presence.confirmation_window", 15)
	v.SetDefault("presence.low_ceiling", 30.0)
	v.SetDefault("presence.baseline_alpha", 0.05)

	v.SetDefault("trend.window_size", 30)
	v.SetDefault("trend.min_rate_samples", 5)
	v.SetDefault("trend.anomaly_rate", 0.5)
	v.SetDefault("trend.projection_horizon", "5m")
	v.SetDefault("trend.variance_window", 10)
	v.SetDefault("trend.variance_tolerance", 2.0)
	v.SetDefault("trend.stable_variance", 0.1)

	v.SetDefault("target.comfort.wake", []float64{21, 25})
	v.SetDefault("target.comfort.light", []float64{19, 23})
	v.SetDefault("target.comfort.rem", []float64{20, 24})
	v.SetDefault("target.comfort.deep", []float64{17, 21})
	v.SetDefault("target.offset.wake", 0.0)
	v.SetDefault("target.offset.light", -0.3)
	v.SetDefault("target.offset.rem", 0.0)
	v.SetDefault("target.offset.deep", -0.8)
	v.SetDefault("target.ambient_low", 15.0)
	v.SetDefault("target.ambient_high", 25.0)
	v.SetDefault("target.ambient_adjust", 1.0)
	v.SetDefault("target.body_basal", 36.8)
	v.SetDefault("target.body_fever", 38.0)
	v.SetDefault("target.body_elevated", 37.5)
	v.SetDefault("target.body_hypothermia", 35.5)
	v.SetDefault("target.anticipate_deep", -0.3)
	v.SetDefault("target.anticipate_wake", 0.4)
	v.SetDefault("target.safe_min", 15.0)
	v.SetDefault("target.safe_max", 30.0)
	v.SetDefault("target.max_delta_per_tick", 0.5)

	v.SetDefault("safety.max_heart_rate", 120)
	v.SetDefault("safety.min_heart_rate", 40)
	v.SetDefault("safety.fever", 38.0)
	v.SetDefault("safety.low_body", 35.5)
}

// LogLevel returns the configured log level string.
func (c *Config) LogLevel() string { return c.v.GetString("log.level") }

// Broker returns the MQTT broker URL.
func (c *Config) Broker() string { return c.v.GetString("mqtt.broker") }

// ClientID returns the MQTT client identifier.
func (c *Config) ClientID() string { return c.v.GetString("mqtt.client_id") }

// SampleInterval is the control loop tick period.
func (c *Config) SampleInterval() time.Duration {
	return c.v.GetDuration("control.sample_interval")
}

// HeartbeatInterval is the period between status heartbeats.
func (c *Config) HeartbeatInterval() time.Duration {
	return c.v.GetDuration("control.heartbeat_interval")
}

// AnalysisInterval is the period between HRV/quality recomputations.
func (c *Config) AnalysisInterval() time.Duration {
	return c.v.GetDuration("control.analysis_interval")
}

// Tolerance is the base thermal control tolerance in °C.
func (c *Config) Tolerance() float64 { return c.v.GetFloat64("control.tolerance") }

// SpO2Alert is the SpO2 percentage below which an alert is published.
func (c *Config) SpO2Alert() int { return c.v.GetInt("control.spo2_alert") }

// RelayPins returns the (hot, cold, safety) BCM pin numbers.
func (c *Config) RelayPins() (hot, cold, safety int) {
	return c.v.GetInt("relay.hot_pin"), c.v.GetInt("relay.cold_pin"), c.v.GetInt("relay.safety_pin")
}

// Integrator builds the activity integrator constants.
func (c *Config) Integrator() sleep.IntegratorConfig {
	return sleep.IntegratorConfig{
		MovementThreshold: c.v.GetFloat64("activity.movement_threshold"),
		SpikeFraction:     c.v.GetFloat64("activity.spike_fraction"),
		DecayConstant:     c.v.GetDuration("activity.decay_constant"),
		DecayDelay:        c.v.GetDuration("activity.decay_delay"),
		LowerBound:        c.v.GetFloat64("activity.lower_bound"),
	}
}

// StageThresholds builds the sleep stage classification thresholds.
func (c *Config) StageThresholds() sleep.StageThresholds {
	return sleep.StageThresholds{
		ActivityREM:    c.v.GetFloat64("stage.activity_rem"),
		ActivityDeep:   c.v.GetFloat64("stage.activity_deep"),
		ActivityWake:   c.v.GetFloat64("stage.activity_wake"),
		HRDeep:         c.v.GetInt("stage.hr_deep"),
		HRWake:         c.v.GetInt("stage.hr_wake"),
		HRREM:          c.v.GetInt("stage.hr_rem"),
		HRLightCeiling: c.v.GetInt("stage.hr_light_ceiling"),
	}
}

// Presence builds the presence detector constants.
func (c *Config) Presence() sleep.PresenceConfig {
	return sleep.PresenceConfig{
		EnterConfidence:    c.v.GetFloat64("presence.enter_confidence"),
		ExitConfidence:     c.v.GetFloat64("presence.exit_confidence"),
		ThermalThreshold:   c.v.GetFloat64("presence.thermal_threshold"),
		ActivityThreshold:  c.v.GetFloat64("presence.activity_threshold"),
		HRMin:              c.v.GetInt("presence.hr_min"),
		HRMax:              c.v.GetInt("presence.hr_max"),
		HistorySize:        c.v.GetInt("presence.history_size"),
		ConfirmationWindow: c.v.GetInt("presence.confirmation_window"),
		LowCeiling:         c.v.GetFloat64("presence.low_ceiling"),
		BaselineAlpha:      c.v.GetFloat64("presence.baseline_alpha"),
	}
}

// Trend builds the thermal trend analyzer constants.
func (c *Config) Trend() thermal.TrendConfig {
	return thermal.TrendConfig{
		WindowSize:        c.v.GetInt("trend.window_size"),
		MinRateSamples:    c.v.GetInt("trend.min_rate_samples"),
		AnomalyRate:       c.v.GetFloat64("trend.anomaly_rate"),
		ProjectionHorizon: c.v.GetDuration("trend.projection_horizon"),
		VarianceWindow:    c.v.GetInt("trend.variance_window"),
		VarianceTolerance: c.v.GetFloat64("trend.variance_tolerance"),
		StableVariance:    c.v.GetFloat64("trend.stable_variance"),
		SafeMin:           c.v.GetFloat64("target.safe_min"),
		SafeMax:           c.v.GetFloat64("target.safe_max"),
	}
}

// Target builds the setpoint calculator constants.
func (c *Config) Target() thermal.TargetConfig {
	return thermal.TargetConfig{
		ComfortZones: [sleep.NumStages]thermal.Band{
			sleep.Wake:  c.band("target.comfort.wake"),
			sleep.Light: c.band("target.comfort.light"),
			sleep.REM:   c.band("target.comfort.rem"),
			sleep.Deep:  c.band("target.comfort.deep"),
		},
		StageOffsets: [sleep.NumStages]float64{
			sleep.Wake:  c.v.GetFloat64("target.offset.wake"),
			sleep.Light: c.v.GetFloat64("target.offset.light"),
			sleep.REM:   c.v.GetFloat64("target.offset.rem"),
			sleep.Deep:  c.v.GetFloat64("target.offset.deep"),
		},
		AmbientLow:      c.v.GetFloat64("target.ambient_low"),
		AmbientHigh:     c.v.GetFloat64("target.ambient_high"),
		AmbientAdjust:   c.v.GetFloat64("target.ambient_adjust"),
		BodyBasal:       c.v.GetFloat64("target.body_basal"),
		BodyFever:       c.v.GetFloat64("target.body_fever"),
		BodyElevated:    c.v.GetFloat64("target.body_elevated"),
		BodyHypothermia: c.v.GetFloat64("target.body_hypothermia"),
		AnticipateDeep:  c.v.GetFloat64("target.anticipate_deep"),
		AnticipateWake:  c.v.GetFloat64("target.anticipate_wake"),
		SafeMin:         c.v.GetFloat64("target.safe_min"),
		SafeMax:         c.v.GetFloat64("target.safe_max"),
		MaxDeltaPerTick: c.v.GetFloat64("target.max_delta_per_tick"),
	}
}

// Safety builds the vital-sign override limits.
func (c *Config) Safety() thermal.SafetyLimits {
	return thermal.SafetyLimits{
		MaxHeartRate: c.v.GetInt("safety.max_heart_rate"),
		MinHeartRate: c.v.GetInt("safety.min_heart_rate"),
		FeverC:       c.v.GetFloat64("safety.fever"),
		LowBodyC:     c.v.GetFloat64("safety.low_body"),
	}
}

// band reads a two-element comfort range. Defaults are stored as
// []float64; file and env overrides decode as []interface{}.
func (c *Config) band(key string) thermal.Band {
	vals := floatPair(c.v.Get(key))
	if vals == nil || vals[0] >= vals[1] {
		// Malformed override; fall back to a sane band rather than
		// feeding the calculator an empty zone.
		return thermal.Band{Min: 19, Max: 23}
	}
	return thermal.Band{Min: vals[0], Max: vals[1]}
}

func floatPair(raw any) []float64 {
	switch v := raw.(type) {
	case []float64:
		if len(v) == 2 {
			return v
		}
	case []interface{}:
		if len(v) != 2 {
			return nil
		}
		pair := make([]float64, 2)
		for i, e := range v {
			switch n := e.(type) {
			case float64:
				pair[i] = n
			case int:
				pair[i] = float64(n)
			default:
				return nil
			}
		}
		return pair
	}
	return nil
}
