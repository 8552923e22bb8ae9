// Command smartbed runs the closed-loop thermal controller for the bed:
// sensor fusion, occupancy and sleep staging, target temperature and
// safety-constrained valve control, with telemetry over MQTT.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/mfuentes/smartbed/internal/config"
	"github.com/mfuentes/smartbed/internal/control"
	"github.com/mfuentes/smartbed/internal/logger"
	"github.com/mfuentes/smartbed/internal/mqtt"
	"github.com/mfuentes/smartbed/internal/relay"
	"github.com/mfuentes/smartbed/internal/sensors"
	"github.com/mfuentes/smartbed/internal/status"
)

func main() {
	configDir := flag.String("config", "configs", "directory containing config.yml")
	broker := flag.String("broker", "", "MQTT broker address (overrides configuration)")
	sim := flag.Bool("sim", false, "bench mode: simulated occupant and fake relays")
	flag.Parse()

	if err := run(*configDir, *broker, *sim); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configDir, brokerOverride string, sim bool) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.Get(cfg.LogLevel())

	broker := cfg.Broker()
	if brokerOverride != "" {
		broker = brokerOverride
	}

	// Relays first: the loop must not start with unconfirmed valve state.
	var driver relay.Driver
	if sim {
		driver = relay.NewFakeDriver()
	} else {
		pinHot, pinCold, pinSafety := cfg.RelayPins()
		real, err := relay.NewRealDriver(pinHot, pinCold, pinSafety)
		if err != nil {
			return fmt.Errorf("init relays: %w", err)
		}
		driver = real
	}
	defer driver.Close()

	// Bed-side channels come from the simulation; body-side channels from
	// the wristband feed overlaid per tick.
	sensorSim := sensors.NewSim(time.Now().UnixNano())
	if sim {
		sensorSim.Occupy(true)
	}
	defer sensorSim.Close()

	publisher, err := mqtt.NewRealPublisher(broker, cfg.ClientID())
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	wrist, err := mqtt.NewWristFeed(publisher.Client())
	if err != nil {
		log.Warnw("wristband feed unavailable", "error", err)
		wrist = nil
	}

	sessionID := uuid.NewString()
	startTime := time.Now()
	tracker := status.NewTracker(startTime, sessionID, status.Config{
		SampleMs:    cfg.SampleInterval().Milliseconds(),
		HeartbeatMs: cfg.HeartbeatInterval().Milliseconds(),
		Broker:      broker,
	})

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Warnw("startup publish failed", "error", err)
	}

	ctrlCfg := control.Config{
		SampleInterval:    cfg.SampleInterval(),
		HeartbeatInterval: cfg.HeartbeatInterval(),
		AnalysisInterval:  cfg.AnalysisInterval(),
		Tolerance:         cfg.Tolerance(),
		SpO2Alert:         cfg.SpO2Alert(),
		Integrator:        cfg.Integrator(),
		Stages:            cfg.StageThresholds(),
		Presence:          cfg.Presence(),
		Trend:             cfg.Trend(),
		Target:            cfg.Target(),
		Safety:            cfg.Safety(),
	}
	deps := control.Deps{
		Sensors:    sensorSim,
		Relay:      driver,
		Publisher:  publisher,
		MQTTStatus: publisher,
		Tracker:    tracker,
		Log:        log,
	}
	if wrist != nil {
		deps.Overlay = wrist
	}
	ctrl := control.NewController(ctrlCfg, deps, sessionID, startTime)

	log.Infow("started",
		"broker", broker,
		"sample_interval", cfg.SampleInterval(),
		"sim", sim,
		"session", sessionID)

	ticker := time.NewTicker(cfg.SampleInterval())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return ctrl.Run(time.Now, ticker.C, sigCh)
}
