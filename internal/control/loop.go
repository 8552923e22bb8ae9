package control

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/mfuentes/smartbed/internal/sensors"
)

// Run drives the controller from a tick source until a termination signal
// arrives. now, tick and sig are injected so tests can drive the loop
// deterministically. Each tick runs to completion before the next is
// consumed; the sensor read is bounded by the sampling interval so a
// stalled bus cannot block the loop.
func (c *Controller) Run(now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			name := signalName(s)
			c.deps.Log.Infow("received signal, shutting down", "signal", name)
			c.Shutdown(name, now())
			return nil

		case <-tick:
			t := now()
			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.SampleInterval)
			r, err := c.deps.Sensors.Read(ctx)
			cancel()
			if err != nil {
				// The tick still runs on last-known-good values.
				c.deps.Log.Warnw("sensor read failed", "error", err)
				r = sensors.Readings{Time: t}
			}
			if c.deps.Overlay != nil {
				c.deps.Overlay.Overlay(&r, t)
			}
			c.Step(r, t)
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}
