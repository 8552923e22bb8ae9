// Package sensors defines the sampled inputs the control loop runs on and
// the sources that produce them. Bed-side channels (mat temperature,
// humidity, accelerometer) come from the local source; body-side channels
// (heart rate, SpO2, finger contact) normally arrive over MQTT from the
// wristband and are overlaid by the control loop.
package sensors

import (
	"context"
	"time"
)

// Readings is one sampling tick worth of sensor data. Each channel carries
// its own validity flag; the control loop substitutes fallbacks for invalid
// channels rather than skipping the tick.
type Readings struct {
	HeartRate int
	HRValid   bool

	SpO2      int
	SpO2Valid bool

	BedTemperature float64
	BedValid       bool
	BedHumidity    float64

	AmbientTemperature float64
	BodyTemperature    float64

	Acceleration [3]float64
	AccValid     bool

	FingerPresent bool

	Time time.Time
}

// Reader produces one Readings per call. Read blocks until a sample is
// available or the context is done.
type Reader interface {
	Read(ctx context.Context) (Readings, error)

	// Close releases the underlying source.
	Close() error
}
