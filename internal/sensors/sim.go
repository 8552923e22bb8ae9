package sensors

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Sim synthesizes a plausible occupant for bench runs without hardware.
// With nobody in bed it emits ambient-temperature readings and no vitals;
// once Occupy is called the mat warms toward body-heated equilibrium, the
// heart rate settles from a wakeful baseline toward a resting rate, and
// movement arrives as occasional random spikes.
type Sim struct {
	mu sync.Mutex

	rng      *rand.Rand
	occupied bool
	bedTemp  float64
	hr       float64
}

// Resting equilibrium the simulation drifts toward while occupied.
const (
	simAmbient   = 22.0
	simWarmedBed = 30.0
	simWakeHR    = 72.0
	simRestingHR = 58.0
	simSpikeProb = 0.04
	simBedAlpha  = 0.03
	simHRAlpha   = 0.01
)

// NewSim creates a simulated source. The seed fixes the random sequence so
// runs are reproducible.
func NewSim(seed int64) *Sim {
	return &Sim{
		rng:     rand.New(rand.NewSource(seed)),
		bedTemp: simAmbient,
		hr:      simWakeHR,
	}
}

// Occupy puts the synthetic occupant in or out of bed.
func (s *Sim) Occupy(present bool) {
	s.mu.Lock()
	s.occupied = present
	s.mu.Unlock()
}

// Read advances the simulation one tick and returns the resulting sample.
func (s *Sim) Read(ctx context.Context) (Readings, error) {
	if err := ctx.Err(); err != nil {
		return Readings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := Readings{
		AmbientTemperature: simAmbient + s.rng.Float64()*0.4 - 0.2,
		BedHumidity:        45 + s.rng.Float64()*10,
		Time:               time.Now(),
	}

	if !s.occupied {
		s.bedTemp += (simAmbient - s.bedTemp) * simBedAlpha
		s.hr = simWakeHR
		r.BedTemperature = s.bedTemp + s.rng.Float64()*0.2 - 0.1
		r.BedValid = true
		return r, nil
	}

	s.bedTemp += (simWarmedBed - s.bedTemp) * simBedAlpha
	s.hr += (simRestingHR - s.hr) * simHRAlpha

	r.BedTemperature = s.bedTemp + s.rng.Float64()*0.2 - 0.1
	r.BedValid = true
	r.BodyTemperature = 36.8 + s.rng.Float64()*0.2 - 0.1
	r.HeartRate = int(s.hr + s.rng.Float64()*4 - 2)
	r.HRValid = true
	r.SpO2 = 97 + s.rng.Intn(3)
	r.SpO2Valid = true
	r.FingerPresent = true
	r.AccValid = true

	// Gravity plus an occasional turn in bed.
	r.Acceleration = [3]float64{0, 0, 1}
	if s.rng.Float64() < simSpikeProb {
		r.Acceleration[0] = s.rng.Float64()*0.8 - 0.4
		r.Acceleration[1] = s.rng.Float64()*0.8 - 0.4
	}
	return r, nil
}

// Close is a no-op; the simulation holds no resources.
func (s *Sim) Close() error { return nil }
