package sensors

import (
	"context"
	"errors"
)

// FakeReader is a test double that returns scripted readings.
type FakeReader struct {
	// Samples contains scripted readings. Each call to Read consumes
	// the next one; when exhausted the last sample repeats.
	Samples []Readings

	// ReadError, if set, is returned by every Read call.
	ReadError error

	// Closed tracks whether Close was called.
	Closed bool

	index int
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Readings) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
func (f *FakeReader) Read(ctx context.Context) (Readings, error) {
	if f.ReadError != nil {
		return Readings{}, f.ReadError
	}
	if err := ctx.Err(); err != nil {
		return Readings{}, err
	}
	if len(f.Samples) == 0 {
		return Readings{}, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the reader to the first sample.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Closed = false
}
