package sensors

import (
	"context"
	"errors"
	"testing"
)

func TestFakeReaderSequence(t *testing.T) {
	f := NewFakeReader([]Readings{
		{HeartRate: 60, HRValid: true},
		{HeartRate: 62, HRValid: true},
	})
	ctx := context.Background()

	r1, err := f.Read(ctx)
	if err != nil || r1.HeartRate != 60 {
		t.Fatalf("first read: hr=%d err=%v", r1.HeartRate, err)
	}
	r2, _ := f.Read(ctx)
	if r2.HeartRate != 62 {
		t.Errorf("second read: hr=%d, want 62", r2.HeartRate)
	}

	// Exhausted samples repeat the last one.
	r3, _ := f.Read(ctx)
	if r3.HeartRate != 62 {
		t.Errorf("exhausted read: hr=%d, want 62", r3.HeartRate)
	}
}

func TestFakeReaderErrors(t *testing.T) {
	f := NewFakeReader(nil)
	if _, err := f.Read(context.Background()); err == nil {
		t.Error("expected error with no samples")
	}

	f = NewFakeReader([]Readings{{}})
	f.ReadError = errors.New("sensor failure")
	if _, err := f.Read(context.Background()); err == nil {
		t.Error("expected configured read error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f = NewFakeReader([]Readings{{}})
	if _, err := f.Read(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context error, got %v", err)
	}
}

func TestFakeReaderClose(t *testing.T) {
	f := NewFakeReader([]Readings{{}})
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !f.Closed {
		t.Error("expected Closed to be set")
	}
	f.Reset()
	if f.Closed {
		t.Error("Reset should clear Closed")
	}
}
