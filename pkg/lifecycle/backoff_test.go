package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoff_NextGrowsAndCaps(t *testing.T) {
	b := NewBackoff(10*time.Millisecond, 40*time.Millisecond)

	for i, want := range []time.Duration{10, 20, 40, 40} {
		want *= time.Millisecond
		if b.Current() != want {
			t.Fatalf("step %d: Current() = %v, want %v", i, b.Current(), want)
		}
		d := b.Next()
		lo, hi := time.Duration(float64(want)*0.8), time.Duration(float64(want)*1.2)
		if d < lo || d > hi {
			t.Errorf("step %d: Next() = %v, want within [%v, %v]", i, d, lo, hi)
		}
	}

	b.Reset()
	if b.Current() != 10*time.Millisecond {
		t.Errorf("Current() after Reset = %v, want 10ms", b.Current())
	}
}

func TestBackoff_WaitCanceled(t *testing.T) {
	b := NewBackoff(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() = %v, want context.Canceled", err)
	}
}

func TestBackoff_Wait(t *testing.T) {
	b := NewBackoff(time.Millisecond, time.Millisecond)

	if err := b.Wait(context.Background()); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
}
