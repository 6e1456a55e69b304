package backoff

import (
	"testing"
	"time"
)

func TestExponentialGrowth(t *testing.T) {
	b := New(2*time.Second, 60*time.Second, 2)
	want := []time.Duration{2, 4, 8, 16, 32}
	for i, w := range want {
		got := b.NextDelay()
		if got != w*time.Second {
			t.Fatalf("delay[%d] = %v, want %v", i, got, w*time.Second)
		}
	}
}

func TestMaxDelayCap(t *testing.T) {
	b := New(1*time.Second, 10*time.Second, 2)
	for i := 0; i < 8; i++ {
		b.NextDelay()
	}
	got := b.NextDelay()
	if got != 10*time.Second {
		t.Fatalf("delay = %v, want capped at 10s", got)
	}
}

func TestReset(t *testing.T) {
	b := New(1*time.Second, 60*time.Second, 2)
	b.NextDelay()
	b.NextDelay()
	b.Reset()
	if got := b.NextDelay(); got != 1*time.Second {
		t.Fatalf("delay after reset = %v, want 1s", got)
	}
	if b.Attempt() != 1 {
		t.Fatalf("attempt after reset+1 call = %d, want 1", b.Attempt())
	}
}

func TestExceededMaxAttempts(t *testing.T) {
	b := New(1*time.Second, 60*time.Second, 2)
	for i := 0; i < 5; i++ {
		if b.ExceededMaxAttempts(5) {
			t.Fatalf("attempt %d: unexpectedly exceeded", i)
		}
		b.NextDelay()
	}
	if !b.ExceededMaxAttempts(5) {
		t.Fatalf("expected exceeded after 5 attempts")
	}
}

func TestAttemptCounter(t *testing.T) {
	b := New(1*time.Second, 60*time.Second, 2)
	for i := 1; i <= 4; i++ {
		b.NextDelay()
		if b.Attempt() != i {
			t.Fatalf("attempt = %d, want %d", b.Attempt(), i)
		}
	}
}

func TestMultiplierThree(t *testing.T) {
	b := New(1*time.Second, 100*time.Second, 3)
	want := []time.Duration{1, 3, 9, 27, 81, 100}
	for i, w := range want {
		got := b.NextDelay()
		if got != w*time.Second {
			t.Fatalf("delay[%d] = %v, want %v", i, got, w*time.Second)
		}
	}
}
