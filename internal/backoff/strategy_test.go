package backoff

import (
	"testing"
	"time"
)

func TestExponentialDelay(t *testing.T) {
	strategy := Exponential{}

	tests := []struct {
		name     string
		attempt  int
		base     time.Duration
		max      time.Duration
		expBase  float64
		expected time.Duration
	}{
		{
			name:     "attempt 0",
			attempt:  0,
			base:     time.Second,
			max:      time.Minute,
			expBase:  2.0,
			expected: time.Second,
		},
		{
			name:     "attempt 1",
			attempt:  1,
			base:     time.Second,
			max:      time.Minute,
			expBase:  2.0,
			expected: 2 * time.Second,
		},
		{
			name:     "attempt 2",
			attempt:  2,
			base:     time.Second,
			max:      time.Minute,
			expBase:  2.0,
			expected: 4 * time.Second,
		},
		{
			name:     "capped at max",
			attempt:  3,
			base:     time.Second,
			max:      5 * time.Second,
			expBase:  2.0,
			expected: 5 * time.Second,
		},
		{
			name:     "negative attempt clamps to 0",
			attempt:  -1,
			base:     time.Second,
			max:      time.Minute,
			expBase:  2.0,
			expected: time.Second,
		},
		{
			name:     "huge attempt does not overflow",
			attempt:  1000,
			base:     time.Second,
			max:      time.Minute,
			expBase:  2.0,
			expected: time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strategy.Delay(tt.attempt, tt.base, tt.max, tt.expBase)
			if got != tt.expected {
				t.Errorf("Delay(%d, %v, %v, %v) = %v, want %v",
					tt.attempt, tt.base, tt.max, tt.expBase, got, tt.expected)
			}
		})
	}
}

func TestDecorrelatedDelay(t *testing.T) {
	strategy := Decorrelated{}

	if got := strategy.Delay(0, time.Second, time.Minute, 2.0); got != time.Second {
		t.Errorf("Delay(0) = %v, want %v", got, time.Second)
	}

	for i := 0; i < 100; i++ {
		got := strategy.Delay(1, time.Second, time.Minute, 2.0)
		if got < time.Second || got > 3*time.Second {
			t.Fatalf("Delay(1) = %v, want between 1s and 3s", got)
		}
	}

	// Never exceeds max even for deep attempts.
	for i := 0; i < 100; i++ {
		got := strategy.Delay(10, time.Second, 5*time.Second, 2.0)
		if got > 5*time.Second {
			t.Fatalf("Delay(10) = %v, exceeds max 5s", got)
		}
	}
}

func TestUniformJitter(t *testing.T) {
	base := 4 * time.Second

	if got := UniformJitter(base, 0); got != base {
		t.Errorf("UniformJitter(%v, 0) = %v, want unchanged", base, got)
	}

	for i := 0; i < 100; i++ {
		got := UniformJitter(base, 0.25)
		if got < base || got > 5*time.Second {
			t.Fatalf("UniformJitter(%v, 0.25) = %v, want within [4s, 5s]", base, got)
		}
	}

	// Fraction outside [0,1] is clamped.
	for i := 0; i < 100; i++ {
		got := UniformJitter(base, 2.0)
		if got < base || got > 2*base {
			t.Fatalf("UniformJitter(%v, 2.0) = %v, want within [4s, 8s]", base, got)
		}
	}
}

func TestPow(t *testing.T) {
	tests := []struct {
		base     float64
		exponent int
		expected float64
	}{
		{2.0, 0, 1.0},
		{2.0, 1, 2.0},
		{2.0, 10, 1024.0},
		{3.0, 2, 9.0},
		{1.5, 2, 2.25},
	}

	for _, tt := range tests {
		if got := Pow(tt.base, tt.exponent); got != tt.expected {
			t.Errorf("Pow(%v, %d) = %v, want %v", tt.base, tt.exponent, got, tt.expected)
		}
	}
}
