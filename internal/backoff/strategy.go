// Package backoff centralizes retry delay calculation so the curve is
// testable independently of the retry loop that sleeps on it.
package backoff

import (
	"math/rand"
	"time"
)

// Strategy defines the interface for backoff calculation algorithms.
type Strategy interface {
	// Delay returns the backoff duration for the given attempt number
	// (0-indexed), before jitter.
	Delay(attempt int, base, max time.Duration, expBase float64) time.Duration
}

// Exponential implements capped exponential backoff:
// min(base * expBase^attempt, max).
type Exponential struct{}

// Delay implements the Strategy interface.
func (Exponential) Delay(attempt int, base, max time.Duration, expBase float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	// Cap the exponent so the float multiply cannot overflow.
	if attempt > 30 {
		attempt = 30
	}

	delay := time.Duration(float64(base) * Pow(expBase, attempt))
	if delay < 0 || delay > max {
		delay = max
	}
	return delay
}

// Decorrelated implements decorrelated jitter per the AWS architecture
// blog: random_between(base, min(max, base * 3^attempt)). The randomness is
// built into the curve, so no additional jitter should be applied.
type Decorrelated struct{}

// Delay implements the Strategy interface. expBase is ignored; the
// decorrelated curve always widens by 3x.
func (Decorrelated) Delay(attempt int, base, max time.Duration, expBase float64) time.Duration {
	if attempt <= 0 {
		return base
	}
	if attempt > 10 {
		attempt = 10
	}

	lower := float64(base)
	upper := lower * Pow(3.0, attempt)

	maxFloat := float64(max)
	if upper > maxFloat || upper < 0 {
		upper = maxFloat
	}
	if upper < lower {
		upper = lower
	}

	delay := time.Duration(lower + rand.Float64()*(upper-lower))
	if delay < 0 || delay > max {
		delay = max
	}
	return delay
}

// UniformJitter adds a uniform random amount in [0, fraction*delay] to the
// delay, clamping fraction to [0, 1].
func UniformJitter(delay time.Duration, fraction float64) time.Duration {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	if fraction == 0 || delay <= 0 {
		return delay
	}
	return delay + time.Duration(float64(delay)*fraction*rand.Float64())
}

// Pow computes base^exponent for non-negative integer exponents without
// pulling in math.Pow.
func Pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
