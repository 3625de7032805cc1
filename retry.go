package forgellm

import (
	"context"
	"time"

	"github.com/forgellm/forgellm-go/internal/backoff"
)

// jitterFraction bounds the uniform jitter added to a computed delay.
const jitterFraction = 0.25

// RetryConfig configures retry behavior for transient provider failures.
type RetryConfig struct {
	// MaxRetries is the number of re-attempts after the first call, so a
	// fully exhausted run makes MaxRetries+1 calls.
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64

	// Jitter adds a uniform random amount in [0, 0.25*delay] to each
	// computed delay, de-synchronizing retry storms.
	Jitter bool

	// RetryableErrors lists the error type tags that trigger a retry.
	// Authentication errors are never retried regardless of this list.
	RetryableErrors []string
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		BaseDelay:       time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
		RetryableErrors: []string{ErrorTypeRateLimit, ErrorTypeTimeout},
	}
}

// Delay returns the backoff duration for the given attempt (0-indexed):
// min(BaseDelay * ExponentialBase^attempt, MaxDelay), plus jitter when
// enabled.
func (c RetryConfig) Delay(attempt int) time.Duration {
	delay := backoff.Exponential{}.Delay(attempt, c.BaseDelay, c.MaxDelay, c.ExponentialBase)
	if c.Jitter {
		delay = backoff.UniformJitter(delay, jitterFraction)
	}
	return delay
}

// RetryCallback is invoked before each backoff sleep with the upcoming
// attempt number (1-indexed), the total attempt budget, the chosen delay and
// the error that triggered the retry.
type RetryCallback func(attempt, maxAttempts int, delay time.Duration, err error)

// WithRetry invokes call, re-attempting on retryable failures with
// exponential backoff. The attempt counter is scoped to this invocation;
// nothing persists across top-level calls.
//
// Non-retryable errors propagate from the first failing attempt with zero
// delay and zero additional calls. When a failure carries a server retry
// hint, the actual wait is max(computed delay, hint). After the final
// attempt the last error is wrapped in RetryExhaustedError.
func WithRetry(ctx context.Context, config RetryConfig, provider string, call CallFunc, onRetry RetryCallback) (*ChatResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		resp, err := call(ctx)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !IsRetryableError(err, config.RetryableErrors) {
			return nil, err
		}

		if attempt >= config.MaxRetries {
			break
		}

		delay := config.Delay(attempt)
		if hint := RetryAfterHint(err); hint > delay {
			delay = hint
		}

		if onRetry != nil {
			onRetry(attempt+1, config.MaxRetries+1, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	return nil, &RetryExhaustedError{
		Provider:  provider,
		Attempts:  config.MaxRetries + 1,
		LastError: lastErr,
	}
}
