package forgellm

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestProviderErrorMessage(t *testing.T) {
	err := NewRateLimitError("openai", "too many requests", 30*time.Second)

	msg := err.Error()
	if !strings.Contains(msg, "openai") {
		t.Errorf("expected provider in message, got %q", msg)
	}
	if !strings.Contains(msg, ErrorTypeRateLimit) {
		t.Errorf("expected type in message, got %q", msg)
	}
}

func TestProviderErrorIs(t *testing.T) {
	err := NewTimeoutError("openai", "deadline blown")

	if !errors.Is(err, &ProviderError{Type: ErrorTypeTimeout}) {
		t.Error("expected Is to match on type")
	}
	if errors.Is(err, &ProviderError{Type: ErrorTypeRateLimit}) {
		t.Error("expected Is to reject a different type")
	}
}

func TestProviderErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &ProviderError{Type: ErrorTypeAPI, Message: "upstream failed", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("expected Unwrap chain to reach the cause")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	var pe *ProviderError
	if !errors.As(wrapped, &pe) {
		t.Error("expected As to find ProviderError through wrapping")
	}
}

func TestIsRetryableError(t *testing.T) {
	defaults := []string{ErrorTypeRateLimit, ErrorTypeTimeout}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", NewRateLimitError("openai", "429", 0), true},
		{"timeout", NewTimeoutError("openai", "408"), true},
		{"auth never retryable", NewAuthenticationError("openai", "401"), false},
		{"validation", NewValidationError("bad input"), false},
		{"api transient", NewAPIError("openai", "503", 503, true), true},
		{"api permanent", NewAPIError("openai", "400", 400, false), false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableError(tt.err, defaults); got != tt.want {
				t.Errorf("IsRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsRetryableErrorAuthBeatsConfig(t *testing.T) {
	// Even if the caller lists Authentication as retryable, it never is.
	err := NewAuthenticationError("openai", "bad key")
	if IsRetryableError(err, []string{ErrorTypeAuthentication}) {
		t.Error("expected authentication errors to be non-retryable regardless of config")
	}
}

func TestRetryAfterHint(t *testing.T) {
	if got := RetryAfterHint(NewRateLimitError("openai", "429", 30*time.Second)); got != 30*time.Second {
		t.Errorf("expected 30s hint, got %v", got)
	}
	if got := RetryAfterHint(NewTimeoutError("openai", "408")); got != 0 {
		t.Errorf("expected zero hint, got %v", got)
	}
	if got := RetryAfterHint(errors.New("boom")); got != 0 {
		t.Errorf("expected zero hint for plain error, got %v", got)
	}

	wrapped := fmt.Errorf("outer: %w", NewRateLimitError("openai", "429", 5*time.Second))
	if got := RetryAfterHint(wrapped); got != 5*time.Second {
		t.Errorf("expected hint through wrapping, got %v", got)
	}
}

func TestErrorTypeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"provider error", NewTimeoutError("openai", "408"), ErrorTypeTimeout},
		{"rate limit exceeded", &RateLimitExceededError{Provider: "openai"}, "RateLimitExceeded"},
		{"retry exhausted", &RetryExhaustedError{Provider: "openai"}, "RetryExhausted"},
		{"circuit open sentinel", fmt.Errorf("wrapped: %w", ErrCircuitOpen), ErrorTypeCircuitOpen},
		{"plain error", errors.New("boom"), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorTypeOf(tt.err); got != tt.want {
				t.Errorf("ErrorTypeOf(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryExhaustedErrorUnwrap(t *testing.T) {
	cause := NewTimeoutError("openai", "408")
	err := &RetryExhaustedError{Provider: "openai", Attempts: 4, LastError: cause}

	if !errors.Is(err, cause) {
		t.Error("expected last error to be reachable via Unwrap")
	}
	if !strings.Contains(err.Error(), "4 attempts") {
		t.Errorf("expected attempt count in message, got %q", err.Error())
	}
}

func TestRateLimitExceededErrorMessage(t *testing.T) {
	err := &RateLimitExceededError{
		Provider:   "openai",
		LimitType:  LimitRequestsPerMinute,
		Current:    61,
		Limit:      60,
		RetryAfter: 10 * time.Second,
	}

	msg := err.Error()
	for _, want := range []string{"openai", LimitRequestsPerMinute, "61/60"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in message, got %q", want, msg)
		}
	}
}
