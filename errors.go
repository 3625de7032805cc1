package forgellm

import (
	"errors"
	"fmt"
	"time"
)

// Error type tags used for classification, events and metrics labels.
const (
	ErrorTypeValidation     = "Validation"
	ErrorTypeAuthentication = "Authentication"
	ErrorTypeRateLimit      = "RateLimit"
	ErrorTypeTimeout        = "Timeout"
	ErrorTypeAPI            = "API"
	ErrorTypeCircuitOpen    = "CircuitOpen"
)

// Sentinel errors for common failure scenarios.
var (
	// ErrCircuitOpen is returned when the circuit breaker is in open state.
	ErrCircuitOpen = errors.New("forgellm: circuit open")

	// ErrUnknownProvider is returned when no adapter is registered for the
	// requested provider.
	ErrUnknownProvider = errors.New("forgellm: unknown provider")
)

// ProviderError is a classified failure from a provider adapter (or from
// the layer itself, for validation and circuit-open conditions).
type ProviderError struct {
	Type       string
	Provider   string
	Message    string
	StatusCode int

	// RetryAfter is the server-supplied wait hint, if any (rate limits).
	RetryAfter time.Duration

	// Retryable marks generic API errors the adapter flagged as transient.
	Retryable bool

	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Provider != "" {
		msg = fmt.Sprintf("[%s] %s", e.Provider, msg)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *ProviderError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*ProviderError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// NewValidationError reports caller misuse. Never retried.
func NewValidationError(message string) *ProviderError {
	return &ProviderError{Type: ErrorTypeValidation, Message: message}
}

// NewAuthenticationError reports a credential failure. Never retried,
// regardless of configuration.
func NewAuthenticationError(provider, message string) *ProviderError {
	return &ProviderError{
		Type:       ErrorTypeAuthentication,
		Provider:   provider,
		Message:    message,
		StatusCode: 401,
	}
}

// NewRateLimitError reports a provider-side rate limit, optionally carrying
// the server's retry hint.
func NewRateLimitError(provider, message string, retryAfter time.Duration) *ProviderError {
	return &ProviderError{
		Type:       ErrorTypeRateLimit,
		Provider:   provider,
		Message:    message,
		StatusCode: 429,
		RetryAfter: retryAfter,
	}
}

// NewTimeoutError reports a timed-out provider call.
func NewTimeoutError(provider, message string) *ProviderError {
	return &ProviderError{
		Type:       ErrorTypeTimeout,
		Provider:   provider,
		Message:    message,
		StatusCode: 408,
	}
}

// NewAPIError reports a generic provider API failure. The adapter decides
// whether it is transient via the retryable flag.
func NewAPIError(provider, message string, statusCode int, retryable bool) *ProviderError {
	return &ProviderError{
		Type:       ErrorTypeAPI,
		Provider:   provider,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
	}
}

// RateLimitExceededError is raised by the local rate limiter when a limit is
// breached and waiting is disabled.
type RateLimitExceededError struct {
	Provider   string
	LimitType  string
	Current    int
	Limit      int
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("[%s] rate limit exceeded: %s (%d/%d, retry after %s)",
		e.Provider, e.LimitType, e.Current, e.Limit, e.RetryAfter)
}

// RetryExhaustedError wraps the last transient failure after all retry
// attempts are spent, so callers handle one exhaustion type regardless of
// root cause.
type RetryExhaustedError struct {
	Provider  string
	Attempts  int
	LastError error
}

// Error implements the error interface.
func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("[%s] all %d attempts failed: %v", e.Provider, e.Attempts, e.LastError)
}

// Unwrap returns the last underlying failure.
func (e *RetryExhaustedError) Unwrap() error {
	return e.LastError
}

// IsRetryableError is the pure classification function used by the retry
// layer. An error is retryable iff its type is in retryableTypes, or it is
// an API error the adapter flagged retryable. Authentication errors are
// never retryable; this short-circuits before any configured classification.
func IsRetryableError(err error, retryableTypes []string) bool {
	if err == nil {
		return false
	}

	var pe *ProviderError
	if !errors.As(err, &pe) {
		return false
	}

	if pe.Type == ErrorTypeAuthentication {
		return false
	}

	for _, t := range retryableTypes {
		if pe.Type == t {
			return true
		}
	}

	return pe.Type == ErrorTypeAPI && pe.Retryable
}

// RetryAfterHint extracts a server-supplied wait hint from an error, or zero.
func RetryAfterHint(err error) time.Duration {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.RetryAfter > 0 {
		return pe.RetryAfter
	}
	return 0
}

// ErrorTypeOf returns the classification tag for an error, for use in
// events and metrics labels.
func ErrorTypeOf(err error) string {
	if err == nil {
		return ""
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Type
	}

	var rle *RateLimitExceededError
	if errors.As(err, &rle) {
		return "RateLimitExceeded"
	}

	var rex *RetryExhaustedError
	if errors.As(err, &rex) {
		return "RetryExhausted"
	}

	if errors.Is(err, ErrCircuitOpen) {
		return ErrorTypeCircuitOpen
	}

	return "Unknown"
}
