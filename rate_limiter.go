package forgellm

import (
	"context"
	"sync"
	"time"
)

const (
	minuteWindow = 60 * time.Second
	dayWindow    = 24 * time.Hour
)

// Limit type tags carried by RateLimitExceededError.
const (
	LimitRequestsPerMinute = "requests_per_minute"
	LimitTokensPerMinute   = "tokens_per_minute"
	LimitRequestsPerDay    = "requests_per_day"
)

// RateLimitConfig configures admission control for one provider. Zero values
// for TokensPerMinute / RequestsPerDay disable those limits.
type RateLimitConfig struct {
	RequestsPerMinute int
	TokensPerMinute   int
	RequestsPerDay    int

	// BurstAllowance is extra requests permitted per minute beyond the
	// steady-state rate, to absorb short spikes.
	BurstAllowance int

	// WaitOnLimit makes Acquire block (capped by MaxWait) instead of
	// returning RateLimitExceededError.
	WaitOnLimit bool
	MaxWait     time.Duration
}

// DefaultRateLimitConfig returns the generic vendor configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 60,
		BurstAllowance:    5,
		WaitOnLimit:       true,
		MaxWait:           60 * time.Second,
	}
}

// DefaultRateLimits are the published per-provider presets consumed at
// client construction time.
var DefaultRateLimits = map[string]RateLimitConfig{
	"openai": {
		RequestsPerMinute: 60,
		TokensPerMinute:   90000,
		BurstAllowance:    10,
		WaitOnLimit:       true,
		MaxWait:           60 * time.Second,
	},
	"anthropic": {
		RequestsPerMinute: 60,
		TokensPerMinute:   100000,
		BurstAllowance:    10,
		WaitOnLimit:       true,
		MaxWait:           60 * time.Second,
	},
	// Aggregator-style vendors run with higher limits.
	"openrouter": {
		RequestsPerMinute: 200,
		BurstAllowance:    20,
		WaitOnLimit:       true,
		MaxWait:           60 * time.Second,
	},
}

// RateLimitStats holds rate limiting statistics.
type RateLimitStats struct {
	RequestsThisMinute int
	RequestsThisDay    int
	TokensThisMinute   int
	WaitsTriggered     int64
	TotalWaitTime      time.Duration
	LimitsExceeded     int64
}

// AvgWaitTime returns the average wait when rate limited, zero if no waits.
func (s RateLimitStats) AvgWaitTime() time.Duration {
	if s.WaitsTriggered == 0 {
		return 0
	}
	return s.TotalWaitTime / time.Duration(s.WaitsTriggered)
}

// RateLimiter is the admission-control contract. Implementations must be
// safe for concurrent use.
type RateLimiter interface {
	// Acquire blocks (or fails with RateLimitExceededError) until the call
	// is admitted under all configured limits. tokens is the estimated
	// token cost, checked against the tokens-per-minute budget before any
	// counter is incremented. Cancellation during the admission wait
	// returns ctx.Err() without counting the request.
	Acquire(ctx context.Context, tokens int) error

	// Release is a hook for post-hoc token correction. Token accounting
	// happens at Acquire time; the base implementation is a no-op.
	Release(tokensUsed int)

	Stats() RateLimitStats
	Reset()
}

// requestWindow is a sliding window that resets wholesale once its duration
// elapses.
type requestWindow struct {
	start  time.Time
	count  int
	tokens int
}

// SlidingWindowRateLimiter enforces requests/minute, tokens/minute and
// requests/day limits using hard-reset windows. A window that elapses resets
// wholesale rather than decaying continuously, which permits a burst of up
// to twice the limit at a window boundary — a deliberate simplicity over
// precision trade-off that biases in favor of the caller.
type SlidingWindowRateLimiter struct {
	mu       sync.Mutex
	provider string
	config   RateLimitConfig
	minute   requestWindow
	day      requestWindow
	stats    RateLimitStats
}

// NewSlidingWindowRateLimiter creates a limiter for the named provider.
func NewSlidingWindowRateLimiter(provider string, config RateLimitConfig) *SlidingWindowRateLimiter {
	now := time.Now()
	return &SlidingWindowRateLimiter{
		provider: provider,
		config:   config,
		minute:   requestWindow{start: now},
		day:      requestWindow{start: now},
	}
}

// NewProviderRateLimiter creates a limiter using the published preset for
// the provider, falling back to the generic default.
func NewProviderRateLimiter(provider string) *SlidingWindowRateLimiter {
	config, ok := DefaultRateLimits[provider]
	if !ok {
		config = DefaultRateLimitConfig()
	}
	return NewSlidingWindowRateLimiter(provider, config)
}

// Acquire admits the call under all configured limits, sleeping (capped by
// MaxWait) when WaitOnLimit is set. Counters are incremented only on
// successful admission.
func (rl *SlidingWindowRateLimiter) Acquire(ctx context.Context, tokens int) error {
	rl.mu.Lock()

	now := time.Now()
	if now.Sub(rl.minute.start) >= minuteWindow {
		rl.minute = requestWindow{start: now}
	}
	if now.Sub(rl.day.start) >= dayWindow {
		rl.day = requestWindow{start: now}
	}

	effectiveRPM := rl.config.RequestsPerMinute + rl.config.BurstAllowance
	if rl.minute.count >= effectiveRPM {
		remaining := minuteWindow - now.Sub(rl.minute.start)
		if err := rl.limitExceededLocked(ctx, LimitRequestsPerMinute, rl.minute.count, rl.config.RequestsPerMinute, remaining); err != nil {
			rl.mu.Unlock()
			return err
		}
		rl.minute = requestWindow{start: time.Now()}
	}

	// The token check rejects before incrementing: an estimate that would
	// overflow the budget must not be admitted.
	if rl.config.TokensPerMinute > 0 && rl.minute.tokens+tokens > rl.config.TokensPerMinute {
		remaining := minuteWindow - time.Since(rl.minute.start)
		if err := rl.limitExceededLocked(ctx, LimitTokensPerMinute, rl.minute.tokens, rl.config.TokensPerMinute, remaining); err != nil {
			rl.mu.Unlock()
			return err
		}
		rl.minute = requestWindow{start: time.Now()}
	}

	if rl.config.RequestsPerDay > 0 && rl.day.count >= rl.config.RequestsPerDay {
		remaining := dayWindow - time.Since(rl.day.start)
		if err := rl.limitExceededLocked(ctx, LimitRequestsPerDay, rl.day.count, rl.config.RequestsPerDay, remaining); err != nil {
			rl.mu.Unlock()
			return err
		}
		rl.day = requestWindow{start: time.Now()}
	}

	rl.minute.count++
	rl.minute.tokens += tokens
	rl.day.count++
	rl.stats.RequestsThisMinute = rl.minute.count
	rl.stats.RequestsThisDay = rl.day.count
	rl.stats.TokensThisMinute = rl.minute.tokens

	rl.mu.Unlock()
	return nil
}

// limitExceededLocked handles a breached limit: it either returns
// RateLimitExceededError (wait disabled), or releases the lock, sleeps up to
// MaxWait, and re-acquires the lock. The caller resets the breached window
// and retries the check once after a successful wait.
func (rl *SlidingWindowRateLimiter) limitExceededLocked(ctx context.Context, limitType string, current, limit int, remaining time.Duration) error {
	rl.stats.LimitsExceeded++

	if !rl.config.WaitOnLimit {
		return &RateLimitExceededError{
			Provider:   rl.provider,
			LimitType:  limitType,
			Current:    current,
			Limit:      limit,
			RetryAfter: remaining,
		}
	}

	wait := remaining
	if wait > rl.config.MaxWait {
		wait = rl.config.MaxWait
	}
	if wait <= 0 {
		return nil
	}

	rl.stats.WaitsTriggered++
	rl.stats.TotalWaitTime += wait

	rl.mu.Unlock()
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		rl.mu.Lock()
		return nil
	case <-ctx.Done():
		rl.mu.Lock()
		return ctx.Err()
	}
}

// Release reports actual tokens used after a request. Accounting happens at
// Acquire time, so the base implementation does nothing.
func (rl *SlidingWindowRateLimiter) Release(tokensUsed int) {}

// Stats returns a snapshot of rate limiting statistics.
func (rl *SlidingWindowRateLimiter) Stats() RateLimitStats {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.stats
}

// Reset clears all windows and statistics.
func (rl *SlidingWindowRateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.minute = requestWindow{start: now}
	rl.day = requestWindow{start: now}
	rl.stats = RateLimitStats{}
}

// NoOpRateLimiter admits everything. Returned for unconfigured providers so
// callers never branch on whether a provider is rate-limited.
type NoOpRateLimiter struct{}

// NewNoOpRateLimiter creates a no-op limiter.
func NewNoOpRateLimiter() *NoOpRateLimiter { return &NoOpRateLimiter{} }

func (*NoOpRateLimiter) Acquire(context.Context, int) error { return nil }
func (*NoOpRateLimiter) Release(int)                        {}
func (*NoOpRateLimiter) Stats() RateLimitStats              { return RateLimitStats{} }
func (*NoOpRateLimiter) Reset()                             {}

// CompositeRateLimiter multiplexes independent limiter instances keyed by
// provider name. Providers have fully independent locks and state, so
// contention across providers is impossible by construction.
type CompositeRateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]RateLimiter
	configs  map[string]RateLimitConfig
	noop     *NoOpRateLimiter
}

// NewCompositeRateLimiter creates an empty composite limiter.
func NewCompositeRateLimiter() *CompositeRateLimiter {
	return &CompositeRateLimiter{
		limiters: make(map[string]RateLimiter),
		configs:  make(map[string]RateLimitConfig),
		noop:     NewNoOpRateLimiter(),
	}
}

// ConfigureProvider installs (or replaces) the limiter for a provider.
func (c *CompositeRateLimiter) ConfigureProvider(provider string, config RateLimitConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limiters[provider] = NewSlidingWindowRateLimiter(provider, config)
	c.configs[provider] = config
}

// Configs returns a copy of the per-provider configurations.
func (c *CompositeRateLimiter) Configs() map[string]RateLimitConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]RateLimitConfig, len(c.configs))
	for provider, config := range c.configs {
		out[provider] = config
	}
	return out
}

// ForProvider returns the limiter for a provider, or a no-op limiter when
// the provider is unconfigured.
func (c *CompositeRateLimiter) ForProvider(provider string) RateLimiter {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if limiter, ok := c.limiters[provider]; ok {
		return limiter
	}
	return c.noop
}

// Configured reports whether the provider has a dedicated limiter.
func (c *CompositeRateLimiter) Configured(provider string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.limiters[provider]
	return ok
}

// Stats returns statistics aggregated across all providers.
func (c *CompositeRateLimiter) Stats() RateLimitStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var total RateLimitStats
	for _, limiter := range c.limiters {
		s := limiter.Stats()
		total.RequestsThisMinute += s.RequestsThisMinute
		total.RequestsThisDay += s.RequestsThisDay
		total.TokensThisMinute += s.TokensThisMinute
		total.WaitsTriggered += s.WaitsTriggered
		total.TotalWaitTime += s.TotalWaitTime
		total.LimitsExceeded += s.LimitsExceeded
	}
	return total
}

// StatsByProvider returns per-provider statistics.
func (c *CompositeRateLimiter) StatsByProvider() map[string]RateLimitStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]RateLimitStats, len(c.limiters))
	for provider, limiter := range c.limiters {
		out[provider] = limiter.Stats()
	}
	return out
}

// Reset resets every configured limiter.
func (c *CompositeRateLimiter) Reset() {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, limiter := range c.limiters {
		limiter.Reset()
	}
}
