package forgellm

import (
	"fmt"
	"time"
)

// WithAdapter registers a provider adapter under its own name.
func WithAdapter(adapter ProviderAdapter) Option {
	return func(c *Client) {
		if adapter != nil {
			c.adapters[adapter.Name()] = adapter
		}
	}
}

// WithCacheConfig configures the built-in in-memory cache.
func WithCacheConfig(config CacheConfig) Option {
	return func(c *Client) {
		c.cacheConfig = config
		c.cache = NewInMemoryCache(config)
	}
}

// WithCache sets a custom cache implementation.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithoutCache disables response caching.
func WithoutCache() Option {
	return func(c *Client) {
		c.cacheConfig.Enabled = false
		c.cache = NewNoOpCache()
	}
}

// WithRateLimit installs a rate limiter for one provider.
func WithRateLimit(provider string, config RateLimitConfig) Option {
	return func(c *Client) {
		c.rateLimiter.ConfigureProvider(provider, config)
	}
}

// WithDefaultRateLimits installs the published presets for every known
// provider.
func WithDefaultRateLimits() Option {
	return func(c *Client) {
		for provider, config := range DefaultRateLimits {
			c.rateLimiter.ConfigureProvider(provider, config)
		}
	}
}

// WithRetryConfig sets the retry policy.
func WithRetryConfig(config RetryConfig) Option {
	return func(c *Client) {
		c.retryConfig = config
	}
}

// WithCircuitBreaker enables per-provider circuit breaking.
func WithCircuitBreaker(config CircuitBreakerConfig) Option {
	return func(c *Client) {
		c.breakerConfig = &config
	}
}

// WithDeduplication enables coalescing of concurrent identical requests.
func WithDeduplication() Option {
	return func(c *Client) {
		c.dedup = NewDeduplicationTracker()
	}
}

// WithObserver registers an observer on the bus.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.bus.AddObserver(o)
	}
}

// WithObservabilityConfig replaces the bus configuration. Observers added
// before this option are dropped with the old bus.
func WithObservabilityConfig(config ObservabilityConfig) Option {
	return func(c *Client) {
		c.bus = NewObservabilityBus(config)
	}
}

// WithLogger sets the client logger and registers a logging observer.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		if logger == nil {
			return
		}
		c.logger = logger
		c.bus.AddObserver(NewLoggingObserver(logger))
	}
}

// WithMetrics registers a Prometheus observer on the default registerer.
func WithMetrics() Option {
	return func(c *Client) {
		c.bus.AddObserver(NewPrometheusObserver())
	}
}

// WithPrometheusObserver registers a custom Prometheus observer.
func WithPrometheusObserver(po *PrometheusObserver) Option {
	return func(c *Client) {
		c.bus.AddObserver(po)
	}
}

// ValidateConfiguration validates the client configuration and returns an
// error if invalid.
func (c *Client) ValidateConfiguration() error {
	var errs []string

	errs = append(errs, c.validateAdapters()...)
	errs = append(errs, c.validateCacheConfig()...)
	errs = append(errs, c.validateRetryConfig()...)
	errs = append(errs, c.validateRateLimitConfig()...)
	errs = append(errs, c.validateBreakerConfig()...)

	if len(errs) > 0 {
		return &ProviderError{
			Type:    ErrorTypeValidation,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", errs),
		}
	}

	return nil
}

func (c *Client) validateAdapters() []string {
	var errs []string

	for name, adapter := range c.adapters {
		if adapter == nil {
			errs = append(errs, fmt.Sprintf("adapter %q cannot be nil", name))
		}
	}

	return errs
}

func (c *Client) validateCacheConfig() []string {
	var errs []string

	if c.cacheConfig.Enabled {
		if c.cacheConfig.DefaultTTL <= 0 {
			errs = append(errs, "cache DefaultTTL must be positive when cache is enabled")
		}
		if c.cacheConfig.MaxEntries <= 0 {
			errs = append(errs, "cache MaxEntries must be positive when cache is enabled")
		}
		if c.cacheConfig.DefaultTTL > 24*time.Hour {
			errs = append(errs, "cache DefaultTTL > 24h may cause stale data issues")
		}
	}

	return errs
}

func (c *Client) validateRetryConfig() []string {
	var errs []string

	if c.retryConfig.MaxRetries < 0 {
		errs = append(errs, "retry MaxRetries must be non-negative")
	}
	if c.retryConfig.MaxRetries > 100 {
		errs = append(errs, "retry MaxRetries > 100 may cause excessive resource usage")
	}
	if c.retryConfig.BaseDelay <= 0 {
		errs = append(errs, "retry BaseDelay must be positive")
	}
	if c.retryConfig.MaxDelay < c.retryConfig.BaseDelay {
		errs = append(errs, "retry MaxDelay must be greater than or equal to BaseDelay")
	}
	if c.retryConfig.ExponentialBase <= 1 {
		errs = append(errs, "retry ExponentialBase must be greater than 1")
	}

	return errs
}

func (c *Client) validateRateLimitConfig() []string {
	var errs []string

	for provider, config := range c.rateLimiter.Configs() {
		if config.RequestsPerMinute <= 0 {
			errs = append(errs, fmt.Sprintf("rate limit RequestsPerMinute for %q must be positive", provider))
		}
		if config.TokensPerMinute < 0 {
			errs = append(errs, fmt.Sprintf("rate limit TokensPerMinute for %q must be non-negative", provider))
		}
		if config.RequestsPerDay < 0 {
			errs = append(errs, fmt.Sprintf("rate limit RequestsPerDay for %q must be non-negative", provider))
		}
		if config.BurstAllowance < 0 {
			errs = append(errs, fmt.Sprintf("rate limit BurstAllowance for %q must be non-negative", provider))
		}
		if config.WaitOnLimit && config.MaxWait <= 0 {
			errs = append(errs, fmt.Sprintf("rate limit MaxWait for %q must be positive when WaitOnLimit is set", provider))
		}
	}

	return errs
}

func (c *Client) validateBreakerConfig() []string {
	var errs []string

	if c.breakerConfig != nil {
		if c.breakerConfig.FailureThreshold < 0 {
			errs = append(errs, "circuit breaker FailureThreshold must be non-negative")
		}
		if c.breakerConfig.RecoveryTimeout < 0 {
			errs = append(errs, "circuit breaker RecoveryTimeout must be non-negative")
		}
		if c.breakerConfig.SuccessThreshold < 0 {
			errs = append(errs, "circuit breaker SuccessThreshold must be non-negative")
		}
	}

	return errs
}
