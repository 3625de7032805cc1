package forgellm

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the YAML file representation of client settings. Durations are
// expressed in seconds so files stay free of Go duration syntax.
type Config struct {
	Cache          CacheFileConfig                `yaml:"cache"`
	RateLimits     map[string]RateLimitFileConfig `yaml:"rate_limits"`
	Retry          RetryFileConfig                `yaml:"retry"`
	CircuitBreaker *CircuitBreakerFileConfig      `yaml:"circuit_breaker,omitempty"`
	Observability  ObservabilityFileConfig        `yaml:"observability"`
	Deduplication  bool                           `yaml:"deduplication"`
}

// CacheFileConfig mirrors CacheConfig for YAML files.
type CacheFileConfig struct {
	Enabled              bool `yaml:"enabled"`
	TTLSeconds           int  `yaml:"ttl_seconds"`
	MaxEntries           int  `yaml:"max_entries"`
	CacheToolCalls       bool `yaml:"cache_tool_calls"`
	RequireDeterministic bool `yaml:"require_deterministic"`
}

// CacheConfig converts to the runtime form.
func (c CacheFileConfig) CacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:              c.Enabled,
		DefaultTTL:           time.Duration(c.TTLSeconds) * time.Second,
		MaxEntries:           c.MaxEntries,
		CacheToolCalls:       c.CacheToolCalls,
		RequireDeterministic: c.RequireDeterministic,
	}
}

// RateLimitFileConfig mirrors RateLimitConfig for YAML files.
type RateLimitFileConfig struct {
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	TokensPerMinute   int  `yaml:"tokens_per_minute"`
	RequestsPerDay    int  `yaml:"requests_per_day"`
	BurstAllowance    int  `yaml:"burst_allowance"`
	WaitOnLimit       bool `yaml:"wait_on_limit"`
	MaxWaitSeconds    int  `yaml:"max_wait_seconds"`
}

// RateLimitConfig converts to the runtime form.
func (c RateLimitFileConfig) RateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: c.RequestsPerMinute,
		TokensPerMinute:   c.TokensPerMinute,
		RequestsPerDay:    c.RequestsPerDay,
		BurstAllowance:    c.BurstAllowance,
		WaitOnLimit:       c.WaitOnLimit,
		MaxWait:           time.Duration(c.MaxWaitSeconds) * time.Second,
	}
}

// RetryFileConfig mirrors RetryConfig for YAML files.
type RetryFileConfig struct {
	MaxRetries       int      `yaml:"max_retries"`
	BaseDelaySeconds float64  `yaml:"base_delay_seconds"`
	MaxDelaySeconds  float64  `yaml:"max_delay_seconds"`
	ExponentialBase  float64  `yaml:"exponential_base"`
	Jitter           bool     `yaml:"jitter"`
	RetryableErrors  []string `yaml:"retryable_errors"`
}

// RetryConfig converts to the runtime form.
func (c RetryFileConfig) RetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      c.MaxRetries,
		BaseDelay:       time.Duration(c.BaseDelaySeconds * float64(time.Second)),
		MaxDelay:        time.Duration(c.MaxDelaySeconds * float64(time.Second)),
		ExponentialBase: c.ExponentialBase,
		Jitter:          c.Jitter,
		RetryableErrors: c.RetryableErrors,
	}
}

// CircuitBreakerFileConfig mirrors CircuitBreakerConfig for YAML files.
type CircuitBreakerFileConfig struct {
	FailureThreshold       int `yaml:"failure_threshold"`
	RecoveryTimeoutSeconds int `yaml:"recovery_timeout_seconds"`
	SuccessThreshold       int `yaml:"success_threshold"`
}

// CircuitBreakerConfig converts to the runtime form.
func (c CircuitBreakerFileConfig) CircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: c.FailureThreshold,
		RecoveryTimeout:  time.Duration(c.RecoveryTimeoutSeconds) * time.Second,
		SuccessThreshold: c.SuccessThreshold,
	}
}

// ObservabilityFileConfig mirrors ObservabilityConfig for YAML files.
type ObservabilityFileConfig struct {
	Enabled        bool `yaml:"enabled"`
	CaptureContent bool `yaml:"capture_content"`
}

// ObservabilityConfig converts to the runtime form.
func (c ObservabilityFileConfig) ObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:        c.Enabled,
		CaptureContent: c.CaptureContent,
	}
}

// DefaultConfig returns the file representation of the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Cache: CacheFileConfig{
			Enabled:              true,
			TTLSeconds:           300,
			MaxEntries:           1000,
			RequireDeterministic: true,
		},
		Retry: RetryFileConfig{
			MaxRetries:       3,
			BaseDelaySeconds: 1,
			MaxDelaySeconds:  60,
			ExponentialBase:  2.0,
			Jitter:           true,
			RetryableErrors:  []string{ErrorTypeRateLimit, ErrorTypeTimeout},
		},
		Observability: ObservabilityFileConfig{Enabled: true},
	}
}

// LoadConfig reads a YAML config file, loading a .env file first so that
// ${VAR}-style lookups made by the caller resolve. A missing .env is not an
// error; a missing or malformed config file is.
func LoadConfig(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides lets the environment win over file values for the
// settings that commonly differ between deployments.
func applyEnvOverrides(cfg *Config) {
	if v, ok := envBool("FORGELLM_CACHE_ENABLED"); ok {
		cfg.Cache.Enabled = v
	}
	if v, ok := envInt("FORGELLM_CACHE_TTL_SECONDS"); ok {
		cfg.Cache.TTLSeconds = v
	}
	if v, ok := envInt("FORGELLM_MAX_RETRIES"); ok {
		cfg.Retry.MaxRetries = v
	}
	if v, ok := envBool("FORGELLM_OBSERVABILITY_ENABLED"); ok {
		cfg.Observability.Enabled = v
	}
}

func envBool(name string) (bool, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

func envInt(name string) (int, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// WithConfig applies a loaded file configuration as a single option.
func WithConfig(cfg Config) Option {
	return func(c *Client) {
		WithCacheConfig(cfg.Cache.CacheConfig())(c)
		WithRetryConfig(cfg.Retry.RetryConfig())(c)
		WithObservabilityConfig(cfg.Observability.ObservabilityConfig())(c)

		for provider, rl := range cfg.RateLimits {
			c.rateLimiter.ConfigureProvider(provider, rl.RateLimitConfig())
		}
		if cfg.CircuitBreaker != nil {
			WithCircuitBreaker(cfg.CircuitBreaker.CircuitBreakerConfig())(c)
		}
		if cfg.Deduplication {
			WithDeduplication()(c)
		}
	}
}
