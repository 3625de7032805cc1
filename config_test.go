package forgellm

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
cache:
  enabled: true
  ttl_seconds: 120
  max_entries: 500
  require_deterministic: true

rate_limits:
  openai:
    requests_per_minute: 30
    tokens_per_minute: 50000
    burst_allowance: 5
    wait_on_limit: true
    max_wait_seconds: 30
  openrouter:
    requests_per_minute: 100
    burst_allowance: 10
    wait_on_limit: false

retry:
  max_retries: 5
  base_delay_seconds: 0.5
  max_delay_seconds: 30
  exponential_base: 2.0
  jitter: true
  retryable_errors: [RateLimit, Timeout]

circuit_breaker:
  failure_threshold: 3
  recovery_timeout_seconds: 45
  success_threshold: 2

observability:
  enabled: true

deduplication: true
`

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forgellm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, sampleConfig)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 120, cfg.Cache.TTLSeconds)
	assert.Equal(t, 500, cfg.Cache.MaxEntries)

	require.Contains(t, cfg.RateLimits, "openai")
	assert.Equal(t, 30, cfg.RateLimits["openai"].RequestsPerMinute)
	assert.Equal(t, 50000, cfg.RateLimits["openai"].TokensPerMinute)
	assert.False(t, cfg.RateLimits["openrouter"].WaitOnLimit)

	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, []string{"RateLimit", "Timeout"}, cfg.Retry.RetryableErrors)

	require.NotNil(t, cfg.CircuitBreaker)
	assert.Equal(t, 3, cfg.CircuitBreaker.FailureThreshold)

	assert.True(t, cfg.Deduplication)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadConfigMalformed(t *testing.T) {
	path := writeConfigFile(t, "cache: [not a mapping")
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, sampleConfig)

	t.Setenv("FORGELLM_CACHE_ENABLED", "false")
	t.Setenv("FORGELLM_MAX_RETRIES", "9")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.False(t, cfg.Cache.Enabled, "env must override the file")
	assert.Equal(t, 9, cfg.Retry.MaxRetries)
}

func TestLoadConfigIgnoresBadEnvValues(t *testing.T) {
	path := writeConfigFile(t, sampleConfig)

	t.Setenv("FORGELLM_MAX_RETRIES", "not-a-number")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Retry.MaxRetries, "unparseable env value falls back to the file")
}

func TestFileConfigConversions(t *testing.T) {
	file := RateLimitFileConfig{
		RequestsPerMinute: 30,
		TokensPerMinute:   50000,
		BurstAllowance:    5,
		WaitOnLimit:       true,
		MaxWaitSeconds:    30,
	}
	rt := file.RateLimitConfig()
	assert.Equal(t, 30*time.Second, rt.MaxWait)
	assert.Equal(t, 30, rt.RequestsPerMinute)

	retry := RetryFileConfig{
		MaxRetries:       2,
		BaseDelaySeconds: 0.5,
		MaxDelaySeconds:  10,
		ExponentialBase:  2.0,
	}
	rc := retry.RetryConfig()
	assert.Equal(t, 500*time.Millisecond, rc.BaseDelay)
	assert.Equal(t, 10*time.Second, rc.MaxDelay)

	cb := CircuitBreakerFileConfig{
		FailureThreshold:       3,
		RecoveryTimeoutSeconds: 45,
		SuccessThreshold:       2,
	}
	assert.Equal(t, 45*time.Second, cb.CircuitBreakerConfig().RecoveryTimeout)
}

func TestWithConfigWiresClient(t *testing.T) {
	path := writeConfigFile(t, sampleConfig)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	adapter := &mockAdapter{name: "openai"}
	client := New(WithAdapter(adapter), WithConfig(cfg))

	require.True(t, client.IsValid(), "expected loaded config to validate: %v", client.ValidationError())
	assert.True(t, client.RateLimiter().Configured("openai"))
	assert.True(t, client.RateLimiter().Configured("openrouter"))
	assert.NotNil(t, client.dedup, "expected deduplication enabled from config")
	require.NotNil(t, client.breakerConfig)
	assert.Equal(t, 3, client.breakerConfig.FailureThreshold)
	assert.Equal(t, 5, client.retryConfig.MaxRetries)
}

func TestDefaultConfigMatchesRuntimeDefaults(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultCacheConfig(), cfg.Cache.CacheConfig())
	assert.Equal(t, DefaultRetryConfig(), cfg.Retry.RetryConfig())
	assert.Equal(t, DefaultObservabilityConfig(), cfg.Observability.ObservabilityConfig())
}
