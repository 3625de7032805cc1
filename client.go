package forgellm

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"
)

// Client layers caching, rate limiting, retries, circuit breaking,
// deduplication and observability around provider adapters. It is safe for
// concurrent use.
type Client struct {
	adapters map[string]ProviderAdapter

	cache       Cache
	cacheConfig CacheConfig

	rateLimiter *CompositeRateLimiter
	retryConfig RetryConfig

	breakerConfig *CircuitBreakerConfig
	breakerMu     sync.Mutex
	breakers      map[string]*CircuitBreaker

	bus   *ObservabilityBus
	dedup *DeduplicationTracker

	logger Logger

	validationError error
}

// New constructs a Client using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	client := &Client{
		adapters:    make(map[string]ProviderAdapter),
		cacheConfig: DefaultCacheConfig(),
		rateLimiter: NewCompositeRateLimiter(),
		retryConfig: DefaultRetryConfig(),
		breakers:    make(map[string]*CircuitBreaker),
		bus:         NewObservabilityBus(DefaultObservabilityConfig()),
		logger:      NoOpLogger{},
	}

	for _, option := range options {
		option(client)
	}

	if client.cache == nil {
		client.cache = NewInMemoryCache(client.cacheConfig)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// Adapter returns the registered adapter for a provider.
func (c *Client) Adapter(provider string) (ProviderAdapter, bool) {
	a, ok := c.adapters[provider]
	return a, ok
}

// Cache returns the response cache.
func (c *Client) Cache() Cache {
	return c.cache
}

// RateLimiter returns the composite rate limiter.
func (c *Client) RateLimiter() *CompositeRateLimiter {
	return c.rateLimiter
}

// Bus returns the observability bus for observer registration.
func (c *Client) Bus() *ObservabilityBus {
	return c.bus
}

// Chat executes a chat request through the full resilience pipeline: cache
// lookup, deduplication, rate limit admission, circuit breaker, retries,
// cache store and event emission.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if c.validationError != nil {
		return nil, c.validationError
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	adapter, ok := c.adapters[req.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, req.Provider)
	}

	start := time.Now()
	requestID := NewRequestID()

	c.bus.Emit(ChatStartEvent{
		Timestamp:    start,
		RequestID:    requestID,
		Provider:     req.Provider,
		Model:        req.Model,
		MessageCount: len(req.Messages),
		HasTools:     len(req.Tools) > 0,
	})

	cacheable := c.cacheConfig.Enabled &&
		(req.Deterministic() || !c.cacheConfig.RequireDeterministic)
	key := NewCacheKey(req)

	var dedupEntry *DeduplicationEntry
	isOwner := true
	if c.dedup != nil && cacheable {
		dedupEntry, isOwner = c.dedup.GetOrCreateEntry(key.String())
		if !isOwner {
			c.logger.Debug("coalescing duplicate request", "request_id", requestID, "key", key.String())
			resp, err := dedupEntry.Wait(ctx)
			c.finish(requestID, req, start, resp, err, false)
			return resp, err
		}
	}

	if cacheable {
		if resp, found := c.cache.Get(key); found {
			c.logger.Debug("cache hit", "request_id", requestID, "key", key.String())
			if isOwner && dedupEntry != nil {
				c.dedup.Complete(key.String(), resp, nil)
			}
			c.finish(requestID, req, start, resp, nil, true)
			return resp, nil
		}
	}

	resp, err := c.execute(ctx, requestID, adapter, req)

	if cacheable && err == nil {
		c.cache.Set(key, resp, c.cacheConfig.DefaultTTL)
	}
	if isOwner && dedupEntry != nil {
		c.dedup.Complete(key.String(), resp, err)
	}

	c.finish(requestID, req, start, resp, err, false)
	return resp, err
}

// ChatStream executes a streaming chat request. Streamed responses bypass
// the cache and deduplication; rate limiting, circuit breaking and retries
// still apply, and each chunk is surfaced as an event.
func (c *Client) ChatStream(ctx context.Context, req *ChatRequest, handler StreamHandler) (*ChatResponse, error) {
	if c.validationError != nil {
		return nil, c.validationError
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, NewValidationError("stream handler is required")
	}

	adapter, ok := c.adapters[req.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, req.Provider)
	}

	start := time.Now()
	requestID := NewRequestID()

	c.bus.Emit(ChatStartEvent{
		Timestamp:    start,
		RequestID:    requestID,
		Provider:     req.Provider,
		Model:        req.Model,
		MessageCount: len(req.Messages),
		HasTools:     len(req.Tools) > 0,
	})

	wrapped := func(chunk ChatChunk) {
		c.bus.Emit(StreamChunkEvent{
			Timestamp:   time.Now(),
			RequestID:   requestID,
			Provider:    req.Provider,
			ChunkIndex:  chunk.Index,
			HasContent:  chunk.Content != "",
			HasToolCall: chunk.ToolCall != nil,
		})
		handler(chunk)
	}

	if err := c.admit(ctx, req); err != nil {
		c.finish(requestID, req, start, nil, err, false)
		return nil, err
	}

	breaker := c.breakerFor(req.Provider)
	call := func(ctx context.Context) (*ChatResponse, error) {
		if breaker != nil && !breaker.Allow() {
			return nil, c.circuitOpenError(req.Provider)
		}
		resp, err := adapter.ChatStream(ctx, req, wrapped)
		c.record(breaker, err)
		return resp, err
	}

	resp, err := WithRetry(ctx, c.retryConfig, req.Provider, call, c.retryCallback(requestID, req.Provider))
	c.finish(requestID, req, start, resp, err, false)
	return resp, err
}

// execute runs admission and the retried adapter call for a non-streaming
// request.
func (c *Client) execute(ctx context.Context, requestID string, adapter ProviderAdapter, req *ChatRequest) (*ChatResponse, error) {
	if err := c.admit(ctx, req); err != nil {
		return nil, err
	}

	breaker := c.breakerFor(req.Provider)
	call := func(ctx context.Context) (*ChatResponse, error) {
		if breaker != nil && !breaker.Allow() {
			return nil, c.circuitOpenError(req.Provider)
		}
		resp, err := adapter.Chat(ctx, req)
		c.record(breaker, err)
		return resp, err
	}

	return WithRetry(ctx, c.retryConfig, req.Provider, call, c.retryCallback(requestID, req.Provider))
}

// admit passes the request through the provider's rate limiter.
func (c *Client) admit(ctx context.Context, req *ChatRequest) error {
	tokens := req.EstimatedTokens
	if tokens <= 0 {
		tokens = estimateTokens(req)
	}
	return c.rateLimiter.ForProvider(req.Provider).Acquire(ctx, tokens)
}

// record feeds a call outcome into the breaker. Circuit-open rejections do
// not count as provider failures.
func (c *Client) record(breaker *CircuitBreaker, err error) {
	if breaker == nil {
		return
	}
	if err == nil {
		breaker.RecordSuccess()
		return
	}
	if ErrorTypeOf(err) != ErrorTypeCircuitOpen {
		breaker.RecordFailure()
	}
}

// retryCallback emits a RetryEvent before each backoff sleep.
func (c *Client) retryCallback(requestID, provider string) RetryCallback {
	return func(attempt, maxAttempts int, delay time.Duration, err error) {
		c.bus.Emit(RetryEvent{
			Timestamp:   time.Now(),
			RequestID:   requestID,
			Provider:    provider,
			Attempt:     attempt,
			MaxAttempts: maxAttempts,
			Delay:       delay,
			ErrorType:   ErrorTypeOf(err),
		})
	}
}

// finish emits the terminal event for a request.
func (c *Client) finish(requestID string, req *ChatRequest, start time.Time, resp *ChatResponse, err error, fromCache bool) {
	latency := time.Since(start)

	if err != nil {
		c.bus.Emit(ChatErrorEvent{
			Timestamp:    time.Now(),
			RequestID:    requestID,
			Provider:     req.Provider,
			ErrorType:    ErrorTypeOf(err),
			ErrorMessage: err.Error(),
			Latency:      latency,
			Retryable:    IsRetryableError(err, c.retryConfig.RetryableErrors),
		})
		return
	}

	event := ChatCompleteEvent{
		Timestamp: time.Now(),
		RequestID: requestID,
		Provider:  req.Provider,
		Model:     req.Model,
		Latency:   latency,
		FromCache: fromCache,
	}
	if resp != nil {
		event.Usage = resp.Usage
		event.FinishReason = resp.FinishReason
		event.ToolCallsCount = len(resp.ToolCalls)
	}
	c.bus.Emit(event)
}

func (c *Client) circuitOpenError(provider string) error {
	return &ProviderError{
		Type:     ErrorTypeCircuitOpen,
		Provider: provider,
		Message:  "circuit breaker is open",
		Cause:    ErrCircuitOpen,
	}
}

// breakerFor returns the provider's circuit breaker, creating it lazily.
// Returns nil when circuit breaking is disabled.
func (c *Client) breakerFor(provider string) *CircuitBreaker {
	if c.breakerConfig == nil {
		return nil
	}

	c.breakerMu.Lock()
	defer c.breakerMu.Unlock()

	breaker, ok := c.breakers[provider]
	if !ok {
		breaker = NewCircuitBreaker(*c.breakerConfig)
		c.breakers[provider] = breaker
	}
	return breaker
}

// BreakerState returns the provider's circuit state, StateClosed when
// circuit breaking is disabled or the provider has never been called.
func (c *Client) BreakerState(provider string) CircuitState {
	if c.breakerConfig == nil {
		return StateClosed
	}

	c.breakerMu.Lock()
	defer c.breakerMu.Unlock()

	if breaker, ok := c.breakers[provider]; ok {
		return breaker.State()
	}
	return StateClosed
}

// estimateTokens approximates a request's token cost from its text length.
// Four characters per token is the usual rough cut for English text.
func estimateTokens(req *ChatRequest) int {
	chars := 0
	for _, m := range req.Messages {
		chars += utf8.RuneCountInString(m.Content)
	}
	tokens := chars / 4
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
