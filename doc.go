// Package forgellm provides the resilience and instrumentation layer for a
// unified LLM client, composing reliability primitives around provider
// adapter calls:
//
//   - Response caching keyed by request fingerprint (TTL + LRU)
//   - Per-provider rate limiting (sliding windows: RPM, TPM, RPD + burst)
//   - Retries with exponential backoff + jitter, honoring server retry hints
//   - Circuit breaker (open / half-open / closed states)
//   - De-duplication of concurrent identical in-flight chat calls
//   - Typed lifecycle events fanned out to pluggable observers
//     (structured logging, in-process usage metrics, Prometheus, callbacks)
//
// Design goals:
//   - Small surface area – functional options configure everything
//   - No process-wide singletons; every component is explicitly constructed
//   - Safe concurrent use of a single *Client instance
//   - Privacy by construction – events never carry message content
//
// Typical usage:
//
//	client := forgellm.New(
//	    forgellm.WithAdapter(openaiAdapter),
//	    forgellm.WithRetryConfig(forgellm.DefaultRetryConfig()),
//	    forgellm.WithCacheConfig(forgellm.CacheConfig{Enabled: true, DefaultTTL: 5 * time.Minute, MaxEntries: 1000}),
//	    forgellm.WithObserver(forgellm.NewLoggingObserver(forgellm.NewSimpleLogger())),
//	)
//	resp, err := client.Chat(ctx, &forgellm.ChatRequest{Provider: "openai", Model: "gpt-4o", Messages: msgs})
//
// The layer performs no HTTP I/O itself: vendor wire formats live behind the
// ProviderAdapter interface, and this package only adds admission, failure
// handling and instrumentation around each call.
package forgellm
