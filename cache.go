package forgellm

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// CacheKey is an immutable fingerprint of a chat request. Equal semantic
// inputs always produce an equal key: hashes are derived from canonical JSON
// (stable field order, sorted map keys).
type CacheKey struct {
	Provider           string
	Model              string
	MessagesHash       string
	ToolsHash          string
	ResponseFormatHash string
}

// NewCacheKey builds a cache key from request parameters.
func NewCacheKey(req *ChatRequest) CacheKey {
	key := CacheKey{
		Provider:     req.Provider,
		Model:        req.Model,
		MessagesHash: hashData(req.Messages),
	}
	if len(req.Tools) > 0 {
		key.ToolsHash = hashData(req.Tools)
	}
	if req.ResponseFormat != nil {
		key.ResponseFormatHash = hashData(req.ResponseFormat)
	}
	return key
}

// hashData hashes JSON-serializable data. encoding/json sorts map keys, so
// the serialization is canonical for equal inputs.
func hashData(data any) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "unhashable"
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:16]
}

// String renders the key for storage and log correlation.
func (k CacheKey) String() string {
	parts := []string{k.Provider, k.Model, k.MessagesHash}
	if k.ToolsHash != "" {
		parts = append(parts, "t:"+k.ToolsHash)
	}
	if k.ResponseFormatHash != "" {
		parts = append(parts, "rf:"+k.ResponseFormatHash)
	}
	return strings.Join(parts, "|")
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	Enabled    bool
	DefaultTTL time.Duration
	MaxEntries int

	// CacheToolCalls permits storing responses that carry tool calls.
	// Off by default: tool-call responses are side-effecting artifacts.
	CacheToolCalls bool

	// RequireDeterministic restricts caching to temperature-zero requests.
	RequireDeterministic bool
}

// DefaultCacheConfig returns the default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:              true,
		DefaultTTL:           5 * time.Minute,
		MaxEntries:           1000,
		CacheToolCalls:       false,
		RequireDeterministic: true,
	}
}

// CacheStats holds monotonically increasing cache counters.
type CacheStats struct {
	Hits         int64
	Misses       int64
	Evictions    int64
	Expirations  int64
	TotalEntries int64
}

// HitRate returns hits/(hits+misses), zero when no requests were made.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is the response cache contract. Implementations must be safe for
// concurrent use.
type Cache interface {
	Get(key CacheKey) (*ChatResponse, bool)
	Set(key CacheKey, response *ChatResponse, ttl time.Duration)
	Delete(key CacheKey) bool
	Clear()
	Stats() CacheStats
}

// cacheEntry is owned exclusively by the cache; destroyed on expiry,
// eviction, explicit delete or clear.
type cacheEntry struct {
	response  *ChatResponse
	createdAt time.Time
	ttl       time.Duration
	hitCount  int
	elem      *list.Element
}

func (e *cacheEntry) expired(now time.Time) bool {
	return now.After(e.createdAt.Add(e.ttl))
}

// InMemoryCache is a TTL + LRU response cache. Recency is tracked with an
// access-order list: every hit or insert moves the key to the
// most-recently-used end, and eviction removes the front.
type InMemoryCache struct {
	mu      sync.Mutex
	config  CacheConfig
	entries map[string]*cacheEntry
	order   *list.List // front = least recently used
	stats   CacheStats
}

// NewInMemoryCache creates an in-memory cache with the given configuration.
func NewInMemoryCache(config CacheConfig) *InMemoryCache {
	return &InMemoryCache{
		config:  config,
		entries: make(map[string]*cacheEntry),
		order:   list.New(),
	}
}

// Get returns the cached response if present and not expired. A stale entry
// is evicted and counted as both an expiration and a miss.
func (c *InMemoryCache) Get(key CacheKey) (*ChatResponse, bool) {
	if !c.config.Enabled {
		return nil, false
	}

	keyStr := key.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[keyStr]
	if !exists {
		c.stats.Misses++
		return nil, false
	}

	if entry.expired(time.Now()) {
		c.removeLocked(keyStr, entry)
		c.stats.Expirations++
		c.stats.Misses++
		return nil, false
	}

	c.order.MoveToBack(entry.elem)
	entry.hitCount++
	c.stats.Hits++
	return entry.response, true
}

// Set stores a response. It refuses (no-op) when the cache is disabled or
// the response carries tool calls and CacheToolCalls is off. LRU entries are
// evicted while the cache is at capacity.
func (c *InMemoryCache) Set(key CacheKey, response *ChatResponse, ttl time.Duration) {
	if !c.config.Enabled {
		return
	}
	if !c.config.CacheToolCalls && response.HasToolCalls() {
		return
	}

	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}
	keyStr := key.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[keyStr]; ok {
		c.removeLocked(keyStr, existing)
	}

	for len(c.entries) >= c.config.MaxEntries {
		c.evictOldestLocked()
	}

	entry := &cacheEntry{
		response:  response,
		createdAt: time.Now(),
		ttl:       ttl,
	}
	entry.elem = c.order.PushBack(keyStr)
	c.entries[keyStr] = entry
	c.stats.TotalEntries = int64(len(c.entries))
}

// evictOldestLocked removes the least recently used entry.
func (c *InMemoryCache) evictOldestLocked() {
	front := c.order.Front()
	if front == nil {
		return
	}
	keyStr := front.Value.(string)
	if entry, ok := c.entries[keyStr]; ok {
		c.removeLocked(keyStr, entry)
		c.stats.Evictions++
	}
}

func (c *InMemoryCache) removeLocked(keyStr string, entry *cacheEntry) {
	delete(c.entries, keyStr)
	c.order.Remove(entry.elem)
	c.stats.TotalEntries = int64(len(c.entries))
}

// Delete removes a cached entry, reporting whether it existed.
func (c *InMemoryCache) Delete(key CacheKey) bool {
	keyStr := key.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[keyStr]
	if !exists {
		return false
	}
	c.removeLocked(keyStr, entry)
	return true
}

// Clear removes all cached entries.
func (c *InMemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order.Init()
	c.stats.TotalEntries = 0
}

// Stats returns a snapshot of cache statistics.
func (c *InMemoryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.TotalEntries = int64(len(c.entries))
	return stats
}

// Len returns the current number of entries.
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// NoOpCache implements Cache as a pass-through for disabled caching, so
// callers never branch on whether caching is on.
type NoOpCache struct{}

// NewNoOpCache creates a no-op cache.
func NewNoOpCache() *NoOpCache { return &NoOpCache{} }

func (*NoOpCache) Get(CacheKey) (*ChatResponse, bool)         { return nil, false }
func (*NoOpCache) Set(CacheKey, *ChatResponse, time.Duration) {}
func (*NoOpCache) Delete(CacheKey) bool                       { return false }
func (*NoOpCache) Clear()                                     {}
func (*NoOpCache) Stats() CacheStats                          { return CacheStats{} }
