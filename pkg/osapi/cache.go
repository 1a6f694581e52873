package osapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/osclient/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrKeyNotFound  = errors.New("key not found")
	ErrEntryExpired = errors.New("entry expired")
)

// Cache is a key/value store for serialised catalogs.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}

// CacheEntry is one cached value.
type CacheEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
	ETag      string    `json:"etag,omitempty"`
}

// IsExpired reports whether the entry is past its expiry. A zero expiry
// never expires.
func (e *CacheEntry) IsExpired() bool {
	return !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt)
}

// CacheOptions are backend independent cache settings.
type CacheOptions struct {
	TTL     time.Duration
	MaxSize int
}

// DefaultCacheOptions returns the default cache options.
func DefaultCacheOptions() *CacheOptions {
	return &CacheOptions{
		TTL:     constants.DefaultCatalogTTL,
		MaxSize: constants.DefaultCacheSize,
	}
}

// MemoryCache is an in-process cache evicting the entry closest to expiry
// when full.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
	maxSize int
}

// NewMemoryCache creates a memory cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = constants.DefaultCacheSize
	}

	return &MemoryCache{
		entries: make(map[string]*CacheEntry),
		maxSize: maxSize,
	}
}

// Get retrieves an entry.
func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	if entry.IsExpired() {
		_ = c.Delete(ctx, key)

		return nil, fmt.Errorf("%w: %s", ErrEntryExpired, key)
	}

	return entry, nil
}

// Set stores an entry.
func (c *MemoryCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictLocked()
	}

	c.entries[key] = entry

	return nil
}

// Delete removes an entry.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)

	return nil
}

// Clear removes every entry.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*CacheEntry)

	return nil
}

// Has reports whether a live entry exists for key.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]

	return ok && !entry.IsExpired()
}

// Cleanup drops expired entries.
func (c *MemoryCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if entry.IsExpired() {
			delete(c.entries, key)
		}
	}
}

func (c *MemoryCache) evictLocked() {
	var (
		victim string
		oldest time.Time
	)

	for key, entry := range c.entries {
		if victim == "" || entry.ExpiresAt.Before(oldest) {
			victim = key
			oldest = entry.ExpiresAt
		}
	}

	delete(c.entries, victim)
}

// CacheStats counts catalog cache lookups.
type CacheStats struct {
	Hits   int64
	Misses int64
	Sets   int64
}

// GetHitRate returns hits / lookups.
func (s *CacheStats) GetHitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// CatalogStore persists service catalogs in a Cache, keyed by identity
// endpoint and token.
type CatalogStore struct {
	cache  Cache
	ttl    time.Duration
	logger Logger

	mu    sync.Mutex
	stats CacheStats
}

// NewCatalogStore wraps cache. A non-positive ttl uses the default.
func NewCatalogStore(cache Cache, ttl time.Duration, logger Logger) *CatalogStore {
	if cache == nil {
		cache = NewNoOpCache()
	}

	if ttl <= 0 {
		ttl = constants.DefaultCatalogTTL
	}

	if logger == nil {
		logger = NopLogger{}
	}

	return &CatalogStore{cache: cache, ttl: ttl, logger: logger}
}

// CatalogCacheKey derives a backend safe key. The token is hashed so it never
// reaches the cache backend in clear text.
func CatalogCacheKey(identityEndpoint, token string) string {
	sum := sha256.Sum256([]byte(identityEndpoint + "\x00" + token))

	return "catalog." + hex.EncodeToString(sum[:])
}

// Load returns the cached catalog for key.
func (s *CatalogStore) Load(ctx context.Context, key string) (*Catalog, bool) {
	entry, err := s.cache.Get(ctx, key)
	if err != nil {
		s.record(func(st *CacheStats) { st.Misses++ })

		return nil, false
	}

	catalog := &Catalog{}

	err = json.Unmarshal(entry.Data, catalog)
	if err != nil {
		s.logger.Warn("Discarding unreadable cached catalog", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		_ = s.cache.Delete(ctx, key)
		s.record(func(st *CacheStats) { st.Misses++ })

		return nil, false
	}

	s.record(func(st *CacheStats) { st.Hits++ })

	return catalog, true
}

// Save stores catalog under key.
func (s *CatalogStore) Save(ctx context.Context, key string, catalog *Catalog) error {
	data, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	err = s.cache.Set(ctx, key, &CacheEntry{Data: data, ExpiresAt: time.Now().Add(s.ttl)})
	if err != nil {
		return fmt.Errorf("failed to cache catalog: %w", err)
	}

	s.record(func(st *CacheStats) { st.Sets++ })

	return nil
}

// Invalidate drops the catalog stored under key.
func (s *CatalogStore) Invalidate(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, key)
}

// Stats returns a snapshot of the lookup counters.
func (s *CatalogStore) Stats() CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stats
}

func (s *CatalogStore) record(fn func(*CacheStats)) {
	s.mu.Lock()
	fn(&s.stats)
	s.mu.Unlock()
}
