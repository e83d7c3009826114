package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/conduit-lang/scopegraph/internal/entity"
	"go.uber.org/zap"
)

// DefaultDiscoveryTTL is the lifetime of a discovered configuration
const DefaultDiscoveryTTL = time.Hour

const discoveryKeyPrefix = "discovery:"

// Entry is the stored form of one discovered configuration
type Entry struct {
	Key       string                `json:"key"`
	Value     *entity.Configuration `json:"value"`
	CreatedAt time.Time             `json:"created_at"`
	TTL       time.Duration         `json:"ttl"`
}

// Expired returns true once now - CreatedAt exceeds the TTL
func (e *Entry) Expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) > e.TTL
}

// DiscoveryCache stores discovered configurations keyed by fully-qualified
// entity name. An expired entry is absent, never stale. Entries are replaced
// wholesale and concurrent producers for the same key are not serialized.
type DiscoveryCache struct {
	backend Backend
	ttl     time.Duration
	clock   func() time.Time
	logger  *zap.Logger
}

// DiscoveryOption configures a DiscoveryCache
type DiscoveryOption func(*DiscoveryCache)

// WithTTL sets the default entry lifetime
func WithTTL(ttl time.Duration) DiscoveryOption {
	return func(c *DiscoveryCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces the wall clock, for tests
func WithClock(clock func() time.Time) DiscoveryOption {
	return func(c *DiscoveryCache) {
		c.clock = clock
	}
}

// WithLogger sets the logger used for backend and decode failures
func WithLogger(logger *zap.Logger) DiscoveryOption {
	return func(c *DiscoveryCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewDiscoveryCache creates a discovery cache over a byte-level backend
func NewDiscoveryCache(backend Backend, opts ...DiscoveryOption) *DiscoveryCache {
	c := &DiscoveryCache{
		backend: backend,
		ttl:     DefaultDiscoveryTTL,
		clock:   time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the default entry lifetime
func (c *DiscoveryCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached configuration for key. found is false on a miss,
// on expiry and on any backend or decode failure.
func (c *DiscoveryCache) Get(ctx context.Context, key string) (*entity.Configuration, bool) {
	data, err := c.backend.Get(ctx, discoveryKeyPrefix+key)
	if err != nil {
		if IsCacheMiss(err) {
			discoveryCacheRequests.WithLabelValues(ResultMiss).Inc()
			return nil, false
		}
		discoveryCacheRequests.WithLabelValues(ResultError).Inc()
		c.logger.Warn("discovery cache read failed", zap.String("entity", key), zap.Error(err))
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Value == nil {
		discoveryCacheRequests.WithLabelValues(ResultError).Inc()
		c.logger.Warn("discarding undecodable discovery cache entry", zap.String("entity", key), zap.Error(err))
		c.delete(ctx, key)
		return nil, false
	}

	if entry.Expired(c.clock()) {
		discoveryCacheRequests.WithLabelValues(ResultExpired).Inc()
		c.delete(ctx, key)
		return nil, false
	}

	discoveryCacheRequests.WithLabelValues(ResultHit).Inc()
	return entry.Value, true
}

// Put stores value under key, replacing any existing entry.
// A non-positive ttl uses the cache default.
func (c *DiscoveryCache) Put(ctx context.Context, key string, value *entity.Configuration, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}

	data, err := json.Marshal(&Entry{
		Key:       key,
		Value:     value,
		CreatedAt: c.clock(),
		TTL:       ttl,
	})
	if err != nil {
		return err
	}

	if err := c.backend.Set(ctx, discoveryKeyPrefix+key, data, ttl); err != nil {
		c.logger.Warn("discovery cache write failed", zap.String("entity", key), zap.Error(err))
		return err
	}
	return nil
}

// Invalidate removes the entry for key
func (c *DiscoveryCache) Invalidate(ctx context.Context, key string) error {
	return c.backend.Delete(ctx, discoveryKeyPrefix+key)
}

// InvalidateAll removes every entry of the backend
func (c *DiscoveryCache) InvalidateAll(ctx context.Context) error {
	return c.backend.Clear(ctx)
}

// Keys lists the entity names with a stored entry. Entries that expired
// inside the backend are left out; entries past their own TTL may still be
// listed until the next Get.
func (c *DiscoveryCache) Keys(ctx context.Context) ([]string, error) {
	keys, err := c.backend.Keys(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		if name, ok := strings.CutPrefix(k, discoveryKeyPrefix); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func (c *DiscoveryCache) delete(ctx context.Context, key string) {
	if err := c.backend.Delete(ctx, discoveryKeyPrefix+key); err != nil {
		c.logger.Debug("discovery cache delete failed", zap.String("entity", key), zap.Error(err))
	}
}
