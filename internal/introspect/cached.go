package introspect

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/conduit-lang/scopegraph/internal/cache"
	"go.uber.org/zap"
)

const (
	// DefaultTTL is how long one collection's schema stays cached
	DefaultTTL = time.Hour
	// DefaultRetries is the number of retries after a failed schema query
	DefaultRetries = 2
	// DefaultBaseBackoff is the first retry delay; it doubles on every retry
	DefaultBaseBackoff = 100 * time.Millisecond
	// DefaultQueryTimeout bounds a single schema query
	DefaultQueryTimeout = 5 * time.Second
	// DefaultFailureTTL is how long a collection whose schema query failed is
	// reported absent without querying again
	DefaultFailureTTL = 30 * time.Second
)

// Config configures a Cached introspector
type Config struct {
	TTL          time.Duration
	Retries      int
	BaseBackoff  time.Duration
	QueryTimeout time.Duration
	FailureTTL   time.Duration
	Clock        func() time.Time
}

// DefaultConfig returns the default introspector configuration
func DefaultConfig() Config {
	return Config{
		TTL:          DefaultTTL,
		Retries:      DefaultRetries,
		BaseBackoff:  DefaultBaseBackoff,
		QueryTimeout: DefaultQueryTimeout,
		FailureTTL:   DefaultFailureTTL,
	}
}

// Cached implements SchemaIntrospector over a Source, caching one column
// list per collection
type Cached struct {
	source Source
	store  *cache.Memory
	config Config
	logger *zap.Logger
}

// NewCached creates a caching introspector over source
func NewCached(source Source, config Config, logger *zap.Logger) *Cached {
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.Retries < 0 {
		config.Retries = 0
	}
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = DefaultQueryTimeout
	}
	if config.FailureTTL <= 0 {
		config.FailureTTL = DefaultFailureTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{
		source: source,
		store: cache.NewMemory(cache.Options{
			TTL:   config.TTL,
			Clock: config.Clock,
		}),
		config: config,
		logger: logger,
	}
}

// ColumnType returns the lower-cased storage type of a column
func (c *Cached) ColumnType(ctx context.Context, collection, column string) (string, bool) {
	columns, ok := c.columns(ctx, collection)
	if !ok {
		return "", false
	}
	for _, col := range columns {
		if strings.EqualFold(col.Name, column) {
			return strings.ToLower(col.Type), true
		}
	}
	return "", false
}

// ForeignKeyColumns returns the foreign key columns of a collection
func (c *Cached) ForeignKeyColumns(ctx context.Context, collection string) []string {
	columns, ok := c.columns(ctx, collection)
	if !ok {
		return nil
	}
	return foreignKeyColumns(columns)
}

// ClearCache drops the cached schema of one collection
func (c *Cached) ClearCache(collection string) {
	_ = c.store.Delete(context.Background(), collection)
	_ = c.store.Delete(context.Background(), failedKey(collection))
}

// ClearAll drops every cached schema
func (c *Cached) ClearAll() {
	_ = c.store.Clear(context.Background())
}

// Close stops the cache janitor
func (c *Cached) Close() error {
	return c.store.Close()
}

func (c *Cached) columns(ctx context.Context, collection string) ([]Column, bool) {
	if data, err := c.store.Get(ctx, collection); err == nil {
		var columns []Column
		if err := json.Unmarshal(data, &columns); err == nil {
			return columns, true
		}
	}
	if _, err := c.store.Get(ctx, failedKey(collection)); err == nil {
		return nil, false
	}

	columns, err := c.fetchWithRetry(ctx, collection)
	if err != nil {
		c.logger.Warn("schema introspection failed",
			zap.String("collection", collection),
			zap.Int("attempts", c.config.Retries+1),
			zap.Duration("retry_after", c.config.FailureTTL),
			zap.Error(err),
		)
		// A cancelled caller says nothing about the source
		if ctx.Err() == nil {
			_ = c.store.Set(ctx, failedKey(collection), []byte{1}, c.config.FailureTTL)
		}
		return nil, false
	}

	if data, err := json.Marshal(columns); err == nil {
		_ = c.store.Set(ctx, collection, data, c.config.TTL)
	}
	return columns, true
}

// fetchWithRetry queries the source, retrying with exponential backoff:
// baseBackoff * 2^attempt
func (c *Cached) fetchWithRetry(ctx context.Context, collection string) ([]Column, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.Retries; attempt++ {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("introspection cancelled before attempt %d: %w", attempt+1, ctx.Err())
		}

		columns, err := c.fetch(ctx, collection)
		if err == nil {
			return columns, nil
		}
		lastErr = err

		if attempt == c.config.Retries {
			break
		}

		backoff := c.config.BaseBackoff * time.Duration(1<<uint(attempt))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("introspection cancelled during retry: %w", ctx.Err())
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", c.config.Retries+1, lastErr)
}

func (c *Cached) fetch(ctx context.Context, collection string) ([]Column, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.QueryTimeout)
	defer cancel()
	return c.source.Columns(ctx, collection)
}

// failedKey marks a collection whose last schema query failed
func failedKey(collection string) string {
	return "failed:" + collection
}
