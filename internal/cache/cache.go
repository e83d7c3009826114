// Package cache provides the byte-level TTL backends (in-memory and Redis) and
// the DiscoveryCache that stores assembled entity configurations on top of them.
package cache

import (
	"context"
	"errors"
	"sort"
	"time"
)

// Backend stores opaque values under string keys with a time-to-live
type Backend interface {
	// Get returns ErrCacheMiss for absent and expired keys
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value. A zero ttl uses the backend default; a negative
	// ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	// Clear removes every key of this backend's prefix
	Clear(ctx context.Context) error

	// Keys lists the live keys, without prefix, in lexical order
	Keys(ctx context.Context) ([]string, error)
}

// Options holds the settings shared by all backends
type Options struct {
	// TTL is the lifetime used when Set is called with a zero ttl
	TTL time.Duration
	// Prefix namespaces every key
	Prefix string
	// Clock returns the current time; nil means time.Now
	Clock func() time.Time
}

// DefaultOptions returns one hour entries under the "scopegraph:" prefix
func DefaultOptions() Options {
	return Options{
		TTL:    time.Hour,
		Prefix: "scopegraph:",
	}
}

func (o Options) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

// ttl resolves the zero and negative ttl conventions. A zero result means
// the entry does not expire.
func (o Options) ttl(ttl time.Duration) time.Duration {
	switch {
	case ttl == 0:
		return o.TTL
	case ttl < 0:
		return 0
	}
	return ttl
}

// ErrCacheMiss is returned when a key is absent or expired
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss checks if an error is a cache miss
func IsCacheMiss(err error) bool {
	var miss ErrCacheMiss
	return errors.As(err, &miss)
}

// uniqueSorted sorts keys and drops repeats in place
func uniqueSorted(keys []string) []string {
	sort.Strings(keys)
	out := keys[:0]
	for _, k := range keys {
		if len(out) > 0 && k == out[len(out)-1] {
			continue
		}
		out = append(out, k)
	}
	return out
}
