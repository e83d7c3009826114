package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanBatch is the SCAN page size used by Clear and Keys
const scanBatch = 100

// Redis is a backend shared by every process pointed at the same server and
// prefix. Expiry is delegated to Redis.
type Redis struct {
	client redis.UniversalClient
	opts   Options
}

// RedisOptions locates the Redis server
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// DialTimeout bounds the initial PING; zero means five seconds
	DialTimeout time.Duration
}

// DialRedis connects to Redis and verifies the connection with PING
func DialRedis(ro RedisOptions, opts Options) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     ro.Addr,
		Password: ro.Password,
		DB:       ro.DB,
	})

	timeout := ro.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", ro.Addr, err)
	}
	return NewRedis(client, opts), nil
}

// NewRedis wraps an existing client, which may be a cluster or failover client
func NewRedis(client redis.UniversalClient, opts Options) *Redis {
	return &Redis{client: client, opts: opts}
}

func (r *Redis) key(k string) string {
	return r.opts.Prefix + k
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss{Key: key}
	}
	return value, err
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(key), value, r.opts.ttl(ttl)).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

// Clear unlinks every key under the prefix, one SCAN page per pipeline
func (r *Redis) Clear(ctx context.Context) error {
	return r.scan(ctx, func(page []string) error {
		pipe := r.client.Pipeline()
		for _, k := range page {
			pipe.Unlink(ctx, k)
		}
		_, err := pipe.Exec(ctx)
		return err
	})
}

func (r *Redis) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := r.scan(ctx, func(page []string) error {
		for _, k := range page {
			keys = append(keys, strings.TrimPrefix(k, r.opts.Prefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// SCAN may return a key more than once
	return uniqueSorted(keys), nil
}

// scan calls fn with each non-empty page of prefixed keys
func (r *Redis) scan(ctx context.Context, fn func(page []string) error) error {
	var cursor uint64
	for {
		page, next, err := r.client.Scan(ctx, cursor, r.opts.Prefix+"*", scanBatch).Result()
		if err != nil {
			return err
		}
		if len(page) > 0 {
			if err := fn(page); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close closes the client
func (r *Redis) Close() error {
	return r.client.Close()
}
