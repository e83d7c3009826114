package cache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// janitorInterval is how often expired entries are swept
const janitorInterval = time.Minute

// Memory is a process-local backend. Expired entries are dropped on read and
// swept periodically until Close.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	opts  Options

	stop chan struct{}
	once sync.Once
}

type memoryItem struct {
	value   []byte
	expires time.Time
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expires.IsZero() && now.After(i.expires)
}

// NewMemory creates an in-memory backend and starts its janitor
func NewMemory(opts Options) *Memory {
	m := &Memory{
		items: make(map[string]memoryItem),
		opts:  opts,
		stop:  make(chan struct{}),
	}
	go m.janitor()
	return m
}

// Get returns a copy of the stored value
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	item, ok := m.items[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss{Key: key}
	}
	if item.expired(m.opts.now()) {
		m.mu.Lock()
		if current, ok := m.items[key]; ok && current.expired(m.opts.now()) {
			delete(m.items, key)
		}
		m.mu.Unlock()
		return nil, ErrCacheMiss{Key: key}
	}
	return append([]byte(nil), item.value...), nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl = m.opts.ttl(ttl); ttl > 0 {
		item.expires = m.opts.now().Add(ttl)
	}

	m.mu.Lock()
	m.items[key] = item
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// Clear empties the backend. A Memory backend owns its whole key space, so
// the prefix only matters for Redis.
func (m *Memory) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.items = make(map[string]memoryItem)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := m.opts.now()
	m.mu.RLock()
	keys := make([]string, 0, len(m.items))
	for k, item := range m.items {
		if !item.expired(now) {
			keys = append(keys, k)
		}
	}
	m.mu.RUnlock()

	sort.Strings(keys)
	return keys, nil
}

// Close stops the janitor. It is safe to call more than once.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

func (m *Memory) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() {
	now := m.opts.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, item := range m.items {
		if item.expired(now) {
			delete(m.items, k)
		}
	}
}
