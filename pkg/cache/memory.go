package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type memoryItem struct {
	value      []byte
	expiration time.Time
	lastAccess time.Time
	tags       []string
}

func (i *memoryItem) expired() bool {
	return !i.expiration.IsZero() && time.Now().After(i.expiration)
}

// MemoryProvider is an in-process cache with TTL expiry, LRU eviction
// and tag tracking.
type MemoryProvider struct {
	mu        sync.Mutex
	items     map[string]*memoryItem
	tagToKeys map[string]map[string]struct{}
	options   *Options
	hits      atomic.Int64
	misses    atomic.Int64
}

// NewMemoryProvider creates an in-memory cache provider.
func NewMemoryProvider(opts *Options) *MemoryProvider {
	if opts == nil {
		opts = &Options{
			DefaultTTL: 5 * time.Minute,
			MaxSize:    10000,
		}
	}
	return &MemoryProvider{
		items:     make(map[string]*memoryItem),
		tagToKeys: make(map[string]map[string]struct{}),
		options:   opts,
	}
}

func (m *MemoryProvider) Get(ctx context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, exists := m.items[key]
	if !exists {
		m.misses.Add(1)
		return nil, false
	}
	if item.expired() {
		m.removeLocked(key)
		m.misses.Add(1)
		return nil, false
	}

	item.lastAccess = time.Now()
	m.hits.Add(1)
	return item.value, true
}

func (m *MemoryProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.SetWithTags(ctx, key, value, ttl, nil)
}

func (m *MemoryProvider) SetWithTags(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ttl == 0 {
		ttl = m.options.DefaultTTL
	}
	var expiration time.Time
	if ttl > 0 {
		expiration = time.Now().Add(ttl)
	}

	if _, exists := m.items[key]; exists {
		m.removeLocked(key)
	} else if m.options.MaxSize > 0 && len(m.items) >= m.options.MaxSize {
		m.evictOneLocked()
	}

	m.items[key] = &memoryItem{
		value:      value,
		expiration: expiration,
		lastAccess: time.Now(),
		tags:       tags,
	}
	for _, tag := range tags {
		if m.tagToKeys[tag] == nil {
			m.tagToKeys[tag] = make(map[string]struct{})
		}
		m.tagToKeys[tag][key] = struct{}{}
	}
	return nil
}

func (m *MemoryProvider) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(key)
	return nil
}

func (m *MemoryProvider) DeleteByTag(ctx context.Context, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.tagToKeys[tag] {
		m.removeLocked(key)
	}
	delete(m.tagToKeys, tag)
	return nil
}

func (m *MemoryProvider) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]*memoryItem)
	m.tagToKeys = make(map[string]map[string]struct{})
	m.hits.Store(0)
	m.misses.Store(0)
	return nil
}

func (m *MemoryProvider) Exists(ctx context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, exists := m.items[key]
	return exists && !item.expired()
}

func (m *MemoryProvider) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
	m.tagToKeys = nil
	return nil
}

func (m *MemoryProvider) Stats(ctx context.Context) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	valid := int64(0)
	for _, item := range m.items {
		if !item.expired() {
			valid++
		}
	}
	return &Stats{
		Hits:         m.hits.Load(),
		Misses:       m.misses.Load(),
		Keys:         valid,
		ProviderType: "memory",
		Extra:        map[string]any{"capacity": m.options.MaxSize},
	}, nil
}

// removeLocked deletes a key and its tag associations. Caller holds mu.
func (m *MemoryProvider) removeLocked(key string) {
	item, exists := m.items[key]
	if !exists {
		return
	}
	for _, tag := range item.tags {
		if set, ok := m.tagToKeys[tag]; ok {
			delete(set, key)
			if len(set) == 0 {
				delete(m.tagToKeys, tag)
			}
		}
	}
	delete(m.items, key)
}

// evictOneLocked drops an expired item if one exists, otherwise the
// least recently used. Caller holds mu.
func (m *MemoryProvider) evictOneLocked() {
	var oldestKey string
	var oldestTime time.Time

	for key, item := range m.items {
		if item.expired() {
			m.removeLocked(key)
			return
		}
		if oldestKey == "" || item.lastAccess.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.lastAccess
		}
	}
	if oldestKey != "" {
		m.removeLocked(oldestKey)
	}
}
