package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcacheProvider is a Memcache implementation of the Provider
// interface. Memcache has no server-side sets, so tag membership is
// kept as a JSON-encoded key list under a tag key; invalidation is
// best effort.
type MemcacheProvider struct {
	client  *memcache.Client
	options *Options
}

// MemcacheConfig contains Memcache-specific configuration.
type MemcacheConfig struct {
	Servers      []string
	MaxIdleConns int
	Timeout      time.Duration
	Options      *Options
}

// NewMemcacheProvider creates a Memcache cache provider and verifies
// the connection.
func NewMemcacheProvider(config *MemcacheConfig) (*MemcacheProvider, error) {
	if config == nil {
		config = &MemcacheConfig{}
	}
	if len(config.Servers) == 0 {
		config.Servers = []string{"localhost:11211"}
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 2
	}
	if config.Timeout == 0 {
		config.Timeout = time.Second
	}
	if config.Options == nil {
		config.Options = &Options{DefaultTTL: 5 * time.Minute}
	}

	client := memcache.New(config.Servers...)
	client.MaxIdleConns = config.MaxIdleConns
	client.Timeout = config.Timeout

	if err := client.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to Memcache: %w", err)
	}

	return &MemcacheProvider{client: client, options: config.Options}, nil
}

func memcacheTagKey(tag string) string {
	return "cache.tag." + tag
}

func (m *MemcacheProvider) Get(ctx context.Context, key string) ([]byte, bool) {
	item, err := m.client.Get(key)
	if err != nil {
		return nil, false
	}
	return item.Value, true
}

func (m *MemcacheProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = m.options.DefaultTTL
	}
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(ttl.Seconds()),
	})
}

func (m *MemcacheProvider) SetWithTags(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	if err := m.Set(ctx, key, value, ttl); err != nil {
		return err
	}

	for _, tag := range tags {
		keys := m.tagMembers(tag)
		found := false
		for _, k := range keys {
			if k == key {
				found = true
				break
			}
		}
		if !found {
			keys = append(keys, key)
		}
		encoded, err := json.Marshal(keys)
		if err != nil {
			return err
		}
		// tag keys outlive members by an hour so invalidation sees them
		if err := m.client.Set(&memcache.Item{
			Key:        memcacheTagKey(tag),
			Value:      encoded,
			Expiration: int32((ttl + time.Hour).Seconds()),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemcacheProvider) Delete(ctx context.Context, key string) error {
	err := m.client.Delete(key)
	if err == memcache.ErrCacheMiss {
		return nil
	}
	return err
}

func (m *MemcacheProvider) DeleteByTag(ctx context.Context, tag string) error {
	for _, key := range m.tagMembers(tag) {
		if err := m.Delete(ctx, key); err != nil {
			return err
		}
	}
	return m.Delete(ctx, memcacheTagKey(tag))
}

func (m *MemcacheProvider) Clear(ctx context.Context) error {
	return m.client.FlushAll()
}

func (m *MemcacheProvider) Exists(ctx context.Context, key string) bool {
	_, err := m.client.Get(key)
	return err == nil
}

func (m *MemcacheProvider) Close() error {
	return m.client.Close()
}

func (m *MemcacheProvider) Stats(ctx context.Context) (*Stats, error) {
	return &Stats{ProviderType: "memcache"}, nil
}

func (m *MemcacheProvider) tagMembers(tag string) []string {
	item, err := m.client.Get(memcacheTagKey(tag))
	if err != nil {
		return nil
	}
	var keys []string
	if json.Unmarshal(item.Value, &keys) != nil {
		return nil
	}
	return keys
}
