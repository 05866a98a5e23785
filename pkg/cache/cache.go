package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bitechdev/ResourceSpec/pkg/config"
)

// Provider is the contract all cache backends implement. Tags group
// related keys so mutations can invalidate a whole model at once.
type Provider interface {
	// Get retrieves a value by key. Returns nil, false when the key
	// is absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value with the given TTL. A zero TTL uses the
	// provider default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetWithTags stores a value and associates it with tags for
	// group invalidation.
	SetWithTags(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error

	// Delete removes a single key.
	Delete(ctx context.Context, key string) error

	// DeleteByTag removes every key associated with the tag.
	DeleteByTag(ctx context.Context, tag string) error

	// Clear removes all items.
	Clear(ctx context.Context) error

	// Exists reports whether the key is present and unexpired.
	Exists(ctx context.Context, key string) bool

	// Close releases provider resources.
	Close() error

	// Stats returns provider statistics.
	Stats(ctx context.Context) (*Stats, error)
}

// Stats contains cache statistics.
type Stats struct {
	Hits         int64          `json:"hits"`
	Misses       int64          `json:"misses"`
	Keys         int64          `json:"keys"`
	ProviderType string         `json:"provider_type"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// Options contains general provider configuration.
type Options struct {
	// DefaultTTL applies when Set is called with a zero TTL.
	DefaultTTL time.Duration

	// MaxSize caps the number of items for the in-memory provider.
	MaxSize int
}

// NewProviderFromConfig creates a cache provider from configuration.
func NewProviderFromConfig(cfg config.CacheConfig) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider(nil), nil
	case "redis":
		return NewRedisProvider(&RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	case "memcache":
		return NewMemcacheProvider(&MemcacheConfig{
			Servers:      cfg.Memcache.Servers,
			MaxIdleConns: cfg.Memcache.MaxIdleConns,
			Timeout:      cfg.Memcache.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown cache provider: %s", cfg.Provider)
	}
}
