package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	"github.com/bitechdev/ResourceSpec/pkg/logger"
	"github.com/bitechdev/ResourceSpec/pkg/query"
)

// CountCache memoizes list-operation totals. Counting is usually the
// expensive half of a paginated list, and the total only changes when
// the model mutates, so entries are tagged per model and invalidated
// on create/update/delete.
type CountCache struct {
	provider Provider
	ttl      time.Duration
}

// DefaultCountTTL bounds staleness for cached totals.
const DefaultCountTTL = 2 * time.Minute

// NewCountCache creates a count cache over the given provider. A zero
// ttl uses DefaultCountTTL.
func NewCountCache(provider Provider, ttl time.Duration) *CountCache {
	if ttl == 0 {
		ttl = DefaultCountTTL
	}
	return &CountCache{provider: provider, ttl: ttl}
}

type countKey struct {
	Model   string            `json:"model"`
	Where   *query.Expression `json:"where,omitempty"`
	OrderBy []query.SortKey   `json:"orderBy,omitempty"`
}

// Key derives the cache key for one count query: a SHA-256 hash over
// the model, the condition expression and the sort keys. The query
// compiler emits conditions in a deterministic order, so equal queries
// hash equally.
func (c *CountCache) Key(model string, where *query.Expression, orderBy []query.SortKey) string {
	encoded, err := json.Marshal(countKey{Model: model, Where: where, OrderBy: orderBy})
	if err != nil {
		encoded = []byte(model)
	}
	sum := sha256.Sum256(encoded)
	return "count:" + hex.EncodeToString(sum[:])
}

func modelTag(model string) string {
	return "model:" + model
}

// Get returns the cached total for the query, false on miss.
func (c *CountCache) Get(ctx context.Context, model string, where *query.Expression, orderBy []query.SortKey) (int64, bool) {
	if c == nil || c.provider == nil {
		return 0, false
	}
	raw, ok := c.provider.Get(ctx, c.Key(model, where, orderBy))
	if !ok {
		return 0, false
	}
	total, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return total, true
}

// Set stores the total for the query, tagged by model.
func (c *CountCache) Set(ctx context.Context, model string, where *query.Expression, orderBy []query.SortKey, total int64) {
	if c == nil || c.provider == nil {
		return
	}
	key := c.Key(model, where, orderBy)
	value := []byte(strconv.FormatInt(total, 10))
	if err := c.provider.SetWithTags(ctx, key, value, c.ttl, []string{modelTag(model)}); err != nil {
		logger.Warn("Failed to cache count for %s: %v", model, err)
	}
}

// Invalidate drops every cached total for the model. Called after any
// mutation on that model.
func (c *CountCache) Invalidate(ctx context.Context, model string) {
	if c == nil || c.provider == nil {
		return
	}
	if err := c.provider.DeleteByTag(ctx, modelTag(model)); err != nil {
		logger.Warn("Failed to invalidate count cache for %s: %v", model, err)
	}
}
