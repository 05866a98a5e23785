package engine

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/bitechdev/ResourceSpec/pkg/resource"
)

// RateLimitError reports a rejected operation for a caller that
// exceeded their request budget.
type RateLimitError struct {
	UserID string
}

func (e *RateLimitError) Error() string {
	if e.UserID == "" {
		return "rate limit exceeded"
	}
	return fmt.Sprintf("rate limit exceeded for user %s", e.UserID)
}

// IsRateLimited reports whether err is a rate limit rejection.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// RateLimiter hands out a token bucket per caller. Anonymous
// operations share one bucket under an empty key.
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewRateLimiter creates a limiter allowing rps operations per second
// with the given burst per user.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		buckets: make(map[string]*rate.Limiter),
	}
}

func (r *RateLimiter) limiterFor(userID string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	lim, ok := r.buckets[userID]
	if !ok {
		lim = rate.NewLimiter(r.rps, r.burst)
		r.buckets[userID] = lim
	}
	return lim
}

// Middleware returns an engine middleware that rejects operations
// once the caller's bucket is drained.
func (r *RateLimiter) Middleware() resource.MiddlewareFunc {
	return func(hc *resource.Context) error {
		var userID string
		if hc.User != nil {
			userID = hc.User.ID
		}
		if !r.limiterFor(userID).Allow() {
			return &RateLimitError{UserID: userID}
		}
		return nil
	}
}
