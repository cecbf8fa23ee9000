// Package ratelimit throttles calls to rate-limited control planes.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/bnema/envrefresh/internal/boundaries/out"
)

// Ensure MemoryStore implements out.RateLimiter.
var _ out.RateLimiter = (*MemoryStore)(nil)

// MemoryStore is an in-memory rate limiter implementation using golang.org/x/time/rate.
// Each unique key gets its own independent rate limiter.
type MemoryStore struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rps      float64
	burst    int
}

// NewMemoryStore creates a new in-memory rate limiter store.
func NewMemoryStore(rps float64, burst int) *MemoryStore {
	if burst < 1 {
		burst = 1
	}
	return &MemoryStore{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

// Allow checks if a request identified by key is allowed.
func (s *MemoryStore) Allow(_ context.Context, key string) bool {
	return s.getLimiter(key).Allow()
}

// Wait blocks until a request identified by key is allowed.
func (s *MemoryStore) Wait(ctx context.Context, key string) error {
	return s.getLimiter(key).Wait(ctx)
}

// getLimiter returns the rate limiter for the given key, creating one if it doesn't exist.
func (s *MemoryStore) getLimiter(key string) *rate.Limiter {
	s.mu.RLock()
	limiter, exists := s.limiters[key]
	s.mu.RUnlock()

	if exists {
		return limiter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists = s.limiters[key]; exists {
		return limiter
	}

	limit := rate.Limit(s.rps)
	if s.rps <= 0 {
		limit = rate.Inf
	}
	limiter = rate.NewLimiter(limit, s.burst)
	s.limiters[key] = limiter
	return limiter
}
