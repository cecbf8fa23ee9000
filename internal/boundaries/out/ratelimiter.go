package out

import "context"

// RateLimiter defines the contract for keyed request throttling.
type RateLimiter interface {
	// Allow reports whether a request for key may proceed now.
	Allow(ctx context.Context, key string) bool

	// Wait blocks until a request for key may proceed or ctx is done.
	Wait(ctx context.Context, key string) error
}
