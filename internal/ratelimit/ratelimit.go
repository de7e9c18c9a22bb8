// Package ratelimit implements the leaky-bucket-per-adapter-id policy
// from spec.md §5 ("Adapter rate limits are enforced via a leaky-bucket
// keyed by adapter id"), grounded on sawpanic-cryptorun's
// internal/providers/kraken/ratelimiter.go (one limiter per upstream,
// built on a token-bucket primitive).
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Keyed hands out one rate.Limiter per key, creating it lazily.
type Keyed struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewKeyed creates a registry of leaky buckets, each allowing rps
// requests/second with the given burst.
func NewKeyed(rps float64, burst int) *Keyed {
	return &Keyed{limiters: map[string]*rate.Limiter{}, rps: rps, burst: burst}
}

func (k *Keyed) get(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(k.rps), k.burst)
		k.limiters[key] = l
	}
	return l
}

// Wait blocks until key's bucket has a token or ctx is done.
func (k *Keyed) Wait(ctx context.Context, key string) error {
	return k.get(key).Wait(ctx)
}
