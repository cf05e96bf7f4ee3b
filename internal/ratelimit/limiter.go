// Package ratelimit provides the sliding-window counting service that guards
// registration attempts. The counter store is injected and externally owned
// so the limiter stays testable and horizontally scalable; nothing in here is
// a module-level singleton.
package ratelimit

import (
	"context"
	"time"
)

// CounterStore counts events per key within a window. Implementations must
// evict expired keys; the limiter never does bookkeeping of its own.
type CounterStore interface {
	// Incr bumps the counter for key, starting a new window with the given
	// TTL when the key is absent, and returns the count inside the current
	// window.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter enforces a fixed quota of events per key per window.
type Limiter struct {
	store  CounterStore
	limit  int64
	window time.Duration
}

// NewLimiter creates a limiter over the given store.
func NewLimiter(store CounterStore, limit int64, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: limit, window: window}
}

// Allow reports whether another event for key fits in the current window.
// Store failures fail open: a broken counter backend must not lock everyone
// out of registration.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		return true, err
	}
	return count <= l.limit, nil
}
