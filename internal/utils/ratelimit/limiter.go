// Package ratelimit counts failed requests per client in fixed windows.
// Successful requests are never counted, so a well-behaved client is
// never throttled while a client guessing credentials or tokens is.
package ratelimit

import (
	"context"
	"time"
)

// Rate is the failure budget: at most Max failures per Window.
type Rate struct {
	Max    int
	Window time.Duration
}

// Decision is the outcome of checking a key against its budget.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Store tracks failures per key.
type Store interface {
	// Allow reports whether the key still has budget left in its window.
	Allow(ctx context.Context, key string) (Decision, error)

	// Fail records one failed request for the key.
	Fail(ctx context.Context, key string) error
}

// window is one fixed counting window for a key.
type window struct {
	count   int
	resetAt time.Time
}

func (w *window) expired(now time.Time) bool {
	return !now.Before(w.resetAt)
}

func decide(rate Rate, count int, retryAfter time.Duration) Decision {
	remaining := rate.Max - count
	if remaining < 0 {
		remaining = 0
	}
	d := Decision{
		Allowed:   count < rate.Max,
		Remaining: remaining,
	}
	if !d.Allowed {
		d.RetryAfter = retryAfter
	}
	return d
}
