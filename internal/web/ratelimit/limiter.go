// Package ratelimit limits how often one client may call a route.
package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether one more request for key fits in its budget
type Limiter interface {
	Allow(ctx context.Context, key string) (*Info, error)
}

// Info is the state of a key after an Allow call
type Info struct {
	// Limit is the number of requests allowed per window
	Limit int
	// Remaining is what is left of the budget after this request
	Remaining int
	// ResetAt is when the budget is full again
	ResetAt time.Time
	Allowed bool
}

// Config sizes a limiter: Requests per Window
type Config struct {
	Requests int
	Window   time.Duration
}

// DefaultConfig allows 100 requests per minute
func DefaultConfig() Config {
	return Config{Requests: 100, Window: time.Minute}
}
