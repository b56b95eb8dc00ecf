package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// TokenBucket is an in-memory limiter. Each key holds up to Requests tokens
// and regains Requests tokens per Window.
type TokenBucket struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	capacity float64
	window   time.Duration
	now      func() time.Time
	ticker   *time.Ticker
	done     chan struct{}
	once     sync.Once
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// NewTokenBucket creates a limiter. Buckets idle for two windows are dropped
// every cleanup interval; a zero interval keeps them until Close.
func NewTokenBucket(config Config, cleanup time.Duration) (*TokenBucket, error) {
	if config.Requests <= 0 {
		return nil, errors.New("requests must be greater than 0")
	}
	if config.Window <= 0 {
		return nil, errors.New("window must be greater than 0")
	}

	tb := &TokenBucket{
		buckets:  make(map[string]*bucket),
		capacity: float64(config.Requests),
		window:   config.Window,
		now:      time.Now,
		done:     make(chan struct{}),
	}

	if cleanup > 0 {
		tb.ticker = time.NewTicker(cleanup)
		go tb.cleanupLoop()
	}

	return tb, nil
}

// Allow takes one token from key's bucket
func (tb *TokenBucket) Allow(ctx context.Context, key string) (*Info, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: tb.capacity, seen: now}
		tb.buckets[key] = b
	}

	if elapsed := now.Sub(b.seen); elapsed > 0 {
		b.tokens += tb.capacity * elapsed.Seconds() / tb.window.Seconds()
		if b.tokens > tb.capacity {
			b.tokens = tb.capacity
		}
	}
	b.seen = now

	allowed := b.tokens >= 1
	if allowed {
		b.tokens--
	}

	missing := tb.capacity - b.tokens
	return &Info{
		Limit:     int(tb.capacity),
		Remaining: int(b.tokens),
		ResetAt:   now.Add(time.Duration(missing / tb.capacity * float64(tb.window))),
		Allowed:   allowed,
	}, nil
}

func (tb *TokenBucket) cleanupLoop() {
	for {
		select {
		case <-tb.ticker.C:
			tb.cleanupIdle()
		case <-tb.done:
			return
		}
	}
}

// cleanupIdle drops buckets unused for two windows; they would be full again
func (tb *TokenBucket) cleanupIdle() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	threshold := 2 * tb.window
	now := tb.now()
	for key, b := range tb.buckets {
		if now.Sub(b.seen) > threshold {
			delete(tb.buckets, key)
		}
	}
}

// Close stops the cleanup goroutine
func (tb *TokenBucket) Close() error {
	tb.once.Do(func() {
		close(tb.done)
		if tb.ticker != nil {
			tb.ticker.Stop()
		}
	})
	return nil
}
