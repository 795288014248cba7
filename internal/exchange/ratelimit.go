// ratelimit.go implements a token-bucket limiter for the Exchange
// Client's order/cancel/book request categories, refilling continuously
// rather than in discrete windows so a burst never has to wait a full
// period for the bucket to reopen.
package exchange

import (
	"context"
	"sync"
	"time"
)

// TokenBucket is a continuous-refill token-bucket rate limiter. Callers
// block in Wait until a token is available or the context is cancelled.
type TokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64 // tokens refilled per second
	lastTime time.Time
}

// NewTokenBucket creates a limiter with the given burst capacity and
// refill rate.
func NewTokenBucket(capacity, ratePerSecond float64) *TokenBucket {
	return &TokenBucket{
		tokens:   capacity,
		capacity: capacity,
		rate:     ratePerSecond,
		lastTime: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(tb.lastTime).Seconds()
		tb.tokens += elapsed * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastTime = now

		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}

		wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// RateLimiter groups the buckets the Exchange Client draws from before
// each category of call.
type RateLimiter struct {
	Order  *TokenBucket
	Cancel *TokenBucket
	Book   *TokenBucket
}

// NewRateLimiter builds a RateLimiter from configured capacities/rates.
func NewRateLimiter(orderCap int, orderRate float64, bookCap int, bookRate float64) *RateLimiter {
	return &RateLimiter{
		Order:  NewTokenBucket(float64(orderCap), orderRate),
		Cancel: NewTokenBucket(float64(orderCap), orderRate),
		Book:   NewTokenBucket(float64(bookCap), bookRate),
	}
}
