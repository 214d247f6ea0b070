package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow reports whether a request may proceed now, consuming a token if so
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
	// Reset refills the limiter to its full burst
	Reset()
}

// TokenBucket is a Limiter backed by golang.org/x/time/rate
type TokenBucket struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	every   rate.Limit
	burst   int
}

// NewTokenBucket allows burst requests at once and refills one token every period/burst
func NewTokenBucket(burst int, period time.Duration) *TokenBucket {
	if burst <= 0 {
		burst = 1
	}
	every := rate.Every(period / time.Duration(burst))
	return &TokenBucket{
		limiter: rate.NewLimiter(every, burst),
		every:   every,
		burst:   burst,
	}
}

// PerMinute allows requestsPerMinute sustained requests with the given burst
func PerMinute(requestsPerMinute, burst int) *TokenBucket {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1
	}
	if burst <= 0 {
		burst = 1
	}
	every := rate.Every(time.Minute / time.Duration(requestsPerMinute))
	return &TokenBucket{
		limiter: rate.NewLimiter(every, burst),
		every:   every,
		burst:   burst,
	}
}

func (tb *TokenBucket) current() *rate.Limiter {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.limiter
}

// Allow checks if a request can proceed
func (tb *TokenBucket) Allow() bool {
	return tb.current().Allow()
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.current().Wait(ctx)
}

// Reset refills the bucket
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.limiter = rate.NewLimiter(tb.every, tb.burst)
}

// Unlimited never throttles
type Unlimited struct{}

func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
func (Unlimited) Reset()                         {}

// KeyedLimiter keeps one limiter per key, e.g. per client address.
// With an idle TTL set, keys unused for longer than the TTL are dropped so
// the map stays bounded by the number of recently active clients.
type KeyedLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*keyedEntry
	newFn     func() Limiter
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type keyedEntry struct {
	limiter  Limiter
	lastSeen time.Time
}

// KeyedOption configures a KeyedLimiter
type KeyedOption func(*KeyedLimiter)

// WithIdleTTL drops keys idle for longer than ttl. The ttl should be at least
// the time a bucket needs to refill, otherwise eviction hands out fresh budget early.
func WithIdleTTL(ttl time.Duration) KeyedOption {
	return func(k *KeyedLimiter) {
		k.idleTTL = ttl
	}
}

// NewKeyedLimiter creates a KeyedLimiter that builds limiters with newFn on first use
func NewKeyedLimiter(newFn func() Limiter, opts ...KeyedOption) *KeyedLimiter {
	k := &KeyedLimiter{
		limiters: make(map[string]*keyedEntry),
		newFn:    newFn,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Get returns the limiter for key, creating it if needed
func (k *KeyedLimiter) Get(key string) Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	k.sweep(now)

	e, ok := k.limiters[key]
	if !ok {
		e = &keyedEntry{limiter: k.newFn()}
		k.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// sweep evicts idle keys, at most once per TTL. Callers hold k.mu.
func (k *KeyedLimiter) sweep(now time.Time) {
	if k.idleTTL <= 0 || now.Sub(k.lastSweep) < k.idleTTL {
		return
	}
	k.lastSweep = now
	for key, e := range k.limiters {
		if now.Sub(e.lastSeen) > k.idleTTL {
			delete(k.limiters, key)
		}
	}
}

// Allow checks the limiter for key
func (k *KeyedLimiter) Allow(key string) bool {
	return k.Get(key).Allow()
}

// Len returns the number of tracked keys
func (k *KeyedLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.limiters)
}

// Reset forgets every key
func (k *KeyedLimiter) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.limiters = make(map[string]*keyedEntry)
}
