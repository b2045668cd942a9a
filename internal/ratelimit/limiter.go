// Package ratelimit throttles console logins per client address and per email.
//
// Each key gets a token bucket refilled at a fixed rate. Buckets for keys that
// stop knocking are evicted after an idle period so the table stays bounded by
// recent traffic.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const defaultIdleTTL = 15 * time.Minute

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, never below one.
func (d Decision) RetryAfterSeconds() int {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// Limiter holds one token bucket per key.
type Limiter struct {
	every rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	buckets *cache.Cache
}

type Option func(*Limiter)

// WithIdleTTL sets how long an untouched bucket is kept.
func WithIdleTTL(ttl time.Duration) Option {
	return func(l *Limiter) {
		if ttl > 0 {
			l.buckets = cache.New(ttl, 2*ttl)
		}
	}
}

// WithClock overrides time.Now for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// NewLimiter allows perMinute attempts per key with bursts of up to burst.
func NewLimiter(perMinute float64, burst int, opts ...Option) *Limiter {
	if burst < 1 {
		burst = 1
	}
	l := &Limiter{
		every:   rate.Limit(perMinute / 60),
		burst:   burst,
		now:     time.Now,
		buckets: cache.New(defaultIdleTTL, 2*defaultIdleTTL),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow takes a token from key's bucket if one is available. A refused call
// consumes nothing.
func (l *Limiter) Allow(key string) Decision {
	now := l.now()
	bucket := l.bucket(key)

	r := bucket.ReserveN(now, 1)
	if !r.OK() {
		return Decision{Limit: l.burst, RetryAfter: time.Minute}
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{Limit: l.burst, RetryAfter: delay}
	}
	remaining := int(bucket.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Limit: l.burst, Remaining: remaining}
}

// Tracked reports how many keys currently hold a bucket.
func (l *Limiter) Tracked() int {
	return l.buckets.ItemCount()
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.buckets.Get(key); ok {
		b := v.(*rate.Limiter)
		l.buckets.SetDefault(key, b)
		return b
	}
	b := rate.NewLimiter(l.every, l.burst)
	l.buckets.SetDefault(key, b)
	return b
}
