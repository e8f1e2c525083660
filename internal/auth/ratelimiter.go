package auth

import (
	"sync"
	"time"
)

// RateLimiter implements the sliding-window-with-lockout login limiter (C7),
// grounded on the original LoginRateLimiter: a deque of failure timestamps
// per key, pruned to the window, escalating to a timed lockout.
type RateLimiter struct {
	maxAttempts int
	window      time.Duration
	block       time.Duration

	mu          sync.Mutex
	failures    map[string][]time.Time
	blockedUntil map[string]time.Time

	now func() time.Time
}

// NewRateLimiter constructs a RateLimiter with the spec §4.7 defaults
// (max_attempts=5, window=60s, block=300s) unless overridden.
func NewRateLimiter(maxAttempts int, window, block time.Duration) *RateLimiter {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if window <= 0 {
		window = 60 * time.Second
	}
	if block <= 0 {
		block = 300 * time.Second
	}
	return &RateLimiter{
		maxAttempts:  maxAttempts,
		window:       window,
		block:        block,
		failures:     make(map[string][]time.Time),
		blockedUntil: make(map[string]time.Time),
		now:          time.Now,
	}
}

// Check reports the remaining lockout duration for key, or zero if the key
// is not currently locked out.
func (r *RateLimiter) Check(key string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if until, ok := r.blockedUntil[key]; ok {
		if until.After(now) {
			return until.Sub(now)
		}
		delete(r.blockedUntil, key)
	}
	r.prune(key, now)
	return 0
}

// Hit records a failed attempt for key and returns the remaining lockout
// duration if this attempt tripped the threshold, or zero otherwise.
func (r *RateLimiter) Hit(key string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.prune(key, now)

	bucket := append(r.failures[key], now)
	if len(bucket) >= r.maxAttempts {
		until := now.Add(r.block)
		r.blockedUntil[key] = until
		delete(r.failures, key)
		return until.Sub(now)
	}
	r.failures[key] = bucket
	return 0
}

// Reset clears all failure/lockout state for key. Called on successful auth.
func (r *RateLimiter) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.failures, key)
	delete(r.blockedUntil, key)
}

func (r *RateLimiter) prune(key string, now time.Time) {
	bucket, ok := r.failures[key]
	if !ok {
		return
	}
	windowStart := now.Add(-r.window)
	i := 0
	for i < len(bucket) && bucket[i].Before(windowStart) {
		i++
	}
	bucket = bucket[i:]
	if len(bucket) == 0 {
		delete(r.failures, key)
		return
	}
	r.failures[key] = bucket
}
