// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit implements per-client-id token buckets with
// time-based refill (spec §5's "rate-limit buckets are per-client-id
// token buckets with time-based refill", §8's {max, window} boundary
// behavior). It wires golang.org/x/time/rate — the Go team's own
// canonical extension of the standard library — since no example repo
// in the retrieval pack needed a rate limiter yet and none carries one
// as a dependency to imitate.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config is one {max, window} token-bucket contract: max requests may be
// spent per window, refilling continuously rather than all at once.
type Config struct {
	Max    int
	Window time.Duration
}

// Result is the outcome of one CheckLimit call.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter holds one token bucket per client id, created lazily on first
// use and never proactively evicted within a process lifetime — Prune
// exists for callers that want to reclaim memory from long-idle clients.
type Limiter struct {
	mu      sync.Mutex
	cfg     Config
	buckets map[string]*clientBucket
}

type clientBucket struct {
	limiter    *rate.Limiter
	lastSeenAt time.Time
}

// New returns a Limiter enforcing cfg for every distinct client id.
func New(cfg Config) *Limiter {
	if cfg.Max <= 0 {
		cfg.Max = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}
	return &Limiter{cfg: cfg, buckets: make(map[string]*clientBucket)}
}

func (l *Limiter) perSecond() float64 {
	return float64(l.cfg.Max) / l.cfg.Window.Seconds()
}

func (l *Limiter) bucketFor(clientID string) *clientBucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[clientID]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rate.Limit(l.perSecond()), l.cfg.Max)}
		l.buckets[clientID] = b
	}
	b.lastSeenAt = time.Now()
	return b
}

// CheckLimit spends one token for clientID if available. Allowed is true
// for the first Config.Max calls within Config.Window; subsequent calls
// are denied until enough time has passed for tokens to refill.
func (l *Limiter) CheckLimit(clientID string) Result {
	b := l.bucketFor(clientID)
	now := time.Now()

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)
	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}

	resetAt := now
	if remaining < l.cfg.Max {
		need := 1 - tokens
		if need < 0 {
			need = 0
		}
		if ps := l.perSecond(); ps > 0 {
			resetAt = now.Add(time.Duration(need / ps * float64(time.Second)))
		}
	}

	return Result{Allowed: allowed, Remaining: remaining, ResetAt: resetAt}
}

// Prune discards any client bucket not used within maxIdle, bounding
// memory growth for deployments with many distinct, short-lived clients.
func (l *Limiter) Prune(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, b := range l.buckets {
		if b.lastSeenAt.Before(cutoff) {
			delete(l.buckets, id)
		}
	}
}
