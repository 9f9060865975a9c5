// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ratelimit throttles node heartbeats per node.
package ratelimit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var (
	rateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vpspool",
			Name:      "ratelimit_exceeded_total",
			Help:      "Total rate limit rejections",
		},
		[]string{"limit_type"},
	)
)

// Config holds rate limiting configuration
type Config struct {
	// Global limits across all keys
	GlobalRate  rate.Limit
	GlobalBurst int

	// Per-key (node id) limits
	PerKeyRate  rate.Limit
	PerKeyBurst int

	// Keys idle for longer than IdleTTL are dropped during cleanup.
	IdleTTL         time.Duration
	CleanupInterval time.Duration
}

// DefaultConfig allows a node roughly one heartbeat per second with a
// small burst, far above the normal 30s cadence.
func DefaultConfig() Config {
	return Config{
		GlobalRate:  500,
		GlobalBurst: 1000,

		PerKeyRate:  1,
		PerKeyBurst: 5,

		IdleTTL:         10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter enforces a global and a per-key token bucket.
type Limiter struct {
	config Config
	now    func() time.Time

	global *rate.Limiter

	mu          sync.Mutex
	perKey      map[string]*entry
	lastCleanup time.Time
}

// New creates a new rate limiter with the given config. now may be nil.
func New(config Config, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		config:      config,
		now:         now,
		global:      rate.NewLimiter(config.GlobalRate, config.GlobalBurst),
		perKey:      make(map[string]*entry),
		lastCleanup: now(),
	}
}

// Allow reports whether one more event for key fits within the limits.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	if !l.global.AllowN(now, 1) {
		rateLimitExceeded.WithLabelValues("global").Inc()
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.perKey[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.config.PerKeyRate, l.config.PerKeyBurst)}
		l.perKey[key] = e
	}
	e.lastSeen = now

	allowed := e.limiter.AllowN(now, 1)
	if !allowed {
		rateLimitExceeded.WithLabelValues("per_node").Inc()
	}

	l.cleanupLocked(now)
	return allowed
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.perKey)
}

// cleanupLocked drops idle keys once per CleanupInterval. Caller holds mu.
func (l *Limiter) cleanupLocked(now time.Time) {
	if now.Sub(l.lastCleanup) < l.config.CleanupInterval {
		return
	}
	for key, e := range l.perKey {
		if now.Sub(e.lastSeen) > l.config.IdleTTL {
			delete(l.perKey, key)
		}
	}
	l.lastCleanup = now
}
