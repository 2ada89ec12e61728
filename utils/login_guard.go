package utils

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type failureEntry struct {
	count     int
	expiresAt time.Time
}

// LoginGuard counts failed logins per client key (IP) inside a fixed window. Redis is
// preferred so counters survive restarts; process memory is the fallback.
type LoginGuard struct {
	rdb         *redis.Client
	maxFailures int
	window      time.Duration
	now         func() time.Time

	mu       sync.Mutex
	failures map[string]failureEntry
}

// NewLoginGuard creates a guard; rdb may be nil. maxFailures <= 0 disables throttling.
func NewLoginGuard(rdb *redis.Client, maxFailures int, window time.Duration) *LoginGuard {
	return &LoginGuard{
		rdb:         rdb,
		maxFailures: maxFailures,
		window:      window,
		now:         time.Now,
		failures:    map[string]failureEntry{},
	}
}

func loginKey(ip string) string {
	return "login:fail:" + ip
}

// Blocked reports whether ip has used up its failed attempts.
func (g *LoginGuard) Blocked(ctx context.Context, ip string) bool {
	if g.maxFailures <= 0 {
		return false
	}
	if g.rdb != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		n, err := g.rdb.Get(ctx, loginKey(ip)).Int()
		if err == nil {
			return n >= g.maxFailures
		}
		if err != redis.Nil {
			Sugar.Warnf("login guard redis get failed: %v", err)
		}
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.failures[ip]
	if !ok {
		return false
	}
	if !g.now().Before(entry.expiresAt) {
		delete(g.failures, ip)
		return false
	}
	return entry.count >= g.maxFailures
}

// RecordFailure counts one failed attempt for ip.
func (g *LoginGuard) RecordFailure(ctx context.Context, ip string) {
	if g.maxFailures <= 0 {
		return
	}
	if g.rdb != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		key := loginKey(ip)
		// SET NX EX and INCR share one MULTI, so a counter never exists without a TTL
		_, err := g.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetNX(ctx, key, 0, g.window)
			pipe.Incr(ctx, key)
			return nil
		})
		if err != nil {
			Sugar.Warnf("login guard redis incr failed: %v", err)
		}
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	for k, e := range g.failures {
		if !now.Before(e.expiresAt) {
			delete(g.failures, k)
		}
	}
	entry, ok := g.failures[ip]
	if !ok {
		entry = failureEntry{expiresAt: now.Add(g.window)}
	}
	entry.count++
	g.failures[ip] = entry
}

// Reset clears the counter after a successful login.
func (g *LoginGuard) Reset(ctx context.Context, ip string) {
	if g.rdb != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		_ = g.rdb.Del(ctx, loginKey(ip)).Err()
		return
	}
	g.mu.Lock()
	delete(g.failures, ip)
	g.mu.Unlock()
}
