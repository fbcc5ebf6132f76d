package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Decision is the outcome of an admission check. ResetAt is set on denial
// to the instant the oldest counted request leaves the window.
type Decision struct {
	Allowed bool
	ResetAt time.Time
}

// SlidingWindow admits at most maxRequests events per key within any
// trailing window. It is per-process and in-memory; windows are pruned
// lazily on access, with Sweep available for idle-key hygiene.
type SlidingWindow struct {
	mu          sync.Mutex
	window      time.Duration
	maxRequests int
	requests    map[string][]time.Time
}

// NewSlidingWindow creates a limiter with the given window and quota
func NewSlidingWindow(window time.Duration, maxRequests int) *SlidingWindow {
	return &SlidingWindow{
		window:      window,
		maxRequests: maxRequests,
		requests:    make(map[string][]time.Time),
	}
}

// Admit checks and records one request for key at the given instant.
// The prune-check-append sequence runs under the limiter lock, so two
// concurrent calls for the same key cannot both slip past the quota.
func (l *SlidingWindow) Admit(key string, now time.Time) Decision {
	windowStart := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamps := l.requests[key]
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.maxRequests {
		oldest := kept[0]
		for _, ts := range kept[1:] {
			if ts.Before(oldest) {
				oldest = ts
			}
		}
		l.requests[key] = kept
		return Decision{Allowed: false, ResetAt: oldest.Add(l.window)}
	}

	l.requests[key] = append(kept, now)
	return Decision{Allowed: true}
}

// Sweep drops keys with no in-window timestamps so idle clients do not
// hold memory forever. Safe to call concurrently with Admit.
func (l *SlidingWindow) Sweep(now time.Time) {
	windowStart := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, timestamps := range l.requests {
		live := false
		for _, ts := range timestamps {
			if ts.After(windowStart) {
				live = true
				break
			}
		}
		if !live {
			delete(l.requests, key)
		}
	}
}

// KeyFromRequest derives the rate-limit partition key for a request:
// the first X-Forwarded-For hop, else the socket address, else "unknown".
// This is a partition key, not a security identity.
func KeyFromRequest(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first := strings.TrimSpace(strings.SplitN(forwarded, ",", 2)[0]); first != "" {
			return first
		}
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
			return host
		}
		return r.RemoteAddr
	}
	return "unknown"
}
