// Package guard gates raw inbound messages before any expensive work:
// allowlist, per-user sliding rate window, and text length bound, checked in
// that order so the cheapest and least revealing checks run first.
package guard

import (
	"fmt"
	"sync"
	"time"
)

// Decision is the single tagged outcome every entry point consumes. A
// rejection with Visible=false must produce no reply at all.
type Decision struct {
	Allowed bool
	Visible bool
	Message string
}

var allowed = Decision{Allowed: true}

// Config holds the guard's policy knobs.
type Config struct {
	AllowedUsers  []string // empty = unrestricted
	RateLimitMsgs int
	RateWindow    time.Duration
	MaxTextLength int
}

// Guard owns the per-user rate state for the process lifetime. It is safe
// for concurrent use; state is never persisted.
type Guard struct {
	mu      sync.Mutex
	windows map[string][]time.Time

	allowset      map[string]struct{}
	rateLimitMsgs int
	rateWindow    time.Duration
	maxTextLength int

	now func() time.Time
}

func New(cfg Config) *Guard {
	var allowset map[string]struct{}
	if len(cfg.AllowedUsers) > 0 {
		allowset = make(map[string]struct{}, len(cfg.AllowedUsers))
		for _, u := range cfg.AllowedUsers {
			allowset[u] = struct{}{}
		}
	}
	return &Guard{
		windows:       make(map[string][]time.Time),
		allowset:      allowset,
		rateLimitMsgs: cfg.RateLimitMsgs,
		rateWindow:    cfg.RateWindow,
		maxTextLength: cfg.MaxTextLength,
		now:           time.Now,
	}
}

// Allowed reports whether a user passes the allowlist. A nil allowset means
// anyone may use the service.
func (g *Guard) Allowed(userID string) bool {
	if g.allowset == nil {
		return true
	}
	_, ok := g.allowset[userID]
	return ok
}

// Check applies allowlist, rate limit and length bound to one message.
// An accepted message immediately consumes one unit of the rate window.
func (g *Guard) Check(userID, text string) Decision {
	if !g.Allowed(userID) {
		// No reply at all for unknown senders.
		return Decision{}
	}

	if g.rateLimited(userID) {
		return Decision{
			Visible: true,
			Message: "⏳ Calma! Limite de mensagens atingido. Tente novamente em alguns segundos.",
		}
	}

	if n := len([]rune(text)); n > g.maxTextLength {
		return Decision{
			Visible: true,
			Message: fmt.Sprintf("Mensagem muito longa (%d chars). Máximo: %d.", n, g.maxTextLength),
		}
	}

	return allowed
}

// rateLimited prunes the user's window lazily, then either rejects or
// records the acceptance. A sliding counter, not a token bucket: bursts up
// to the limit are fine within any rolling window span.
func (g *Guard) rateLimited(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	cutoff := now.Add(-g.rateWindow)

	kept := g.windows[userID][:0]
	for _, ts := range g.windows[userID] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= g.rateLimitMsgs {
		g.windows[userID] = kept
		return true
	}

	g.windows[userID] = append(kept, now)
	return false
}

// TrackedUsers returns how many users currently hold rate state. Exposed for
// the readiness endpoint.
func (g *Guard) TrackedUsers() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.windows)
}
