package provider

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimits is a snapshot of the provider's rate-limit headers as observed
// on the most recent response. Absent headers leave zero values; that is not
// an error.
type RateLimits struct {
	LimitRequests     int
	RemainingRequests int
	ResetRequests     time.Duration
	LimitTokens       int
	RemainingTokens   int
	ResetTokens       time.Duration
	ObservedAt        time.Time
}

// rateCache keeps the last observed snapshot for short-term reference.
type rateCache struct {
	mu   sync.RWMutex
	last RateLimits
}

func (c *rateCache) store(r RateLimits) {
	c.mu.Lock()
	c.last = r
	c.mu.Unlock()
}

func (c *rateCache) snapshot() RateLimits {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// parseRateLimits extracts the standard x-ratelimit-* headers from any
// response, success or failure.
func parseRateLimits(h http.Header) RateLimits {
	return RateLimits{
		LimitRequests:     atoi(h.Get("x-ratelimit-limit-requests")),
		RemainingRequests: atoi(h.Get("x-ratelimit-remaining-requests")),
		ResetRequests:     parseReset(h.Get("x-ratelimit-reset-requests")),
		LimitTokens:       atoi(h.Get("x-ratelimit-limit-tokens")),
		RemainingTokens:   atoi(h.Get("x-ratelimit-remaining-tokens")),
		ResetTokens:       parseReset(h.Get("x-ratelimit-reset-tokens")),
		ObservedAt:        time.Now(),
	}
}

// retryAfterHint derives an explicit wait from a 429 response: Retry-After
// takes precedence, then the request reset header.
func retryAfterHint(h http.Header) time.Duration {
	if v := h.Get("retry-after"); v != "" {
		if secs := atoi(v); secs > 0 {
			return time.Duration(secs) * time.Second
		}
		if d := parseReset(v); d > 0 {
			return d
		}
	}
	return parseReset(h.Get("x-ratelimit-reset-requests"))
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// parseReset handles both Go-style durations ("1s", "6m12s", "120ms") and
// plain second counts ("12").
func parseReset(s string) time.Duration {
	if s == "" {
		return 0
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return 0
}
