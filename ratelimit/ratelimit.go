// Package ratelimit tracks the per-endpoint Rate-Limit Record: the most
// recently observed (limit, remaining, reset) triple for each endpoint
// key, updated opportunistically from every response and read before
// issuing new requests for predictive throttling.
//
// Grounded on the teacher's token.HeartbeatManager, which keys per-session
// state by session id; this package keys Records by endpoint instead, in a
// plain map guarded by a sync.RWMutex.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Record is one endpoint's most recently observed rate-limit window.
type Record struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Tracker stores one Record per endpoint key.
type Tracker struct {
	mu      sync.RWMutex
	records map[string]Record
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{records: make(map[string]Record)}
}

// Observe updates the record for endpoint from an HTTP response's
// x-rate-limit-* headers. Missing or unparseable headers leave the
// corresponding field at its previous value.
func (t *Tracker) Observe(endpoint string, h http.Header) {
	limitStr := h.Get("x-rate-limit-limit")
	remainingStr := h.Get("x-rate-limit-remaining")
	resetStr := h.Get("x-rate-limit-reset")
	if limitStr == "" && remainingStr == "" && resetStr == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	rec := t.records[endpoint]
	if v, err := strconv.Atoi(limitStr); err == nil {
		rec.Limit = v
	}
	if v, err := strconv.Atoi(remainingStr); err == nil {
		rec.Remaining = v
	}
	if v, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
		rec.ResetAt = time.Unix(v, 0)
	}
	t.records[endpoint] = rec
}

// Get returns the current record for endpoint and whether one has ever
// been observed.
func (t *Tracker) Get(endpoint string) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.records[endpoint]
	return rec, ok
}

// ShouldThrottle reports whether the tracked record for endpoint suggests
// the caller should wait before issuing another request: Remaining is zero
// and ResetAt is still in the future.
func (t *Tracker) ShouldThrottle(endpoint string, now time.Time) (wait time.Duration, should bool) {
	rec, ok := t.Get(endpoint)
	if !ok || rec.Remaining > 0 {
		return 0, false
	}
	if rec.ResetAt.IsZero() || !rec.ResetAt.After(now) {
		return 0, false
	}
	return rec.ResetAt.Sub(now), true
}
