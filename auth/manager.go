// Package auth composes the outbound header set for every request: the
// process-wide bearer constant, the guest token (for unauthenticated
// reads), and the CSRF token cached from the cookie jar's ct0 cookie.
//
// Manager caches CSRF separately from jar.Jar for fast header assembly,
// but the jar remains the source of truth; xclient.Client calls SetCSRF
// after every response that rotates ct0 so the two never drift, per the
// fixed jar -> manager -> rate-limit lock acquisition order.
package auth

import (
	"sync"

	"github.com/xactions-go/core/guest"
	"github.com/xactions-go/core/internal/xerrors"
)

// Bearer is Twitter's public web-client bearer constant. Implementers
// copy it verbatim; it is never rotated within a process lifetime.
const Bearer = "AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs%3D1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA"

// Manager owns the CSRF cache and delegates guest-token concerns to a
// guest.Manager.
type Manager struct {
	guest *guest.Manager

	mu   sync.RWMutex
	csrf string
}

// New constructs a Manager backed by the given guest.Manager. guestMgr may
// be nil if the session never needs unauthenticated requests.
func New(guestMgr *guest.Manager) *Manager {
	return &Manager{guest: guestMgr}
}

// SetCSRF updates the cached CSRF token. Called by xclient.Client whenever
// a response's Set-Cookie rotates ct0.
func (m *Manager) SetCSRF(token string) {
	m.mu.Lock()
	m.csrf = token
	m.mu.Unlock()
}

// CSRF returns the cached CSRF token.
func (m *Manager) CSRF() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.csrf
}

// GuestManager exposes the underlying guest.Manager so callers can call
// EnsureValid with a real context.Context.
func (m *Manager) GuestManager() *guest.Manager { return m.guest }

// Headers composes the outbound header set. When authenticated is true,
// the CSRF token must already be set via SetCSRF; otherwise Headers fails
// fast with AuthRequired rather than emit a request missing x-csrf-token.
// When authenticated is false, guestToken is used verbatim (callers fetch
// it via GuestManager().EnsureValid beforehand, since that call may need
// to block on activation and accepts a context).
func (m *Manager) Headers(authenticated bool, guestToken string) (map[string]string, error) {
	if authenticated {
		csrf := m.CSRF()
		if csrf == "" {
			return nil, xerrors.New(xerrors.AuthRequired, "auth: authenticated request requested with no CSRF token cached")
		}
		return map[string]string{
			"Authorization":            "Bearer " + Bearer,
			"x-twitter-active-user":    "yes",
			"x-twitter-client-language": "en",
			"x-twitter-auth-type":      "OAuth2Session",
			"x-csrf-token":             csrf,
			"Content-Type":             "application/json",
		}, nil
	}
	return map[string]string{
		"Authorization":             "Bearer " + Bearer,
		"x-twitter-active-user":     "yes",
		"x-twitter-client-language": "en",
		"x-guest-token":             guestToken,
		"Content-Type":              "application/json",
	}, nil
}
