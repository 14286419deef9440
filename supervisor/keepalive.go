package supervisor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// keepaliveState records the outcome of a session's last keep-alive probe.
// Adapted from the teacher's token.SessionState: stored atomically in a
// sync.Map so thousands of probes can update their own entry without
// contending on a single mutex, and any reader can inspect the latest
// result without locking.
type keepaliveState struct {
	SessionID     int
	LastRefreshed time.Time
	Authenticated bool
	Err           error
}

// Keepalive runs a background probe against every session in a Manager on a
// fixed interval, keeping each session's cookie jar warm and its
// authentication state current. Adapted from the teacher's
// token.HeartbeatManager: the sync.Map-keyed-by-session-ID state store and
// the single background ticker goroutine carry over unchanged. What the
// probe does is rebuilt around this system's cookie-based auth instead of
// token.HeartbeatManager's JWT refresh: a probe is a GET against an
// authenticated endpoint (account/verify_credentials.json by default)
// through the session's own xclient.Client, which performs the usual
// Set-Cookie/ct0 housekeeping as a side effect of the call.
type Keepalive struct {
	manager  *Manager
	interval time.Duration
	path     string

	states sync.Map // session ID -> *keepaliveState

	stopCh chan struct{}
	once   sync.Once

	probeCount atomic.Int64
}

// NewKeepalive creates a Keepalive for every session m currently manages (and
// any added later), probing path once per interval. path defaults to
// "/1.1/account/verify_credentials.json" when empty; interval defaults to
// 60s when <= 0.
func NewKeepalive(m *Manager, interval time.Duration, path string) *Keepalive {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if path == "" {
		path = "/1.1/account/verify_credentials.json"
	}
	return &Keepalive{
		manager:  m,
		interval: interval,
		path:     path,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the background probe goroutine. Non-blocking.
func (k *Keepalive) Start() {
	go func() {
		ticker := time.NewTicker(k.interval)
		defer ticker.Stop()
		for {
			select {
			case <-k.stopCh:
				return
			case <-ticker.C:
				k.probeAll()
			}
		}
	}()
}

// Stop halts the background probe goroutine. Idempotent.
func (k *Keepalive) Stop() {
	k.once.Do(func() {
		close(k.stopCh)
	})
}

// State returns the last recorded probe outcome for sessionID, or nil if no
// probe has run for it yet.
func (k *Keepalive) State(sessionID int) *keepaliveState {
	v, ok := k.states.Load(sessionID)
	if !ok {
		return nil
	}
	s, _ := v.(*keepaliveState)
	return s
}

// ProbeCount returns the total number of probes issued so far, across all
// sessions.
func (k *Keepalive) ProbeCount() int64 {
	return k.probeCount.Load()
}

func (k *Keepalive) probeAll() {
	count := k.manager.Count()
	for id := 0; id < count; id++ {
		s, ok := k.manager.GetSession(id)
		if !ok || s.getState() == "closed" {
			continue
		}
		k.probeOne(s)
	}
}

func (k *Keepalive) probeOne(s *Session) {
	k.probeCount.Add(1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	authenticated := s.Jar.IsAuthenticated()
	_, err := s.Client.REST(ctx, "GET", k.path, nil, authenticated, "", true)

	k.states.Store(s.ID, &keepaliveState{
		SessionID:     s.ID,
		LastRefreshed: time.Now(),
		Authenticated: err == nil && s.Jar.IsAuthenticated(),
		Err:           err,
	})
}
