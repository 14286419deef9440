package supervisor

import (
	"fmt"
	"sync"

	"github.com/xactions-go/core/config"
	"github.com/xactions-go/core/jschallenge"
	"github.com/xactions-go/core/proxy"
	"github.com/xactions-go/core/xclient"
)

// Manager owns the lifecycle of many concurrent Sessions. Adapted from the
// teacher's session.SessionManager: the concurrency model (RWMutex over the
// session map, parallel goroutine-per-session construction joined by a
// WaitGroup, a buffered result channel so creation failures don't abort
// sessions that already succeeded) carries over unchanged. What differs is
// what gets constructed per session: an xclient.Client/jar.Jar pair sourced
// through ResolveJar, instead of a generic *http.Client.
type Manager struct {
	sessions map[int]*Session
	mutex    sync.RWMutex
	config   *config.Config
}

// NewManager creates an empty Manager backed by cfg.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		sessions: make(map[int]*Session),
		config:   cfg,
	}
}

// CreateSessions builds count sessions concurrently, assigning each one the
// next proxy from pm (or a direct connection if pm is nil or exhausted) and
// the cookie-sourcing options optsForID(id) returns. solver, log, and sink
// are shared across every session; solver and sink may be nil. If any
// session fails to construct, an aggregated error is returned and the
// sessions that did succeed remain registered.
func (m *Manager) CreateSessions(count int, pm *proxy.ProxyManager, optsForID func(id int) Options, solver jschallenge.Solver, log xclient.Logger, sink xclient.MetricsSink) error {
	type result struct {
		s   *Session
		err error
	}

	results := make(chan result, count)
	var wg sync.WaitGroup

	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p := ""
			if pm != nil {
				p = pm.GetNextProxy()
			}
			var opts Options
			if optsForID != nil {
				opts = optsForID(id)
			}
			s, err := New(id, p, m.config, opts, solver, log, sink)
			results <- result{s: s, err: err}
		}(i)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var errs []error
	m.mutex.Lock()
	for r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		m.sessions[r.s.ID] = r.s
	}
	m.mutex.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("supervisor: %d session(s) failed to create; first error: %w", len(errs), errs[0])
	}
	return nil
}

// GetSession returns the session with the given id and true, or nil and
// false if no such session exists. Safe for concurrent use.
func (m *Manager) GetSession(id int) (*Session, bool) {
	m.mutex.RLock()
	s, ok := m.sessions[id]
	m.mutex.RUnlock()
	return s, ok
}

// StartAll transitions every idle session to active. Actual work is
// dispatched by a Scheduler; this only flips the bookkeeping flag.
func (m *Manager) StartAll() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, s := range m.sessions {
		s.mu.Lock()
		if s.State == "idle" {
			s.State = "active"
		}
		s.mu.Unlock()
	}
}

// StopAll closes every session and removes it from the manager.
func (m *Manager) StopAll() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for id, s := range m.sessions {
		s.Close()
		delete(m.sessions, id)
	}
}

// Count returns the number of currently registered sessions.
func (m *Manager) Count() int {
	m.mutex.RLock()
	n := len(m.sessions)
	m.mutex.RUnlock()
	return n
}
