// Package supervisor runs many independent sessions concurrently: each
// Session owns its own xclient.Client (and therefore its own Cookie Jar,
// Token Manager, and Rate-Limit Record), a worker pool bounds the number
// of in-flight job goroutines, and a Scheduler dispatches a caller-supplied
// job to every session on a timer.
//
// Adapted from the teacher's session.Session/session.SessionManager,
// worker.WorkerPool, and scheduler.Scheduler trio: the architecture (one
// HTTP stack per session, parallel construction, a bounded goroutine pool
// draining a shared job queue, a control loop fanning work out on a timer)
// carries over unchanged; what each session *holds* and what a job
// *does* is rebuilt around xclient.Client instead of a bare *http.Client.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xactions-go/core/auth"
	"github.com/xactions-go/core/config"
	"github.com/xactions-go/core/guest"
	"github.com/xactions-go/core/jar"
	"github.com/xactions-go/core/jschallenge"
	"github.com/xactions-go/core/logger"
	"github.com/xactions-go/core/login"
	"github.com/xactions-go/core/payload"
	"github.com/xactions-go/core/ratelimit"
	"github.com/xactions-go/core/transport"
	"github.com/xactions-go/core/xclient"
)

// Session is one independent automation unit: its own Chrome-fingerprinted
// transport, Cookie Jar, Token Manager, and Rate-Limit Record, so sessions
// never interfere with one another even when thousands run concurrently.
type Session struct {
	// ID uniquely identifies the session within the supervisor.
	ID int

	// Client is the HTTP Client component this session sends every
	// GraphQL/REST call through.
	Client *xclient.Client

	// Jar is the session's Cookie Jar. It is also Client.Jar; exposed here
	// for convenience (Save/IsAuthenticated/ViewerID).
	Jar *jar.Jar

	// Proxy is the proxy URL this session dials through, or empty for a
	// direct connection. Stored for introspection/logging only; the proxy
	// is baked into Client's transport at construction time.
	Proxy string

	// State is the session's lifecycle state: "idle", "active", "closed".
	State string

	CreatedAt    time.Time
	LastActivity time.Time

	login *login.Manager
	mu    sync.RWMutex // guards State, LastActivity
}

// New constructs a Session configured according to cfg, sourcing its
// initial cookies from opts per ResolveJar's precedence chain. proxyURL
// may be empty for a direct connection. solver may be nil if the session
// never calls Login against a flow requiring LoginJsInstrumentationSubtask.
// sink may be nil to disable auth-failure/rate-limit/schema-drift counting.
func New(id int, proxyURL string, cfg *config.Config, opts Options, solver jschallenge.Solver, log xclient.Logger, sink xclient.MetricsSink) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("supervisor: session %d: config must not be nil", id)
	}

	httpClient, err := transport.New(transport.Config{
		Proxy:   proxyURL,
		Timeout: cfg.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("supervisor: session %d: build transport: %w", id, err)
	}

	j, err := ResolveJar(opts)
	if err != nil {
		return nil, fmt.Errorf("supervisor: session %d: resolve cookies: %w", id, err)
	}

	guestMgr := guest.New(httpClient, auth.Bearer, 0)
	authMgr := auth.New(guestMgr)
	if ct0 := j.Value("ct0"); ct0 != "" {
		authMgr.SetCSRF(ct0)
	}

	client := xclient.New(httpClient, j, authMgr, ratelimit.New())
	if root, ok := log.(*logger.Logger); ok {
		client.Log = root.WithSession(id)
	} else {
		client.Log = log
	}
	client.Metrics = sink
	client.Schemas = payload.NewRegistry()
	if cfg.MaxRetries > 0 {
		client.MaxRetries = cfg.MaxRetries
	}
	if cfg.RequestTimeout > 0 {
		client.DefaultTimeout = cfg.RequestTimeout
	}

	now := time.Now()
	return &Session{
		ID:           id,
		Client:       client,
		Jar:          j,
		Proxy:        proxyURL,
		State:        "idle",
		CreatedAt:    now,
		LastActivity: now,
		login:        login.New(client, j, solver),
	}, nil
}

// Login drives the Credential Login flow against this session's client and
// jar. On success the session's Jar holds a fresh auth_token/ct0 pair.
func (s *Session) Login(ctx context.Context, guestToken string, creds login.Credentials) error {
	return s.login.Login(ctx, guestToken, creds)
}

// setState transitions the session to the given state. Safe for concurrent
// use.
func (s *Session) setState(state string) {
	s.mu.Lock()
	s.State = state
	s.mu.Unlock()
}

func (s *Session) getState() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.State
}

// touch records the current time as the session's last-activity instant.
func (s *Session) touch() {
	s.mu.Lock()
	s.LastActivity = time.Now()
	s.mu.Unlock()
}

// Close transitions the session to "closed". The underlying transport's
// idle connections are reclaimed by the process's normal connection-pool
// eviction; xclient.Client holds no resources of its own to release.
func (s *Session) Close() {
	s.setState("closed")
}
