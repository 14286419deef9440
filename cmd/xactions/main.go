// Command xactions runs a fleet of concurrent X/Twitter automation sessions.
//
// Startup sequence:
//  1. Load configuration (JSON file or defaults).
//  2. Load proxy list (optional).
//  3. Initialise metrics and logger.
//  4. Create the supervisor manager and instantiate all sessions concurrently.
//  5. Start the worker pool.
//  6. Start the scheduler, which fans the target operation out to every
//     session on a timer.
//  7. Start the keepalive prober so idle sessions stay authenticated.
//  8. Monitor metrics in a background goroutine.
//  9. Block until OS signals SIGINT or SIGTERM, then perform a clean shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xactions-go/core/config"
	"github.com/xactions-go/core/internal/xerrors"
	"github.com/xactions-go/core/jschallenge"
	"github.com/xactions-go/core/logger"
	"github.com/xactions-go/core/metrics"
	"github.com/xactions-go/core/proxy"
	"github.com/xactions-go/core/supervisor"
)

func main() {
	// ── Flags ──────────────────────────────────────────────────────────────
	configFile := flag.String("config", "", "Path to JSON config file (optional; uses defaults if omitted)")
	operation := flag.String("operation", "", "GraphQL operation to poll each session against (e.g. HomeTimeline); empty disables polling")
	screenName := flag.String("screen-name", "", "screen_name variable to pass when -operation expects one")
	tickInterval := flag.Duration("interval", 15*time.Second, "how often the scheduler dispatches -operation to every session")
	keepaliveInterval := flag.Duration("keepalive-interval", 60*time.Second, "how often idle sessions are probed to stay authenticated")
	maxQPS := flag.Float64("max-qps", 0, "fleet-wide cap on requests/second for -operation; 0 disables the cap")
	flag.Parse()

	// ── Logger ─────────────────────────────────────────────────────────────
	log := logger.New(logger.LevelInfo)
	log.Info("xactions starting up")

	// ── Configuration ──────────────────────────────────────────────────────
	var cfg *config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.LoadConfig(*configFile)
		if err != nil {
			log.Errorf("failed to load config from %q: %v", *configFile, err)
			os.Exit(1)
		}
		log.Infof("configuration loaded from %q", *configFile)
	} else {
		cfg = config.DefaultConfig()
		log.Info("using default configuration")
	}

	// ── Proxy manager ──────────────────────────────────────────────────────
	pm := &proxy.ProxyManager{}
	if cfg.ProxyFile != "" {
		if err := pm.LoadProxies(cfg.ProxyFile); err != nil {
			log.Errorf("failed to load proxies from %q: %v", cfg.ProxyFile, err)
			os.Exit(1)
		}
		log.Infof("loaded %d proxies from %q", pm.Count(), cfg.ProxyFile)
	} else {
		log.Info("no proxy file configured; sessions will connect directly")
	}

	// ── Metrics ────────────────────────────────────────────────────────────
	m := metrics.NewMetrics()

	// ── Challenge solver ───────────────────────────────────────────────────
	solver, err := jschallenge.NewOttoSolver("")
	if err != nil {
		log.Errorf("failed to start JS challenge solver: %v", err)
		os.Exit(1)
	}

	// ── Session manager ────────────────────────────────────────────────────
	sm := supervisor.NewManager(cfg)
	log.Infof("creating %d sessions…", cfg.NumberOfSessions)
	// Every session sources its cookies from the same environment/default
	// file fallback; a fleet authenticating as distinct accounts would
	// supply a per-id Options (e.g. one cookie file per session) instead.
	optsForID := func(id int) supervisor.Options { return supervisor.Options{} }
	if err := sm.CreateSessions(cfg.NumberOfSessions, pm, optsForID, solver, log, m); err != nil {
		log.Errorf("session creation failed: %v", err)
		os.Exit(1)
	}
	log.Infof("%d sessions created", sm.Count())

	// ── Worker pool ────────────────────────────────────────────────────────
	workerCount := cfg.NumberOfSessions
	if workerCount < 1 {
		workerCount = 1
	}
	pool := supervisor.NewPool(workerCount)
	pool.Log = log
	pool.Start()
	log.Infof("worker pool started with %d workers", workerCount)

	// ── Scheduler ──────────────────────────────────────────────────────────
	sc := supervisor.NewScheduler(sm, pool, *tickInterval).WithRateLimit(*maxQPS, cfg.NumberOfSessions)

	// jobFn is the operation each session performs on each scheduler tick.
	// Replace this closure with application-specific GraphQL/REST calls.
	jobFn := func(s *supervisor.Session) {
		if *operation == "" {
			return
		}
		m.IncrementTotal()

		variables := map[string]any{}
		if *screenName != "" {
			variables["screen_name"] = *screenName
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
		defer cancel()

		_, err := s.Client.GraphQL(ctx, *operation, variables, s.Jar.IsAuthenticated(), "")
		if err != nil {
			m.IncrementFailed()
			log.Debugf("session %d: %s failed: %v", s.ID, *operation, err)
			if xerrors.Of(err, xerrors.AccountLocked) || xerrors.Of(err, xerrors.AccountSuspended) {
				pm.MarkBad(s.Proxy)
				log.Errorf("session %d: proxy %q marked bad after account lock/suspend", s.ID, s.Proxy)
			}
			return
		}
		m.IncrementSuccess()
	}

	// ── Keepalive ──────────────────────────────────────────────────────────
	ka := supervisor.NewKeepalive(sm, *keepaliveInterval, "")
	ka.Start()

	sm.StartAll()
	sc.Start(jobFn)
	log.Info("scheduler started; sessions are now active")

	// ── Metrics monitor ────────────────────────────────────────────────────
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			total, success, failed := m.Snapshot()
			authFailures, rateLimited, schemaDrift := m.SnapshotAuth()
			rps := m.RequestsPerSecond()
			count := sm.Count()
			log.Infof("metrics – total: %d | success: %d | failed: %d | rps: %.1f | sessions: %d | probes: %d | auth failures: %d | rate limited: %d | schema drift: %d | proxies banned: %d/%d",
				total, success, failed, rps, count, ka.ProbeCount(), authFailures, rateLimited, schemaDrift, pm.BannedCount(), pm.Count())
		}
	}()

	// ── Graceful shutdown ──────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	fmt.Println() // newline after ^C
	log.Infof("received signal %s; shutting down", sig)

	// Stop dispatching new jobs and probes.
	sc.Stop()
	ka.Stop()

	// Wait for in-flight jobs to finish, then shut down workers.
	pool.Stop()

	// Close all sessions.
	sm.StopAll()

	total, success, failed := m.Snapshot()
	authFailures, rateLimited, schemaDrift := m.SnapshotAuth()
	log.Infof("final metrics – total: %d | success: %d | failed: %d | rps: %.1f | auth failures: %d | rate limited: %d | schema drift: %d",
		total, success, failed, m.RequestsPerSecond(), authFailures, rateLimited, schemaDrift)
	log.Info("xactions shut down cleanly")
}
