package metrics_test

import (
	"sync"
	"testing"

	"github.com/xactions-go/core/metrics"
)

func TestIncrements(t *testing.T) {
	m := metrics.NewMetrics()
	m.IncrementTotal()
	m.IncrementTotal()
	m.IncrementSuccess()
	m.IncrementFailed()

	total, success, failed := m.Snapshot()
	if total != 2 {
		t.Errorf("TotalRequests: got %d, want 2", total)
	}
	if success != 1 {
		t.Errorf("Success: got %d, want 1", success)
	}
	if failed != 1 {
		t.Errorf("Failed: got %d, want 1", failed)
	}
}

func TestAuthRateSchemaCounters(t *testing.T) {
	m := metrics.NewMetrics()
	m.IncrementAuthFailures()
	m.IncrementAuthFailures()
	m.IncrementRateLimited()
	m.IncrementSchemaDrift()
	m.IncrementSchemaDrift()
	m.IncrementSchemaDrift()

	authFailures, rateLimited, schemaDrift := m.SnapshotAuth()
	if authFailures != 2 {
		t.Errorf("AuthFailures: got %d, want 2", authFailures)
	}
	if rateLimited != 1 {
		t.Errorf("RateLimited: got %d, want 1", rateLimited)
	}
	if schemaDrift != 3 {
		t.Errorf("SchemaDrift: got %d, want 3", schemaDrift)
	}

	// Snapshot's original three-counter signature must stay unaffected by
	// the auth/rate-limit/drift counters.
	total, success, failed := m.Snapshot()
	if total != 0 || success != 0 || failed != 0 {
		t.Errorf("Snapshot: expected all zero, got total=%d success=%d failed=%d", total, success, failed)
	}
}

func TestConcurrentAuthCounterIncrements(t *testing.T) {
	m := metrics.NewMetrics()
	const goroutines = 1000
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			m.IncrementAuthFailures()
		}()
	}
	wg.Wait()

	authFailures, _, _ := m.SnapshotAuth()
	if authFailures != goroutines {
		t.Errorf("AuthFailures: got %d, want %d", authFailures, goroutines)
	}
}

func TestConcurrentIncrements(t *testing.T) {
	m := metrics.NewMetrics()
	const goroutines = 1000
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			m.IncrementTotal()
			m.IncrementSuccess()
		}()
	}
	wg.Wait()

	total, success, _ := m.Snapshot()
	if total != goroutines {
		t.Errorf("TotalRequests: got %d, want %d", total, goroutines)
	}
	if success != goroutines {
		t.Errorf("Success: got %d, want %d", success, goroutines)
	}
}
