package supervisor

import (
	"sync"

	"github.com/xactions-go/core/xclient"
)

// Pool is a bounded goroutine pool for executing arbitrary jobs with
// controlled concurrency, used to bound how many sessions' scheduled jobs
// run at once regardless of fleet size. Adapted from the teacher's
// worker.WorkerPool: the fixed-goroutine/shared-queue design carries over
// unchanged, but each job now runs under a recover so one session's panic
// (a nil pointer from a malformed GraphQL response, say) can't permanently
// shrink the pool's worker count.
type Pool struct {
	workerCount int
	jobQueue    chan func()
	wg          sync.WaitGroup

	// Log receives a diagnostic when a submitted job panics. May be nil.
	Log xclient.Logger
}

// NewPool creates a Pool with workerCount goroutines ready to receive jobs.
// The queue buffers up to workerCount*4 pending jobs before Submit starts
// blocking.
func NewPool(workerCount int) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &Pool{
		workerCount: workerCount,
		jobQueue:    make(chan func(), workerCount*4),
	}
}

// Start launches the worker goroutines. Call exactly once before submitting
// jobs.
func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobQueue {
				p.runJob(job)
			}
		}()
	}
}

// runJob executes job, recovering a panic so a single bad job (malformed
// JSON triggering a nil-pointer dereference, say) doesn't take its worker
// goroutine down with it.
func (p *Pool) runJob(job func()) {
	defer func() {
		if r := recover(); r != nil {
			if p.Log != nil {
				p.Log.Errorf("supervisor: pool worker recovered from panic: %v", r)
			}
		}
	}()
	job()
}

// Submit enqueues job for execution by one of the pool's goroutines. It
// blocks if the internal buffer is full. Submit must not be called after
// Stop.
func (p *Pool) Submit(job func()) {
	p.jobQueue <- job
}

// Stop signals the pool to finish all queued jobs and waits for every
// worker goroutine to exit. No new jobs may be submitted after Stop.
func (p *Pool) Stop() {
	close(p.jobQueue)
	p.wg.Wait()
}
