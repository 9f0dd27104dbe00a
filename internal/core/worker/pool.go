// Package worker implements the bounded LIFO job pool snapshot creation
// uses to write blobs off the directory-scan goroutine without letting an
// unbounded backlog build up in memory. Chunks, tree and snapshot objects
// are not written through the pool; their callers write them directly.
package worker

import (
	"fmt"
	"strings"
	"sync"
)

const (
	// MaxThreads caps the number of goroutines running jobs concurrently.
	MaxThreads = 6
	// MaxJobs caps the number of jobs waiting in the queue; Submit blocks
	// once the queue is full instead of growing it further.
	MaxJobs = 50
)

// Job is a unit of work submitted to the pool. A non-nil error is recorded
// and surfaced to the next Wait call; it does not stop other jobs.
type Job func() error

// Pool is a fixed-size worker pool with a LIFO job queue and blocking
// backpressure on Submit once the queue reaches its capacity.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	jobs    []Job
	running int
	errs    []error

	maxThreads int
	maxJobs    int
}

// New returns a Pool with the default MaxThreads/MaxJobs limits.
func New() *Pool {
	return NewSized(MaxThreads, MaxJobs)
}

// NewSized returns a Pool with custom thread and queue limits, for tests
// and for configuration overrides.
func NewSized(maxThreads, maxJobs int) *Pool {
	p := &Pool{maxThreads: maxThreads, maxJobs: maxJobs}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Submit enqueues job, blocking while the queue is at capacity. It starts a
// new worker goroutine if fewer than maxThreads are currently running.
func (p *Pool) Submit(job Job) {
	p.mu.Lock()

	for len(p.jobs) >= p.maxJobs {
		p.cond.Wait()
	}

	// LIFO: push to the back, workers pop from the back too.
	p.jobs = append(p.jobs, job)

	spawn := p.running < p.maxThreads
	if spawn {
		p.running++
	}

	p.mu.Unlock()

	if spawn {
		go p.runWorker()
	}
}

// runWorker pops jobs off the queue until it's empty, then exits. A fresh
// goroutine is spawned by the next Submit that finds running < maxThreads.
func (p *Pool) runWorker() {
	for {
		job, ok := p.nextJob()
		if !ok {
			return
		}

		if err := job(); err != nil {
			p.mu.Lock()
			p.errs = append(p.errs, err)
			p.mu.Unlock()
		}
	}
}

// nextJob pops the most recently submitted job, if any, and wakes any
// Submit callers blocked on queue capacity. When the queue is empty it
// also retires the calling worker, decrementing running in the same
// critical section that observed the empty queue. That's required: if
// the decrement happened in a later, separate lock/unlock (as in
// runWorker before), a Submit could run in the gap, see running still
// counting the about-to-exit worker, and conclude no new worker needs
// spawning for the job it just queued — leaving that job stuck in the
// queue with nothing left to drain it.
func (p *Pool) nextJob() (Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.jobs) == 0 {
		p.running--
		p.cond.Broadcast()
		return nil, false
	}

	idx := len(p.jobs) - 1
	job := p.jobs[idx]
	p.jobs[idx] = nil
	p.jobs = p.jobs[:idx]

	p.cond.Broadcast()

	return job, true
}

// Wait blocks until every submitted job has run and every worker has
// exited, then returns an aggregated error for any jobs that failed, or nil
// if they all succeeded. Wait is not safe to call concurrently with itself.
func (p *Pool) Wait() error {
	p.mu.Lock()
	for p.running > 0 || len(p.jobs) > 0 {
		p.cond.Wait()
	}
	errs := p.errs
	p.errs = nil
	p.mu.Unlock()

	if len(errs) == 0 {
		return nil
	}

	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Errorf("%d worker job(s) failed: %s", len(errs), strings.Join(msgs, "; "))
}
