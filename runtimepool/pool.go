// Package runtimepool is the async runtime wrapper: it owns a worker pool,
// exposes a synchronous submit-and-await that blocks the calling (foreign)
// thread, and a deadline-bounded shutdown.
package runtimepool

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jrobhoward/rustbridge/rberr"
)

// Job is a unit of work dispatched through the pool. It returns response
// bytes or a taxonomy error; a panic inside Job is caught by the pool and
// converted to Internal(11), never escaping to the worker goroutine.
type Job func() ([]byte, *rberr.Error)

type task struct {
	job    Job
	result chan jobResult
}

type jobResult struct {
	data []byte
	err  *rberr.Error
}

// Pool is the runtime wrapper owned by exactly one PluginHandle.
type Pool struct {
	tasks  chan task
	wg     sync.WaitGroup
	logger *slog.Logger
}

// New starts a pool of the given size. A non-positive size is invalid
// input from the handle's perspective (config.WorkerCount already resolves
// the "one per hardware thread" default), so New does not apply its own
// default.
func New(workers int, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		tasks:  make(chan task, workers*4),
		logger: logger,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		t.result <- invoke(t.job)
	}
}

// invoke runs job under a panic guard. This is the runtime's own guard,
// independent of the FFI surface's guard: a handler panicking on the pool
// must not take the whole worker down with it, so the pool recovers
// locally and converts the panic into Internal(11), keeping the worker
// available for later tasks.
func invoke(job Job) (res jobResult) {
	defer func() {
		if r := recover(); r != nil {
			res = jobResult{nil, rberr.FromRecover(r)}
		}
	}()
	data, err := job()
	return jobResult{data, err}
}

// SubmitAndAwait blocks the calling thread until job completes or, when
// deadline is non-zero, until the deadline elapses first. A deadline of
// zero means no timeout — used for ordinary request dispatch, where the
// caller is blocked on return with no deadline of the core's own making.
// A positive deadline is used for the on_stop hook during shutdown. On
// timeout the in-flight job is left to finish on the pool; it is never
// cancelled.
func (p *Pool) SubmitAndAwait(deadline time.Duration, job Job) ([]byte, *rberr.Error) {
	t := task{job: job, result: make(chan jobResult, 1)}
	p.tasks <- t

	if deadline <= 0 {
		res := <-t.result
		return res.data, res.err
	}

	timer := time.NewTimer(deadline)
	defer timer.Stop()
	select {
	case res := <-t.result:
		return res.data, res.err
	case <-timer.C:
		return nil, rberr.New(rberr.CodeTimeout, "handler deadline exceeded")
	}
}

// Shutdown stops accepting new work and waits up to deadline for
// outstanding tasks to drain. Stragglers are logged but never block the
// transition to Stopped. A deadline of zero waits forever.
func (p *Pool) Shutdown(deadline time.Duration) {
	close(p.tasks)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	if deadline <= 0 {
		<-done
		return
	}

	select {
	case <-done:
	case <-time.After(deadline):
		p.logger.Warn("runtime pool shutdown deadline exceeded; stragglers left running")
	}
}
