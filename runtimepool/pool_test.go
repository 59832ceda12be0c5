package runtimepool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrobhoward/rustbridge/rberr"
)

func TestSubmitAndAwaitReturnsResult(t *testing.T) {
	p := New(2, nil)
	defer p.Shutdown(0)

	out, err := p.SubmitAndAwait(0, func() ([]byte, *rberr.Error) {
		return []byte("ok"), nil
	})
	require.Nil(t, err)
	assert.Equal(t, "ok", string(out))
}

func TestSubmitAndAwaitPropagatesJobError(t *testing.T) {
	p := New(1, nil)
	defer p.Shutdown(0)

	_, err := p.SubmitAndAwait(0, func() ([]byte, *rberr.Error) {
		return nil, rberr.New(rberr.CodeHandlerError, "domain failure")
	})
	require.NotNil(t, err)
	assert.Equal(t, rberr.CodeHandlerError, err.Code)
}

func TestPanicConvertsToInternal(t *testing.T) {
	p := New(1, nil)
	defer p.Shutdown(0)

	_, err := p.SubmitAndAwait(0, func() ([]byte, *rberr.Error) {
		panic("boom")
	})
	require.NotNil(t, err)
	assert.Equal(t, rberr.CodeInternal, err.Code)
}

func TestWorkerSurvivesPanicAndServesNextTask(t *testing.T) {
	p := New(1, nil)
	defer p.Shutdown(0)

	_, _ = p.SubmitAndAwait(0, func() ([]byte, *rberr.Error) {
		panic("first task dies")
	})

	out, err := p.SubmitAndAwait(0, func() ([]byte, *rberr.Error) {
		return []byte("still alive"), nil
	})
	require.Nil(t, err)
	assert.Equal(t, "still alive", string(out))
}

func TestSubmitAndAwaitTimesOutWithoutCancelling(t *testing.T) {
	p := New(1, nil)
	defer p.Shutdown(200 * time.Millisecond)

	var finished atomic.Bool
	started := make(chan struct{})
	go func() {
		p.SubmitAndAwait(0, func() ([]byte, *rberr.Error) {
			close(started)
			time.Sleep(50 * time.Millisecond)
			finished.Store(true)
			return nil, nil
		})
	}()
	<-started

	var queuedRan atomic.Bool
	_, err := p.SubmitAndAwait(10*time.Millisecond, func() ([]byte, *rberr.Error) {
		queuedRan.Store(true)
		return []byte("queued behind the slow task"), nil
	})
	require.NotNil(t, err)
	assert.Equal(t, rberr.CodeTimeout, err.Code)

	// The timed-out job is not cancelled: it still runs once the slow
	// task frees the worker.
	assert.Eventually(t, queuedRan.Load, time.Second, 5*time.Millisecond)
}

func TestShutdownDrainsOutstandingWork(t *testing.T) {
	p := New(3, nil)

	var completed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.SubmitAndAwait(0, func() ([]byte, *rberr.Error) {
				time.Sleep(10 * time.Millisecond)
				completed.Add(1)
				return nil, nil
			})
		}()
	}
	// Submission is not safe to race with Shutdown; wait for every caller
	// to finish its own round trip before draining the pool.
	wg.Wait()
	p.Shutdown(time.Second)
	assert.Equal(t, int32(5), completed.Load())
}
