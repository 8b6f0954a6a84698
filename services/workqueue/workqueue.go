// Package workqueue runs background jobs after an HTTP response has been sent.
// Capacity is bounded, every job is tracked to completion and Shutdown waits for
// outstanding jobs so none are lost when the process stops.
package workqueue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/gammazero/workerpool"
)

var (
	ErrQueueFull   = errors.New("work queue is full")
	ErrQueueClosed = errors.New("work queue is shut down")
)

// Job is a unit of background work. The context is cancelled if shutdown gives up waiting.
type Job func(ctx context.Context) error

type Stats struct {
	Submitted int64
	Rejected  int64
	Completed int64
	Failed    int64
	Pending   int64
}

type WorkQueue struct {
	name     string
	capacity int64
	pool     *workerpool.WorkerPool
	ctx      context.Context
	cancel   context.CancelFunc
	onError  func(jobName string, err error)

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	pending   atomic.Int64
	submitted atomic.Int64
	rejected  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// New creates a queue with a fixed number of workers and at most capacity jobs admitted at once
func New(name string, workers, capacity int) *WorkQueue {
	if workers < 1 {
		workers = 1
	}
	if capacity < 1 {
		capacity = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkQueue{
		name:     name,
		capacity: int64(capacity),
		pool:     workerpool.New(workers),
		ctx:      ctx,
		cancel:   cancel,
		onError: func(jobName string, err error) {
			log.Printf("❌ Background job %s failed: %v", jobName, err)
		},
	}
}

// OnError replaces the failure hook. It must be set before the first Submit.
func (q *WorkQueue) OnError(hook func(jobName string, err error)) {
	q.onError = hook
}

// Submit admits a job without blocking. It fails when the queue is full or shut down.
func (q *WorkQueue) Submit(jobName string, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.rejected.Add(1)
		return fmt.Errorf("cannot submit %s to %s: %w", jobName, q.name, ErrQueueClosed)
	}
	if q.pending.Add(1) > q.capacity {
		q.pending.Add(-1)
		q.rejected.Add(1)
		return fmt.Errorf("cannot submit %s to %s: %w", jobName, q.name, ErrQueueFull)
	}

	q.submitted.Add(1)
	q.wg.Add(1)
	q.pool.Submit(func() {
		defer q.wg.Done()
		defer q.pending.Add(-1)
		q.run(jobName, job)
	})
	return nil
}

func (q *WorkQueue) run(jobName string, job Job) {
	defer func() {
		if r := recover(); r != nil {
			q.failed.Add(1)
			q.onError(jobName, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := job(q.ctx); err != nil {
		q.failed.Add(1)
		q.onError(jobName, err)
		return
	}
	q.completed.Add(1)
}

// Shutdown stops admitting jobs and waits for admitted ones. If ctx expires first,
// running jobs see their context cancelled and ctx's error is returned.
func (q *WorkQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	alreadyClosed := q.closed
	q.closed = true
	q.mu.Unlock()
	if alreadyClosed {
		return nil
	}

	log.Printf("🛑 Draining work queue %s (%d pending)", q.name, q.pending.Load())

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		q.pool.StopWait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		log.Printf("✅ Work queue %s drained", q.name)
		return nil
	case <-ctx.Done():
		q.cancel()
		log.Printf("⚠️ Work queue %s shutdown deadline reached with %d jobs pending", q.name, q.pending.Load())
		return ctx.Err()
	}
}

// Wait blocks until every admitted job has finished. Used by tests and by callers
// that need a synchronous barrier without shutting the queue down.
func (q *WorkQueue) Wait() {
	q.wg.Wait()
}

func (q *WorkQueue) Stats() Stats {
	return Stats{
		Submitted: q.submitted.Load(),
		Rejected:  q.rejected.Load(),
		Completed: q.completed.Load(),
		Failed:    q.failed.Load(),
		Pending:   q.pending.Load(),
	}
}
