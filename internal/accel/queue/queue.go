// Package queue provides the in-order work queue behind backend streams.
package queue

import (
	"log"
	"sync"

	"github.com/sokinpui/stereo-disparity/internal/accel"
)

// job is one unit of queued work.
type job struct {
	name string
	run  func() error
}

// Queue executes enqueued jobs in order on a single worker goroutine.
type Queue struct {
	jobs    chan job
	done    chan struct{}
	pending sync.WaitGroup

	mu     sync.Mutex
	closed bool

	errMu sync.Mutex
	err   error
}

// New starts a queue that buffers up to depth jobs before Enqueue blocks.
func New(depth int) *Queue {
	q := &Queue{
		jobs: make(chan job, depth),
		done: make(chan struct{}),
	}
	go q.worker()
	return q
}

// worker runs jobs until the queue is closed. The first failure is kept and
// reported by the next Wait.
func (q *Queue) worker() {
	defer close(q.done)
	for j := range q.jobs {
		if err := j.run(); err != nil {
			log.Printf("queue: %s failed: %v", j.name, err)
			q.errMu.Lock()
			if q.err == nil {
				q.err = err
			}
			q.errMu.Unlock()
		}
		q.pending.Done()
	}
}

// Enqueue schedules run and returns without waiting for it.
func (q *Queue) Enqueue(name string, run func() error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return accel.ErrClosed
	}
	q.pending.Add(1)
	q.jobs <- job{name: name, run: run}
	return nil
}

// Wait blocks until every enqueued job has finished and returns the first
// error since the previous Wait.
func (q *Queue) Wait() error {
	q.pending.Wait()
	q.errMu.Lock()
	defer q.errMu.Unlock()
	err := q.err
	q.err = nil
	return err
}

// Close drains outstanding work and stops the worker.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return accel.ErrClosed
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	<-q.done
	return nil
}
