package mutator

import (
	"context"
	"sync"
)

// job is one queued mutation.
type job struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

// jobQueue is a thread-safe FIFO queue of mutations.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type jobQueue struct {
	mu     sync.Mutex
	jobs   []job
	closed bool
	signal chan struct{} // buffered, size 1
}

func newJobQueue() *jobQueue {
	return &jobQueue{
		jobs:   make([]job, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// enqueue adds a job to the back of the queue.
// Returns false if the queue is closed.
func (q *jobQueue) enqueue(j job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.jobs = append(q.jobs, j)

	// Non-blocking: the buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// tryDequeue removes the front job without blocking.
func (q *jobQueue) tryDequeue() (job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return job{}, false
	}

	j := q.jobs[0]
	// Nil out the slot so the job's closures can be collected
	q.jobs[0] = job{}
	if len(q.jobs) == 1 {
		q.jobs = q.jobs[:0]
	} else {
		q.jobs = q.jobs[1:]
	}
	return j, true
}

// wait returns a channel that signals when jobs may be available.
func (q *jobQueue) wait() <-chan struct{} {
	return q.signal
}

func (q *jobQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// close stops accepting jobs and wakes the loop. Jobs still queued fail
// with ErrStopped.
func (q *jobQueue) close() []job {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.signal)

	rest := q.jobs
	q.jobs = nil
	return rest
}
