// Package queue buffers finalized matches between the HTTP surface and the
// worker pool.
package queue

import (
	"context"
	"sync"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Queue provides non-blocking enqueue and blocking dequeue of match results.
type Queue interface {
	// Enqueue adds m without blocking. Returns ErrFull on backpressure and
	// ErrClosed after Close.
	Enqueue(ctx context.Context, m model.MatchResult) error

	// Next blocks until a match is available. It returns false when ctx is
	// done or the queue is closed and drained.
	Next(ctx context.Context) (model.MatchResult, bool)

	// Len returns the current number of queued matches.
	Len() int

	// Capacity returns the maximum number of queued matches.
	Capacity() int

	// Close stops accepting matches. Queued matches can still be drained.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	items    chan model.MatchResult
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan model.MatchResult, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, m model.MatchResult) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	select {
	case q.items <- m:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Next implements Queue.
func (q *InMemoryQueue) Next(ctx context.Context) (model.MatchResult, bool) {
	select {
	case m, ok := <-q.items:
		if !ok {
			return model.MatchResult{}, false
		}
		metrics.RecordQueueDequeue()
		q.observe()
		return m, true
	case <-ctx.Done():
		return model.MatchResult{}, false
	}
}

// Len implements Queue.
func (q *InMemoryQueue) Len() int {
	return len(q.items)
}

// Capacity implements Queue.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close implements Queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) observe() {
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
