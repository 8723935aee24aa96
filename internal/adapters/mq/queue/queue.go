// Package queue holds attempts waiting for evaluation.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/formcheck/internal/domain/model"
	"github.com/okian/formcheck/pkg/metrics"
)

const (
	defaultQueueCapacity = 10000
)

// Attempt is the payload type flowing through the queue.
type Attempt = model.Attempt

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an attempt to the queue.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, a Attempt) bool

	// Dequeue returns a channel that receives attempts as they become available.
	// The channel is closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Attempt

	// Len returns the current number of queued attempts.
	Len(ctx context.Context) int

	// Close stops accepting attempts and closes dequeue channels once drained.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool

	// Drain returns every attempt no consumer will receive: those still
	// buffered and those a cancelled Dequeue was holding. Call it only after
	// cancelling every Dequeue context.
	Drain() []Attempt
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	attempts chan Attempt
	capacity int
	mu       sync.RWMutex
	closed   bool

	forwarders sync.WaitGroup
	dropped    []Attempt // guarded by mu
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.attempts = make(chan Attempt, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)

	return q
}

// Enqueue adds an attempt to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, a Attempt) bool { //nolint:gocritic // hugeParam: Attempt is passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordQueueLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	}

	select {
	case q.attempts <- a:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.attempts))
		return true
	default:
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that receives attempts as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Attempt {
	out := make(chan Attempt)
	q.forwarders.Add(1)
	go func() {
		defer q.forwarders.Done()
		defer close(out)
		for {
			var a Attempt
			select {
			case <-ctx.Done():
				return
			case next, ok := <-q.attempts:
				if !ok {
					return
				}
				a = next
			}
			select {
			case out <- a:
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.attempts))
			case <-ctx.Done():
				q.mu.Lock()
				q.dropped = append(q.dropped, a)
				q.mu.Unlock()
				return
			}
		}
	}()
	return out
}

// Drain waits for cancelled Dequeue goroutines to exit and returns the
// attempts they held followed by the ones left in the buffer.
func (q *InMemoryQueue) Drain() []Attempt {
	q.forwarders.Wait()

	q.mu.Lock()
	out := q.dropped
	q.dropped = nil
	q.mu.Unlock()

	for {
		select {
		case a, ok := <-q.attempts:
			if !ok {
				metrics.UpdateQueueSize(0)
				return out
			}
			out = append(out, a)
		default:
			metrics.UpdateQueueSize(0)
			return out
		}
	}
}

// Len returns the current number of queued attempts.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.attempts)
	metrics.UpdateQueueSize(size)
	return size
}

// Close stops accepting attempts. Already queued attempts are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.attempts)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
