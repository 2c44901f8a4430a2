package dispatch

import (
	"context"
	"sync"
)

// Queue is an unbounded multi-producer, single-consumer FIFO. Push never
// blocks; Pop suspends until an item arrives or the context is cancelled.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	wake  chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{wake: make(chan struct{}, 1)}
}

// Push appends v and is safe to call from any goroutine.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()

	// Wake the consumer if it is parked. The buffered slot means a signal
	// is never lost between the consumer's emptiness check and its wait.
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Pop removes and returns the oldest item, blocking while the queue is
// empty. Cancellation wins over queued items: once ctx is done, Pop returns
// ctx.Err() even if the queue is non-empty.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, err
		}

		q.mu.Lock()
		if len(q.items) > 0 {
			v := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return v, nil
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
