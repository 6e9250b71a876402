package kernel

import (
	"context"
	"sync"
	"time"
)

// PutResult describes the outcome of a queue put.
type PutResult uint8

const (
	PutOK PutResult = iota
	PutFull
	PutTimeout
	PutDeleted
)

func (r PutResult) String() string {
	switch r {
	case PutOK:
		return "ok"
	case PutFull:
		return "queue full"
	case PutTimeout:
		return "timeout"
	case PutDeleted:
		return "queue deleted"
	default:
		return "unknown"
	}
}

// Queue is a bounded FIFO with many producers and a single consumer.
type Queue[T any] struct {
	k        *Kernel
	ch       chan T
	deleted  chan struct{}
	once     sync.Once
	capacity int
}

// NewQueue allocates a queue holding up to capacity items.
func NewQueue[T any](k *Kernel, capacity int) (*Queue[T], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if err := k.reserveQueue(); err != nil {
		return nil, err
	}
	return &Queue[T]{
		k:        k,
		ch:       make(chan T, capacity),
		deleted:  make(chan struct{}),
		capacity: capacity,
	}, nil
}

// Capacity returns the maximum number of queued items.
func (q *Queue[T]) Capacity() int { return q.capacity }

// Len returns the number of queued items.
func (q *Queue[T]) Len() int { return len(q.ch) }

// Put enqueues v, waiting up to timeout for space.
//
// With NoWait a full queue fails immediately with PutFull.
func (q *Queue[T]) Put(v T, timeout time.Duration) PutResult {
	if q == nil {
		return PutDeleted
	}
	select {
	case <-q.deleted:
		return PutDeleted
	default:
	}

	select {
	case q.ch <- v:
		return PutOK
	default:
	}
	if timeout <= NoWait {
		return PutFull
	}

	var expired <-chan time.Time
	if timeout != WaitForever {
		tm := time.NewTimer(timeout)
		defer tm.Stop()
		expired = tm.C
	}

	select {
	case q.ch <- v:
		return PutOK
	case <-expired:
		return PutTimeout
	case <-q.deleted:
		return PutDeleted
	}
}

// Get dequeues the oldest item, waiting up to timeout.
//
// On timeout, deletion or cancellation of ctx it returns the zero value and
// false.
func (q *Queue[T]) Get(ctx context.Context, timeout time.Duration) (T, bool) {
	var zero T
	if q == nil {
		return zero, false
	}

	select {
	case v := <-q.ch:
		return v, true
	default:
	}
	if timeout <= NoWait {
		return zero, false
	}

	var expired <-chan time.Time
	if timeout != WaitForever {
		tm := time.NewTimer(timeout)
		defer tm.Stop()
		expired = tm.C
	}

	select {
	case v := <-q.ch:
		return v, true
	case <-expired:
		return zero, false
	case <-q.deleted:
		return zero, false
	case <-ctx.Done():
		return zero, false
	}
}

// Deleted reports whether Delete was called.
func (q *Queue[T]) Deleted() bool {
	if q == nil {
		return true
	}
	select {
	case <-q.deleted:
		return true
	default:
		return false
	}
}

// Delete releases the queue. Blocked producers and the consumer return.
func (q *Queue[T]) Delete() {
	if q == nil {
		return
	}
	q.once.Do(func() {
		close(q.deleted)
		q.k.releaseQueue()
	})
}
