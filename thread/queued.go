package thread

import (
	"context"
	"time"

	"motive/kernel"
)

// queued is the discipline shared by the message, value and callback
// threads: one bounded queue drained by the thread's loop.
type queued[T any] struct {
	base
	q *kernel.Queue[T]
}

// open allocates the queue and launches a loop that hands every dequeued
// item, or the zero T on timeout, to deliver.
func (t *queued[T]) open(c Config, size int, timeout time.Duration, startup func(), deliver func(T)) bool {
	if t.Started() || t.env.Kernel == nil {
		return false
	}
	q, err := kernel.NewQueue[T](t.env.Kernel, size)
	if err != nil {
		t.logf(c.nameOr(t.def), "error: start: queue: %v", err)
		return false
	}

	attach := func() { t.q = q }
	ok := t.launch(c, attach, func(ctx context.Context, nt *kernel.Thread) {
		if startup != nil {
			startup()
		}
		for {
			v, _ := q.Get(ctx, timeout)
			if ctx.Err() != nil || q.Deleted() {
				return
			}
			deliver(v)
		}
	})
	if !ok {
		q.Delete()
	}
	return ok
}

// put enqueues v, waiting up to timeout while the queue is full.
func (t *queued[T]) put(v T, timeout time.Duration) bool {
	t.mu.Lock()
	q := t.q
	t.mu.Unlock()
	if q == nil {
		return false
	}
	return q.Put(v, timeout) == kernel.PutOK
}

// close deassociates, releases the queue, then deletes the thread.
func (t *queued[T]) close() bool {
	return t.release(nil, func(*kernel.Thread) {
		if t.q != nil {
			t.q.Delete()
			t.q = nil
		}
	})
}

// Pending returns the number of queued items.
func (t *queued[T]) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.q == nil {
		return 0
	}
	return t.q.Len()
}
