package kernel

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Thread is a native thread handle.
//
// SetEvents and SetPriority may be called from any goroutine. WaitEvents,
// SetPeriod (other than disabling) and WaitPeriod belong to the thread itself.
type Thread struct {
	k     *Kernel
	id    ThreadID
	name  string
	stack uint32
	prio  atomic.Uint32

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	events EventMask
	wake   chan struct{}

	period atomic.Int64
	next   time.Time
}

func newThread(k *Kernel, id ThreadID, p Props) *Thread {
	t := &Thread{
		k:     k,
		id:    id,
		name:  p.Name,
		stack: p.StackSize,
		done:  make(chan struct{}),
		wake:  make(chan struct{}, 1),
	}
	t.prio.Store(uint32(p.Priority))
	t.ctx, t.cancel = context.WithCancel(withThread(k.ctx, t))
	return t
}

// ID returns the thread table slot.
func (t *Thread) ID() ThreadID { return t.id }

// Name returns the name given at creation.
func (t *Thread) Name() string { return t.name }

// StackSize returns the requested stack size in bytes.
func (t *Thread) StackSize() uint32 { return t.stack }

// Priority returns the current native priority.
func (t *Thread) Priority() uint8 { return uint8(t.prio.Load()) }

// Done is closed when the thread entry point has returned.
func (t *Thread) Done() <-chan struct{} { return t.done }

// Deleted reports whether the thread was deleted or the kernel stopped.
func (t *Thread) Deleted() bool {
	return t == nil || t.ctx.Err() != nil
}

// SetPriority changes the native priority.
func (t *Thread) SetPriority(p uint8) bool {
	if t.Deleted() {
		return false
	}
	t.prio.Store(uint32(p))
	return true
}

// SetEvents ORs events into the pending mask and wakes the thread.
// It never blocks and may be called from any context.
func (t *Thread) SetEvents(events EventMask) bool {
	if events == 0 || t.Deleted() {
		return false
	}

	t.mu.Lock()
	t.events |= events
	t.mu.Unlock()

	select {
	case t.wake <- struct{}{}:
	default:
	}
	return true
}

func (t *Thread) takeEvents() EventMask {
	t.mu.Lock()
	defer t.mu.Unlock()
	events := t.events
	t.events = 0
	return events
}

// WaitEvents blocks until at least one event is pending or timeout elapses.
//
// It clears and returns every pending event; the result is 0 on timeout or
// when the thread is deleted.
func (t *Thread) WaitEvents(timeout time.Duration) EventMask {
	if events := t.takeEvents(); events != 0 {
		return events
	}
	if timeout <= NoWait {
		return 0
	}

	var expired <-chan time.Time
	if timeout != WaitForever {
		tm := time.NewTimer(timeout)
		defer tm.Stop()
		expired = tm.C
	}

	for {
		select {
		case <-t.wake:
			if events := t.takeEvents(); events != 0 {
				return events
			}
		case <-expired:
			return t.takeEvents()
		case <-t.ctx.Done():
			return 0
		}
	}
}

// SetPeriod arms the periodic timer of the thread; 0 disables it.
//
// Arming sets the phase origin to now: the first WaitPeriod returns one period
// later.
func (t *Thread) SetPeriod(period time.Duration) bool {
	if period < 0 || t == nil {
		return false
	}
	t.mu.Lock()
	t.period.Store(int64(period))
	t.next = time.Now()
	t.mu.Unlock()
	return true
}

// Period returns the armed period, 0 when disabled.
func (t *Thread) Period() time.Duration {
	return time.Duration(t.period.Load())
}

// WaitPeriod blocks until the next absolute period boundary.
//
// Deadlines advance by exactly one period per call, so lateness in one cycle
// does not shift later ones. It returns false when the period is disabled or
// the thread is deleted.
func (t *Thread) WaitPeriod() bool {
	t.mu.Lock()
	period := time.Duration(t.period.Load())
	if period <= 0 {
		t.mu.Unlock()
		return false
	}
	t.next = t.next.Add(period)
	deadline := t.next
	t.mu.Unlock()

	wait := time.Until(deadline)
	if wait > 0 {
		tm := time.NewTimer(wait)
		defer tm.Stop()
		select {
		case <-tm.C:
		case <-t.ctx.Done():
			return false
		}
	}
	if t.ctx.Err() != nil {
		return false
	}
	return t.period.Load() > 0
}
