package thread

import (
	"context"
	"sync/atomic"

	"motive/kernel"
)

// InitThread represents the goroutine that brought the kernel up. It owns no
// native thread of its own: Synch adopts the one the kernel created for it.
type InitThread struct {
	base
	terminated atomic.Bool
}

// NewInitThread returns the init thread of env. Construct it once per kernel.
func NewInitThread(env Env) *InitThread {
	t := &InitThread{}
	t.init(env, Init, "tINIT", t)
	t.prio = SchedInit
	return t
}

// Synch registers the native init thread. ctx must be the context returned by
// kernel.Start, or one derived from it.
func (t *InitThread) Synch(ctx context.Context) bool {
	return t.adopt(ctx, t.env.Kernel.InitThread)
}

// Run is a no-op: the init thread is already running its caller's code.
func (t *InitThread) Run() {}

// Terminate marks the init thread as done with bring-up.
func (t *InitThread) Terminate() { t.terminated.Store(true) }

// IsTerminated reports whether Terminate was called.
func (t *InitThread) IsTerminated() bool { return t.terminated.Load() }

func (t *InitThread) SetPriority(Priority) bool { return false }

// IdleThread represents the kernel idle thread. It accepts events only.
type IdleThread struct {
	base
}

// NewIdleThread returns the idle thread of env. Construct it once per kernel.
func NewIdleThread(env Env) *IdleThread {
	t := &IdleThread{}
	t.init(env, Idle, "tIDLE", t)
	t.prio = SchedIdle
	return t
}

// Synch registers the native idle thread. It must run on the idle thread,
// typically from kernel.IdleHooks.OnStart.
func (t *IdleThread) Synch(ctx context.Context) bool {
	return t.adopt(ctx, t.env.Kernel.IdleThread)
}

// Run is a no-op: idle behavior belongs to the kernel hooks.
func (t *IdleThread) Run() {}

func (t *IdleThread) SetPriority(Priority) bool { return false }

// SetEvent wakes the idle thread.
func (t *IdleThread) SetEvent(e Event) bool {
	nt := t.nativeThread()
	return nt != nil && nt.SetEvents(e)
}

// Handle returns an event-only handle to the idle thread.
func (t *IdleThread) Handle() EventHandle { return EventHandle{t: t} }

// adopt registers the running native thread if it is the one want returns.
func (b *base) adopt(ctx context.Context, want func() *kernel.Thread) bool {
	if b.env.Kernel == nil || b.env.Registry == nil {
		return false
	}
	nt := kernel.Running(ctx)
	if nt == nil || nt != want() {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.native != nil {
		return false
	}
	if !b.env.Registry.Associate(nt, b.self) {
		return false
	}
	b.native = nt
	return true
}
