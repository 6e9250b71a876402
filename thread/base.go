package thread

import (
	"context"
	"fmt"
	"sync"
	"time"

	"motive/hal"
	"motive/kernel"
)

// Env carries what every thread needs from bring-up.
type Env struct {
	Kernel   *kernel.Kernel
	Registry *Registry

	// Log may be nil.
	Log hal.Logger
}

// base holds the state shared by every variant and the default, refusing
// signalling operations.
type base struct {
	env  Env
	typ  Type
	def  string
	self Thread

	mu     sync.Mutex
	name   string
	prio   Priority
	native *kernel.Thread
}

func (b *base) init(env Env, typ Type, def string, self Thread) {
	b.env = env
	b.typ = typ
	b.def = def
	b.self = self
}

func (b *base) Type() Type { return b.typ }

func (b *base) Name() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.name == "" {
		return b.def
	}
	return b.name
}

func (b *base) Priority() Priority {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.native != nil {
		return Priority(b.native.Priority())
	}
	return b.prio
}

// SetPriority changes the priority of a started thread.
func (b *base) SetPriority(p Priority) bool {
	if !p.Valid() {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.native == nil || !b.native.SetPriority(uint8(p)) {
		return false
	}
	b.prio = p
	return true
}

func (b *base) SetEvent(Event) bool                      { return false }
func (b *base) SetMessage(Message, time.Duration) bool   { return false }
func (b *base) SetValue(Value, time.Duration) bool       { return false }
func (b *base) SetCallback(Callback, time.Duration) bool { return false }

// Started reports whether the thread owns a native thread.
func (b *base) Started() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.native != nil
}

func (b *base) nativeThread() *kernel.Thread {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.native
}

func (b *base) logf(name, format string, args ...any) {
	if b.env.Log == nil {
		return
	}
	b.env.Log.WriteLineString("thread " + name + ": " + fmt.Sprintf(format, args...))
}

// launch creates and registers the native thread running loop.
//
// The loop is held back until the registration is complete, so a thread can
// always resolve itself. attach, if set, runs with the lock held once the
// thread is registered. On failure nothing is left allocated.
func (b *base) launch(c Config, attach func(), loop func(ctx context.Context, nt *kernel.Thread)) bool {
	stack, _ := roundStack(c.StackSize)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.native != nil {
		return false
	}
	if b.env.Kernel == nil || b.env.Registry == nil {
		return false
	}

	ready := make(chan struct{})
	nt, err := b.env.Kernel.NewThread(kernel.Props{
		Name:      c.nameOr(b.def),
		Priority:  uint8(c.Priority),
		StackSize: stack,
		Entry: func(ctx context.Context, nt *kernel.Thread) {
			select {
			case <-ready:
			case <-ctx.Done():
				return
			}
			loop(ctx, nt)
		},
	})
	if err != nil {
		b.logf(c.nameOr(b.def), "error: start: %v", err)
		return false
	}
	if !b.env.Registry.Associate(nt, b.self) {
		_ = b.env.Kernel.DeleteThread(nt)
		b.logf(c.nameOr(b.def), "error: start: registry refused thread")
		return false
	}

	b.name = c.Name
	b.prio = c.Priority
	b.native = nt
	if attach != nil {
		attach()
	}
	close(ready)
	return true
}

// release deassociates and deletes the native thread. before runs first,
// between runs after deassociation, both with the lock held.
func (b *base) release(before, between func(nt *kernel.Thread)) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	nt := b.native
	if nt == nil {
		return false
	}
	if before != nil {
		before(nt)
	}
	b.env.Registry.Deassociate(nt, b.self)
	if between != nil {
		between(nt)
	}
	if err := b.env.Kernel.DeleteThread(nt); err != nil {
		b.logf(nt.Name(), "warn: delete: %v", err)
	}
	b.native = nil
	return true
}
