package kernel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

const (
	maxThreads = 32
	maxQueues  = 64
)

const (
	// WaitForever makes a blocking primitive wait until it is satisfied or the
	// owning thread is deleted.
	WaitForever time.Duration = math.MaxInt64

	// NoWait makes a blocking primitive return immediately.
	NoWait time.Duration = 0
)

// Reserved native priorities. Application priorities live above PriorityIdle.
const (
	PriorityInit uint8 = 0
	PriorityIdle uint8 = 1
)

var (
	ErrNotStarted      = errors.New("kernel not started")
	ErrAlreadyStarted  = errors.New("kernel already started")
	ErrStopped         = errors.New("kernel stopped")
	ErrTooManyThreads  = errors.New("too many threads")
	ErrTooManyQueues   = errors.New("too many queues")
	ErrInvalidCapacity = errors.New("invalid queue capacity")
	ErrNoEntry         = errors.New("thread has no entry point")
	ErrUnknownThread   = errors.New("unknown thread")
	ErrFixedThread     = errors.New("fixed-role thread cannot be deleted")
)

// ThreadID is the slot of a native thread in the kernel thread table.
type ThreadID uint8

// EventMask is a set of up to 32 independent event flags.
type EventMask uint32

// Config sizes the kernel tables. Zero values select the defaults.
type Config struct {
	MaxThreads int
	MaxQueues  int
}

// IdleHooks customize the idle thread.
//
// OnStart runs once on the idle thread; OnWake runs every time events are set
// on it.
type IdleHooks struct {
	OnStart func(ctx context.Context)
	OnWake  func(ctx context.Context, events EventMask)
}

// Props describe a native thread to create.
type Props struct {
	Name      string
	Priority  uint8
	StackSize uint32
	Entry     func(ctx context.Context, self *Thread)
}

// Kernel is the native substrate: a thread table, bounded queues, event flags
// and periodic waits, all backed by goroutines.
type Kernel struct {
	mu      sync.Mutex
	threads [maxThreads]*Thread
	live    int
	queues  int

	maxThreads int
	maxQueues  int

	started atomic.Bool
	stopped atomic.Bool

	epoch  time.Time
	ctx    context.Context
	cancel context.CancelFunc

	init *Thread
	idle *Thread
}

// New creates a kernel instance.
func New(cfg Config) *Kernel {
	k := &Kernel{maxThreads: cfg.MaxThreads, maxQueues: cfg.MaxQueues}
	if k.maxThreads <= 0 || k.maxThreads > maxThreads {
		k.maxThreads = maxThreads
	}
	if k.maxQueues <= 0 {
		k.maxQueues = maxQueues
	}
	return k
}

// Start brings the scheduler up.
//
// The calling goroutine becomes the init thread: the returned context carries
// its handle (see Running). The idle thread is created and runs hooks.
func (k *Kernel) Start(ctx context.Context, hooks IdleHooks) (context.Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !k.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}
	k.epoch = time.Now()
	k.ctx, k.cancel = context.WithCancel(ctx)

	boot, err := k.alloc(Props{Name: "tINIT", Priority: PriorityInit})
	if err != nil {
		k.cancel()
		return nil, fmt.Errorf("init thread: %w", err)
	}
	k.init = boot

	// The idle handle is published before its goroutine runs, so hooks can
	// compare against IdleThread.
	idle, err := k.alloc(Props{Name: "tIDLE", Priority: PriorityIdle})
	if err != nil {
		k.cancel()
		return nil, fmt.Errorf("idle thread: %w", err)
	}
	k.idle = idle
	go k.run(idle, idleLoop(hooks))

	return boot.ctx, nil
}

func idleLoop(hooks IdleHooks) func(ctx context.Context, self *Thread) {
	return func(ctx context.Context, self *Thread) {
		if hooks.OnStart != nil {
			hooks.OnStart(ctx)
		}
		for {
			events := self.WaitEvents(WaitForever)
			if ctx.Err() != nil {
				return
			}
			if hooks.OnWake != nil {
				hooks.OnWake(ctx, events)
			}
		}
	}
}

// Stop cancels every native thread and refuses further allocations.
func (k *Kernel) Stop() {
	if !k.started.Load() || !k.stopped.CompareAndSwap(false, true) {
		return
	}
	k.cancel()

	k.mu.Lock()
	for i := range k.threads {
		k.threads[i] = nil
	}
	k.live = 0
	k.mu.Unlock()
}

// Now returns the time elapsed since Start.
func (k *Kernel) Now() time.Duration {
	if !k.started.Load() {
		return 0
	}
	return time.Since(k.epoch)
}

// InitThread returns the native handle adopted by Start.
func (k *Kernel) InitThread() *Thread { return k.init }

// IdleThread returns the native idle thread.
func (k *Kernel) IdleThread() *Thread { return k.idle }

// ThreadCount returns the number of live native threads.
func (k *Kernel) ThreadCount() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.live
}

// QueueCount returns the number of live queues.
func (k *Kernel) QueueCount() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.queues
}

// NewThread creates a native thread and starts its entry point.
func (k *Kernel) NewThread(p Props) (*Thread, error) {
	if p.Entry == nil {
		return nil, ErrNoEntry
	}
	t, err := k.alloc(p)
	if err != nil {
		return nil, err
	}
	go k.run(t, p.Entry)
	return t, nil
}

func (k *Kernel) alloc(p Props) (*Thread, error) {
	if !k.started.Load() {
		return nil, ErrNotStarted
	}
	if k.stopped.Load() {
		return nil, ErrStopped
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.live >= k.maxThreads {
		return nil, ErrTooManyThreads
	}
	slot := -1
	for i := 0; i < k.maxThreads; i++ {
		if k.threads[i] == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil, ErrTooManyThreads
	}

	t := newThread(k, ThreadID(slot), p)
	k.threads[slot] = t
	k.live++
	return t, nil
}

func (k *Kernel) run(t *Thread, entry func(ctx context.Context, self *Thread)) {
	defer close(t.done)
	defer func() {
		if r := recover(); r != nil {
			triggerPanic(PanicInfo{ThreadID: t.id, Name: t.name, Value: r})
		}
	}()
	entry(t.ctx, t)
}

// DeleteThread removes a native thread from the table and cancels it.
//
// A thread blocked in a kernel wait returns from it; a thread running user
// code is not interrupted and observes the deletion at its next wait.
func (k *Kernel) DeleteThread(t *Thread) error {
	if t == nil {
		return ErrUnknownThread
	}
	if t == k.init || t == k.idle {
		return ErrFixedThread
	}

	k.mu.Lock()
	if int(t.id) >= len(k.threads) || k.threads[t.id] != t {
		k.mu.Unlock()
		return ErrUnknownThread
	}
	k.threads[t.id] = nil
	k.live--
	k.mu.Unlock()

	t.cancel()
	return nil
}

func (k *Kernel) reserveQueue() error {
	if !k.started.Load() {
		return ErrNotStarted
	}
	if k.stopped.Load() {
		return ErrStopped
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.queues >= k.maxQueues {
		return ErrTooManyQueues
	}
	k.queues++
	return nil
}

func (k *Kernel) releaseQueue() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.queues > 0 {
		k.queues--
	}
}
