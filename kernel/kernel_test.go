package kernel

import (
	"context"
	"errors"
	"testing"
	"time"
)

func startKernel(t *testing.T, cfg Config) (*Kernel, context.Context) {
	t.Helper()
	k := New(cfg)
	ctx, err := k.Start(context.Background(), IdleHooks{})
	if err != nil {
		t.Fatalf("Start() err = %v, want nil", err)
	}
	t.Cleanup(k.Stop)
	return k, ctx
}

func TestStartAdoptsInitThread(t *testing.T) {
	k, ctx := startKernel(t, Config{})

	self := Running(ctx)
	if self == nil {
		t.Fatal("Running() = nil, want init thread")
	}
	if self != k.InitThread() {
		t.Fatal("Running() is not the init thread")
	}
	if self.Priority() != PriorityInit {
		t.Fatalf("init Priority() = %d, want %d", self.Priority(), PriorityInit)
	}
	if k.IdleThread() == nil || k.IdleThread().Priority() != PriorityIdle {
		t.Fatal("expected idle thread at PriorityIdle")
	}
	if got := k.ThreadCount(); got != 2 {
		t.Fatalf("ThreadCount() = %d, want 2", got)
	}

	if _, err := k.Start(context.Background(), IdleHooks{}); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start() err = %v, want ErrAlreadyStarted", err)
	}
}

func TestRunningForeignContext(t *testing.T) {
	if Running(context.Background()) != nil {
		t.Fatal("Running(background) != nil")
	}
}

func TestNewThreadBeforeStart(t *testing.T) {
	k := New(Config{})
	_, err := k.NewThread(Props{Name: "x", Entry: func(context.Context, *Thread) {}})
	if !errors.Is(err, ErrNotStarted) {
		t.Fatalf("NewThread() err = %v, want ErrNotStarted", err)
	}
}

func TestNewThreadEntryGetsOwnHandle(t *testing.T) {
	k, _ := startKernel(t, Config{})

	got := make(chan *Thread, 1)
	th, err := k.NewThread(Props{Name: "worker", Priority: 10, StackSize: 256, Entry: func(ctx context.Context, self *Thread) {
		if Running(ctx) != self {
			got <- nil
			return
		}
		got <- self
	}})
	if err != nil {
		t.Fatalf("NewThread() err = %v", err)
	}

	select {
	case self := <-got:
		if self != th {
			t.Fatal("entry did not receive its own handle")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for entry")
	}
	if th.Name() != "worker" || th.StackSize() != 256 || th.Priority() != 10 {
		t.Fatalf("props = (%q, %d, %d), want (worker, 256, 10)", th.Name(), th.StackSize(), th.Priority())
	}
}

func TestThreadTableExhaustion(t *testing.T) {
	k, _ := startKernel(t, Config{MaxThreads: 3})

	block := func(ctx context.Context, self *Thread) { <-ctx.Done() }
	th, err := k.NewThread(Props{Name: "a", Entry: block})
	if err != nil {
		t.Fatalf("NewThread() err = %v", err)
	}
	if _, err := k.NewThread(Props{Name: "b", Entry: block}); !errors.Is(err, ErrTooManyThreads) {
		t.Fatalf("NewThread() err = %v, want ErrTooManyThreads", err)
	}

	if err := k.DeleteThread(th); err != nil {
		t.Fatalf("DeleteThread() err = %v", err)
	}
	if _, err := k.NewThread(Props{Name: "c", Entry: block}); err != nil {
		t.Fatalf("NewThread() after delete err = %v", err)
	}
}

func TestDeleteThreadUnblocksWait(t *testing.T) {
	k, _ := startKernel(t, Config{})

	th, err := k.NewThread(Props{Name: "waiter", Entry: func(ctx context.Context, self *Thread) {
		for self.WaitEvents(WaitForever) != 0 {
		}
	}})
	if err != nil {
		t.Fatalf("NewThread() err = %v", err)
	}

	if err := k.DeleteThread(th); err != nil {
		t.Fatalf("DeleteThread() err = %v", err)
	}
	select {
	case <-th.Done():
	case <-time.After(time.Second):
		t.Fatal("thread did not exit after delete")
	}
	if !th.Deleted() {
		t.Fatal("Deleted() = false after delete")
	}
	if th.SetEvents(1) {
		t.Fatal("SetEvents() on deleted thread = true, want false")
	}
	if err := k.DeleteThread(th); !errors.Is(err, ErrUnknownThread) {
		t.Fatalf("second DeleteThread() err = %v, want ErrUnknownThread", err)
	}
}

func TestDeleteFixedThreads(t *testing.T) {
	k, _ := startKernel(t, Config{})
	if err := k.DeleteThread(k.InitThread()); !errors.Is(err, ErrFixedThread) {
		t.Fatalf("DeleteThread(init) err = %v, want ErrFixedThread", err)
	}
	if err := k.DeleteThread(k.IdleThread()); !errors.Is(err, ErrFixedThread) {
		t.Fatalf("DeleteThread(idle) err = %v, want ErrFixedThread", err)
	}
}

func TestIdleHooks(t *testing.T) {
	k := New(Config{})
	started := make(chan *Thread, 1)
	woken := make(chan EventMask, 1)
	_, err := k.Start(context.Background(), IdleHooks{
		OnStart: func(ctx context.Context) { started <- Running(ctx) },
		OnWake:  func(ctx context.Context, events EventMask) { woken <- events },
	})
	if err != nil {
		t.Fatalf("Start() err = %v", err)
	}
	defer k.Stop()

	select {
	case self := <-started:
		if self != k.IdleThread() {
			t.Fatal("OnStart ran outside the idle thread")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for OnStart")
	}

	k.IdleThread().SetEvents(0x4)
	select {
	case events := <-woken:
		if events != 0x4 {
			t.Fatalf("OnWake events = %#x, want 0x4", events)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for OnWake")
	}
}

func TestStopRefusesAllocations(t *testing.T) {
	k, _ := startKernel(t, Config{})
	k.Stop()

	if _, err := k.NewThread(Props{Name: "late", Entry: func(context.Context, *Thread) {}}); !errors.Is(err, ErrStopped) {
		t.Fatalf("NewThread() after Stop err = %v, want ErrStopped", err)
	}
	if _, err := NewQueue[int](k, 1); !errors.Is(err, ErrStopped) {
		t.Fatalf("NewQueue() after Stop err = %v, want ErrStopped", err)
	}
	if got := k.ThreadCount(); got != 0 {
		t.Fatalf("ThreadCount() after Stop = %d, want 0", got)
	}
}

func TestPanicHandlerReportsThread(t *testing.T) {
	k, _ := startKernel(t, Config{})

	got := make(chan PanicInfo, 1)
	SetPanicHandler(func(info PanicInfo) { got <- info })
	defer SetPanicHandler(nil)

	if _, err := k.NewThread(Props{Name: "boom", Entry: func(context.Context, *Thread) {
		panic("bad sensor")
	}}); err != nil {
		t.Fatalf("NewThread() err = %v", err)
	}

	select {
	case info := <-got:
		if info.Name != "boom" || info.Value != "bad sensor" {
			t.Fatalf("PanicInfo = (%q, %v), want (boom, bad sensor)", info.Name, info.Value)
		}
		if len(info.Stack) == 0 {
			t.Fatal("PanicInfo.Stack is empty")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for panic handler")
	}
	if !InPanicMode() {
		t.Fatal("InPanicMode() = false after panic")
	}
}

func TestStartWithDoneContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(Config{}).Start(ctx, IdleHooks{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Start() err = %v, want context.Canceled", err)
	}
}
