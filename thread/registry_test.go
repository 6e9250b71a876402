package thread

import (
	"testing"
)

func TestRegistryAssociateAndSnapshot(t *testing.T) {
	env, ctx := newEnv(t)
	reg := env.Registry

	in := NewInitThread(env)
	if !in.Synch(ctx) {
		t.Fatal("Synch() = false")
	}
	evt := NewEventThread(env)
	if !evt.Start(EventConfig{Config: common("reader"), Timeout: WaitForever, OnEvent: func(*EventThread, Event, any) {}}) {
		t.Fatal("Start() = false")
	}

	snap := reg.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() len = %d, want 2", len(snap))
	}
	if snap[0].Name != "tINIT" || snap[0].Type != Init {
		t.Fatalf("Snapshot()[0] = %+v, want init first", snap[0])
	}
	if snap[1].Name != "reader" || snap[1].Type != EventTrigger || snap[1].Priority != Normal {
		t.Fatalf("Snapshot()[1] = %+v, want reader", snap[1])
	}
	if snap[0].ID >= snap[1].ID {
		t.Fatalf("Snapshot() not ordered by id: %d >= %d", snap[0].ID, snap[1].ID)
	}

	threads := reg.Threads()
	if len(threads) != 2 || threads[1] != Thread(evt) {
		t.Fatal("Threads() did not return the registered threads in id order")
	}
}

func TestRegistryOwnership(t *testing.T) {
	env, ctx := newEnv(t)
	reg := env.Registry
	in := NewInitThread(env)
	other := NewEventThread(env)

	native := env.Kernel.InitThread()
	if reg.Associate(nil, in) || reg.Associate(native, nil) {
		t.Fatal("Associate() with nil = true, want false")
	}
	if !reg.Associate(native, in) {
		t.Fatal("Associate() = false, want true")
	}
	if reg.Associate(native, other) {
		t.Fatal("Associate() of owned native = true, want false")
	}
	if reg.Deassociate(native, other) {
		t.Fatal("Deassociate() by non-owner = true, want false")
	}
	if got, ok := reg.Running(ctx); !ok || got != Thread(in) {
		t.Fatal("Running() did not resolve the owner")
	}
	if !reg.Deassociate(native, in) {
		t.Fatal("Deassociate() by owner = false, want true")
	}
	if _, ok := reg.Lookup(native); ok {
		t.Fatal("Lookup() after Deassociate found an entry")
	}
}

func TestRegistryCloseRefusesThreads(t *testing.T) {
	env, _ := newEnv(t)
	evt := NewEventThread(env)
	cfg := EventConfig{Config: common("e"), Timeout: WaitForever, OnEvent: func(*EventThread, Event, any) {}}
	if !evt.Start(cfg) {
		t.Fatal("Start() = false")
	}

	env.Registry.Close()
	if env.Registry.Len() != 0 {
		t.Fatalf("Len() after Close = %d, want 0", env.Registry.Len())
	}

	threads := env.Kernel.ThreadCount()
	late := NewEventThread(env)
	if late.Start(cfg) {
		t.Fatal("Start() after registry Close = true, want false")
	}
	if got := env.Kernel.ThreadCount(); got != threads {
		t.Fatalf("ThreadCount() = %d, want %d", got, threads)
	}
}
