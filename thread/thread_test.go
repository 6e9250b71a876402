package thread

import (
	"context"
	"math"
	"testing"
	"time"

	"motive/kernel"
)

func newEnv(t *testing.T) (Env, context.Context) {
	t.Helper()
	k := kernel.New(kernel.Config{})
	ctx, err := k.Start(context.Background(), kernel.IdleHooks{})
	if err != nil {
		t.Fatalf("kernel Start() err = %v", err)
	}
	reg := NewRegistry()
	t.Cleanup(func() {
		k.Stop()
		reg.Close()
	})
	return Env{Kernel: k, Registry: reg}, ctx
}

func common(name string) Config {
	return Config{Priority: Normal, Name: name, StackSize: 100}
}

func TestTypeString(t *testing.T) {
	if got := PeriodicTrigger.String(); got != "periodic" {
		t.Fatalf("String() = %q, want periodic", got)
	}
	if got := Type(99).String(); got != "unknown" {
		t.Fatalf("String() = %q, want unknown", got)
	}
}

func TestPriorityRange(t *testing.T) {
	if SchedInit.Valid() || SchedIdle.Valid() {
		t.Fatal("reserved priorities must not be valid application priorities")
	}
	if !Minimum.Valid() || !Maximum.Valid() || !Normal.Valid() {
		t.Fatal("application range must be valid")
	}
	if (Maximum + 1).Valid() {
		t.Fatal("Maximum+1 must be invalid")
	}
	if !(SchedInit < SchedIdle && SchedIdle < Minimum) {
		t.Fatal("reserved priorities must sit below the application range")
	}
}

func TestRoundStack(t *testing.T) {
	cases := []struct {
		in   uint32
		want uint32
		ok   bool
	}{
		{1, 8, true},
		{64, 64, true},
		{65, 72, true},
		{math.MaxUint32 - 7, math.MaxUint32 - 7, true},
		{math.MaxUint32, 0, false},
	}
	for _, c := range cases {
		got, ok := roundStack(c.in)
		if got != c.want || ok != c.ok {
			t.Fatalf("roundStack(%d) = (%d, %v), want (%d, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestCallbackExecute(t *testing.T) {
	var got any
	cb := Callback{Call: func(arg any) { got = arg }, Arg: 7}
	if !cb.IsValid() || !cb.Execute() || got != 7 {
		t.Fatalf("Execute() ran with %v, want 7", got)
	}
	if (Callback{Arg: 1}).Execute() {
		t.Fatal("Execute() of invalid callback = true, want false")
	}
}

func TestSignallingIsNarrowedPerDiscipline(t *testing.T) {
	env, _ := newEnv(t)

	evt := NewEventThread(env)
	msg := NewMessageThread(env)
	val := NewValueThread(env)
	cbk := NewCallbackThread(env)
	per := NewPeriodicThread(env)

	if !evt.Start(EventConfig{Config: common("e"), OnEvent: func(*EventThread, Event, any) {}, Timeout: WaitForever}) ||
		!msg.Start(MessageConfig{Config: common("m"), OnMessage: func(*MessageThread, Message, any) {}, Timeout: WaitForever, QueueSize: 4}) ||
		!val.Start(ValueConfig{Config: common("v"), OnValue: func(*ValueThread, Value, any) {}, Timeout: WaitForever, QueueSize: 4}) ||
		!cbk.Start(CallbackConfig{Config: common("c"), Timeout: WaitForever, QueueSize: 4}) ||
		!per.Start(PeriodicConfig{Config: common("p"), OnPeriod: func(*PeriodicThread, any) {}, Period: time.Second}) {
		t.Fatal("Start() = false, want true")
	}

	noop := Callback{Call: func(any) {}}
	cases := []struct {
		th                    Thread
		event, msg, val, call bool
	}{
		{evt, true, false, false, false},
		{msg, false, true, false, false},
		{val, false, false, true, false},
		{cbk, false, false, false, true},
		{per, false, false, false, false},
	}
	for _, c := range cases {
		if got := c.th.SetEvent(1); got != c.event {
			t.Fatalf("%s SetEvent() = %v, want %v", c.th.Type(), got, c.event)
		}
		if got := c.th.SetMessage(1, NoWait); got != c.msg {
			t.Fatalf("%s SetMessage() = %v, want %v", c.th.Type(), got, c.msg)
		}
		if got := c.th.SetValue(1, NoWait); got != c.val {
			t.Fatalf("%s SetValue() = %v, want %v", c.th.Type(), got, c.val)
		}
		if got := c.th.SetCallback(noop, NoWait); got != c.call {
			t.Fatalf("%s SetCallback() = %v, want %v", c.th.Type(), got, c.call)
		}
	}
}

func TestNamesAndPriorities(t *testing.T) {
	env, _ := newEnv(t)

	evt := NewEventThread(env)
	if evt.Name() != "EventThread" {
		t.Fatalf("Name() before Start = %q, want EventThread", evt.Name())
	}
	if evt.SetPriority(High) {
		t.Fatal("SetPriority() before Start = true, want false")
	}

	cfg := EventConfig{Config: common("reader"), OnEvent: func(*EventThread, Event, any) {}, Timeout: WaitForever}
	cfg.Priority = AboveNormal
	if !evt.Start(cfg) {
		t.Fatal("Start() = false, want true")
	}
	if evt.Name() != "reader" || evt.Priority() != AboveNormal {
		t.Fatalf("(Name, Priority) = (%q, %d), want (reader, %d)", evt.Name(), evt.Priority(), AboveNormal)
	}
	if !evt.SetPriority(High) || evt.Priority() != High {
		t.Fatalf("Priority() after SetPriority = %d, want %d", evt.Priority(), High)
	}
	if evt.SetPriority(SchedIdle) {
		t.Fatal("SetPriority(SchedIdle) = true, want false")
	}

	per := NewPeriodicThread(env)
	pc := PeriodicConfig{Config: common(""), OnPeriod: func(*PeriodicThread, any) {}, Period: time.Second}
	if !per.Start(pc) || per.Name() != "PeriodicThread" {
		t.Fatalf("Name() = %q, want PeriodicThread", per.Name())
	}
}

func TestHandles(t *testing.T) {
	env, _ := newEnv(t)

	var zeroE EventHandle
	var zeroM MessageHandle
	var zeroV ValueHandle
	var zeroC CallbackHandle
	if !zeroE.IsZero() || zeroE.SetEvent(1) || zeroM.SetMessage(1, NoWait) ||
		zeroV.SetValue(1, NoWait) || zeroC.SetCallback(Callback{Call: func(any) {}}, NoWait) {
		t.Fatal("zero handles must refuse every operation")
	}

	got := make(chan Value, 1)
	val := NewValueThread(env)
	if !val.Start(ValueConfig{Config: common("v"), OnValue: func(_ *ValueThread, v Value, _ any) { got <- v }, Timeout: WaitForever, QueueSize: 1}) {
		t.Fatal("Start() = false")
	}
	h := val.Handle()
	if h.IsZero() || !h.SetValue(42, WaitForever) {
		t.Fatal("ValueHandle.SetValue() = false, want true")
	}
	select {
	case v := <-got:
		if v != 42 {
			t.Fatalf("OnValue() got %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
	}
}
