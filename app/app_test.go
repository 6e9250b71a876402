package app

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"motive/hal"
	"motive/system"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func newTestSystem(t *testing.T) *system.System {
	t.Helper()
	sys, err := system.Start(context.Background(), system.Config{})
	if err != nil {
		t.Fatalf("system.Start() err = %v", err)
	}
	t.Cleanup(sys.Shutdown)
	return sys
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.AcquisitionPeriodMS = 10
	cfg.AcquisitionTimeoutMS = 5
	cfg.MonitorPeriodMS = 20
	cfg.Control.PeriodMS = 5
	cfg.Telemetry.Sink = "serial"
	cfg.Sensors = []SensorConfig{
		{Name: "s0", Start: 0, Step: 10},
		{Name: "s1", Start: 500, Step: -1},
	}
	return cfg
}

func startApp(t *testing.T, cfg Config) (*App, *syncBuffer, *syncBuffer) {
	t.Helper()
	logs, serial := &syncBuffer{}, &syncBuffer{}
	a, err := New(context.Background(), hal.NewWithOutput(logs, serial), cfg)
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}
	t.Cleanup(a.Shutdown)
	return a, logs, serial
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestAppThreads(t *testing.T) {
	a, _, _ := startApp(t, testConfig())

	names := map[string]bool{}
	for _, info := range a.System().Registry().Snapshot() {
		names[info.Name] = true
	}
	for _, want := range []string{"tINIT", "tIDLE", "tMGR", nameBus, nameReader, nameTransmitter, nameCommands, nameControl, nameActuator, nameMonitor} {
		if !names[want] {
			t.Fatalf("registry is missing %s: %v", want, names)
		}
	}
	if !a.System().Init().IsTerminated() {
		t.Fatal("init thread not terminated after startup")
	}
}

func TestAppAcquisitionTelemetry(t *testing.T) {
	a, _, serial := startApp(t, testConfig())

	waitFor(t, "three frames", func() bool { return a.Transmitter().Sent() >= 3 })
	a.Shutdown()

	frames, err := DecodeFrames(bytes.NewReader(serial.Bytes()))
	if err != nil {
		t.Fatalf("DecodeFrames() err = %v", err)
	}
	if len(frames) < 3 {
		t.Fatalf("DecodeFrames() = %d frames, want >= 3", len(frames))
	}
	for i, f := range frames {
		if f.Seq != uint32(i+1) {
			t.Fatalf("frame %d Seq = %d, want %d", i, f.Seq, i+1)
		}
		if len(f.Positions) != 2 || !f.IsValid(0) || !f.IsValid(1) {
			t.Fatalf("frame %d = %+v, want two valid positions", i, f)
		}
		if want := Position(10 * (i + 1)); f.Positions[0] != want {
			t.Fatalf("frame %d s0 = %d, want %d", i, f.Positions[0], want)
		}
		if want := Position(500 - (i + 1)); f.Positions[1] != want {
			t.Fatalf("frame %d s1 = %d, want %d", i, f.Positions[1], want)
		}
	}
}

func TestAppBrokenSensor(t *testing.T) {
	cfg := testConfig()
	cfg.Sensors[0].Broken = true
	a, logs, _ := startApp(t, cfg)

	waitFor(t, "two frames", func() bool { return a.Reader().Latest().Seq >= 2 })

	f := a.Reader().Latest()
	if f.IsValid(0) || f.Positions[0] != PositionNotValid {
		t.Fatalf("broken sensor = (%d, valid %v), want PositionNotValid", f.Positions[0], f.IsValid(0))
	}
	if !f.IsValid(1) {
		t.Fatal("healthy sensor after broken one is not valid")
	}
	if f.Missed < 2 {
		t.Fatalf("Missed = %d, want >= 2", f.Missed)
	}
	if !bytes.Contains(logs.Bytes(), []byte("no reply from s0")) {
		t.Fatalf("log lacks no reply warning:\n%s", logs.Bytes())
	}
}

func TestAppCommands(t *testing.T) {
	a, _, _ := startApp(t, testConfig())

	if !a.Send(SetpointCommand(-1200)) {
		t.Fatal("Send(setpoint) = false")
	}
	waitFor(t, "setpoint", func() bool { return a.Setpoint() == -1200 })

	if !a.Send(Command{Op: OpStop}) {
		t.Fatal("Send(stop) = false")
	}
	waitFor(t, "acquisition stop", func() bool { return !a.cmd.acquire.Active() })
	time.Sleep(30 * time.Millisecond)
	seq := a.Reader().Latest().Seq
	time.Sleep(50 * time.Millisecond)
	if got := a.Reader().Latest().Seq; got != seq {
		t.Fatalf("Seq advanced from %d to %d after stop", seq, got)
	}

	if !a.Send(Command{Op: OpBreak, Arg: 1}) || !a.Send(Command{Op: OpStart, Arg: 5}) {
		t.Fatal("Send(break, start) = false")
	}
	waitFor(t, "frame with broken s1", func() bool {
		f := a.Reader().Latest()
		return f.Seq > seq && !f.IsValid(1)
	})
	if a.cmd.period != 5*time.Millisecond {
		t.Fatalf("period = %v, want 5ms", a.cmd.period)
	}

	if !a.Commands().SetMessage(0x7F<<24, 0) {
		t.Fatal("SetMessage(unknown op) = false")
	}
}

func TestAppControlDrivesActuator(t *testing.T) {
	cfg := testConfig()
	cfg.Control.Setpoint = 5000
	a, _, _ := startApp(t, cfg)

	waitFor(t, "actuator update", func() bool { return a.Actuator().updates.Load() > 0 })
	if d := a.Actuator().Duty(); d <= 0 {
		t.Fatalf("Duty() = %d, want > 0 below the setpoint", d)
	}
}

func TestAppStep(t *testing.T) {
	a, _, _ := startApp(t, testConfig())
	if err := a.Step(); err != nil {
		t.Fatalf("Step() err = %v", err)
	}
	a.Shutdown()
	if err := a.Step(); !errors.Is(err, context.Canceled) {
		t.Fatalf("Step() after Shutdown err = %v, want context.Canceled", err)
	}
}

func TestAppInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Telemetry.Sink = "udp"
	if _, err := New(context.Background(), hal.NewWithOutput(&syncBuffer{}, nil), cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("New() err = %v, want ErrInvalidConfig", err)
	}
}
