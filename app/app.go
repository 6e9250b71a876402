// Package app is a position acquisition and control firmware built on the
// thread layer: sensors read in daisy chain, telemetry frames, a PID loop and
// a status monitor.
package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"motive/hal"
	"motive/system"
	"motive/thread"
)

var ErrThreadStart = errors.New("thread start failed")

// Thread names.
const (
	nameBus         = "tBUS"
	nameReader      = "tREADER"
	nameTransmitter = "tTX"
	nameCommands    = "tCMD"
	nameControl     = "tCTRL"
	nameActuator    = "tACT"
	nameMonitor     = "tMON"
)

// App owns the system and every application thread.
type App struct {
	h   hal.HAL
	log hal.Logger
	cfg settings

	sys     *system.System
	sensors []*Sensor

	bus            *thread.CallbackThread
	readerThread   *thread.EventThread
	reader         *Reader
	txThread       *thread.EventThread
	transmitter    *Transmitter
	commands       *thread.MessageThread
	cmd            *commander
	controlThread  *thread.PeriodicThread
	control        *Control
	actuatorThread *thread.ValueThread
	actuator       *Actuator
	monitorThread  *thread.PeriodicThread
	monitor        *Monitor

	ticks atomic.Uint64
	once  sync.Once
}

// New brings the system up on h and starts acquisition.
func New(ctx context.Context, h hal.HAL, cfg Config) (*App, error) {
	s, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	a := &App{h: h, log: h.Logger(), cfg: s}
	for _, sc := range s.sensors {
		a.sensors = append(a.sensors, newSensor(sc))
	}

	installPanicHandler(h)

	if _, err := system.Start(ctx, system.Config{
		Logger: a.log,
		Init:   system.InitConfig{Startup: a.startup},
	}); err != nil {
		return nil, err
	}
	return a, nil
}

// startup runs on the init thread.
func (a *App) startup(sys *system.System, _ any) error {
	a.sys = sys
	env := sys.Env()

	a.actuatorThread = thread.NewValueThread(env)
	a.bus = thread.NewCallbackThread(env)
	a.readerThread = thread.NewEventThread(env)
	a.txThread = thread.NewEventThread(env)
	a.controlThread = thread.NewPeriodicThread(env)
	a.commands = thread.NewMessageThread(env)

	a.actuator = &Actuator{led: a.h.LED()}
	a.reader = &Reader{
		log:         a.log,
		sensors:     a.sensors,
		bus:         Bus{h: a.bus.Handle()},
		self:        a.readerThread.Handle(),
		transmitter: a.txThread.Handle(),
		noreply:     sys.Timers().New(),
		timeout:     a.cfg.acquisitionTimeout,
		tick:        a.Tick,
	}
	a.transmitter = &Transmitter{
		reader:   a.reader,
		serial:   a.h.Serial(),
		log:      a.log,
		sink:     a.cfg.sink,
		logEvery: a.cfg.logEvery,
	}
	a.control = &Control{
		pid:      PID{Kp: a.cfg.pid.kp, Ki: a.cfg.pid.ki, Kd: a.cfg.pid.kd},
		dt:       a.cfg.pid.period.Seconds(),
		reader:   a.reader,
		actuator: a.actuatorThread.Handle(),
	}
	a.control.setpoint.Store(int32(math.Round(a.cfg.pid.setpoint)))
	a.cmd = &commander{a: a, acquire: sys.Timers().New(), period: a.cfg.acquisitionPeriod}

	starts := []struct {
		name  string
		start func() bool
	}{
		{nameActuator, func() bool {
			return a.actuatorThread.Start(thread.ValueConfig{
				Config:    a.cfg.actuator.config(nameActuator),
				OnValue:   a.actuator.onValue,
				Timeout:   actuatorTimeout(a.cfg.pid.period),
				QueueSize: a.cfg.actuator.queueSize,
			})
		}},
		{nameBus, func() bool {
			return a.bus.Start(thread.CallbackConfig{
				Config:    a.cfg.bus.config(nameBus),
				Timeout:   thread.WaitForever,
				QueueSize: a.cfg.bus.queueSize,
			})
		}},
		{nameTransmitter, func() bool {
			return a.txThread.Start(thread.EventConfig{
				Config:  a.cfg.transmitter.config(nameTransmitter),
				OnEvent: a.transmitter.onEvent,
				Timeout: thread.WaitForever,
			})
		}},
		{nameReader, func() bool {
			c := a.cfg.reader.config(nameReader)
			c.Startup = func(t thread.Thread, _ any) {
				a.logf("%s: %d sensors, timeout %v", t.Name(), len(a.sensors), a.cfg.acquisitionTimeout)
			}
			return a.readerThread.Start(thread.EventConfig{
				Config:  c,
				OnEvent: a.reader.onEvent,
				Timeout: thread.WaitForever,
			})
		}},
		{nameControl, func() bool {
			return a.controlThread.Start(thread.PeriodicConfig{
				Config:   a.cfg.control.config(nameControl),
				OnPeriod: a.control.onPeriod,
				Period:   a.cfg.pid.period,
			})
		}},
		{nameCommands, func() bool {
			return a.commands.Start(thread.MessageConfig{
				Config:    a.cfg.commands.config(nameCommands),
				OnMessage: a.cmd.onMessage,
				Timeout:   thread.WaitForever,
				QueueSize: a.cfg.commands.queueSize,
			})
		}},
	}
	for _, s := range starts {
		if !s.start() {
			return fmt.Errorf("%w: %s", ErrThreadStart, s.name)
		}
	}

	if err := a.startMonitor(env); err != nil {
		return err
	}

	if !a.Send(Command{Op: OpStart}) {
		return fmt.Errorf("%w: %s refused start command", ErrThreadStart, nameCommands)
	}
	return nil
}

func (a *App) startMonitor(env thread.Env) error {
	disp := a.h.Display()
	if disp == nil || disp.Framebuffer() == nil {
		return nil
	}
	a.monitorThread = thread.NewPeriodicThread(env)
	a.monitor = newMonitor(&fbDisplay{fb: disp.Framebuffer()}, env.Registry, a.reader, a.actuator, a.Tick)
	if !a.monitorThread.Start(thread.PeriodicConfig{
		Config:   a.cfg.monitor.config(nameMonitor),
		OnPeriod: a.monitor.onPeriod,
		Period:   a.cfg.monitorPeriod,
	}) {
		return fmt.Errorf("%w: %s", ErrThreadStart, nameMonitor)
	}
	return nil
}

// Step drains the HAL tick stream. Runners call it once per frame.
func (a *App) Step() error {
	if err := a.sys.Context().Err(); err != nil {
		return err
	}
	t := a.h.Time()
	if t == nil {
		return nil
	}
	ch := t.Ticks()
	for {
		select {
		case seq := <-ch:
			a.ticks.Store(seq)
		default:
			return nil
		}
	}
}

// Tick returns the last HAL tick seen by Step.
func (a *App) Tick() uint64 { return a.ticks.Load() }

// Send posts cmd to the commands thread.
func (a *App) Send(cmd Command) bool {
	return a.commands.SetMessage(cmd.Message(), 10*time.Millisecond)
}

// Commands returns the handle of the commands thread.
func (a *App) Commands() thread.MessageHandle { return a.commands.Handle() }

func (a *App) System() *system.System    { return a.sys }
func (a *App) Reader() *Reader           { return a.reader }
func (a *App) Transmitter() *Transmitter { return a.transmitter }
func (a *App) Actuator() *Actuator       { return a.actuator }
func (a *App) Sensors() []*Sensor        { return a.sensors }
func (a *App) Setpoint() Position        { return a.control.setpoint.Load() }

// Shutdown stops acquisition and brings the system down.
func (a *App) Shutdown() {
	a.once.Do(func() {
		a.cmd.acquire.Stop()
		a.sys.Shutdown()
		a.logf("app: %d frames sent, %d missed conversions", a.transmitter.Sent(), a.reader.Latest().Missed)
	})
}

// Run starts the application and never returns (TinyGo entrypoint).
func Run(h hal.HAL, cfg Config) {
	a, err := New(context.Background(), h, cfg)
	if err != nil {
		if l := h.Logger(); l != nil {
			l.WriteLineString("error: app: " + err.Error())
		}
		select {}
	}
	for {
		_ = a.Step()
		time.Sleep(hal.TickPeriod)
	}
}

func (a *App) logf(format string, args ...any) {
	if a.log == nil {
		return
	}
	a.log.WriteLineString(fmt.Sprintf(format, args...))
}
