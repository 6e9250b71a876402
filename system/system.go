// Package system brings the kernel and the thread layer up and down.
package system

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"motive/hal"
	"motive/kernel"
	"motive/thread"
	"motive/timer"
)

var (
	ErrInitSynch  = errors.New("init thread synch failed")
	ErrIdleSynch  = errors.New("idle thread synch failed")
	ErrTimerStart = errors.New("timer manager start failed")
)

// IdleConfig customizes the idle thread.
type IdleConfig struct {
	// OnIdle runs once on the idle thread after it is synched.
	OnIdle func(ctx context.Context)
	// OnWake runs every time events are set on the idle thread.
	OnWake func(ctx context.Context, events thread.Event)
}

// InitConfig customizes the init thread.
type InitConfig struct {
	// Startup runs on the init thread once everything else is up. It is
	// where applications start their threads.
	Startup func(s *System, param any) error
	Param   any
}

// Config describes the system to bring up.
type Config struct {
	Logger hal.Logger
	Kernel kernel.Config
	Idle   IdleConfig
	Init   InitConfig
	Timer  timer.ManagerConfig
}

// System owns the kernel, the registry and the fixed-role threads.
type System struct {
	log hal.Logger

	k      *kernel.Kernel
	ctx    context.Context
	reg    *thread.Registry
	init   *thread.InitThread
	idle   *thread.IdleThread
	timers *timer.Manager

	once sync.Once
}

// Start brings the system up on the calling goroutine, which becomes the init
// thread, and runs cfg.Init.Startup before returning.
func Start(ctx context.Context, cfg Config) (*System, error) {
	if cfg.Timer.QueueSize == 0 {
		cfg.Timer = timer.DefaultManagerConfig()
	}

	s := &System{
		log: cfg.Logger,
		k:   kernel.New(cfg.Kernel),
		reg: thread.NewRegistry(),
	}
	env := s.Env()
	s.init = thread.NewInitThread(env)
	s.idle = thread.NewIdleThread(env)
	s.timers = timer.NewManager(env)

	idleSynched := make(chan bool, 1)
	kctx, err := s.k.Start(ctx, kernel.IdleHooks{
		OnStart: func(ctx context.Context) {
			idleSynched <- s.idle.Synch(ctx)
			if cfg.Idle.OnIdle != nil {
				cfg.Idle.OnIdle(ctx)
			}
		},
		OnWake: cfg.Idle.OnWake,
	})
	if err != nil {
		return nil, fmt.Errorf("kernel start: %w", err)
	}
	s.ctx = kctx

	if !s.init.Synch(kctx) {
		s.abort()
		return nil, ErrInitSynch
	}
	select {
	case ok := <-idleSynched:
		if !ok {
			s.abort()
			return nil, ErrIdleSynch
		}
	case <-kctx.Done():
		s.abort()
		return nil, fmt.Errorf("%w: %w", ErrIdleSynch, kctx.Err())
	}
	if !s.timers.Start(cfg.Timer) {
		s.abort()
		return nil, ErrTimerStart
	}
	s.logf("system: up, %d threads", s.reg.Len())

	if cfg.Init.Startup != nil {
		if err := cfg.Init.Startup(s, cfg.Init.Param); err != nil {
			s.Shutdown()
			return nil, fmt.Errorf("init startup: %w", err)
		}
	}
	s.init.Terminate()
	return s, nil
}

func (s *System) abort() {
	s.k.Stop()
	s.reg.Close()
}

// Env returns the environment threads of this system are created with.
func (s *System) Env() thread.Env {
	return thread.Env{Kernel: s.k, Registry: s.reg, Log: s.log}
}

func (s *System) Kernel() *kernel.Kernel     { return s.k }
func (s *System) Registry() *thread.Registry { return s.reg }
func (s *System) Init() *thread.InitThread   { return s.init }
func (s *System) Idle() *thread.IdleThread   { return s.idle }
func (s *System) Timers() *timer.Manager     { return s.timers }
func (s *System) Logger() hal.Logger         { return s.log }

// Context is the init thread's context. It is done after Shutdown.
func (s *System) Context() context.Context { return s.ctx }

type stopper interface {
	Stop() bool
}

// Shutdown stops the timers and every creatable thread still registered, then
// stops the kernel and closes the registry.
func (s *System) Shutdown() {
	s.once.Do(func() {
		s.timers.Stop()
		for _, t := range s.reg.Threads() {
			if st, ok := t.(stopper); ok {
				st.Stop()
			}
		}
		s.k.Stop()
		s.reg.Close()
		s.logf("system: down")
	})
}

func (s *System) logf(format string, args ...any) {
	if s.log == nil {
		return
	}
	s.log.WriteLineString(fmt.Sprintf(format, args...))
}
