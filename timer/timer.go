// Package timer provides software timers whose expiries are executed by a
// manager thread.
package timer

import (
	"sync"
	"time"

	"motive/thread"
)

// Mode selects how many times a timer fires.
type Mode uint8

const (
	OneShot Mode = iota
	Forever
	Some
)

func (m Mode) String() string {
	switch m {
	case OneShot:
		return "oneshot"
	case Forever:
		return "forever"
	case Some:
		return "some"
	default:
		return "unknown"
	}
}

// Config describes one run of a timer.
type Config struct {
	Duration    time.Duration
	Mode        Mode
	Repetitions uint32 // used by Some
	Action      Action
}

func (c Config) IsValid() bool {
	if c.Duration <= 0 || c.Action == nil || !c.Action.valid() {
		return false
	}
	switch c.Mode {
	case OneShot, Forever:
		return true
	case Some:
		return c.Repetitions > 0
	default:
		return false
	}
}

// Timer fires its Action after Duration, then again every Duration while its
// mode allows. Deadlines are absolute, so slow actions do not shift later
// expiries.
type Timer struct {
	m *Manager

	mu       sync.Mutex
	cfg      Config
	gen      uint64
	active   bool
	fired    uint32
	deadline time.Time
	clock    *time.Timer
}

// Start (re)arms t with cfg. It fails if cfg is invalid or the manager is not
// running.
func (t *Timer) Start(cfg Config) bool {
	if !cfg.IsValid() || !t.m.running() {
		return false
	}

	t.m.track(t)
	t.mu.Lock()
	t.disarmLocked()
	t.cfg = cfg
	t.gen++
	t.active = true
	t.fired = 0
	t.deadline = time.Now().Add(cfg.Duration)
	t.armLocked()
	t.mu.Unlock()
	return true
}

// Stop disarms t. It reports whether t was active.
func (t *Timer) Stop() bool {
	t.mu.Lock()
	was := t.active
	t.disarmLocked()
	t.active = false
	t.gen++
	t.mu.Unlock()

	t.m.untrack(t)
	return was
}

// Active reports whether t will fire again.
func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Fired returns the number of expiries since the last Start.
func (t *Timer) Fired() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}

func (t *Timer) armLocked() {
	gen := t.gen
	t.clock = time.AfterFunc(time.Until(t.deadline), func() { t.expire(gen) })
}

func (t *Timer) disarmLocked() {
	if t.clock != nil {
		t.clock.Stop()
		t.clock = nil
	}
}

// expire runs on the clock goroutine and hands the expiry to the manager.
func (t *Timer) expire(gen uint64) {
	cb := thread.Callback{Call: t.onManager, Arg: gen}
	if t.m.post(cb) {
		return
	}
	t.m.logf("warn: timer expiry dropped")
	t.advance(gen, false)
}

// onManager runs on the manager thread.
func (t *Timer) onManager(arg any) {
	gen, _ := arg.(uint64)

	t.mu.Lock()
	if gen != t.gen || !t.active {
		t.mu.Unlock()
		return
	}
	action := t.cfg.Action
	t.mu.Unlock()

	if !action.execute() {
		t.m.logf("warn: timer action refused")
	}
	t.advance(gen, true)
}

// advance counts an expiry and re-arms or retires the timer.
func (t *Timer) advance(gen uint64, fired bool) {
	t.mu.Lock()
	if gen != t.gen || !t.active {
		t.mu.Unlock()
		return
	}
	if fired {
		t.fired++
	}

	done := false
	switch t.cfg.Mode {
	case OneShot:
		done = true
	case Some:
		done = t.fired >= t.cfg.Repetitions
	}
	if done {
		t.active = false
		t.clock = nil
		t.mu.Unlock()
		t.m.untrack(t)
		return
	}

	t.deadline = t.deadline.Add(t.cfg.Duration)
	t.armLocked()
	t.mu.Unlock()
}
