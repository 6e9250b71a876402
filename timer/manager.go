package timer

import (
	"fmt"
	"sync"

	"motive/thread"
)

// ManagerConfig configures the manager thread.
type ManagerConfig struct {
	Priority  thread.Priority
	StackSize uint32
	QueueSize int
}

// DefaultManagerConfig returns the settings used by bring-up.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{Priority: thread.High, StackSize: 1024, QueueSize: 8}
}

// Manager executes timer expiries on its own callback thread ("tMGR"), so
// actions never run on a clock goroutine.
type Manager struct {
	env thread.Env
	th  *thread.CallbackThread

	mu     sync.Mutex
	timers map[*Timer]struct{}
}

// NewManager returns a stopped manager.
func NewManager(env thread.Env) *Manager {
	return &Manager{
		env:    env,
		th:     thread.NewCallbackThread(env),
		timers: make(map[*Timer]struct{}),
	}
}

// Start launches the manager thread.
func (m *Manager) Start(cfg ManagerConfig) bool {
	return m.th.Start(thread.CallbackConfig{
		Config: thread.Config{
			Priority:  cfg.Priority,
			Name:      "tMGR",
			StackSize: cfg.StackSize,
		},
		Timeout:   thread.WaitForever,
		QueueSize: cfg.QueueSize,
	})
}

// Stop disarms every timer and stops the manager thread.
func (m *Manager) Stop() bool {
	m.mu.Lock()
	timers := make([]*Timer, 0, len(m.timers))
	for t := range m.timers {
		timers = append(timers, t)
	}
	m.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
	return m.th.Stop()
}

// Thread returns the manager thread.
func (m *Manager) Thread() *thread.CallbackThread { return m.th }

// New returns an idle timer bound to m.
func (m *Manager) New() *Timer {
	return &Timer{m: m}
}

// Active returns the number of armed timers.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *Manager) running() bool { return m.th.Started() }

func (m *Manager) post(cb thread.Callback) bool {
	return m.th.SetCallback(cb, thread.NoWait)
}

func (m *Manager) track(t *Timer) {
	m.mu.Lock()
	m.timers[t] = struct{}{}
	m.mu.Unlock()
}

func (m *Manager) untrack(t *Timer) {
	m.mu.Lock()
	delete(m.timers, t)
	m.mu.Unlock()
}

func (m *Manager) logf(format string, args ...any) {
	if m.env.Log == nil {
		return
	}
	m.env.Log.WriteLineString("tMGR: " + fmt.Sprintf(format, args...))
}
