package thread

import (
	"context"

	"motive/kernel"
)

// EventThread runs OnEvent each time events arrive or the timeout elapses.
type EventThread struct {
	base
}

// NewEventThread returns an unstarted event thread.
func NewEventThread(env Env) *EventThread {
	t := &EventThread{}
	t.init(env, EventTrigger, "EventThread", t)
	return t
}

// Start validates cfg and launches the thread. It fails, allocating nothing,
// if cfg is invalid or the thread is already started.
func (t *EventThread) Start(cfg EventConfig) bool {
	if !cfg.IsValid() {
		return false
	}
	return t.launch(cfg.Config, nil, func(ctx context.Context, nt *kernel.Thread) {
		if cfg.Startup != nil {
			cfg.Startup(t, cfg.Param)
		}
		for {
			events := nt.WaitEvents(cfg.Timeout)
			if ctx.Err() != nil {
				return
			}
			cfg.OnEvent(t, events, cfg.Param)
		}
	})
}

// Stop deletes the native thread. A callback in progress completes first.
func (t *EventThread) Stop() bool {
	return t.release(nil, nil)
}

// SetEvent ORs e into the pending events. It never blocks.
func (t *EventThread) SetEvent(e Event) bool {
	nt := t.nativeThread()
	return nt != nil && nt.SetEvents(e)
}

// Handle returns an event-only handle to t.
func (t *EventThread) Handle() EventHandle { return EventHandle{t: t} }
