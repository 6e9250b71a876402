package thread

import "time"

// CallbackThread executes posted callbacks in order. Function and argument
// travel together as one queue item, so they cannot be separated.
//
// After every wait, whether it produced a callback or timed out with the zero
// Callback, the After hook observes the item.
type CallbackThread struct {
	queued[Callback]
}

// NewCallbackThread returns an unstarted callback thread.
func NewCallbackThread(env Env) *CallbackThread {
	t := &CallbackThread{}
	t.init(env, CallbackTrigger, "CallbackThread", t)
	return t
}

// Start validates cfg, allocates a queue of cfg.QueueSize callbacks and
// launches the thread.
func (t *CallbackThread) Start(cfg CallbackConfig) bool {
	if !cfg.IsValid() {
		return false
	}
	startup := func() {
		if cfg.Startup != nil {
			cfg.Startup(t, cfg.Param)
		}
	}
	return t.open(cfg.Config, cfg.QueueSize, cfg.Timeout, startup, func(cb Callback) {
		cb.Execute()
		if cfg.After != nil {
			cfg.After(t, cb, cfg.Param)
		}
	})
}

// Stop releases the queue, then the native thread.
func (t *CallbackThread) Stop() bool { return t.close() }

// SetCallback posts cb, waiting up to timeout while the queue is full.
// A callback without a function is refused.
func (t *CallbackThread) SetCallback(cb Callback, timeout time.Duration) bool {
	if !cb.IsValid() {
		return false
	}
	return t.put(cb, timeout)
}

// Handle returns a callback-only handle to t.
func (t *CallbackThread) Handle() CallbackHandle { return CallbackHandle{t: t} }
