package thread

import "time"

// MessageThread runs OnMessage for every message it dequeues. When the wait
// times out OnMessage receives NoMessage.
type MessageThread struct {
	queued[Message]
}

// NewMessageThread returns an unstarted message thread.
func NewMessageThread(env Env) *MessageThread {
	t := &MessageThread{}
	t.init(env, MessageTrigger, "MessageThread", t)
	return t
}

// Start validates cfg, allocates a queue of cfg.QueueSize messages and
// launches the thread.
func (t *MessageThread) Start(cfg MessageConfig) bool {
	if !cfg.IsValid() {
		return false
	}
	startup := func() {
		if cfg.Startup != nil {
			cfg.Startup(t, cfg.Param)
		}
	}
	return t.open(cfg.Config, cfg.QueueSize, cfg.Timeout, startup, func(m Message) {
		cfg.OnMessage(t, m, cfg.Param)
	})
}

// Stop releases the queue, then the native thread.
func (t *MessageThread) Stop() bool { return t.close() }

// SetMessage enqueues m, waiting up to timeout while the queue is full.
// With NoWait a full queue fails at once.
func (t *MessageThread) SetMessage(m Message, timeout time.Duration) bool {
	return t.put(m, timeout)
}

// Handle returns a message-only handle to t.
func (t *MessageThread) Handle() MessageHandle { return MessageHandle{t: t} }

// ValueThread runs OnValue for every value it dequeues. When the wait times
// out OnValue receives NoValue.
type ValueThread struct {
	queued[Value]
}

// NewValueThread returns an unstarted value thread.
func NewValueThread(env Env) *ValueThread {
	t := &ValueThread{}
	t.init(env, ValueTrigger, "ValueThread", t)
	return t
}

// Start validates cfg, allocates a queue of cfg.QueueSize values and launches
// the thread.
func (t *ValueThread) Start(cfg ValueConfig) bool {
	if !cfg.IsValid() {
		return false
	}
	startup := func() {
		if cfg.Startup != nil {
			cfg.Startup(t, cfg.Param)
		}
	}
	return t.open(cfg.Config, cfg.QueueSize, cfg.Timeout, startup, func(v Value) {
		cfg.OnValue(t, v, cfg.Param)
	})
}

// Stop releases the queue, then the native thread.
func (t *ValueThread) Stop() bool { return t.close() }

// SetValue enqueues v, waiting up to timeout while the queue is full.
func (t *ValueThread) SetValue(v Value, timeout time.Duration) bool {
	return t.put(v, timeout)
}

// Handle returns a value-only handle to t.
func (t *ValueThread) Handle() ValueHandle { return ValueHandle{t: t} }
