package thread

import "time"

// EventHandle can only set events. It is obtained from an EventThread or the
// IdleThread; the zero EventHandle refuses everything.
type EventHandle struct {
	t interface{ SetEvent(Event) bool }
}

func (h EventHandle) SetEvent(e Event) bool {
	return h.t != nil && h.t.SetEvent(e)
}

// IsZero reports whether h is detached.
func (h EventHandle) IsZero() bool { return h.t == nil }

// MessageHandle can only send messages. It is obtained from a MessageThread.
type MessageHandle struct {
	t *MessageThread
}

func (h MessageHandle) SetMessage(m Message, timeout time.Duration) bool {
	return h.t != nil && h.t.SetMessage(m, timeout)
}

func (h MessageHandle) IsZero() bool { return h.t == nil }

// ValueHandle can only send values. It is obtained from a ValueThread.
type ValueHandle struct {
	t *ValueThread
}

func (h ValueHandle) SetValue(v Value, timeout time.Duration) bool {
	return h.t != nil && h.t.SetValue(v, timeout)
}

func (h ValueHandle) IsZero() bool { return h.t == nil }

// CallbackHandle can only post callbacks. It is obtained from a
// CallbackThread.
type CallbackHandle struct {
	t *CallbackThread
}

func (h CallbackHandle) SetCallback(cb Callback, timeout time.Duration) bool {
	return h.t != nil && h.t.SetCallback(cb, timeout)
}

func (h CallbackHandle) IsZero() bool { return h.t == nil }
