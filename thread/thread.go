// Package thread provides the thread disciplines applications are built from:
// an adopted init thread, the idle thread and five creatable variants woken by
// events, messages, values, callbacks or a fixed period.
//
// Every variant implements Thread. Each accepts only the signalling operation
// of its own discipline; the others return false with no effect. Callers that
// know the discipline hold a typed handle instead (see EventHandle).
package thread

import (
	"time"

	"motive/kernel"
)

// Type identifies the discipline of a thread. It never changes.
type Type uint8

const (
	Init Type = iota
	Idle
	EventTrigger
	MessageTrigger
	ValueTrigger
	CallbackTrigger
	PeriodicTrigger
)

func (t Type) String() string {
	switch t {
	case Init:
		return "init"
	case Idle:
		return "idle"
	case EventTrigger:
		return "event"
	case MessageTrigger:
		return "message"
	case ValueTrigger:
		return "value"
	case CallbackTrigger:
		return "callback"
	case PeriodicTrigger:
		return "periodic"
	default:
		return "unknown"
	}
}

// Priority orders threads. SchedInit and SchedIdle are reserved for the
// fixed-role threads; applications use Minimum..Maximum.
type Priority uint8

const (
	SchedInit Priority = Priority(kernel.PriorityInit)
	SchedIdle Priority = Priority(kernel.PriorityIdle)

	Minimum     Priority = 2
	Low         Priority = 10
	BelowNormal Priority = 20
	Normal      Priority = 24
	AboveNormal Priority = 32
	High        Priority = 40
	Realtime    Priority = 48
	Maximum     Priority = 54
)

// Valid reports whether p is in the application range.
func (p Priority) Valid() bool {
	return p >= Minimum && p <= Maximum
}

// Event is a set of up to 32 flags. Bits set by concurrent senders coalesce.
type Event = kernel.EventMask

// Message is a machine-word payload. NoMessage is what a consumer receives
// when its wait times out.
type Message uintptr

const NoMessage Message = 0

// Value is a machine-word scalar. NoValue is what a consumer receives when its
// wait times out.
type Value uint32

const NoValue Value = 0

// Callback is a deferred function call.
type Callback struct {
	Call func(arg any)
	Arg  any
}

// IsValid reports whether the callback has a function to run.
func (c Callback) IsValid() bool { return c.Call != nil }

// Execute runs the callback if it is valid and reports whether it ran.
func (c Callback) Execute() bool {
	if c.Call == nil {
		return false
	}
	c.Call(c.Arg)
	return true
}

// Wait bounds.
const (
	WaitForever = kernel.WaitForever
	NoWait      = kernel.NoWait
)

// Thread is the contract shared by every variant.
type Thread interface {
	Type() Type
	Priority() Priority
	SetPriority(p Priority) bool
	Name() string

	SetEvent(e Event) bool
	SetMessage(m Message, timeout time.Duration) bool
	SetValue(v Value, timeout time.Duration) bool
	SetCallback(cb Callback, timeout time.Duration) bool
}

// Hooks. param is the Param of the thread's config.
type (
	StartupFunc   func(t Thread, param any)
	OnEventFunc   func(t *EventThread, events Event, param any)
	OnMessageFunc func(t *MessageThread, m Message, param any)
	OnValueFunc   func(t *ValueThread, v Value, param any)
	AfterFunc     func(t *CallbackThread, cb Callback, param any)
	OnPeriodFunc  func(t *PeriodicThread, param any)
)
