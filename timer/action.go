package timer

import (
	"time"

	"motive/thread"
)

// Action is what a timer does when it expires. It runs on the manager thread.
//
// The set of actions is closed: EventAction, MessageAction, ValueAction and
// CallbackAction.
type Action interface {
	execute() bool
	valid() bool
}

// EventAction sets Event on Target.
type EventAction struct {
	Target thread.EventHandle
	Event  thread.Event
}

func (a EventAction) execute() bool { return a.Target.SetEvent(a.Event) }
func (a EventAction) valid() bool   { return !a.Target.IsZero() && a.Event != 0 }

// MessageAction sends Message to Target, waiting up to Timeout.
type MessageAction struct {
	Target  thread.MessageHandle
	Message thread.Message
	Timeout time.Duration
}

func (a MessageAction) execute() bool { return a.Target.SetMessage(a.Message, a.Timeout) }
func (a MessageAction) valid() bool   { return !a.Target.IsZero() }

// ValueAction sends Value to Target, waiting up to Timeout.
type ValueAction struct {
	Target  thread.ValueHandle
	Value   thread.Value
	Timeout time.Duration
}

func (a ValueAction) execute() bool { return a.Target.SetValue(a.Value, a.Timeout) }
func (a ValueAction) valid() bool   { return !a.Target.IsZero() }

// CallbackAction posts Callback to Target, waiting up to Timeout.
type CallbackAction struct {
	Target   thread.CallbackHandle
	Callback thread.Callback
	Timeout  time.Duration
}

func (a CallbackAction) execute() bool { return a.Target.SetCallback(a.Callback, a.Timeout) }
func (a CallbackAction) valid() bool   { return !a.Target.IsZero() && a.Callback.IsValid() }
