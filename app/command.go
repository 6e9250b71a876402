package app

import (
	"fmt"
	"time"

	"motive/thread"
	"motive/timer"
)

// Op is a command opcode. Zero is reserved so that no command encodes to
// thread.NoMessage.
type Op uint8

const (
	OpStart    Op = iota + 1 // Arg: acquisition period in ms, 0 keeps the current one
	OpStop                   // no Arg
	OpSetpoint               // Arg: signed 24-bit setpoint in centidegrees
	OpBreak                  // Arg: sensor index; toggles its failure
)

func (o Op) String() string {
	switch o {
	case OpStart:
		return "start"
	case OpStop:
		return "stop"
	case OpSetpoint:
		return "setpoint"
	case OpBreak:
		return "break"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

const argMask = 1<<24 - 1

// Command is packed into one message word: opcode in the top byte of the low
// 32 bits, argument below it.
type Command struct {
	Op  Op
	Arg uint32
}

// SetpointCommand returns the command changing the control setpoint.
func SetpointCommand(p Position) Command {
	return Command{Op: OpSetpoint, Arg: uint32(p) & argMask}
}

// Setpoint decodes a signed 24-bit argument.
func (c Command) Setpoint() Position {
	return Position(int32(c.Arg<<8) >> 8)
}

// Message encodes c.
func (c Command) Message() thread.Message {
	return thread.Message(uintptr(c.Op)<<24 | uintptr(c.Arg&argMask))
}

// ParseCommand decodes m. It fails for NoMessage and unknown opcodes.
func ParseCommand(m thread.Message) (Command, bool) {
	if m == thread.NoMessage {
		return Command{}, false
	}
	c := Command{Op: Op(m >> 24 & 0xFF), Arg: uint32(m) & argMask}
	switch c.Op {
	case OpStart, OpStop, OpSetpoint, OpBreak:
		return c, true
	default:
		return Command{}, false
	}
}

// commander applies commands on the commands thread.
type commander struct {
	a       *App
	acquire *timer.Timer
	period  time.Duration
}

func (c *commander) onMessage(_ *thread.MessageThread, m thread.Message, _ any) {
	cmd, ok := ParseCommand(m)
	if !ok {
		if m != thread.NoMessage {
			c.a.logf("warn: commands: bad message %#x", uintptr(m))
		}
		return
	}
	c.apply(cmd)
}

func (c *commander) apply(cmd Command) {
	switch cmd.Op {
	case OpStart:
		if cmd.Arg > 0 {
			c.period = time.Duration(cmd.Arg) * time.Millisecond
		}
		ok := c.acquire.Start(timer.Config{
			Duration: c.period,
			Mode:     timer.Forever,
			Action:   timer.EventAction{Target: c.a.readerThread.Handle(), Event: evAcquire},
		})
		c.a.logf("commands: start acquisition every %v: %v", c.period, ok)
	case OpStop:
		c.acquire.Stop()
		c.a.logf("commands: stop acquisition")
	case OpSetpoint:
		c.a.control.setpoint.Store(cmd.Setpoint())
		c.a.logf("commands: setpoint %d", cmd.Setpoint())
	case OpBreak:
		if int(cmd.Arg) < len(c.a.sensors) {
			s := c.a.sensors[cmd.Arg]
			s.SetBroken(!s.broken.Load())
			c.a.logf("commands: sensor %s broken=%v", s.Name(), s.broken.Load())
		}
	}
}
