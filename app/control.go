package app

import (
	"math"
	"sync/atomic"
	"time"

	"motive/hal"
	"motive/thread"
)

// PID holds the state of a PID controller.
type PID struct {
	Kp, Ki, Kd float64
	prevError  float64
	integral   float64
}

// Update calculates the new control output.
func (pid *PID) Update(currentError, dt float64) float64 {
	proportional := pid.Kp * currentError

	pid.integral += currentError * dt
	integral := pid.Ki * pid.integral

	derivative := pid.Kd * (currentError - pid.prevError) / dt
	pid.prevError = currentError

	return proportional + integral + derivative
}

// Duty limits. Duty values travel as thread.Value offset by dutyBias so that
// no duty encodes to thread.NoValue.
const (
	DutyMax  = 1000
	dutyBias = DutyMax + 1
)

func encodeDuty(u float64) thread.Value {
	u = math.Max(-DutyMax, math.Min(DutyMax, math.Round(u)))
	return thread.Value(int32(u) + dutyBias)
}

func decodeDuty(v thread.Value) (int32, bool) {
	if v == thread.NoValue {
		return 0, false
	}
	return int32(v) - dutyBias, true
}

// Control tracks the setpoint with the first sensor of the chain and drives
// the actuator.
type Control struct {
	pid      PID
	dt       float64
	reader   *Reader
	actuator thread.ValueHandle
	setpoint atomic.Int32
	lastSeq  uint32
}

func (c *Control) onPeriod(_ *thread.PeriodicThread, _ any) {
	f := c.reader.Latest()
	if !f.IsValid(0) || f.Seq == c.lastSeq {
		return
	}
	c.lastSeq = f.Seq

	e := float64(c.setpoint.Load() - f.Positions[0])
	c.actuator.SetValue(encodeDuty(c.pid.Update(e, c.dt)), thread.NoWait)
}

// Actuator applies duty values. When no value arrives within its timeout it
// falls back to zero duty.
type Actuator struct {
	led      hal.LED
	duty     atomic.Int32
	updates  atomic.Uint32
	failsafe atomic.Uint32
}

func (a *Actuator) onValue(_ *thread.ValueThread, v thread.Value, _ any) {
	d, ok := decodeDuty(v)
	if !ok {
		a.failsafe.Add(1)
		d = 0
	} else {
		a.updates.Add(1)
	}
	a.duty.Store(d)
	if a.led == nil {
		return
	}
	if d > 0 {
		a.led.High()
	} else {
		a.led.Low()
	}
}

// Duty returns the applied duty in -DutyMax..DutyMax.
func (a *Actuator) Duty() int32 { return a.duty.Load() }

func actuatorTimeout(controlPeriod time.Duration) time.Duration {
	return 10 * controlPeriod
}
