package app

import (
	"sync/atomic"
	"time"

	"motive/thread"
)

// Position is an encoder reading in centidegrees.
type Position = int32

// PositionNotValid marks a sensor that did not answer in time.
const PositionNotValid Position = 1000 * 100

// Sensor is a simulated encoder. Its conversions run on the bus thread.
type Sensor struct {
	name    string
	step    int32
	latency time.Duration
	broken  atomic.Bool

	pos  atomic.Int32
	last atomic.Int32
	hits atomic.Uint32
}

func newSensor(c SensorConfig) *Sensor {
	s := &Sensor{
		name:    c.Name,
		step:    int32(c.Step),
		latency: time.Duration(c.LatencyUS) * time.Microsecond,
	}
	s.pos.Store(int32(c.Start))
	s.broken.Store(c.Broken)
	return s
}

func (s *Sensor) Name() string { return s.name }

// SetBroken makes the sensor stop answering.
func (s *Sensor) SetBroken(b bool) { s.broken.Store(b) }

// Last returns the most recent conversion.
func (s *Sensor) Last() Position { return s.last.Load() }

// Conversions returns how many conversions completed.
func (s *Sensor) Conversions() uint32 { return s.hits.Load() }

// convert performs one conversion and reports whether the chip answered.
func (s *Sensor) convert() bool {
	if s.latency > 0 {
		time.Sleep(s.latency)
	}
	if s.broken.Load() {
		return false
	}
	s.last.Store(s.pos.Add(s.step))
	s.hits.Add(1)
	return true
}

// conversion is a request posted to the bus thread.
type conversion struct {
	sensor *Sensor
	reply  thread.EventHandle
	ready  thread.Event
}

func runConversion(arg any) {
	req, ok := arg.(*conversion)
	if !ok {
		return
	}
	if req.sensor.convert() {
		req.reply.SetEvent(req.ready)
	}
}

// Bus serializes sensor conversions on one callback thread.
type Bus struct {
	h thread.CallbackHandle
}

// Ask starts a conversion on s; ready is set on reply when it completes.
func (b Bus) Ask(s *Sensor, reply thread.EventHandle, ready thread.Event) bool {
	return b.h.SetCallback(thread.Callback{
		Call: runConversion,
		Arg:  &conversion{sensor: s, reply: reply, ready: ready},
	}, thread.NoWait)
}
