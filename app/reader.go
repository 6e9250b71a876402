package app

import (
	"fmt"
	"sync"
	"time"

	"motive/hal"
	"motive/thread"
	"motive/timer"
)

// Reader event bits. Sensor i owns askdata(i) and dataready(i).
const (
	evAcquire thread.Event = 1 << 0
	evNoReply thread.Event = 1 << 1
)

func askdata(i int) thread.Event   { return 1 << uint(2+i) }
func dataready(i int) thread.Event { return 1 << uint(2+MaxSensors+i) }

// Transmitter event bits.
const evTransmit thread.Event = 1 << 0

// Reader acquires the sensors in daisy chain on every evAcquire: each sensor
// is asked in turn and the next one is asked only once the previous answered
// or timed out. A complete chain becomes the latest Frame and wakes the
// transmitter.
type Reader struct {
	log         hal.Logger
	sensors     []*Sensor
	bus         Bus
	self        thread.EventHandle
	transmitter thread.EventHandle
	noreply     *timer.Timer
	timeout     time.Duration
	tick        func() uint64

	// Owned by the reader thread.
	acquiring bool
	current   int
	askedAt   time.Time
	positions []Position
	valid     uint16
	overruns  uint32

	mu     sync.Mutex
	seq    uint32
	missed uint32
	latest Frame
}

// Process handles one event mask delivered to the reader thread.
func (r *Reader) Process(events thread.Event) {
	if events == 0 {
		return
	}
	if events&evAcquire != 0 {
		r.begin()
	}
	for i := range r.sensors {
		if events&askdata(i) != 0 {
			r.ask(i)
		}
		if events&dataready(i) != 0 {
			r.ready(i)
		}
	}
	if events&evNoReply != 0 {
		r.noReply()
	}
}

func (r *Reader) onEvent(_ *thread.EventThread, events thread.Event, _ any) {
	r.Process(events)
}

func (r *Reader) begin() {
	if r.acquiring {
		r.overruns++
		r.logf("warn: reader: acquisition overrun %d", r.overruns)
		return
	}
	r.acquiring = true
	r.current = 0
	r.valid = 0
	r.positions = make([]Position, len(r.sensors))
	r.self.SetEvent(askdata(0))
}

func (r *Reader) ask(i int) {
	if !r.acquiring || i != r.current {
		return
	}
	r.askedAt = time.Now()
	if !r.bus.Ask(r.sensors[i], r.self, dataready(i)) {
		r.logf("warn: reader: bus busy, %s skipped", r.sensors[i].Name())
		r.fail()
		return
	}
	r.noreply.Start(timer.Config{
		Duration: r.timeout,
		Mode:     timer.OneShot,
		Action:   timer.EventAction{Target: r.self, Event: evNoReply},
	})
}

func (r *Reader) ready(i int) {
	if !r.acquiring || i != r.current {
		return
	}
	r.noreply.Stop()
	r.positions[i] = r.sensors[i].Last()
	r.valid |= 1 << uint(i)
	r.next()
}

func (r *Reader) noReply() {
	// A late expiry of the previous sensor's timer arrives well before the
	// current sensor's timeout.
	if !r.acquiring || time.Since(r.askedAt) < r.timeout {
		return
	}
	r.logf("warn: reader: no reply from %s", r.sensors[r.current].Name())
	r.fail()
}

func (r *Reader) fail() {
	r.positions[r.current] = PositionNotValid
	r.mu.Lock()
	r.missed++
	r.mu.Unlock()
	r.next()
}

func (r *Reader) next() {
	r.current++
	if r.current < len(r.sensors) {
		r.self.SetEvent(askdata(r.current))
		return
	}
	r.acquiring = false

	r.mu.Lock()
	r.seq++
	r.latest = Frame{
		Seq:       r.seq,
		Tick:      r.tick(),
		Positions: r.positions,
		Valid:     r.valid,
		Missed:    r.missed,
	}
	r.mu.Unlock()
	r.positions = nil

	r.transmitter.SetEvent(evTransmit)
}

// Latest returns the last complete acquisition.
func (r *Reader) Latest() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest.clone()
}

func (r *Reader) logf(format string, args ...any) {
	if r.log == nil {
		return
	}
	r.log.WriteLineString(fmt.Sprintf(format, args...))
}
