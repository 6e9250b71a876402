package app

import (
	"fmt"
	"sync/atomic"

	"motive/hal"
	"motive/thread"
)

// Transmitter publishes the reader's latest frame on every evTransmit.
type Transmitter struct {
	reader   *Reader
	serial   hal.Serial
	log      hal.Logger
	sink     string
	logEvery uint32

	sent   atomic.Uint32
	failed atomic.Uint32
}

func (t *Transmitter) onEvent(_ *thread.EventThread, events thread.Event, _ any) {
	if events&evTransmit == 0 {
		return
	}
	t.transmit(t.reader.Latest())
}

func (t *Transmitter) transmit(f Frame) {
	if t.sink == "none" {
		t.sent.Add(1)
		return
	}
	b, err := f.Encode()
	if err != nil {
		t.failed.Add(1)
		t.logf("error: transmitter: %v", err)
		return
	}

	switch t.sink {
	case "serial":
		if t.serial == nil {
			t.failed.Add(1)
			return
		}
		if _, err := t.serial.Write(b); err != nil {
			t.failed.Add(1)
			t.logf("error: transmitter: write: %v", err)
			return
		}
	case "log":
		if n := t.sent.Load() + 1; t.logEvery > 0 && n%t.logEvery == 0 {
			t.logf("tx: seq=%d tick=%d pos=%v valid=%#x % x", f.Seq, f.Tick, f.Positions, f.Valid, b)
		}
	}
	t.sent.Add(1)
}

// Sent returns the number of frames published.
func (t *Transmitter) Sent() uint32 { return t.sent.Load() }

func (t *Transmitter) logf(format string, args ...any) {
	if t.log == nil {
		return
	}
	t.log.WriteLineString(fmt.Sprintf(format, args...))
}
