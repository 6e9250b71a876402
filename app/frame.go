package app

import (
	"bytes"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Frame is one completed acquisition as sent on the telemetry link.
type Frame struct {
	Seq       uint32     `msgpack:"seq"`
	Tick      uint64     `msgpack:"tick"`
	Positions []Position `msgpack:"pos"`
	// Valid has bit i set when Positions[i] is a real reading.
	Valid  uint16 `msgpack:"valid"`
	Missed uint32 `msgpack:"missed"`
}

// IsValid reports whether position i is a real reading.
func (f Frame) IsValid(i int) bool {
	return i >= 0 && i < len(f.Positions) && f.Valid&(1<<uint(i)) != 0
}

func (f Frame) clone() Frame {
	f.Positions = append([]Position(nil), f.Positions...)
	return f
}

// Encode returns the msgpack encoding of f.
func (f Frame) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(&f); err != nil {
		return nil, fmt.Errorf("encode frame %d: %w", f.Seq, err)
	}
	return buf.Bytes(), nil
}

// DecodeFrames reads every frame of a telemetry stream.
func DecodeFrames(r io.Reader) ([]Frame, error) {
	dec := msgpack.NewDecoder(r)
	var out []Frame
	for {
		var f Frame
		err := dec.Decode(&f)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("decode frame %d: %w", len(out), err)
		}
		out = append(out, f)
	}
}
