//go:build !tinygo

package hal

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

type hostHAL struct {
	logger *hostLogger
	led    *hostLED
	fb     *hostFramebuffer
	t      *hostTime
	serial Serial
}

// New returns a host HAL implementation.
func New() HAL {
	return NewWithOutput(os.Stdout, os.Stdout)
}

// NewWithOutput returns a host HAL logging to logW and streaming telemetry to serialW.
func NewWithOutput(logW, serialW io.Writer) HAL {
	logger := newHostLogger(logW)
	return &hostHAL{
		logger: logger,
		led:    &hostLED{logger: logger},
		fb:     newHostFramebuffer(320, 320),
		t:      newHostTime(),
		serial: &hostSerial{w: serialW},
	}
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) LED() LED         { return h.led }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Time() Time       { return h.t }
func (h *hostHAL) Serial() Serial   { return h.serial }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

// hostLogger colors lines by their "error:"/"warn:" prefix.
type hostLogger struct {
	mu   sync.Mutex
	w    io.Writer
	errc *color.Color
	warn *color.Color
}

func newHostLogger(w io.Writer) *hostLogger {
	return &hostLogger{
		w:    w,
		errc: color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow),
	}
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case strings.HasPrefix(s, "error:"), strings.Contains(s, " error:"):
		l.errc.Fprintln(l.w, s)
	case strings.HasPrefix(s, "warn:"), strings.Contains(s, " warn:"):
		l.warn.Fprintln(l.w, s)
	default:
		io.WriteString(l.w, s+"\n")
	}
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.WriteLineString(string(b))
}

type hostLED struct {
	mu     sync.Mutex
	on     bool
	logger *hostLogger
}

func (l *hostLED) High() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.on {
		return
	}
	l.on = true
	l.logger.WriteLineString("led: HIGH")
}

func (l *hostLED) Low() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.on {
		return
	}
	l.on = false
	l.logger.WriteLineString("led: LOW")
}

type hostSerial struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *hostSerial) Write(p []byte) (int, error) {
	if s.w == nil {
		return 0, ErrNotImplemented
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
