//go:build tinygo && !baremetal

package hal

import (
	"fmt"
	"os"
	"runtime"
)

type tinyGoHostHAL struct {
	logger *tinyGoHostLogger
	led    *tinyGoHostLED
	fb     *tinyGoHostFramebuffer
	t      *tinyGoTime
}

// New returns a TinyGo-on-host HAL implementation.
//
// This is used by `tinygo run` targets like linux/wasm where there is no MCU
// pin mapping. Telemetry frames go to stdout.
func New() HAL {
	l := &tinyGoHostLogger{}
	return &tinyGoHostHAL{
		logger: l,
		led:    &tinyGoHostLED{logger: l},
		fb:     newTinyGoHostFramebuffer(320, 320),
		t:      newTinyGoTime(),
	}
}

func (h *tinyGoHostHAL) Logger() Logger   { return h.logger }
func (h *tinyGoHostHAL) LED() LED         { return h.led }
func (h *tinyGoHostHAL) Display() Display { return tinyGoDisplay{fb: h.fb} }
func (h *tinyGoHostHAL) Time() Time       { return h.t }
func (h *tinyGoHostHAL) Serial() Serial   { return os.Stdout }

type tinyGoHostLogger struct{}

func (l *tinyGoHostLogger) WriteLineString(s string) {
	println(s)
}

func (l *tinyGoHostLogger) WriteLineBytes(b []byte) {
	println(string(b))
}

type tinyGoHostLED struct {
	on     bool
	logger *tinyGoHostLogger
}

func (l *tinyGoHostLED) High() {
	if l.on {
		return
	}
	l.on = true
	l.logger.WriteLineString(fmt.Sprintf("led: on (tinygo/%s)", runtime.GOOS))
}

func (l *tinyGoHostLED) Low() {
	if !l.on {
		return
	}
	l.on = false
	l.logger.WriteLineString(fmt.Sprintf("led: off (tinygo/%s)", runtime.GOOS))
}
