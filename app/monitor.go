package app

import (
	"fmt"
	"image/color"
	"strings"
	"sync/atomic"

	"motive/internal/buildinfo"
	"motive/thread"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

var (
	colorBG     = color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xff}
	colorFG     = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	colorDim    = color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}
	colorHeader = color.RGBA{R: 0x18, G: 0x18, B: 0x18, A: 0xff}
	colorBad    = color.RGBA{R: 0xff, G: 0x55, B: 0x55, A: 0xff}
)

const lineHeight = 10

// Monitor draws the thread table and the latest acquisition.
type Monitor struct {
	d        *fbDisplay
	font     tinyfont.Fonter
	registry *thread.Registry
	reader   *Reader
	actuator *Actuator
	tick     func() uint64
	frames   atomic.Uint32
}

func newMonitor(d *fbDisplay, reg *thread.Registry, r *Reader, act *Actuator, tick func() uint64) *Monitor {
	return &Monitor{d: d, font: &proggy.TinySZ8pt7b, registry: reg, reader: r, actuator: act, tick: tick}
}

func (m *Monitor) onPeriod(_ *thread.PeriodicThread, _ any) {
	m.render()
}

// lines returns the text shown on screen.
func (m *Monitor) lines() []string {
	out := []string{fmt.Sprintf("motive %s  tick %d", buildinfo.Short(), m.tick())}
	out = append(out, "id name         type      prio")
	for _, info := range m.registry.Snapshot() {
		out = append(out, fmt.Sprintf("%2d %-12s %-9s %4d", info.ID, fitText(info.Name, 12), info.Type, info.Priority))
	}

	f := m.reader.Latest()
	out = append(out, fmt.Sprintf("frame %d  missed %d  duty %d", f.Seq, f.Missed, m.actuator.Duty()))
	for i, p := range f.Positions {
		if f.IsValid(i) {
			out = append(out, fmt.Sprintf("  s%d %8d", i, p))
		} else {
			out = append(out, fmt.Sprintf("  s%d      n/a", i))
		}
	}
	return out
}

func (m *Monitor) render() {
	w, h := m.d.Size()
	if w == 0 || h == 0 {
		return
	}
	m.d.FillRectangle(0, 0, w, h, colorBG)
	m.d.FillRectangle(0, 0, w, lineHeight+2, colorHeader)

	y := int16(lineHeight)
	for i, line := range m.lines() {
		if y > h {
			break
		}
		c := colorFG
		switch {
		case i == 1:
			c = colorDim
		case strings.HasSuffix(line, "n/a"):
			c = colorBad
		}
		tinyfont.WriteLine(m.d, m.font, 2, y, line, c)
		y += lineHeight
	}
	m.d.Display()
	m.frames.Add(1)
}

// Frames returns the number of screens drawn.
func (m *Monitor) Frames() uint32 { return m.frames.Load() }

func fitText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
