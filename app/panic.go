package app

import (
	"fmt"
	"image/color"
	"strings"
	"unicode/utf8"

	"motive/hal"
	"motive/kernel"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

func installPanicHandler(h hal.HAL) {
	kernel.SetPanicHandler(func(info kernel.PanicInfo) {
		lines := panicLines(info)
		if l := h.Logger(); l != nil {
			for _, line := range lines {
				l.WriteLineString("error: " + line)
			}
		}

		disp := h.Display()
		if disp == nil {
			return
		}
		fb := disp.Framebuffer()
		if fb == nil {
			return
		}
		drawPanic(&fbDisplay{fb: fb}, lines)
	})
}

func panicLines(info kernel.PanicInfo) []string {
	lines := []string{
		"motive panic",
		fmt.Sprintf("thread: %d %s", info.ThreadID, info.Name),
		fmt.Sprintf("panic: %v", info.Value),
	}
	if len(info.Stack) == 0 {
		return append(lines, "stack: unavailable")
	}
	lines = append(lines, "stack:")
	for _, line := range strings.Split(string(info.Stack), "\n") {
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func drawPanic(d *fbDisplay, lines []string) {
	w, h := d.Size()
	if w == 0 || h == 0 {
		return
	}
	d.FillRectangle(0, 0, w, h, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})

	font := &proggy.TinySZ8pt7b
	_, cw := tinyfont.LineWidth(font, "0")
	cols := int16(1)
	if cw > 0 && int16(cw) < w {
		cols = w / int16(cw)
	}
	fg := color.RGBA{A: 0xff}

	y := int16(lineHeight)
	for _, line := range lines {
		for len(line) > 0 {
			if y > h {
				d.Display()
				return
			}
			chunk, rest := takeRunes(line, cols)
			tinyfont.WriteLine(d, font, 0, y, chunk, fg)
			y += lineHeight
			line = strings.TrimLeft(rest, " \t")
		}
	}
	d.Display()
}

func takeRunes(s string, n int16) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	var i int
	for count := int16(0); i < len(s) && count < n; count++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i], s[i:]
}
