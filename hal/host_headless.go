//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Hz    int
	Ticks uint64

	// Log and Telemetry default to stdout.
	Log       io.Writer
	Telemetry io.Writer
}

// IsValid reports whether cfg can drive a runner.
func (cfg HeadlessConfig) IsValid() bool {
	return cfg.Hz > 0 && time.Second/time.Duration(cfg.Hz) > 0
}

// RunHeadless drives the tick source and step without opening a window.
// It returns when ctx is done, step fails or cfg.Ticks steps have run.
func RunHeadless(ctx context.Context, newApp func(HAL) func() error, cfg HeadlessConfig) error {
	if cfg.Hz == 0 {
		cfg.Hz = 60
	}
	if !cfg.IsValid() {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}
	if cfg.Log == nil {
		cfg.Log = os.Stdout
	}
	if cfg.Telemetry == nil {
		cfg.Telemetry = os.Stdout
	}

	h := NewWithOutput(cfg.Log, cfg.Telemetry).(*hostHAL)
	step := newApp(h)

	t := time.NewTicker(time.Second / time.Duration(cfg.Hz))
	defer t.Stop()

	var n uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-t.C:
			h.t.advance(now)
			if step != nil {
				if err := step(); err != nil {
					return err
				}
			}
			n++
			if cfg.Ticks > 0 && n >= cfg.Ticks {
				return nil
			}
		}
	}
}
