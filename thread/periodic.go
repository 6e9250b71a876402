package thread

import (
	"context"

	"motive/kernel"
)

// PeriodicThread runs OnPeriod once per period. Deadlines are absolute: a
// late cycle does not shift the ones after it. It accepts no signals.
type PeriodicThread struct {
	base
}

// NewPeriodicThread returns an unstarted periodic thread.
func NewPeriodicThread(env Env) *PeriodicThread {
	t := &PeriodicThread{}
	t.init(env, PeriodicTrigger, "PeriodicThread", t)
	return t
}

// Start validates cfg and launches the thread. The period is fixed until Stop.
func (t *PeriodicThread) Start(cfg PeriodicConfig) bool {
	if !cfg.IsValid() {
		return false
	}
	return t.launch(cfg.Config, nil, func(ctx context.Context, nt *kernel.Thread) {
		if cfg.Startup != nil {
			cfg.Startup(t, cfg.Param)
		}
		nt.SetPeriod(cfg.Period)
		for nt.WaitPeriod() {
			if ctx.Err() != nil {
				return
			}
			cfg.OnPeriod(t, cfg.Param)
		}
	})
}

// Stop disables the period, then deletes the native thread.
func (t *PeriodicThread) Stop() bool {
	return t.release(func(nt *kernel.Thread) { nt.SetPeriod(0) }, nil)
}
