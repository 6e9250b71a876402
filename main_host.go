//go:build !tinygo

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"motive/app"
	"motive/hal"
	"motive/internal/buildinfo"
)

var rootCmd = &cobra.Command{
	Use:           "motive",
	Short:         "Position acquisition and control firmware on a host HAL",
	SilenceUsage:  true,
	SilenceErrors: true,
}

type runOptions struct {
	headless bool
	hz       int
	ticks    uint64
	config   string
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the firmware in a window or headless",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := app.DefaultConfig()
		if runOpts.config != "" {
			var err error
			if cfg, err = app.LoadConfig(runOpts.config); err != nil {
				return err
			}
		} else if err := cfg.Validate(); err != nil {
			return err
		}

		if runOpts.headless {
			return runHeadless(cmd.Context(), cfg, hal.HeadlessConfig{Hz: runOpts.hz, Ticks: runOpts.ticks})
		}
		return runWindow(cmd.Context(), cfg)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the default configuration as TOML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return app.DefaultConfig().WriteTOML(cmd.OutOrStdout())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
	},
}

// appHolder hands the app built inside a runner back to main.
type appHolder struct {
	mu  sync.Mutex
	app *app.App
}

func (h *appHolder) factory(ctx context.Context, cfg app.Config) func(hal.HAL) func() error {
	return func(hw hal.HAL) func() error {
		a, err := app.New(ctx, hw, cfg)
		if err != nil {
			return func() error { return err }
		}
		h.mu.Lock()
		h.app = a
		h.mu.Unlock()
		return a.Step
	}
}

func (h *appHolder) shutdown() {
	h.mu.Lock()
	a := h.app
	h.mu.Unlock()
	if a != nil {
		a.Shutdown()
	}
}

func runHeadless(ctx context.Context, cfg app.Config, hc hal.HeadlessConfig) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var holder appHolder
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return hal.RunHeadless(gctx, holder.factory(gctx, cfg), hc)
	})
	g.Go(func() error {
		<-gctx.Done()
		holder.shutdown()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runWindow(ctx context.Context, cfg app.Config) error {
	var holder appHolder
	defer holder.shutdown()
	if err := hal.RunWindow(holder.factory(ctx, cfg)); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func main() {
	rootCmd.Version = buildinfo.Short()

	runCmd.Flags().BoolVar(&runOpts.headless, "headless", false, "run without a window")
	runCmd.Flags().IntVar(&runOpts.hz, "hz", 60, "tick rate in headless mode")
	runCmd.Flags().Uint64Var(&runOpts.ticks, "ticks", 0, "stop after N ticks in headless mode (0 = run forever)")
	runCmd.Flags().StringVarP(&runOpts.config, "config", "c", "", "TOML configuration file")

	rootCmd.AddCommand(runCmd, configCmd, versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
