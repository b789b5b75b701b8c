package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/HiteshGorana/Leo/internal/config"
	"github.com/HiteshGorana/Leo/internal/dispatch"
	"github.com/HiteshGorana/Leo/internal/dom"
	"github.com/HiteshGorana/Leo/internal/relay"
	"github.com/HiteshGorana/Leo/pkg/browser"
)

func runCmd() *cobra.Command {
	var headless bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the relay agent: drive Chrome, execute bridge commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), headless)
		},
	}
	cmd.Flags().BoolVar(&headless, "headless", false, "run Chrome headless")
	return cmd
}

func runAgent(ctx context.Context, headlessFlag bool) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr := browser.New(
		browser.WithHeadless(headlessFlag || cfg.Agent.Headless),
		browser.WithScreenshotMaxWidth(cfg.Agent.ScreenshotMaxWidth),
		browser.WithLogger(logger),
	)
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer mgr.Close()

	exec := dispatch.NewExecutor(mgr,
		dispatch.WithRankOptions(rankOptions(cfg)),
		dispatch.WithDefaults(cfg.Agent.ScrollY, cfg.Agent.WaitMs),
	)

	backoff := relay.NewBackoff(cfg.Agent.Reconnect.Floor.Std(), cfg.Agent.Reconnect.Cap.Std())
	if cfg.Agent.Reconnect.Multiplier > 1 {
		backoff.Multiplier = cfg.Agent.Reconnect.Multiplier
	}

	conn := relay.New(cfg.Agent.Endpoint, nil,
		relay.WithLogger(logger),
		relay.WithBackoff(backoff),
	)
	d := dispatch.New(exec, conn, dispatch.WithLogger(logger))
	conn.SetHandler(d.OnMessage)

	conn.OnStateChange(func(s relay.State) {
		switch s {
		case relay.StateOpen:
			logger.Info("link ON", "endpoint", cfg.Agent.Endpoint)
		case relay.StateClosed:
			logger.Info("link OFF", "endpoint", cfg.Agent.Endpoint)
		}
	})

	if watcher, err := config.NewWatcher(cfgPath, logger); err == nil {
		watcher.OnChange(func(next *config.Config) {
			exec.Reconfigure(rankOptions(next), next.Agent.ScrollY, next.Agent.WaitMs)
		})
		if err := watcher.Start(); err != nil {
			logger.Warn("config watcher not started", "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	logger.Info("relay agent starting", "endpoint", cfg.Agent.Endpoint, "config", cfgPath)
	conn.Run(ctx)
	return nil
}

func rankOptions(cfg *config.Config) dom.RankOptions {
	opts := dom.DefaultRankOptions()
	if cfg.Agent.Elements.Selector != "" {
		opts.Selector = cfg.Agent.Elements.Selector
	}
	opts.Limit = cfg.Agent.Elements.Limit
	opts.TextLimit = cfg.Agent.Elements.TextLimit
	return opts
}
