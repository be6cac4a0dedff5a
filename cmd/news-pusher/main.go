package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"news_pusher/internal/config"
	"news_pusher/internal/scheduler"
)

// Version is set via ldflags at build time.
var Version = "dev"

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "news-pusher",
		Short:         "Push new listing-page news to a Feishu bot",
		Long:          "news-pusher fetches a news listing page, picks the items it has not delivered yet and posts them to a Feishu custom-bot webhook.",
		RunE:          runAction,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "optional path to a YAML config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run a single pass and exit",
			RunE:  runAction,
		},
		&cobra.Command{
			Use:   "watch",
			Short: "Run passes on the CRON_SPEC schedule until interrupted",
			RunE:  watchAction,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(_ *cobra.Command, _ []string) {
				fmt.Printf("news-pusher %s\n", Version)
			},
		},
	)
	return root
}

func runAction(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return err
	}
	defer app.Close()

	runCtx, runCancel := context.WithTimeout(ctx, cfg.Schedule.RunTimeout)
	defer runCancel()

	if _, err := app.service.Run(runCtx); err != nil {
		logger.Error("run failed", "error", err)
		return err
	}
	return nil
}

func watchAction(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return err
	}
	defer app.Close()

	sched, err := scheduler.NewScheduler(cfg.Schedule.CronSpec, app.service, cfg.Schedule.RunTimeout, logger)
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		return err
	}

	logger.Info("starting news pusher",
		"url", cfg.Source.URL,
		"cron", cfg.Schedule.CronSpec,
		"state_backend", cfg.State.Backend,
	)

	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler error", "error", err)
		return err
	}
	return nil
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	logger := setupLogger("info")

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return nil, nil, err
	}

	return cfg, setupLogger(cfg.LogLevel), nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
