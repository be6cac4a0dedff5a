package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"news_pusher/internal/domain"
)

// Runner performs a single push pass.
type Runner interface {
	Run(ctx context.Context) (*domain.RunStats, error)
}

// Scheduler repeats a Runner on a cron schedule. Ticks that fire while the
// previous pass is still going are skipped.
type Scheduler struct {
	cron       *cron.Cron
	schedule   cron.Schedule
	chain      cron.Chain
	runner     Runner
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewScheduler(spec string, runner Runner, runTimeout time.Duration, logger *slog.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}

	cl := cronLogger{logger: logger}

	return &Scheduler{
		cron:       cron.New(cron.WithLogger(cl)),
		schedule:   schedule,
		chain:      cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		runner:     runner,
		runTimeout: runTimeout,
		logger:     logger,
	}, nil
}

// Start runs one pass immediately, then follows the schedule until ctx is
// cancelled. It waits for an in-flight pass before returning ctx.Err().
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "next", s.schedule.Next(time.Now()))

	s.runOnce(ctx)

	s.cron.Schedule(s.schedule, s.chain.Then(cron.FuncJob(func() {
		s.runOnce(ctx)
	})))
	s.cron.Start()

	<-ctx.Done()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	if _, err := s.runner.Run(runCtx); err != nil {
		s.logger.Error("run failed", "error", err)
	}
}

// cronLogger routes cron's internal logging to slog. cron's Info is chatty,
// so it goes to debug.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
