package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"bizintel/internal/domain"
)

// Runner builds every enabled dashboard once.
type Runner interface {
	RunAll(ctx context.Context) ([]domain.RunStats, error)
}

type Scheduler struct {
	runner   Runner
	cron     *cron.Cron
	schedule cron.Schedule
	spec     string
	timeout  time.Duration
	logger   *slog.Logger
}

// New parses spec (standard cron syntax or descriptors such as
// "@every 6h"). Each run is bounded by timeout.
func New(runner Runner, spec string, timeout time.Duration, logger *slog.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	return &Scheduler{
		runner:   runner,
		cron:     cron.New(),
		schedule: schedule,
		spec:     spec,
		timeout:  timeout,
		logger:   logger.With("component", "scheduler"),
	}, nil
}

// Start runs the dashboards immediately, then on schedule until ctx is
// cancelled. It waits for a running job before returning.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "spec", s.spec, "timeout", s.timeout)

	s.RunOnce(ctx)

	// Schedule bypasses the cron's own chain, so wrap the job here.
	job := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() { s.RunOnce(ctx) }))
	s.cron.Schedule(s.schedule, job)
	s.cron.Start()

	<-ctx.Done()
	<-s.cron.Stop().Done()

	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stats, err := s.runner.RunAll(runCtx)
	if err != nil {
		s.logger.Error("dashboard run failed", "error", err)
	}
	s.logger.Info("scheduled run finished", "reports", len(stats))
}
