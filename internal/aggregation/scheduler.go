package aggregation

import (
	"context"
	"log/slog"
	"time"

	"github.com/aevon-lab/collate/internal/core/aggregation"
)

// PlanRunner is the part of Runner the scheduler depends on.
type PlanRunner interface {
	Run(ctx context.Context, def aggregation.PlanDefinition) (RunResult, error)
}

// Scheduler rebuilds every plan in a repository on a fixed interval.
type Scheduler struct {
	interval time.Duration
	plans    aggregation.PlanRepository
	runner   PlanRunner
}

// NewScheduler creates a scheduler.
func NewScheduler(interval time.Duration, plans aggregation.PlanRepository, runner PlanRunner) *Scheduler {
	return &Scheduler{
		interval: interval,
		plans:    plans,
		runner:   runner,
	}
}

// Start builds all plans immediately and then once per interval.
// Runs until context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Scheduler] Starting plan refresh scheduler",
		"interval", s.interval,
		"plans", len(s.plans.Plans()),
	)

	s.RunAll(ctx)

	for {
		select {
		case <-ticker.C:
			s.RunAll(ctx)
		case <-ctx.Done():
			slog.Info("[Scheduler] Stopping (context cancelled)")
			return nil
		}
	}
}

// RunAll runs every plan in name order. A failing plan is logged and does not
// stop the others. It returns the number of plans that succeeded.
func (s *Scheduler) RunAll(ctx context.Context) int {
	succeeded := 0
	for _, def := range s.plans.Plans() {
		select {
		case <-ctx.Done():
			slog.Info("[Scheduler] Refresh interrupted by context cancellation",
				"plans_succeeded", succeeded,
			)
			return succeeded
		default:
		}

		if _, err := s.runner.Run(ctx, def); err != nil {
			slog.Error("[Scheduler] Plan refresh failed", "plan", def.Name, "error", err)
			continue
		}
		succeeded++
	}
	return succeeded
}
