package http

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	adminUsecases "github.com/kursio/kursio/internal/application/admin/usecases"
	"github.com/kursio/kursio/internal/infrastructure/scheduler"
)

// reconcileSweepJob adapts the sweep use case to scheduler.BatchJob.
type reconcileSweepJob struct {
	uc *adminUsecases.ReconcileAllUseCase
}

func (j reconcileSweepJob) Execute(ctx context.Context) (int, error) {
	result, err := j.uc.Execute(ctx)
	if err != nil {
		return 0, err
	}
	return int(result.Checked), nil
}

// StartScheduler registers and starts the periodic reconcile sweep when
// reconcile.schedule is set. It is a no-op otherwise.
func (c *Container) StartScheduler() error {
	cron := c.cfg.Reconcile.Schedule
	if cron == "" {
		return nil
	}

	loc, err := time.LoadLocation(c.cfg.Reconcile.Timezone)
	if err != nil {
		c.log.Warnw("unknown reconcile timezone, using UTC", "timezone", c.cfg.Reconcile.Timezone, "error", err)
		loc = time.UTC
	}

	m, err := scheduler.NewSchedulerManager(loc, c.log.Named("scheduler"))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	timeout := time.Duration(c.cfg.Reconcile.SweepTimeoutMinutes) * time.Minute
	if err := m.RegisterReconcileSweep(cron, timeout, reconcileSweepJob{uc: c.ucs.reconcileAll}); err != nil {
		return fmt.Errorf("invalid reconcile.schedule %q: %w", cron, err)
	}

	m.Start()
	c.schedulerManager = m
	return nil
}
