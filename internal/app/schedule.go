package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-push-scheduler/internal/application/sweep"
	"github.com/go-push-scheduler/internal/domain"
	"github.com/robfig/cron/v3"
)

// NewSweepSchedule registers a scheduled sweep on a standard five-field cron
// expression evaluated in loc. A tick that fires while the previous sweep is
// still running is dropped. The caller starts and stops the returned cron.
func NewSweepSchedule(ctx context.Context, loc *time.Location, schedule string, sweeps sweep.Service) (*cron.Cron, error) {
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := c.AddFunc(schedule, func() {
		rep, err := sweeps.Run(ctx, domain.ModeScheduled)
		switch {
		case errors.Is(err, domain.ErrConflict):
			slog.Info("scheduled sweep skipped, a sweep is already running", "run_id", rep.RunID)
		case err != nil:
			slog.Error("scheduled sweep failed", "run_id", rep.RunID, "err", err)
		}
	}); err != nil {
		return nil, err
	}
	return c, nil
}
