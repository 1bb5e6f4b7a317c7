// Package jobs schedules background maintenance.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the expiry sweep every five minutes.
const DefaultSweepSchedule = "*/5 * * * *"

// Expirer persists the expired status on overdue assignments.
type Expirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// ExpirySweeper runs an Expirer on a cron schedule. Reads already treat
// overdue assignments as expired; the sweep only makes the stored status
// catch up.
type ExpirySweeper struct {
	cron    *cron.Cron
	expirer Expirer
	log     *slog.Logger
	timeout time.Duration
}

func NewExpirySweeper(expirer Expirer, schedule string, log *slog.Logger) (*ExpirySweeper, error) {
	if log == nil {
		log = slog.Default()
	}
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	s := &ExpirySweeper{
		cron:    cron.New(),
		expirer: expirer,
		log:     log,
		timeout: time.Minute,
	}
	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// RunOnce performs a single sweep.
func (s *ExpirySweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	n, err := s.expirer.ExpireOverdue(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "expiry sweep failed", "error", err)
		return
	}
	s.log.DebugContext(ctx, "expiry sweep finished", "expired", n)
}

func (s *ExpirySweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *ExpirySweeper) Stop() {
	<-s.cron.Stop().Done()
}
