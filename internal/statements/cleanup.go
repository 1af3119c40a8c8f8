package statements

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"underwriter-backend/internal/shared/telemetry"
)

// Sweeper periodically deletes uploads past the retention window.
type Sweeper struct {
	svc       *Service
	retention time.Duration
	cron      *cron.Cron
}

// NewSweeper constructs a Sweeper with the given cron schedule.
func NewSweeper(svc *Service, schedule string, retention time.Duration) (*Sweeper, error) {
	s := &Sweeper{
		svc:       svc,
		retention: retention,
		cron:      cron.New(),
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins the sweep schedule in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := s.svc.SweepExpired(ctx, s.retention)
	if err != nil {
		telemetry.Error("statements.sweep_failed", map[string]any{"error": err.Error()})
		return
	}
	if removed > 0 {
		telemetry.Info("statements.sweep_completed", map[string]any{"removed": removed})
	}
}
