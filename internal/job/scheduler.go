// Package job drives the periodic reconciliation sweeps.
package job

import (
	"context"
	"time"

	"github.com/iliyamo/library-seat-reservation/internal/logger"
	"github.com/iliyamo/library-seat-reservation/internal/service"
)

// closingReminderLead is how long before the closing hour the reminder
// goes out.
const closingReminderLead = 30 * time.Minute

// Scheduler ticks at a fixed interval and runs the three sweeps in
// sequence, plus the once-daily closing reminder and closing checkout.
// A failing sweep is logged and never stops the others.
type Scheduler struct {
	sweeper  *service.Sweeper
	policy   service.PolicyProvider
	clock    service.Clock
	interval time.Duration

	remindedDay string
	closedDay   string
}

func NewScheduler(sweeper *service.Sweeper, policy service.PolicyProvider, clock service.Clock, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{sweeper: sweeper, policy: policy, clock: clock, interval: interval}
}

// Run blocks until ctx is cancelled, executing one tick per interval.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Get().Info("scheduler started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			logger.Get().Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one full reconciliation pass.  Exported so tests can drive the
// scheduler without a ticker.
func (s *Scheduler) Tick(ctx context.Context) {
	log := logger.Get()

	if n, err := s.sweeper.SweepViolations(ctx); err != nil {
		log.Error("violation sweep failed", "err", err)
	} else if n > 0 {
		log.Info("violation sweep applied", "count", n)
	}
	if n, err := s.sweeper.SweepExpirations(ctx); err != nil {
		log.Error("expiration sweep failed", "err", err)
	} else if n > 0 {
		log.Info("expiration sweep applied", "count", n)
	}
	if n, err := s.sweeper.SweepOccupancy(ctx); err != nil {
		log.Error("occupancy sweep failed", "err", err)
	} else if n > 0 {
		log.Info("occupancy sweep applied", "count", n)
	}

	s.closingPass(ctx)
}

// closingPass fires the closing reminder and then the mass checkout, each
// at most once per calendar day.
func (s *Scheduler) closingPass(ctx context.Context) {
	log := logger.Get()
	p := s.policy.Current(ctx)
	now := s.clock.Now()
	day := now.Format("2006-01-02")
	closeAt := time.Date(now.Year(), now.Month(), now.Day(), p.ClosingHour, 0, 0, 0, now.Location())

	if s.remindedDay != day && !now.Before(closeAt.Add(-closingReminderLead)) && now.Before(closeAt) {
		if err := s.sweeper.ClosingReminder(ctx, closeAt); err != nil {
			log.Error("closing reminder failed", "err", err)
		} else {
			s.remindedDay = day
		}
	}

	if s.closedDay != day && !now.Before(closeAt) {
		if n, err := s.sweeper.CheckoutAll(ctx); err != nil {
			log.Error("closing checkout failed", "err", err)
		} else {
			s.closedDay = day
			if n > 0 {
				log.Info("closing checkout applied", "count", n)
			}
		}
	}
}
