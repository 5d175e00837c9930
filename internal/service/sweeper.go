package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/library-seat-reservation/internal/logger"
	"github.com/iliyamo/library-seat-reservation/internal/metrics"
	"github.com/iliyamo/library-seat-reservation/internal/model"
	"github.com/iliyamo/library-seat-reservation/internal/queue"
	"github.com/iliyamo/library-seat-reservation/internal/repository"
)

// Sweeper applies the time-triggered transitions: no-show and overstayed
// absences, natural slot completions with contiguous-slot rollover, and
// occupancy escalation.  Each sweep is idempotent and isolates per-row
// failures; a row already moved by a concurrent request simply fails the
// status guard and is skipped.
type Sweeper struct {
	txr      TxRunner
	seats    SeatStore
	resvs    ReservationStore
	credit   CreditLedger
	occ      OccupancyStore
	policy   PolicyProvider
	presence PresenceChecker
	notify   Notifier
	clock    Clock

	publish func(context.Context, queue.ReservationEvent) error
}

func NewSweeper(
	txr TxRunner,
	seats SeatStore,
	resvs ReservationStore,
	credit CreditLedger,
	occ OccupancyStore,
	policy PolicyProvider,
	presence PresenceChecker,
	notify Notifier,
	clock Clock,
) *Sweeper {
	return &Sweeper{
		txr: txr, seats: seats, resvs: resvs, credit: credit, occ: occ,
		policy: policy, presence: presence, notify: notify, clock: clock,
		publish: queue.Publish,
	}
}

// SweepViolations forfeits reserved and away reservations whose deadline
// elapsed, applying the no-show penalty.  It also sends non-mutating
// "expiring soon" reminders for deadlines inside the lookahead window.
func (s *Sweeper) SweepViolations(ctx context.Context) (int, error) {
	metrics.SweepRuns.WithLabelValues("violation").Inc()
	log := logger.Get()
	p := s.policy.Current(ctx)
	now := s.clock.Now()

	soon, err := s.resvs.ListByStatusDeadlineBetween(ctx,
		[]string{model.StatusReserved, model.StatusAway}, now, now.Add(p.ReminderLookahead))
	if err != nil {
		return 0, fmt.Errorf("list expiring reservations: %w", err)
	}
	for _, res := range soon {
		action := "check in"
		if res.Status == model.StatusAway {
			action = "return"
		}
		s.notify.Notify(ctx, res.UserID, model.SeverityWarning, "Reservation expiring soon",
			fmt.Sprintf("Seat %s: %s before %s or the reservation is forfeited.",
				res.SeatNo, action, res.Deadline.Format("15:04")))
	}

	expired, err := s.resvs.ListByStatusDeadlineBefore(ctx,
		[]string{model.StatusReserved, model.StatusAway}, now)
	if err != nil {
		return 0, fmt.Errorf("list expired reservations: %w", err)
	}

	done := 0
	for _, res := range expired {
		res := res
		err := s.txr.RunTx(ctx, func(tx *sql.Tx) error {
			ok, err := s.resvs.TransitionTx(ctx, tx, res.ID, []string{res.Status}, model.StatusViolation, nil, &now)
			if err != nil {
				return err
			}
			if !ok {
				return nil // moved concurrently, nothing to do
			}
			if _, err := s.credit.AdjustCreditTx(ctx, tx, res.UserID, -p.CreditPenaltyNoShow); err != nil {
				return err
			}
			if err := s.occ.DeleteTx(ctx, tx, res.ID); err != nil {
				return err
			}
			if _, err := s.seats.RecomputeStatusTx(ctx, tx, res.SeatID, now); err != nil {
				return err
			}
			done++
			metrics.Transitions.WithLabelValues(model.StatusViolation).Inc()
			metrics.CreditAdjustments.WithLabelValues("no_show").Inc()
			return nil
		})
		if err != nil {
			metrics.SweepRowFailures.WithLabelValues("violation").Inc()
			log.Error("violation sweep row failed", "reservation_id", res.ID, "err", err)
			continue
		}
		s.ended(res, model.StatusViolation, "deadline elapsed")
		s.notify.Notify(ctx, res.UserID, model.SeverityError, "Reservation forfeited",
			fmt.Sprintf("Seat %s was forfeited after the deadline passed; −%d credit points.",
				res.SeatNo, p.CreditPenaltyNoShow))
	}
	return done, nil
}

// SweepExpirations completes checked_in reservations whose slot ended.
// When the same user holds the contiguous next slot on the same seat, the
// session rolls into it instead of requiring a fresh check-in.  Natural
// completion carries no credit adjustment.
func (s *Sweeper) SweepExpirations(ctx context.Context) (int, error) {
	metrics.SweepRuns.WithLabelValues("expiration").Inc()
	log := logger.Get()
	now := s.clock.Now()

	ended, err := s.resvs.ListCheckedInEndedBefore(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list ended reservations: %w", err)
	}

	done := 0
	for _, res := range ended {
		res := res
		var rolled *model.Reservation
		err := s.txr.RunTx(ctx, func(tx *sql.Tx) error {
			next, err := s.nextContiguous(ctx, tx, &res)
			if err != nil {
				return err
			}
			ok, err := s.resvs.TransitionTx(ctx, tx, res.ID, []string{model.StatusCheckedIn}, model.StatusCompleted, nil, nil)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if err := s.occ.DeleteTx(ctx, tx, res.ID); err != nil {
				return err
			}
			if next != nil {
				ok, err := s.resvs.TransitionTx(ctx, tx, next.ID, []string{model.StatusReserved}, model.StatusCheckedIn, nil, nil)
				if err != nil {
					return err
				}
				if ok {
					snap := &model.OccupancySnapshot{
						ReservationID: next.ID,
						UserID:        next.UserID,
						SeatID:        next.SeatID,
						CheckInTime:   now,
						LastSeen:      now,
						Status:        model.OccupancyNormal,
					}
					if err := s.occ.CreateTx(ctx, tx, snap); err != nil {
						return err
					}
					rolled = next
				}
			}
			if _, err := s.seats.RecomputeStatusTx(ctx, tx, res.SeatID, now); err != nil {
				return err
			}
			done++
			metrics.Transitions.WithLabelValues(model.StatusCompleted).Inc()
			return nil
		})
		if err != nil {
			metrics.SweepRowFailures.WithLabelValues("expiration").Inc()
			log.Error("expiration sweep row failed", "reservation_id", res.ID, "err", err)
			continue
		}
		s.ended(res, model.StatusCompleted, "slot ended")
		if rolled != nil {
			metrics.Transitions.WithLabelValues(model.StatusCheckedIn).Inc()
			s.notify.Notify(ctx, res.UserID, model.SeveritySuccess, "Session rolled over",
				fmt.Sprintf("Your session at seat %s continues into the %s slot.", res.SeatNo, rolled.Slot))
		}
	}
	return done, nil
}

// nextContiguous finds a reserved reservation by the same user on the same
// seat in the slot immediately following res.Slot on the same day.  The
// slot sequence is a fixed ordered loop, never a recursion.
func (s *Sweeper) nextContiguous(ctx context.Context, tx *sql.Tx, res *model.Reservation) (*model.Reservation, error) {
	nextSlot, ok := model.NextSlot(res.Slot)
	if !ok {
		return nil, nil
	}
	next, err := s.resvs.NextReservedTx(ctx, tx, res.UserID, res.SeatID, nextSlot, res.StartTime)
	if errors.Is(err, repository.ErrReservationNotFound) {
		return nil, nil
	}
	return next, err
}

// SweepOccupancy escalates undeclared absences on monitored snapshots.
// An online heartbeat counts as presence and resets the clock.  Warning is
// sent once per absence; the violation threshold forces checkout with the
// larger penalty and archives the snapshot as occupied.
func (s *Sweeper) SweepOccupancy(ctx context.Context) (int, error) {
	metrics.SweepRuns.WithLabelValues("occupancy").Inc()
	log := logger.Get()
	p := s.policy.Current(ctx)
	now := s.clock.Now()

	snaps, err := s.occ.ListMonitored(ctx)
	if err != nil {
		return 0, fmt.Errorf("list monitored snapshots: %w", err)
	}

	done := 0
	for _, snap := range snaps {
		snap := snap
		res, err := s.resvs.GetByID(ctx, snap.ReservationID)
		if err != nil || res.Status != model.StatusCheckedIn {
			continue
		}

		if s.presence.IsOnline(ctx, snap.UserID) {
			if err := s.txr.RunTx(ctx, func(tx *sql.Tx) error {
				return s.occ.TouchTx(ctx, tx, snap.ReservationID, now)
			}); err != nil {
				log.Error("occupancy touch failed", "reservation_id", snap.ReservationID, "err", err)
			}
			continue
		}

		away := now.Sub(snap.LastSeen)
		mins := int(away.Minutes())
		switch {
		case away >= p.OccupancyViolation:
			err := s.txr.RunTx(ctx, func(tx *sql.Tx) error {
				ok, err := s.resvs.TransitionTx(ctx, tx, res.ID, []string{model.StatusCheckedIn}, model.StatusViolation, nil, &now)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				if err := s.occ.MarkTx(ctx, tx, res.ID, model.OccupancyOccupied, mins, false); err != nil {
					return err
				}
				if _, err := s.credit.AdjustCreditTx(ctx, tx, res.UserID, -p.CreditPenaltyOccupancy); err != nil {
					return err
				}
				if _, err := s.seats.RecomputeStatusTx(ctx, tx, res.SeatID, now); err != nil {
					return err
				}
				done++
				metrics.Transitions.WithLabelValues(model.StatusViolation).Inc()
				metrics.CreditAdjustments.WithLabelValues("occupancy").Inc()
				return nil
			})
			if err != nil {
				metrics.SweepRowFailures.WithLabelValues("occupancy").Inc()
				log.Error("occupancy sweep row failed", "reservation_id", res.ID, "err", err)
				continue
			}
			s.ended(*res, model.StatusViolation, "absent without leave")
			s.notify.Notify(ctx, res.UserID, model.SeverityError, "Seat released for absence",
				fmt.Sprintf("You were away over %d minutes without declaring leave; −%d credit points.",
					int(p.OccupancyViolation.Minutes()), p.CreditPenaltyOccupancy))

		case away >= p.OccupancyWarning && snap.Status != model.OccupancyWarning:
			// State check, not threshold-only: the warning fires once.
			err := s.txr.RunTx(ctx, func(tx *sql.Tx) error {
				return s.occ.MarkTx(ctx, tx, res.ID, model.OccupancyWarning, mins, true)
			})
			if err != nil {
				metrics.SweepRowFailures.WithLabelValues("occupancy").Inc()
				log.Error("occupancy warning failed", "reservation_id", res.ID, "err", err)
				continue
			}
			s.notify.Notify(ctx, res.UserID, model.SeverityWarning, "Are you still there?",
				fmt.Sprintf("No activity for %d minutes; the seat is released after %d.",
					mins, int(p.OccupancyViolation.Minutes())))

		default:
			if err := s.txr.RunTx(ctx, func(tx *sql.Tx) error {
				return s.occ.MarkTx(ctx, tx, res.ID, snap.Status, mins, false)
			}); err != nil {
				log.Error("occupancy update failed", "reservation_id", res.ID, "err", err)
			}
		}
	}
	return done, nil
}

// CheckoutAll force-ends every active reservation, used at closing time and
// exposed to administrators.  Checked-in and away sessions complete;
// not-yet-started reservations are cancelled.  No credit changes either way.
func (s *Sweeper) CheckoutAll(ctx context.Context) (int, error) {
	metrics.SweepRuns.WithLabelValues("checkout_all").Inc()
	log := logger.Get()
	now := s.clock.Now()

	active, err := s.resvs.ListByStatuses(ctx, model.ActiveStatuses)
	if err != nil {
		return 0, fmt.Errorf("list active reservations: %w", err)
	}

	done := 0
	for _, res := range active {
		res := res
		target := model.StatusCompleted
		if res.Status == model.StatusReserved {
			target = model.StatusCancelled
		}
		err := s.txr.RunTx(ctx, func(tx *sql.Tx) error {
			ok, err := s.resvs.TransitionTx(ctx, tx, res.ID, []string{res.Status}, target, nil, &now)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if err := s.occ.DeleteTx(ctx, tx, res.ID); err != nil {
				return err
			}
			if _, err := s.seats.RecomputeStatusTx(ctx, tx, res.SeatID, now); err != nil {
				return err
			}
			done++
			metrics.Transitions.WithLabelValues(target).Inc()
			return nil
		})
		if err != nil {
			metrics.SweepRowFailures.WithLabelValues("checkout_all").Inc()
			log.Error("checkout-all row failed", "reservation_id", res.ID, "err", err)
			continue
		}
		s.ended(res, target, "closing time")
		s.notify.Notify(ctx, res.UserID, model.SeverityInfo, "Reading room closed",
			"Your reservation was checked out at closing time.")
	}
	return done, nil
}

// ClosingReminder warns everyone still active that the room closes soon.
// It mutates nothing; the scheduler fires it once per day.
func (s *Sweeper) ClosingReminder(ctx context.Context, closeAt time.Time) error {
	active, err := s.resvs.ListByStatuses(ctx, model.ActiveStatuses)
	if err != nil {
		return fmt.Errorf("list active reservations: %w", err)
	}
	for _, res := range active {
		s.notify.Notify(ctx, res.UserID, model.SeverityInfo, "Closing soon",
			fmt.Sprintf("The reading room closes at %s; seats check out automatically.", closeAt.Format("15:04")))
	}
	return nil
}

// ended broadcasts a terminal transition so clients stop countdowns.
func (s *Sweeper) ended(res model.Reservation, status, reason string) {
	go func() {
		pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.publish(pctx, queue.ReservationEvent{
			Kind:          queue.KindReservationUpdate,
			ReservationID: res.ID,
			UserID:        res.UserID,
			SeatID:        res.SeatID,
			SeatNo:        res.SeatNo,
			Slot:          res.Slot,
			Status:        status,
			Reason:        reason,
			Message:       "reservation ended",
			OccurredAt:    time.Now().UTC().Format(time.RFC3339),
		})
	}()
}
