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
	"github.com/iliyamo/library-seat-reservation/internal/utils"
)

// Proof is the presence evidence submitted with a check-in: either device
// coordinates for the geofence check or the scanned seat code.  Supplying
// either valid proof is sufficient.
type Proof struct {
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	ScanCode string   `json:"scan_code"`
}

// ReservationService owns admission control and the reservation state
// machine.  Every transition is guarded by the row's current status; the
// per-seat lock only narrows the admission race window.
type ReservationService struct {
	txr    TxRunner
	seats  SeatStore
	resvs  ReservationStore
	credit CreditLedger
	occ    OccupancyStore
	policy PolicyProvider
	locker SeatLocker
	notify Notifier
	clock  Clock

	// publish defaults to queue.Publish; swapped for a recorder in tests.
	publish func(context.Context, queue.ReservationEvent) error
}

func NewReservationService(
	txr TxRunner,
	seats SeatStore,
	resvs ReservationStore,
	credit CreditLedger,
	occ OccupancyStore,
	policy PolicyProvider,
	locker SeatLocker,
	notify Notifier,
	clock Clock,
) *ReservationService {
	return &ReservationService{
		txr: txr, seats: seats, resvs: resvs, credit: credit, occ: occ,
		policy: policy, locker: locker, notify: notify, clock: clock,
		publish: queue.Publish,
	}
}

// Reserve books one or more of today's slots on a seat for the user.
// Checks run in a fixed order under the seat's lock: credit floor, seat
// usability, per-slot seat conflict, per-slot user conflict.  On success one
// reservation row is created per slot.
func (s *ReservationService) Reserve(ctx context.Context, userID, seatID uint64, slots []string) ([]model.Reservation, error) {
	p := s.policy.Current(ctx)
	now := s.clock.Now()

	norm, ok := model.NormalizeSlots(slots)
	if !ok {
		return nil, reject(CodeInvariant, ReasonSlotInvalid, "no valid slots requested")
	}
	for _, slot := range norm {
		_, end, _ := model.SlotWindow(now, slot)
		if !now.Before(end) {
			return nil, rejectf(CodePreconditionFailed, ReasonSlotOver, "slot %s already ended today", slot)
		}
		start, _, _ := model.SlotWindow(now, slot)
		// A slot still in progress is bookable only while check-in is still
		// possible.
		if now.After(start.Add(p.CheckInAfter)) {
			return nil, rejectf(CodePreconditionFailed, ReasonSlotOver, "check-in window for slot %s has closed", slot)
		}
	}

	release, got, err := s.locker.TryAcquire(ctx, seatID)
	if err != nil {
		return nil, fmt.Errorf("acquire seat lock: %w", err)
	}
	if !got {
		return nil, reject(CodeContention, ReasonSeatLocked, "seat is being booked by someone else, retry shortly")
	}
	defer release()

	var created []model.Reservation
	err = s.txr.RunTx(ctx, func(tx *sql.Tx) error {
		score, err := s.credit.CreditScore(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return reject(CodeNotFound, "user_not_found", "user not found")
			}
			return err
		}
		if score < p.MinCreditScore {
			return rejectf(CodePreconditionFailed, ReasonCreditTooLow,
				"credit score %d is below the required %d", score, p.MinCreditScore)
		}

		seat, err := s.seats.GetByIDTx(ctx, tx, seatID)
		if err != nil {
			if errors.Is(err, repository.ErrSeatNotFound) {
				return reject(CodeNotFound, ReasonSeatNotFound, "seat not found")
			}
			return err
		}
		if seat.Deleted {
			return reject(CodeNotFound, ReasonSeatNotFound, "seat not found")
		}
		if seat.Status == model.SeatMaintenance {
			return reject(CodePreconditionFailed, ReasonSeatUnavailable, "seat is under maintenance")
		}

		for _, slot := range norm {
			n, err := s.resvs.CountActiveBySeatSlotTx(ctx, tx, seatID, slot, now)
			if err != nil {
				return err
			}
			if n > 0 {
				return rejectf(CodePreconditionFailed, ReasonSeatConflict, "seat already reserved for slot %s", slot)
			}
			n, err = s.resvs.CountActiveByUserSlotTx(ctx, tx, userID, slot, now)
			if err != nil {
				return err
			}
			if n > 0 {
				return rejectf(CodePreconditionFailed, ReasonUserConflict, "you already hold a reservation for slot %s", slot)
			}
		}

		for _, slot := range norm {
			start, end, _ := model.SlotWindow(now, slot)
			deadline := start.Add(p.CheckInAfter)
			if now.After(start) {
				// Booking a slot already in progress: the grace runs from now.
				deadline = now.Add(p.CheckInAfter)
			}
			res := model.Reservation{
				UserID:    userID,
				SeatID:    seatID,
				Slot:      slot,
				StartTime: start,
				EndTime:   end,
				Deadline:  &deadline,
				Status:    model.StatusReserved,
				SeatNo:    seat.SeatNo,
			}
			if err := s.resvs.CreateTx(ctx, tx, &res); err != nil {
				return err
			}
			created = append(created, res)
		}

		_, err = s.seats.RecomputeStatusTx(ctx, tx, seatID, now)
		return err
	})
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	for _, res := range created {
		metrics.Transitions.WithLabelValues(model.StatusReserved).Inc()
		s.broadcast(res, "reserved", "reservation created")
	}
	s.notify.Notify(ctx, userID, model.SeveritySuccess, "Reservation confirmed",
		fmt.Sprintf("Seat %s booked for %d slot(s); check in within %.0f minutes of slot start.",
			created[0].SeatNo, len(created), p.CheckInAfter.Minutes()))
	return created, nil
}

// CheckIn confirms physical presence for a reserved reservation, or ends a
// declared absence.  The window is [start − before, deadline]; presence is
// proved by geofence or seat scan code.
func (s *ReservationService) CheckIn(ctx context.Context, userID, reservationID uint64, proof Proof) (*model.Reservation, error) {
	res, err := s.owned(ctx, userID, reservationID)
	if err != nil {
		return nil, err
	}
	p := s.policy.Current(ctx)
	now := s.clock.Now()

	switch res.Status {
	case model.StatusReserved:
		if now.Before(res.StartTime.Add(-p.CheckInBefore)) {
			return nil, rejectf(CodePreconditionFailed, ReasonCheckInEarly,
				"check-in opens %.0f minutes before slot start", p.CheckInBefore.Minutes())
		}
		if res.Deadline != nil && now.After(*res.Deadline) {
			return nil, reject(CodePreconditionFailed, ReasonCheckInLate, "check-in deadline has passed")
		}
	case model.StatusAway:
		if res.Deadline != nil && now.After(*res.Deadline) {
			return nil, reject(CodePreconditionFailed, ReasonCheckInLate, "return deadline has passed")
		}
	default:
		return nil, rejectf(CodePreconditionFailed, ReasonWrongStatus, "cannot check in from status %s", res.Status)
	}

	seat, err := s.seats.GetByID(ctx, res.SeatID)
	if err != nil {
		return nil, err
	}
	if !s.proofValid(p, seat, proof) {
		return nil, reject(CodePreconditionFailed, ReasonProofFailed, "presence proof rejected")
	}

	from := res.Status
	err = s.txr.RunTx(ctx, func(tx *sql.Tx) error {
		ok, err := s.resvs.TransitionTx(ctx, tx, res.ID, []string{from}, model.StatusCheckedIn, nil, nil)
		if err != nil {
			return err
		}
		if !ok {
			return reject(CodeContention, ReasonRaceLost, "reservation changed concurrently, reload and retry")
		}
		if from == model.StatusReserved {
			snap := &model.OccupancySnapshot{
				ReservationID: res.ID,
				UserID:        res.UserID,
				SeatID:        res.SeatID,
				CheckInTime:   now,
				LastSeen:      now,
				Status:        model.OccupancyNormal,
			}
			if err := s.occ.CreateTx(ctx, tx, snap); err != nil {
				return err
			}
		} else if err := s.occ.TouchTx(ctx, tx, res.ID, now); err != nil {
			return err
		}
		_, err = s.seats.RecomputeStatusTx(ctx, tx, res.SeatID, now)
		return err
	})
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	res.Status = model.StatusCheckedIn
	res.Deadline = nil
	metrics.Transitions.WithLabelValues(model.StatusCheckedIn).Inc()
	s.broadcast(*res, "checked_in", "user checked in")
	s.notify.Notify(ctx, userID, model.SeveritySuccess, "Checked in",
		fmt.Sprintf("You are checked in at seat %s.", seat.SeatNo))
	return res, nil
}

// Leave records a declared temporary absence.  The user must return and
// check in again within the violation window or the sweep forfeits the
// reservation.
func (s *ReservationService) Leave(ctx context.Context, userID, reservationID uint64) (*model.Reservation, error) {
	res, err := s.owned(ctx, userID, reservationID)
	if err != nil {
		return nil, err
	}
	if res.Status != model.StatusCheckedIn {
		return nil, rejectf(CodePreconditionFailed, ReasonWrongStatus, "cannot leave from status %s", res.Status)
	}
	p := s.policy.Current(ctx)
	now := s.clock.Now()
	deadline := now.Add(p.ViolationWindow)

	err = s.txr.RunTx(ctx, func(tx *sql.Tx) error {
		ok, err := s.resvs.TransitionTx(ctx, tx, res.ID, []string{model.StatusCheckedIn}, model.StatusAway, &deadline, nil)
		if err != nil {
			return err
		}
		if !ok {
			return reject(CodeContention, ReasonRaceLost, "reservation changed concurrently, reload and retry")
		}
		// Declared absence has its own deadline; reset the monitor so the
		// same absence is not penalized twice.
		if err := s.occ.TouchTx(ctx, tx, res.ID, now); err != nil {
			return err
		}
		_, err = s.seats.RecomputeStatusTx(ctx, tx, res.SeatID, now)
		return err
	})
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	res.Status = model.StatusAway
	res.Deadline = &deadline
	metrics.Transitions.WithLabelValues(model.StatusAway).Inc()
	s.broadcast(*res, "away", "user temporarily away")
	s.notify.Notify(ctx, userID, model.SeverityInfo, "Temporary leave recorded",
		fmt.Sprintf("Return and check in before %s or the seat is forfeited.", deadline.Format("15:04")))
	return res, nil
}

// Release ends the user's involvement with the reservation.  From reserved
// it is a cancellation: releasing later than start − releaseBuffer counts
// as a late cancellation and is recorded as a violation with a penalty.
// From checked_in it is a proper completion with a credit bonus; from away
// a completion without one.
func (s *ReservationService) Release(ctx context.Context, userID, reservationID uint64) (*model.Reservation, error) {
	res, err := s.owned(ctx, userID, reservationID)
	if err != nil {
		return nil, err
	}
	p := s.policy.Current(ctx)
	now := s.clock.Now()

	var (
		target string
		delta  int
		reason string
	)
	switch res.Status {
	case model.StatusReserved:
		if now.After(res.StartTime.Add(-p.ReleaseBuffer)) {
			target = model.StatusViolation
			delta = -p.CreditPenaltyLateCancel
			reason = "late_cancel"
		} else {
			target = model.StatusCompleted
		}
	case model.StatusCheckedIn:
		target = model.StatusCompleted
		delta = p.CreditBonusCompleted
		reason = "completed_bonus"
	case model.StatusAway:
		target = model.StatusCompleted
	default:
		return nil, rejectf(CodePreconditionFailed, ReasonWrongStatus, "cannot release from status %s", res.Status)
	}

	from := res.Status
	err = s.txr.RunTx(ctx, func(tx *sql.Tx) error {
		ok, err := s.resvs.TransitionTx(ctx, tx, res.ID, []string{from}, target, nil, &now)
		if err != nil {
			return err
		}
		if !ok {
			return reject(CodeContention, ReasonRaceLost, "reservation changed concurrently, reload and retry")
		}
		if delta != 0 {
			if _, err := s.credit.AdjustCreditTx(ctx, tx, userID, delta); err != nil {
				return err
			}
		}
		if err := s.occ.DeleteTx(ctx, tx, res.ID); err != nil {
			return err
		}
		_, err = s.seats.RecomputeStatusTx(ctx, tx, res.SeatID, now)
		return err
	})
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	res.Status = target
	res.Deadline = nil
	res.EndTime = now
	metrics.Transitions.WithLabelValues(target).Inc()
	if reason != "" {
		metrics.CreditAdjustments.WithLabelValues(reason).Inc()
	}
	s.broadcast(*res, target, "reservation ended")
	switch {
	case target == model.StatusViolation:
		s.notify.Notify(ctx, userID, model.SeverityWarning, "Late cancellation",
			fmt.Sprintf("Releasing this close to the slot start costs %d credit points.", p.CreditPenaltyLateCancel))
	case from == model.StatusCheckedIn:
		s.notify.Notify(ctx, userID, model.SeveritySuccess, "Session completed",
			fmt.Sprintf("Thanks for releasing the seat properly; +%d credit points.", p.CreditBonusCompleted))
	default:
		s.notify.Notify(ctx, userID, model.SeverityInfo, "Reservation released", "Your reservation has ended.")
	}
	return res, nil
}

// ForceRelease is the administrative override: any active reservation is
// completed immediately with no guard beyond being active and no credit
// change.
func (s *ReservationService) ForceRelease(ctx context.Context, reservationID uint64) (*model.Reservation, error) {
	res, err := s.resvs.GetByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return nil, reject(CodeNotFound, ReasonReservationGone, "reservation not found")
		}
		return nil, err
	}
	if !res.Active() {
		return nil, rejectf(CodePreconditionFailed, ReasonWrongStatus, "reservation is already %s", res.Status)
	}
	now := s.clock.Now()

	err = s.txr.RunTx(ctx, func(tx *sql.Tx) error {
		ok, err := s.resvs.TransitionTx(ctx, tx, res.ID, model.ActiveStatuses, model.StatusCompleted, nil, &now)
		if err != nil {
			return err
		}
		if !ok {
			return reject(CodeContention, ReasonRaceLost, "reservation changed concurrently")
		}
		if err := s.occ.DeleteTx(ctx, tx, res.ID); err != nil {
			return err
		}
		_, err = s.seats.RecomputeStatusTx(ctx, tx, res.SeatID, now)
		return err
	})
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	res.Status = model.StatusCompleted
	res.Deadline = nil
	res.EndTime = now
	metrics.Transitions.WithLabelValues(model.StatusCompleted).Inc()
	s.broadcast(*res, model.StatusCompleted, "released by administrator")
	s.notify.Notify(ctx, res.UserID, model.SeverityInfo, "Reservation released",
		"An administrator released your reservation.")
	return res, nil
}

// owned loads a reservation and verifies ownership.  Non-owners get the
// same not-found answer as a missing row.
func (s *ReservationService) owned(ctx context.Context, userID, reservationID uint64) (*model.Reservation, error) {
	res, err := s.resvs.GetByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return nil, reject(CodeNotFound, ReasonReservationGone, "reservation not found")
		}
		return nil, err
	}
	if res.UserID != userID {
		return nil, reject(CodeNotFound, ReasonReservationGone, "reservation not found")
	}
	return res, nil
}

func (s *ReservationService) proofValid(p model.Policy, seat *model.Seat, proof Proof) bool {
	if proof.Lat != nil && proof.Lng != nil &&
		utils.WithinRadius(p.SiteLat, p.SiteLng, *proof.Lat, *proof.Lng, p.GeofenceRadius) {
		return true
	}
	if proof.ScanCode != "" && utils.VerifySeatScanCode(proof.ScanCode, seat.Area, seat.SeatNo) {
		return true
	}
	return false
}

func (s *ReservationService) countRejection(err error) {
	var rej *Rejection
	if errors.As(err, &rej) {
		metrics.Rejections.WithLabelValues(rej.Code).Inc()
	}
}

// broadcast publishes a reservation_update event; delivery is best-effort.
func (s *ReservationService) broadcast(res model.Reservation, status, msg string) {
	go func() {
		pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.publish(pctx, queue.ReservationEvent{
			Kind:          queue.KindReservationUpdate,
			ReservationID: res.ID,
			UserID:        res.UserID,
			SeatID:        res.SeatID,
			SeatNo:        res.SeatNo,
			Slot:          res.Slot,
			Status:        status,
			Message:       msg,
			OccurredAt:    time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			logger.Get().Debug("broadcast skipped", "reservation_id", res.ID, "err", err)
		}
	}()
}
