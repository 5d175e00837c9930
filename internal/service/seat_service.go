package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/library-seat-reservation/internal/metrics"
	"github.com/iliyamo/library-seat-reservation/internal/model"
	"github.com/iliyamo/library-seat-reservation/internal/queue"
	"github.com/iliyamo/library-seat-reservation/internal/repository"
	"github.com/iliyamo/library-seat-reservation/internal/utils"
)

// SeatService manages the seat directory: CRUD, batch import and the
// administrative status override.  Seat status is a derived cache, so the
// only statuses an administrator may set directly are maintenance and
// available; occupied is always recomputed from reservations.
type SeatService struct {
	txr    TxRunner
	seats  SeatStore
	resvs  ReservationStore
	occ    OccupancyStore
	notify Notifier
	clock  Clock

	publish func(context.Context, queue.ReservationEvent) error
}

func NewSeatService(txr TxRunner, seats SeatStore, resvs ReservationStore, occ OccupancyStore, notify Notifier, clock Clock) *SeatService {
	return &SeatService{
		txr: txr, seats: seats, resvs: resvs, occ: occ, notify: notify, clock: clock,
		publish: queue.Publish,
	}
}

// List returns all seats with today's per-slot availability filled in.
func (s *SeatService) List(ctx context.Context) ([]model.Seat, error) {
	seats, err := s.seats.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	slotMap, err := s.resvs.ActiveSlotMap(ctx, now)
	if err != nil {
		return nil, err
	}
	for i := range seats {
		st := make(map[string]string, len(model.SlotSequence))
		for _, slot := range model.SlotSequence {
			switch {
			case seats[i].Status == model.SeatMaintenance:
				st[slot] = model.SeatMaintenance
			case slotMap[seats[i].ID][slot] != "":
				st[slot] = slotMap[seats[i].ID][slot]
			default:
				st[slot] = model.SeatAvailable
			}
		}
		seats[i].SlotStatuses = st
	}
	return seats, nil
}

// Create adds a seat; the seat number must be unique among live seats.
func (s *SeatService) Create(ctx context.Context, seat *model.Seat) error {
	if seat.Status == "" {
		seat.Status = model.SeatAvailable
	}
	if err := s.seats.Create(ctx, seat); err != nil {
		if errors.Is(err, repository.ErrSeatNoExists) {
			return rejectf(CodePreconditionFailed, ReasonSeatConflict, "seat number %s already exists", seat.SeatNo)
		}
		return err
	}
	s.seatUpdate(seat.ID, seat.SeatNo, seat.Status, "seat created")
	return nil
}

// BatchImport creates many seats, skipping duplicates.  It returns how many
// were created and the seat numbers that were rejected.
func (s *SeatService) BatchImport(ctx context.Context, seats []model.Seat) (int, []string, error) {
	created := 0
	var skipped []string
	for i := range seats {
		if err := s.Create(ctx, &seats[i]); err != nil {
			var rej *Rejection
			if errors.As(err, &rej) {
				skipped = append(skipped, seats[i].SeatNo)
				continue
			}
			return created, skipped, err
		}
		created++
	}
	return created, skipped, nil
}

// Update edits a seat's metadata (label, area, type, coordinates).
func (s *SeatService) Update(ctx context.Context, seat *model.Seat) error {
	if err := s.seats.Update(ctx, seat); err != nil {
		switch {
		case errors.Is(err, repository.ErrSeatNotFound):
			return reject(CodeNotFound, ReasonSeatNotFound, "seat not found")
		case errors.Is(err, repository.ErrSeatNoExists):
			return rejectf(CodePreconditionFailed, ReasonSeatConflict, "seat number %s already exists", seat.SeatNo)
		}
		return err
	}
	s.seatUpdate(seat.ID, seat.SeatNo, seat.Status, "seat updated")
	return nil
}

// Delete tombstones a seat.  Seats with an occupant or active reservations
// cannot be removed.
func (s *SeatService) Delete(ctx context.Context, id uint64) error {
	if err := s.seats.SoftDelete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrSeatNotFound):
			return reject(CodeNotFound, ReasonSeatNotFound, "seat not found")
		case errors.Is(err, repository.ErrSeatInUse):
			return reject(CodePreconditionFailed, ReasonSeatHasOccupant, "seat has active reservations")
		}
		return err
	}
	s.seatUpdate(id, "", "deleted", "seat removed")
	return nil
}

// SetStatus is the administrative override.  Moving a seat into maintenance
// cancels its active reservation, if any, without a credit penalty.
func (s *SeatService) SetStatus(ctx context.Context, id uint64, status string) error {
	if status != model.SeatMaintenance && status != model.SeatAvailable {
		return rejectf(CodeInvariant, ReasonWrongStatus, "status %s cannot be set directly", status)
	}
	seat, err := s.seats.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return reject(CodeNotFound, ReasonSeatNotFound, "seat not found")
		}
		return err
	}
	now := s.clock.Now()

	var evicted *model.Reservation
	err = s.txr.RunTx(ctx, func(tx *sql.Tx) error {
		if status == model.SeatMaintenance {
			res, err := s.resvs.ActiveBySeatTx(ctx, tx, id)
			if err != nil && !errors.Is(err, repository.ErrReservationNotFound) {
				return err
			}
			if res != nil {
				ok, err := s.resvs.TransitionTx(ctx, tx, res.ID, model.ActiveStatuses, model.StatusCancelled, nil, &now)
				if err != nil {
					return err
				}
				if ok {
					if err := s.occ.DeleteTx(ctx, tx, res.ID); err != nil {
						return err
					}
					evicted = res
				}
			}
		}
		if err := s.seats.SetStatusTx(ctx, tx, id, status); err != nil {
			return err
		}
		if status == model.SeatAvailable {
			// Re-derive: the seat may actually be occupied right now.
			if _, err := s.seats.RecomputeStatusTx(ctx, tx, id, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if evicted != nil {
		metrics.Transitions.WithLabelValues(model.StatusCancelled).Inc()
		s.notify.Notify(ctx, evicted.UserID, model.SeverityWarning, "Reservation cancelled",
			fmt.Sprintf("Seat %s was taken out of service; your reservation was cancelled.", seat.SeatNo))
	}
	s.seatUpdate(id, seat.SeatNo, status, "status changed by administrator")
	return nil
}

// ScanCode returns the code encoded in a seat's QR sticker, for printing.
func (s *SeatService) ScanCode(ctx context.Context, id uint64) (string, error) {
	seat, err := s.seats.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return "", reject(CodeNotFound, ReasonSeatNotFound, "seat not found")
		}
		return "", err
	}
	return utils.SeatScanCode(seat.Area, seat.SeatNo), nil
}

func (s *SeatService) seatUpdate(id uint64, seatNo, status, msg string) {
	go func() {
		pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.publish(pctx, queue.ReservationEvent{
			Kind:       queue.KindSeatUpdate,
			SeatID:     id,
			SeatNo:     seatNo,
			Status:     status,
			Message:    msg,
			OccurredAt: time.Now().UTC().Format(time.RFC3339),
		})
	}()
}
