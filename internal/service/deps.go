package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/library-seat-reservation/internal/model"
)

// The services talk to storage and collaborators through small interfaces
// so the state machine and sweeps can be exercised with in-memory fakes.
// The repository types satisfy the store interfaces; tests pass fakes that
// ignore the *sql.Tx argument.

// TxRunner executes fn atomically.  database.TxRunner is the production
// implementation; test fakes call fn with a nil tx.
type TxRunner interface {
	RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// SeatStore is the slice of the seat repository the services need.
type SeatStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Seat, error)
	GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Seat, error)
	RecomputeStatusTx(ctx context.Context, tx *sql.Tx, seatID uint64, now time.Time) (string, error)
	List(ctx context.Context) ([]model.Seat, error)
	Create(ctx context.Context, s *model.Seat) error
	Update(ctx context.Context, s *model.Seat) error
	SoftDelete(ctx context.Context, id uint64) error
	SetStatus(ctx context.Context, id uint64, status string) error
	SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error
}

// ReservationStore is the slice of the reservation repository the services
// need.
type ReservationStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	TransitionTx(ctx context.Context, tx *sql.Tx, id uint64, from []string, to string, deadline, endTime *time.Time) (bool, error)
	CountActiveBySeatSlotTx(ctx context.Context, tx *sql.Tx, seatID uint64, slot string, day time.Time) (int, error)
	CountActiveByUserSlotTx(ctx context.Context, tx *sql.Tx, userID uint64, slot string, day time.Time) (int, error)
	NextReservedTx(ctx context.Context, tx *sql.Tx, userID, seatID uint64, slot string, day time.Time) (*model.Reservation, error)
	ActiveBySeatTx(ctx context.Context, tx *sql.Tx, seatID uint64) (*model.Reservation, error)
	ActiveSlotMap(ctx context.Context, day time.Time) (map[uint64]map[string]string, error)
	ListByStatusDeadlineBefore(ctx context.Context, statuses []string, t time.Time) ([]model.Reservation, error)
	ListByStatusDeadlineBetween(ctx context.Context, statuses []string, from, to time.Time) ([]model.Reservation, error)
	ListCheckedInEndedBefore(ctx context.Context, t time.Time) ([]model.Reservation, error)
	ListByStatuses(ctx context.Context, statuses []string) ([]model.Reservation, error)
}

// CreditLedger applies bounded score adjustments atomically.
type CreditLedger interface {
	CreditScore(ctx context.Context, id uint64) (int, error)
	AdjustCreditTx(ctx context.Context, tx *sql.Tx, id uint64, delta int) (int, error)
}

// OccupancyStore is the slice of the occupancy repository the services need.
type OccupancyStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, o *model.OccupancySnapshot) error
	GetByReservation(ctx context.Context, reservationID uint64) (*model.OccupancySnapshot, error)
	TouchTx(ctx context.Context, tx *sql.Tx, reservationID uint64, seenAt time.Time) error
	MarkTx(ctx context.Context, tx *sql.Tx, reservationID uint64, status string, awayMinutes int, bumpWarning bool) error
	DeleteTx(ctx context.Context, tx *sql.Tx, reservationID uint64) error
	ListMonitored(ctx context.Context) ([]model.OccupancySnapshot, error)
}

// PolicyProvider yields the effective thresholds; backed by sys_config in
// production.
type PolicyProvider interface {
	Current(ctx context.Context) model.Policy
}

// SeatLocker serialises admission per seat.  ok=false means contention.
type SeatLocker interface {
	TryAcquire(ctx context.Context, seatID uint64) (release func(), ok bool, err error)
}

// PresenceChecker reports whether a user's client is connected.
type PresenceChecker interface {
	IsOnline(ctx context.Context, userID uint64) bool
}

// Notifier delivers user-facing messages; implementations never fail the
// caller.
type Notifier interface {
	Notify(ctx context.Context, userID uint64, severity, title, body string)
}
