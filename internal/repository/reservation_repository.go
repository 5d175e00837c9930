package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/library-seat-reservation/internal/model"
)

// ReservationRepo provides data access to the reservations table, the
// single source of truth for seat occupancy.  All timestamps are stored
// in UTC.  Status transitions go through TransitionTx, which applies the
// current-status guard that serializes request-driven and sweep-driven
// updates of the same row.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions that
// span several repositories.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationColumns = `id, user_id, seat_id, slot, start_time, end_time, deadline, status, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (*model.Reservation, error) {
	var (
		res      model.Reservation
		deadline sql.NullTime
	)
	err := row.Scan(&res.ID, &res.UserID, &res.SeatID, &res.Slot,
		&res.StartTime, &res.EndTime, &deadline, &res.Status, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if deadline.Valid {
		d := deadline.Time
		res.Deadline = &d
	}
	return &res, nil
}

// statusPlaceholders builds an "IN (?,?,...)" fragment plus its args.
func statusPlaceholders(statuses []string) (string, []any) {
	ph := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, s := range statuses {
		ph[i] = "?"
		args[i] = s
	}
	return "(" + strings.Join(ph, ",") + ")", args
}

// CreateTx inserts a reservation within an existing transaction and
// populates its generated ID.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	var deadline any
	if res.Deadline != nil {
		deadline = res.Deadline.UTC()
	}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (user_id, seat_id, slot, start_time, end_time, deadline, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.UserID, res.SeatID, res.Slot, res.StartTime.UTC(), res.EndTime.UTC(), deadline, res.Status)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// GetByID returns a reservation or ErrReservationNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	res, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, ErrReservationNotFound
	}
	return res, err
}

// TransitionTx applies a guarded status transition: the row is updated
// only while its status is still one of from.  It returns whether the
// transition was applied.  deadline replaces the previous value (nil
// clears it, as required outside reserved/away); endTime, when non-nil,
// records the actual session end.
func (r *ReservationRepo) TransitionTx(ctx context.Context, tx *sql.Tx, id uint64, from []string, to string, deadline, endTime *time.Time) (bool, error) {
	in, args := statusPlaceholders(from)
	set := `status = ?, deadline = ?`
	setArgs := []any{to}
	if deadline != nil {
		setArgs = append(setArgs, deadline.UTC())
	} else {
		setArgs = append(setArgs, nil)
	}
	if endTime != nil {
		set += `, end_time = ?`
		setArgs = append(setArgs, endTime.UTC())
	}
	query := `UPDATE reservations SET ` + set + ` WHERE id = ? AND status IN ` + in
	all := append(setArgs, id)
	all = append(all, args...)
	result, err := tx.ExecContext(ctx, query, all...)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CountActiveBySeatSlotTx counts active reservations for the seat in the
// named slot on the calendar day of day.  Used by the admission check
// while the seat lock is held.
func (r *ReservationRepo) CountActiveBySeatSlotTx(ctx context.Context, tx *sql.Tx, seatID uint64, slot string, day time.Time) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations
		 WHERE seat_id = ? AND slot = ? AND DATE(start_time) = DATE(?)
		   AND status IN ('reserved','checked_in','away')`,
		seatID, slot, day.UTC()).Scan(&n)
	return n, err
}

// CountActiveByUserSlotTx is the per-user admission counterpart.
func (r *ReservationRepo) CountActiveByUserSlotTx(ctx context.Context, tx *sql.Tx, userID uint64, slot string, day time.Time) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations
		 WHERE user_id = ? AND slot = ? AND DATE(start_time) = DATE(?)
		   AND status IN ('reserved','checked_in','away')`,
		userID, slot, day.UTC()).Scan(&n)
	return n, err
}

// ActiveByUser returns the user's current active reservation, if any,
// with the seat number populated for display.
func (r *ReservationRepo) ActiveByUser(ctx context.Context, userID uint64) (*model.Reservation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT r.id, r.user_id, r.seat_id, r.slot, r.start_time, r.end_time, r.deadline, r.status, r.created_at, r.updated_at, s.seat_no
		 FROM reservations r JOIN seats s ON s.id = r.seat_id
		 WHERE r.user_id = ? AND r.status IN ('reserved','checked_in','away')
		 ORDER BY r.start_time LIMIT 1`, userID)
	var (
		res      model.Reservation
		deadline sql.NullTime
	)
	err := row.Scan(&res.ID, &res.UserID, &res.SeatID, &res.Slot,
		&res.StartTime, &res.EndTime, &deadline, &res.Status, &res.CreatedAt, &res.UpdatedAt, &res.SeatNo)
	if err == sql.ErrNoRows {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	if deadline.Valid {
		d := deadline.Time
		res.Deadline = &d
	}
	return &res, nil
}

// ActiveBySeatTx returns the seat's current active reservation inside a
// transaction, or ErrReservationNotFound.
func (r *ReservationRepo) ActiveBySeatTx(ctx context.Context, tx *sql.Tx, seatID uint64) (*model.Reservation, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE seat_id = ? AND status IN ('reserved','checked_in','away')
		 ORDER BY start_time LIMIT 1`, seatID)
	res, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, ErrReservationNotFound
	}
	return res, err
}

// NextReservedTx looks for a contiguous follow-up booking: a reserved
// reservation for the same user and seat in the given slot on the same
// calendar day.  The expiration sweep uses it to roll a session into the
// next slot instead of forcing a fresh check-in.
func (r *ReservationRepo) NextReservedTx(ctx context.Context, tx *sql.Tx, userID, seatID uint64, slot string, day time.Time) (*model.Reservation, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE user_id = ? AND seat_id = ? AND slot = ? AND DATE(start_time) = DATE(?)
		   AND status = 'reserved'
		 LIMIT 1`, userID, seatID, slot, day.UTC())
	res, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, ErrReservationNotFound
	}
	return res, err
}

// HistoryByUser returns all reservations of a user, newest first, with
// seat numbers populated.
func (r *ReservationRepo) HistoryByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.user_id, r.seat_id, r.slot, r.start_time, r.end_time, r.deadline, r.status, r.created_at, r.updated_at, s.seat_no
		 FROM reservations r JOIN seats s ON s.id = r.seat_id
		 WHERE r.user_id = ?
		 ORDER BY r.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]model.Reservation, 0)
	for rows.Next() {
		var (
			res      model.Reservation
			deadline sql.NullTime
		)
		if err := rows.Scan(&res.ID, &res.UserID, &res.SeatID, &res.Slot,
			&res.StartTime, &res.EndTime, &deadline, &res.Status, &res.CreatedAt, &res.UpdatedAt, &res.SeatNo); err != nil {
			return nil, err
		}
		if deadline.Valid {
			d := deadline.Time
			res.Deadline = &d
		}
		list = append(list, res)
	}
	return list, rows.Err()
}

// ListByStatusDeadlineBefore returns reservations in any of the given
// statuses whose deadline has passed.  Feeds the violation sweep.
func (r *ReservationRepo) ListByStatusDeadlineBefore(ctx context.Context, statuses []string, t time.Time) ([]model.Reservation, error) {
	in, args := statusPlaceholders(statuses)
	query := `SELECT ` + reservationColumns + ` FROM reservations
	          WHERE status IN ` + in + ` AND deadline IS NOT NULL AND deadline < ?`
	return r.queryList(ctx, query, append(args, t.UTC())...)
}

// ListByStatusDeadlineBetween returns reservations whose deadline falls
// inside (from, to].  Feeds the "expiring soon" reminders.
func (r *ReservationRepo) ListByStatusDeadlineBetween(ctx context.Context, statuses []string, from, to time.Time) ([]model.Reservation, error) {
	in, args := statusPlaceholders(statuses)
	query := `SELECT ` + reservationColumns + ` FROM reservations
	          WHERE status IN ` + in + ` AND deadline IS NOT NULL AND deadline > ? AND deadline <= ?`
	return r.queryList(ctx, query, append(args, from.UTC(), to.UTC())...)
}

// ListCheckedInEndedBefore returns checked-in reservations whose slot has
// ended.  Feeds the expiration sweep.
func (r *ReservationRepo) ListCheckedInEndedBefore(ctx context.Context, t time.Time) ([]model.Reservation, error) {
	return r.queryList(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE status = 'checked_in' AND end_time < ?`, t.UTC())
}

// ListByStatuses returns every reservation currently in one of the given
// statuses.  Feeds the occupancy sweep and closing-time checkout.
func (r *ReservationRepo) ListByStatuses(ctx context.Context, statuses []string) ([]model.Reservation, error) {
	in, args := statusPlaceholders(statuses)
	return r.queryList(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE status IN `+in, args...)
}

// ActiveSlotMap returns seat_id -> slot -> status for every active
// reservation on the calendar day of day.  Listing endpoints merge it
// into the seat grid so clients see per-slot availability.
func (r *ReservationRepo) ActiveSlotMap(ctx context.Context, day time.Time) (map[uint64]map[string]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seat_id, slot, status FROM reservations
		 WHERE status IN ('reserved','checked_in','away') AND DATE(start_time) = DATE(?)`, day.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64]map[string]string)
	for rows.Next() {
		var (
			seatID uint64
			slot   string
			status string
		)
		if err := rows.Scan(&seatID, &slot, &status); err != nil {
			return nil, err
		}
		if out[seatID] == nil {
			out[seatID] = make(map[string]string)
		}
		out[seatID][slot] = status
	}
	return out, rows.Err()
}

func (r *ReservationRepo) queryList(ctx context.Context, query string, args ...any) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *res)
	}
	return list, rows.Err()
}
