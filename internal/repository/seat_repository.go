package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/library-seat-reservation/internal/model"
)

// SeatRepo provides data access to the seats table.  Seat.Status is a
// derived cache of the reservations table; every mutation path refreshes
// it through RecomputeStatusTx rather than patching it incrementally.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

const seatColumns = `id, seat_no, area, seat_type, status, x_coord, y_coord, deleted, created_at, updated_at`

func scanSeat(row interface{ Scan(...any) error }) (*model.Seat, error) {
	var s model.Seat
	err := row.Scan(&s.ID, &s.SeatNo, &s.Area, &s.Type, &s.Status, &s.X, &s.Y, &s.Deleted, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID returns a non-deleted seat or ErrSeatNotFound.
func (r *SeatRepo) GetByID(ctx context.Context, id uint64) (*model.Seat, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE id = ? AND deleted = 0`, id)
	s, err := scanSeat(row)
	if err == sql.ErrNoRows {
		return nil, ErrSeatNotFound
	}
	return s, err
}

// GetByIDTx is GetByID inside an existing transaction.
func (r *SeatRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Seat, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE id = ? AND deleted = 0`, id)
	s, err := scanSeat(row)
	if err == sql.ErrNoRows {
		return nil, ErrSeatNotFound
	}
	return s, err
}

// Create inserts a seat after checking seat_no uniqueness among live rows.
// On success the seat's ID is populated.
func (r *SeatRepo) Create(ctx context.Context, s *model.Seat) error {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seats WHERE seat_no = ? AND deleted = 0`, s.SeatNo).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrSeatNoExists
	}
	if s.Status == "" {
		s.Status = model.SeatAvailable
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO seats (seat_no, area, seat_type, status, x_coord, y_coord) VALUES (?, ?, ?, ?, ?, ?)`,
		s.SeatNo, s.Area, s.Type, s.Status, s.X, s.Y)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// Update rewrites the mutable seat fields (label, area, type, layout).
func (r *SeatRepo) Update(ctx context.Context, s *model.Seat) error {
	old, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	if s.SeatNo != old.SeatNo {
		var n int
		if err := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM seats WHERE seat_no = ? AND deleted = 0 AND id <> ?`, s.SeatNo, s.ID).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return ErrSeatNoExists
		}
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE seats SET seat_no = ?, area = ?, seat_type = ?, x_coord = ?, y_coord = ? WHERE id = ? AND deleted = 0`,
		s.SeatNo, s.Area, s.Type, s.X, s.Y, s.ID)
	return err
}

// SoftDelete tombstones a seat.  Seats in use (occupied, or with an
// active reservation) cannot be deleted.
func (r *SeatRepo) SoftDelete(ctx context.Context, id uint64) error {
	seat, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if seat.Status == model.SeatOccupied {
		return ErrSeatInUse
	}
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE seat_id = ? AND status IN ('reserved','checked_in','away')`, id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrSeatInUse
	}
	_, err = r.db.ExecContext(ctx, `UPDATE seats SET deleted = 1 WHERE id = ?`, id)
	return err
}

// SetStatus writes the seat status directly.  Used by administrators for
// maintenance flagging; normal lifecycle paths use RecomputeStatusTx.
func (r *SeatRepo) SetStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE seats SET status = ? WHERE id = ? AND deleted = 0`, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSeatNotFound
	}
	return nil
}

// SetStatusTx is SetStatus inside an existing transaction, so an override
// commits together with the reservation it evicts.
func (r *SeatRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE seats SET status = ? WHERE id = ? AND deleted = 0`, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSeatNotFound
	}
	return nil
}

// RecomputeStatusTx derives the seat status from current truth: occupied
// iff any active reservation covers now, unless the seat is flagged for
// maintenance.  It writes the derived value and returns it.  Recomputing
// from the reservations table keeps the cache drift-free no matter which
// path (request or sweep) triggered the transition.
func (r *SeatRepo) RecomputeStatusTx(ctx context.Context, tx *sql.Tx, seatID uint64, now time.Time) (string, error) {
	var current string
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM seats WHERE id = ? AND deleted = 0`, seatID).Scan(&current)
	if err == sql.ErrNoRows {
		return "", ErrSeatNotFound
	}
	if err != nil {
		return "", err
	}
	if current == model.SeatMaintenance {
		return current, nil
	}
	var n int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations
		 WHERE seat_id = ? AND status IN ('reserved','checked_in','away')
		   AND start_time <= ? AND end_time > ?`,
		seatID, now.UTC(), now.UTC()).Scan(&n)
	if err != nil {
		return "", err
	}
	status := model.SeatAvailable
	if n > 0 {
		status = model.SeatOccupied
	}
	if status != current {
		if _, err := tx.ExecContext(ctx, `UPDATE seats SET status = ? WHERE id = ?`, status, seatID); err != nil {
			return "", err
		}
	}
	return status, nil
}

// List returns all live seats ordered by area then seat number.
func (r *SeatRepo) List(ctx context.Context) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE deleted = 0 ORDER BY area, seat_no`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := make([]model.Seat, 0)
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, *s)
	}
	return seats, rows.Err()
}
