package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/library-seat-reservation/internal/model"
)

// OccupancyRepo provides data access to the seat_occupancy table, one
// snapshot per monitored reservation.  Rows in status occupied are audit
// records of forced checkouts and are never reprocessed.
type OccupancyRepo struct {
	db *sql.DB
}

func NewOccupancyRepo(db *sql.DB) *OccupancyRepo { return &OccupancyRepo{db: db} }

const occupancyColumns = `id, reservation_id, user_id, seat_id, check_in_time, last_seen, away_minutes, status, warning_count`

func scanSnapshot(row interface{ Scan(...any) error }) (*model.OccupancySnapshot, error) {
	var o model.OccupancySnapshot
	err := row.Scan(&o.ID, &o.ReservationID, &o.UserID, &o.SeatID,
		&o.CheckInTime, &o.LastSeen, &o.AwayMinutes, &o.Status, &o.WarningCount)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateTx inserts a snapshot for a freshly checked-in reservation.
func (r *OccupancyRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.OccupancySnapshot) error {
	if o.Status == "" {
		o.Status = model.OccupancyNormal
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO seat_occupancy (reservation_id, user_id, seat_id, check_in_time, last_seen, away_minutes, status, warning_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ReservationID, o.UserID, o.SeatID, o.CheckInTime.UTC(), o.LastSeen.UTC(), o.AwayMinutes, o.Status, o.WarningCount)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return nil
}

// GetByReservation returns the snapshot for a reservation, or nil when
// none exists.
func (r *OccupancyRepo) GetByReservation(ctx context.Context, reservationID uint64) (*model.OccupancySnapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+occupancyColumns+` FROM seat_occupancy WHERE reservation_id = ?`, reservationID)
	o, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return o, err
}

// TouchTx records an activity signal: last_seen is reset, accumulated
// away minutes zeroed, and a warning demoted back to normal.  Occupied
// snapshots are final and not touched.
func (r *OccupancyRepo) TouchTx(ctx context.Context, tx *sql.Tx, reservationID uint64, seenAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE seat_occupancy
		 SET last_seen = ?, away_minutes = 0,
		     status = CASE WHEN status = 'warning' THEN 'normal' ELSE status END
		 WHERE reservation_id = ? AND status <> 'occupied'`,
		seenAt.UTC(), reservationID)
	return err
}

// MarkTx writes the escalation outcome of one sweep pass: the computed
// away minutes, the (possibly unchanged) status, and the warning counter
// increment when a warning was just issued.
func (r *OccupancyRepo) MarkTx(ctx context.Context, tx *sql.Tx, reservationID uint64, status string, awayMinutes int, bumpWarning bool) error {
	bump := 0
	if bumpWarning {
		bump = 1
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE seat_occupancy
		 SET status = ?, away_minutes = ?, warning_count = warning_count + ?
		 WHERE reservation_id = ?`,
		status, awayMinutes, bump, reservationID)
	return err
}

// DeleteTx removes the snapshot when its reservation leaves active use
// through a proper release.
func (r *OccupancyRepo) DeleteTx(ctx context.Context, tx *sql.Tx, reservationID uint64) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM seat_occupancy WHERE reservation_id = ?`, reservationID)
	return err
}

// ListMonitored returns all snapshots still being watched (normal or
// warning), joined with live monitoring data for the admin view.
func (r *OccupancyRepo) ListMonitored(ctx context.Context) ([]model.OccupancySnapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+occupancyColumns+` FROM seat_occupancy WHERE status IN ('normal','warning') ORDER BY last_seen`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]model.OccupancySnapshot, 0)
	for rows.Next() {
		o, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *o)
	}
	return list, rows.Err()
}
