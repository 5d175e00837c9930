package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/library-seat-reservation/internal/model"
)

// AppealRepo provides CRUD access to violation appeals.
type AppealRepo struct {
	db *sql.DB
}

func NewAppealRepo(db *sql.DB) *AppealRepo { return &AppealRepo{db: db} }

const appealColumns = `id, reservation_id, user_id, reason, status, COALESCE(reply, ''), created_at, updated_at`

func scanAppeal(row interface{ Scan(...any) error }) (*model.Appeal, error) {
	var a model.Appeal
	err := row.Scan(&a.ID, &a.ReservationID, &a.UserID, &a.Reason, &a.Status, &a.Reply, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a pending appeal.
func (r *AppealRepo) Create(ctx context.Context, a *model.Appeal) error {
	a.Status = model.AppealPending
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO appeals (reservation_id, user_id, reason, status) VALUES (?, ?, ?, ?)`,
		a.ReservationID, a.UserID, a.Reason, a.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// GetByID returns an appeal or ErrAppealNotFound.
func (r *AppealRepo) GetByID(ctx context.Context, id uint64) (*model.Appeal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+appealColumns+` FROM appeals WHERE id = ?`, id)
	a, err := scanAppeal(row)
	if err == sql.ErrNoRows {
		return nil, ErrAppealNotFound
	}
	return a, err
}

// Review records the administrator's verdict and reply.
func (r *AppealRepo) Review(ctx context.Context, id uint64, status, reply string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE appeals SET status = ?, reply = ? WHERE id = ?`, status, reply, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAppealNotFound
	}
	return nil
}

// List returns appeals, optionally filtered by status, newest first.
func (r *AppealRepo) List(ctx context.Context, status string) ([]model.Appeal, error) {
	query := `SELECT ` + appealColumns + ` FROM appeals`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]model.Appeal, 0)
	for rows.Next() {
		a, err := scanAppeal(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}
