package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/library-seat-reservation/internal/model"
	"github.com/iliyamo/library-seat-reservation/internal/utils"
)

// UserRepo provides data access to the users table, including the credit
// ledger.  Credit is adjusted only through AdjustCreditTx, which clamps
// inside the UPDATE itself so no read-modify-write race can push the
// score outside [0, 100].
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, email, password_hash, role, credit_score, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreditScore, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, role) VALUES (?, ?, ?)`,
		email, hash, role)
	if err != nil {
		// 1062 = duplicate key on the unique email index
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	return u, err
}

// CreditScore returns the user's current credit score.
func (r *UserRepo) CreditScore(ctx context.Context, id uint64) (int, error) {
	var score int
	err := r.DB.QueryRowContext(ctx,
		`SELECT credit_score FROM users WHERE id = ?`, id).Scan(&score)
	if err == sql.ErrNoRows {
		return 0, ErrUserNotFound
	}
	return score, err
}

// AdjustCreditTx atomically adds delta to the user's credit score,
// clamped to [0, 100] inside the statement, and returns the new score.
// Negative deltas are penalties, positive deltas bonuses.
func (r *UserRepo) AdjustCreditTx(ctx context.Context, tx *sql.Tx, id uint64, delta int) (int, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET credit_score = LEAST(?, GREATEST(?, credit_score + ?)) WHERE id = ?`,
		model.CreditMax, model.CreditMin, delta, id)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		// RowsAffected is 0 both for a missing user and for a no-op
		// update; distinguish with an existence probe.
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, id).Scan(&exists); err != nil {
			return 0, err
		}
		if exists == 0 {
			return 0, ErrUserNotFound
		}
	}
	var score int
	err = tx.QueryRowContext(ctx, `SELECT credit_score FROM users WHERE id = ?`, id).Scan(&score)
	return score, err
}
