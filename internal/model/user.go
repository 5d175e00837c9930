package model

import "time"

// Application roles.  Students book seats; admins manage seats, appeals
// and forced checkouts.
const (
	RoleStudent = "STUDENT"
	RoleAdmin   = "ADMIN"
)

// Credit score bounds.  The score is mutated only through the clamped
// adjust operation in the user repository; it can never leave [Min, Max].
const (
	CreditMin = 0
	CreditMax = 100
)

// User represents a row in the `users` table.  The credit score is a
// bounded reputation counter: violations deduct points, well-behaved
// completions add them, and a score below the configured minimum blocks
// new reservations.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – STUDENT or ADMIN.
//  CreditScore  – bounded [0, 100].
//  IsActive     – whether the account is active.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type User struct {
	ID           uint64    `json:"id"`           // users.id
	Email        string    `json:"email"`        // users.email
	PasswordHash string    `json:"-"`            // users.password_hash
	Role         string    `json:"role"`         // users.role
	CreditScore  int       `json:"credit_score"` // users.credit_score
	IsActive     bool      `json:"is_active"`    // users.is_active
	CreatedAt    time.Time `json:"created_at"`   // users.created_at
	UpdatedAt    time.Time `json:"updated_at"`   // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the raw token is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
