package model

import "time"

// Appeal review outcomes.
const (
	AppealPending  = "pending"
	AppealApproved = "approved"
	AppealRejected = "rejected"
)

// Appeal is a user's objection to a violation verdict on one of their
// reservations.  Approval does not automatically reverse the credit
// penalty; an administrator compensates manually if warranted.
//
// Fields:
//  ID            – primary key identifier.
//  ReservationID – reservation being contested.
//  UserID        – appellant.
//  Reason        – free-text justification.
//  Status        – pending | approved | rejected.
//  Reply         – administrator's response.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Appeal struct {
	ID            uint64    `json:"id"`              // appeals.id
	ReservationID uint64    `json:"reservation_id"`  // appeals.reservation_id
	UserID        uint64    `json:"user_id"`         // appeals.user_id
	Reason        string    `json:"reason"`          // appeals.reason
	Status        string    `json:"status"`          // appeals.status
	Reply         string    `json:"reply,omitempty"` // appeals.reply
	CreatedAt     time.Time `json:"created_at"`      // appeals.created_at
	UpdatedAt     time.Time `json:"updated_at"`      // appeals.updated_at
}
