package model

import "time"

// Reservation status values.  A reservation is "active" while it is in
// reserved, checked_in or away; the admission rules and the derived seat
// status only consider active rows.
const (
	StatusReserved  = "reserved"
	StatusCheckedIn = "checked_in"
	StatusAway      = "away"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusViolation = "violation"
)

// ActiveStatuses lists the statuses that occupy a seat slot.  At most one
// reservation per (seat, slot, day) and per (user, slot, day) may be in
// one of these states.
var ActiveStatuses = []string{StatusReserved, StatusCheckedIn, StatusAway}

// IsActiveStatus reports whether s is one of the occupying statuses.
func IsActiveStatus(s string) bool {
	return s == StatusReserved || s == StatusCheckedIn || s == StatusAway
}

// Reservation is the single source of truth for seat occupancy.  The
// Deadline field carries the next required user action: while reserved it
// is the check-in cutoff, while away it is the return cutoff.  It must be
// null in every other status.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – user who booked the seat.
//  SeatID    – seat being booked.
//  Slot      – named daily window (morning, afternoon, evening).
//  StartTime – slot start for the booked day.
//  EndTime   – slot end, or the actual end once the session closed.
//  Deadline  – check-in/return cutoff; nil outside reserved/away.
//  Status    – see status constants above.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Reservation struct {
	ID        uint64     `json:"id"`                 // reservations.id
	UserID    uint64     `json:"user_id"`            // reservations.user_id
	SeatID    uint64     `json:"seat_id"`            // reservations.seat_id
	Slot      string     `json:"slot"`               // reservations.slot
	StartTime time.Time  `json:"start_time"`         // reservations.start_time
	EndTime   time.Time  `json:"end_time"`           // reservations.end_time
	Deadline  *time.Time `json:"deadline,omitempty"` // reservations.deadline (nullable)
	Status    string     `json:"status"`             // reservations.status
	CreatedAt time.Time  `json:"created_at"`         // reservations.created_at
	UpdatedAt time.Time  `json:"updated_at"`         // reservations.updated_at

	// SeatNo is populated by listing queries for display; not a column.
	SeatNo string `json:"seat_no,omitempty"`
}

// Active reports whether the reservation currently occupies its seat.
func (r *Reservation) Active() bool { return IsActiveStatus(r.Status) }
