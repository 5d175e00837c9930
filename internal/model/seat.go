package model

import "time"

// Seat status values.  Status is a derived cache of "is any active
// reservation using this seat right now"; the reservations table is the
// authoritative source.  Maintenance is set by administrators and wins
// over any derived value.
const (
	SeatAvailable   = "available"
	SeatOccupied    = "occupied"
	SeatMaintenance = "maintenance"
)

// Seat describes a physical study seat.  Seats are identified by a
// human-readable seat number (e.g. "A-01") unique among non-deleted rows.
// Seats are soft-deleted: rows are tombstoned so historical reservations
// keep a valid reference.
//
// Fields:
//  ID        – primary key identifier.
//  SeatNo    – human label, unique per non-deleted seat.
//  Area      – zone of the reading room (e.g. "A").
//  Type      – seat class (standard, window, power).
//  Status    – available | occupied | maintenance (derived cache).
//  X, Y      – floor-plan coordinates for the seat map UI.
//  Deleted   – soft delete flag.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Seat struct {
	ID        uint64    `json:"id"`         // seats.id
	SeatNo    string    `json:"seat_no"`    // seats.seat_no
	Area      string    `json:"area"`       // seats.area
	Type      string    `json:"type"`       // seats.seat_type
	Status    string    `json:"status"`     // seats.status
	X         int       `json:"x"`          // seats.x_coord
	Y         int       `json:"y"`          // seats.y_coord
	Deleted   bool      `json:"-"`          // seats.deleted
	CreatedAt time.Time `json:"created_at"` // seats.created_at
	UpdatedAt time.Time `json:"updated_at"` // seats.updated_at

	// SlotStatuses is populated by listings only: per-slot availability for
	// today (slot name -> reservation status or "available"/"maintenance").
	// It is not a column.
	SlotStatuses map[string]string `json:"slot_statuses,omitempty"`
}
