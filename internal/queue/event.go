// Package queue defines the message payloads exchanged over the broker and
// the background consumer that records them.  Publishing is fire-and-forget:
// the reservation core never blocks on, or observes, delivery.
package queue

// Event kinds routed over the reservation.events queue.
const (
	KindReservationUpdate = "reservation_update"
	KindSeatUpdate        = "seat_update"
	KindAlert             = "alert"
)

// ReservationEvent is published whenever a reservation changes state.
// Downstream consumers (audit log, dashboards) get enough to act without
// querying the primary database.
type ReservationEvent struct {
	Kind          string `json:"kind"`
	ReservationID uint64 `json:"reservation_id,omitempty"`
	UserID        uint64 `json:"user_id,omitempty"`
	SeatID        uint64 `json:"seat_id,omitempty"`
	SeatNo        string `json:"seat_no,omitempty"`
	Slot          string `json:"slot,omitempty"`
	Status        string `json:"status,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Message       string `json:"message,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}
