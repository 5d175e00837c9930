package model

import "time"

// Occupancy escalation levels.  Normal and warning snapshots are still
// being monitored; occupied marks a snapshot whose reservation was forced
// out (or manually checked out) and is kept only as an audit record.
const (
	OccupancyNormal   = "normal"
	OccupancyWarning  = "warning"
	OccupancyOccupied = "occupied"
)

// OccupancySnapshot tracks undeclared absence for one checked-in
// reservation.  It is created on first check-in and detects users who left
// physically without using the leave action: any activity signal resets
// LastSeen, and the occupancy sweep escalates normal -> warning ->
// occupied as LastSeen ages.  Declared absence (status away) has its own
// deadline on the reservation and is not measured here.
//
// Fields:
//  ID           – primary key identifier.
//  ReservationID – monitored reservation (one snapshot per reservation).
//  UserID       – user of the reservation, denormalized for listings.
//  SeatID       – seat of the reservation, denormalized for listings.
//  CheckInTime  – when monitoring started.
//  LastSeen     – last confirmed presence.
//  AwayMinutes  – minutes since LastSeen as of the last sweep.
//  Status       – normal | warning | occupied.
//  WarningCount – number of warnings sent for this snapshot.
type OccupancySnapshot struct {
	ID            uint64    `json:"id"`             // seat_occupancy.id
	ReservationID uint64    `json:"reservation_id"` // seat_occupancy.reservation_id
	UserID        uint64    `json:"user_id"`        // seat_occupancy.user_id
	SeatID        uint64    `json:"seat_id"`        // seat_occupancy.seat_id
	CheckInTime   time.Time `json:"check_in_time"`  // seat_occupancy.check_in_time
	LastSeen      time.Time `json:"last_seen"`      // seat_occupancy.last_seen
	AwayMinutes   int       `json:"away_minutes"`   // seat_occupancy.away_minutes
	Status        string    `json:"status"`         // seat_occupancy.status
	WarningCount  int       `json:"warning_count"`  // seat_occupancy.warning_count
}
