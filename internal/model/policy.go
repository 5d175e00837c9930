package model

import "time"

// Policy carries the tunable thresholds that govern the reservation
// lifecycle.  Values live in the sys_config table so administrators can
// retune them at runtime; DefaultPolicy supplies the fallback for any
// missing key.
type Policy struct {
	CheckInBefore      time.Duration // how early check-in opens before slot start
	CheckInAfter       time.Duration // check-in grace after slot start; reserved deadline = start + this
	ViolationWindow    time.Duration // declared-leave return window; away deadline = leave + this
	OccupancyWarning   time.Duration // undeclared absence before a warning
	OccupancyViolation time.Duration // undeclared absence before forced checkout
	ReleaseBuffer      time.Duration // releasing later than start-buffer counts as late cancellation
	ReminderLookahead  time.Duration // "expiring soon" reminder window

	MinCreditScore          int // floor to create new reservations
	CreditPenaltyNoShow     int // deducted on no-show / away timeout
	CreditPenaltyLateCancel int // deducted on late cancellation (distinct policy from no-show)
	CreditPenaltyOccupancy  int // deducted on undeclared-absence forced checkout
	CreditBonusCompleted    int // added when a checked-in session is released properly

	ClosingHour    int     // hour of day the reading room closes
	GeofenceRadius float64 // metres; check-in proximity proof threshold
	SiteLat        float64 // reading room latitude
	SiteLng        float64 // reading room longitude
}

// DefaultPolicy returns the coded defaults used when a sys_config key is
// absent or malformed.
func DefaultPolicy() Policy {
	return Policy{
		CheckInBefore:      15 * time.Minute,
		CheckInAfter:       15 * time.Minute,
		ViolationWindow:    30 * time.Minute,
		OccupancyWarning:   45 * time.Minute,
		OccupancyViolation: 60 * time.Minute,
		ReleaseBuffer:      30 * time.Minute,
		ReminderLookahead:  5 * time.Minute,

		MinCreditScore:          60,
		CreditPenaltyNoShow:     10,
		CreditPenaltyLateCancel: 10,
		CreditPenaltyOccupancy:  15,
		CreditBonusCompleted:    2,

		ClosingHour:    22,
		GeofenceRadius: 200,
		SiteLat:        31.2304,
		SiteLng:        121.4737,
	}
}
