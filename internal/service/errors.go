// Package service implements the reservation core: admission control, the
// reservation state machine, occupancy monitoring and the periodic sweeps.
package service

import "fmt"

// Rejection codes.  Handlers map these to HTTP statuses; the codes are the
// contract, the messages are advisory.
const (
	CodeContention         = "contention"          // lost a race for the seat or lock
	CodePreconditionFailed = "precondition_failed" // request valid, state says no
	CodeNotFound           = "not_found"
	CodeInvariant          = "invariant_violation" // request contradicts a rule outright
)

// Rejection is a typed refusal.  Reason is machine-readable and stable;
// Message is for humans and may change.
type Rejection struct {
	Code    string `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s/%s: %s", r.Code, r.Reason, r.Message)
}

func reject(code, reason, msg string) *Rejection {
	return &Rejection{Code: code, Reason: reason, Message: msg}
}

func rejectf(code, reason, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Stable rejection reasons used across operations.
const (
	ReasonSeatLocked        = "seat_locked"
	ReasonSeatUnavailable   = "seat_unavailable"
	ReasonSeatConflict      = "seat_conflict"
	ReasonUserConflict      = "user_conflict"
	ReasonCreditTooLow      = "credit_too_low"
	ReasonSlotInvalid       = "slot_invalid"
	ReasonSlotOver          = "slot_over"
	ReasonNotOwner          = "not_owner"
	ReasonWrongStatus       = "wrong_status"
	ReasonCheckInEarly      = "check_in_too_early"
	ReasonCheckInLate       = "check_in_too_late"
	ReasonProofFailed       = "presence_proof_failed"
	ReasonSeatNotFound      = "seat_not_found"
	ReasonReservationGone   = "reservation_not_found"
	ReasonAppealNotPending  = "appeal_not_pending"
	ReasonSeatHasOccupant   = "seat_has_occupant"
	ReasonRaceLost          = "race_lost"
	ReasonClosed            = "closed"
)
