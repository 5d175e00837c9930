// Package repository implements raw-SQL data access for the reservation
// core.  This file defines sentinel errors shared across repositories so
// that the service layer can distinguish failure scenarios without
// inspecting SQL driver errors.
package repository

import "errors"

// ErrSeatNotFound is returned when a seat lookup yields no live row.
var ErrSeatNotFound = errors.New("seat not found")

// ErrReservationNotFound is returned when a reservation lookup yields no row.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrUserNotFound is returned when a user lookup yields no row.
var ErrUserNotFound = errors.New("user not found")

// ErrAppealNotFound is returned when an appeal lookup yields no row.
var ErrAppealNotFound = errors.New("appeal not found")

// ErrSeatNoExists signals a duplicate seat number among non-deleted seats.
var ErrSeatNoExists = errors.New("seat number already exists")

// ErrSeatInUse is returned when deleting a seat that still has an active
// reservation or is currently occupied.
var ErrSeatInUse = errors.New("seat is in use")

// ErrEmailExists signals a duplicate email on user creation.
var ErrEmailExists = errors.New("email already exists")
