package service

import "time"

// Clock abstracts "now" so sweeps and window checks are testable.
type Clock interface {
	Now() time.Time
}

// RealClock is the production clock; all times are UTC.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }
