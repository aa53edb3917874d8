package common

import "time"

// Clock supplies the current time. Timestamps and token expiries are always
// computed through a Clock so tests can substitute a fixed instant.
type Clock interface {
	Now() time.Time
}

// RealClock returns the system time in UTC.
type RealClock struct{}

// Now implements Clock.
func (RealClock) Now() time.Time { return time.Now().UTC() }
