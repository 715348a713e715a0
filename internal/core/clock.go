package core

import "time"

// Clock supplies the current instant. Scorers and the ranker take a Clock
// so that freshness decay and recency ordering are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock backed by the system time in UTC.
type RealClock struct{}

// Now returns the current UTC time.
func (RealClock) Now() time.Time {
	return time.Now().UTC()
}
