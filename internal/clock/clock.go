// Package clock supplies the current time behind an interface so that
// claim-timeout and SLA boundaries are deterministic under test.
package clock

import "time"

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// System is the wall-clock implementation used in production
type System struct{}

// Now returns the current wall-clock time
func (System) Now() time.Time {
	return time.Now()
}

// Fixed is a clock pinned to a single instant, for tests
type Fixed struct {
	Instant time.Time
}

// Now returns the pinned instant
func (f Fixed) Now() time.Time {
	return f.Instant
}

// NowMillis converts a clock reading to epoch milliseconds
func NowMillis(c Clock) int64 {
	return c.Now().UnixNano() / int64(time.Millisecond)
}
