package booking

import "time"

// =============================================================================
// CLOCK - Injectable time source
// =============================================================================

// Clock abstracts "now" so the 24-hour cancellation cutoff and the expiry
// sweep are testable without wall-clock dependency.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock returns a constant time. For tests.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }
