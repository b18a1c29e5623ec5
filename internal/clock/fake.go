package clock

import "time"

// FakeClock holds a fixed instant so tests can pin workflow timestamps and
// walk session expiry forward deterministically.
type FakeClock struct {
	now time.Time
}

// NewFakeClock starts the clock at t, normalized to UTC like the real one.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward by d. Not safe for concurrent use; tests
// advance time from a single goroutine.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
