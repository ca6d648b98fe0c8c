package clock

import "time"

// FakeClock is a manually advanced Clock for tests that depend on time,
// such as refund-tier cancellations and scheduler firing.
type FakeClock struct {
	now time.Time
}

var _ Clock = (*FakeClock)(nil)

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward (or backward with a negative duration).
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// Set pins the clock to an exact instant.
func (c *FakeClock) Set(t time.Time) {
	c.now = t.UTC()
}
