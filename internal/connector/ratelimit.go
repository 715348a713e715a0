package connector

import (
	"sync"
	"time"

	"newscollector/internal/core"
)

// rateCounter enforces a per-minute/per-hour/per-day request budget with
// daily rollover. A zero limit means unlimited for that window. The counter
// is safe for use across parallel fetches of one connector instance.
type rateCounter struct {
	mu     sync.Mutex
	policy core.RateLimitPolicy
	clock  core.Clock

	minuteStart time.Time
	hourStart   time.Time
	dayStart    time.Time
	minuteCount int
	hourCount   int
	dayCount    int
}

func newRateCounter(policy core.RateLimitPolicy, clock core.Clock) *rateCounter {
	if clock == nil {
		clock = core.RealClock{}
	}
	return &rateCounter{policy: policy, clock: clock}
}

// allow consumes one request slot if every window has budget left.
func (c *rateCounter) allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.roll(c.clock.Now())

	if c.policy.PerMinute > 0 && c.minuteCount >= c.policy.PerMinute {
		return false
	}
	if c.policy.PerHour > 0 && c.hourCount >= c.policy.PerHour {
		return false
	}
	if c.policy.PerDay > 0 && c.dayCount >= c.policy.PerDay {
		return false
	}

	c.minuteCount++
	c.hourCount++
	c.dayCount++
	return true
}

// dailyExhausted reports whether the daily quota is spent.
func (c *rateCounter) dailyExhausted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roll(c.clock.Now())
	return c.policy.PerDay > 0 && c.dayCount >= c.policy.PerDay
}

// roll resets any window whose period has elapsed. The day window rolls
// over at local midnight of the clock's timezone.
func (c *rateCounter) roll(now time.Time) {
	if c.minuteStart.IsZero() || now.Sub(c.minuteStart) >= time.Minute {
		c.minuteStart = now
		c.minuteCount = 0
	}
	if c.hourStart.IsZero() || now.Sub(c.hourStart) >= time.Hour {
		c.hourStart = now
		c.hourCount = 0
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if c.dayStart.IsZero() || day.After(c.dayStart) {
		c.dayStart = day
		c.dayCount = 0
	}
}
