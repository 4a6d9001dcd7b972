package matching

import (
	"sync"
	"time"
)

// Clock hands out the timestamps the engine stamps on orders and trades
type Clock interface {
	Now() time.Time
}

// PriorityClock is a strictly increasing clock with microsecond resolution,
// the precision PostgreSQL keeps for timestamptz. Two orders stamped by the
// same process never share a priority timestamp.
type PriorityClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewPriorityClock returns a clock driven by the wall clock
func NewPriorityClock() *PriorityClock {
	return &PriorityClock{now: time.Now}
}

// NewPriorityClockFrom returns a clock driven by source, used by tests to pin time
func NewPriorityClockFrom(source func() time.Time) *PriorityClock {
	return &PriorityClock{now: source}
}

func (c *PriorityClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
