package metrics

import "sync/atomic"

// Counter tracks the total number of samples acquired across the whole
// stream. The value never decreases.
type Counter struct {
	seen atomic.Int64
}

// Observe records a session total and returns the value to gate on.
func (c *Counter) Observe(total int64) int64 {
	for {
		cur := c.seen.Load()
		if total <= cur {
			return cur
		}
		if c.seen.CompareAndSwap(cur, total) {
			return total
		}
	}
}

func (c *Counter) Seen() int64 {
	return c.seen.Load()
}
