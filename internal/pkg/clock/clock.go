// Package clock provides the wall clock used to stamp analysis results and a
// hand-managed clock for tests.
package clock

import (
	"sync"
	"time"
)

// System reads the wall clock.
type System struct{}

// New returns the wall clock.
func New() System {
	return System{}
}

// Now returns the current time.
func (System) Now() time.Time {
	return time.Now()
}

// Managed is a clock moved by hand. Intended for tests.
type Managed struct {
	mu      sync.Mutex
	current time.Time
}

// NewManaged returns a clock frozen at start.
func NewManaged(start time.Time) *Managed {
	return &Managed{current: start}
}

// Now returns the managed time.
func (c *Managed) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// WarpForward moves the clock forward by offset and returns the new time.
func (c *Managed) WarpForward(offset time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(offset)
	return c.current
}
