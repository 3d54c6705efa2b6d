package wheel

import (
	"sync/atomic"
	"time"
)

// Clock is the monotonic time base shared by the edge handlers and the loop.
type Clock interface {
	Micros() Micros // Microseconds since start, wrapping at 32 bits
	Millis() uint32 // Milliseconds since start, wrapping at 32 bits
}

// MonotonicClock counts from its creation using the runtime's monotonic clock.
type MonotonicClock struct {
	start time.Time
}

// NewClock returns a clock that starts at zero now.
func NewClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

// Micros implements Clock.
func (c *MonotonicClock) Micros() Micros {
	return Micros(uint64(time.Since(c.start) / time.Microsecond))
}

// Millis implements Clock.
func (c *MonotonicClock) Millis() uint32 {
	return uint32(uint64(time.Since(c.start) / time.Millisecond))
}

// ManualClock is a Clock that only moves when told to. Used by tests and the
// simulated board.
type ManualClock struct {
	us atomic.Uint64
}

// Set moves the clock to an absolute number of microseconds.
func (c *ManualClock) Set(us uint64) {
	c.us.Store(us)
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.us.Add(uint64(d / time.Microsecond))
}

// Micros implements Clock.
func (c *ManualClock) Micros() Micros {
	return Micros(c.us.Load())
}

// Millis implements Clock.
func (c *ManualClock) Millis() uint32 {
	return uint32(c.us.Load() / 1000)
}
