package wheel

import "sync/atomic"

// Count is the raw pulse counter of a wheel sensor. It is 16 bits wide and wraps.
type Count uint16

// Micros is a reading of the free-running microsecond clock. It is 32 bits wide
// and wraps roughly every 71.6 minutes.
type Micros uint32

// Snapshot is a (count, timestamp) pair read as of the same instant.
type Snapshot struct {
	Count     Count  // Pulses seen since reset
	Timestamp Micros // Clock reading at the most recent pulse edge
}

// Channel holds the shared state of one wheel sensor.
//
// Count and timestamp are packed into a single 64-bit word:
//
//	bits 32..47  pulse count
//	bits  0..31  timestamp of the last pulse (µs)
//
// Pulse is the only writer and Snapshot the only reader, so the pair can never be
// observed half updated. The zero value is ready to use.
type Channel struct {
	state atomic.Uint64
}

func pack(s Snapshot) uint64 {
	return uint64(s.Count)<<32 | uint64(s.Timestamp)
}

func unpack(v uint64) Snapshot {
	return Snapshot{
		Count:     Count(v >> 32),
		Timestamp: Micros(v),
	}
}

// Pulse records one sensor edge observed at now. It is safe to call from the
// edge handler while the main loop takes snapshots: no locks, no allocation.
func (c *Channel) Pulse(now Micros) {
	for {
		old := c.state.Load()
		next := pack(Snapshot{
			Count:     unpack(old).Count + 1,
			Timestamp: now,
		})
		if c.state.CompareAndSwap(old, next) {
			return
		}
	}
}

// Snapshot returns the current count and last pulse timestamp in one atomic read.
func (c *Channel) Snapshot() Snapshot {
	return unpack(c.state.Load())
}
