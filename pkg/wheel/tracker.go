package wheel

// Delta is the change between two consecutive snapshots of the same channel.
type Delta struct {
	Count Count  // Pulses elapsed
	Time  Micros // Microseconds elapsed between the two last-pulse timestamps
}

// Sub returns the wrapping difference s - prev. Both fields are computed modulo
// their width, so a counter or clock that rolled over between the two snapshots
// still yields the true number of pulses and microseconds elapsed.
func (s Snapshot) Sub(prev Snapshot) Delta {
	return Delta{
		Count: s.Count - prev.Count,
		Time:  s.Timestamp - prev.Timestamp,
	}
}

// Add returns the delta covering both d and next, as if the snapshot between
// them had never been taken. Both fields wrap.
func (d Delta) Add(next Delta) Delta {
	return Delta{
		Count: d.Count + next.Count,
		Time:  d.Time + next.Time,
	}
}

// Tracker keeps the history of one channel across loop cycles.
//
// The zero value starts from the zero snapshot, so the first delta covers
// everything since power-on.
type Tracker struct {
	prev Snapshot
}

// Update computes the delta from the previous snapshot to s and stores s as the
// new previous snapshot.
func (t *Tracker) Update(s Snapshot) Delta {
	d := s.Sub(t.prev)
	t.prev = s
	return d
}
