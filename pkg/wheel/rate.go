package wheel

// MicrosPerMinute is the number of clock units in one minute.
const MicrosPerMinute = 60 * 1000 * 1000

// RPM converts a pulse count elapsed over dt microseconds into pulses per minute,
// truncated toward zero.
//
// An interval of one microsecond or less is treated as "no time elapsed" and
// yields 0 instead of a division by zero or a spuriously huge rate.
func RPM(count Count, dt Micros) uint32 {
	if dt <= 1 {
		return 0
	}
	// 65535 * 60e6 fits easily in 64 bits, and integer division truncates.
	return uint32(uint64(count) * MicrosPerMinute / uint64(dt))
}

// RevsPerMinute returns the wheel speed for a delta, given the number of sensor
// pulses per wheel revolution. pulsesPerRev below 1 is treated as 1.
func RevsPerMinute(d Delta, pulsesPerRev int) uint32 {
	if pulsesPerRev < 1 {
		pulsesPerRev = 1
	}
	return RPM(d.Count, d.Time) / uint32(pulsesPerRev)
}
