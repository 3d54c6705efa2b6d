// Package wheel counts wheel sensor pulses and turns them into per-cycle deltas.
//
// A Channel is written by the sensor edge handler and read by the logger loop.
// The loop takes one Snapshot per cycle, feeds it to a Tracker, and gets back the
// pulses and microseconds elapsed since the previous cycle. Both the counter and
// the clock are fixed-width and wrap; all differences are modular.
package wheel
