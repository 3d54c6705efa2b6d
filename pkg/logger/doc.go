// Package logger implements the data logger main loop.
//
// Each cycle snapshots both wheel channels, turns the snapshots into deltas
// against the previous cycle, samples the six analog inputs and writes one
// telemetry line to the output sink. The loop never retries and never stops on
// a failed write; it runs until its context is cancelled.
package logger
