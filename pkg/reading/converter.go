package reading

import (
	"log"
	"time"

	"github.com/itohio/wheellog/pkg/config"
	"github.com/itohio/wheellog/pkg/gps"
	"github.com/itohio/wheellog/pkg/link"
	"github.com/itohio/wheellog/pkg/wheel"
)

// FixSource provides the current GPS fix.
type FixSource interface {
	Latest() gps.Fix
}

// Converter is a function type that converts a link.Sample channel to a
// Reading channel.
type Converter func(in <-chan link.Sample) <-chan Reading

// NewConverter creates a converter that decodes every sample and attaches the
// current fix from fixes, which may be nil.
func NewConverter(cfg *config.Config, fixes FixSource, bufSize int) Converter {
	if bufSize <= 0 {
		bufSize = 100
	}
	pulsesPerRev := cfg.Logger.PulsesPerRev

	return func(in <-chan link.Sample) <-chan Reading {
		out := make(chan Reading, bufSize)

		go func() {
			defer close(out)

			for s := range in {
				var fix gps.Fix
				if fixes != nil {
					fix = fixes.Latest()
				}

				select {
				case out <- Decode(s.Time, s.Record, fix, pulsesPerRev):
				case <-time.After(time.Second):
					log.Printf("reading: converter output channel full, dropping reading")
				}
			}
		}()

		return out
	}
}

// NewAccumulator merges the samples arriving within each window into one: wheel
// deltas are summed, the rest is taken from the newest sample. This turns the
// logger's 10 Hz stream into the slower rate the recorder writes at without
// losing any pulses. RPM columns of merged records are recomputed for
// pulsesPerRev. A window of 0 passes samples through unchanged.
func NewAccumulator(window time.Duration, pulsesPerRev int, bufSize int) func(in <-chan link.Sample) <-chan link.Sample {
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan link.Sample) <-chan link.Sample {
		if window <= 0 {
			return in
		}

		out := make(chan link.Sample, bufSize)

		go func() {
			defer close(out)

			var (
				acc     link.Sample
				pending bool
			)
			ticker := time.NewTicker(window)
			defer ticker.Stop()

			flush := func() {
				if !pending {
					return
				}
				select {
				case out <- acc:
				default:
					log.Printf("reading: accumulator output channel full")
				}
				pending = false
			}

			for {
				select {
				case s, ok := <-in:
					if !ok {
						flush()
						return
					}
					if pending {
						s.Record.Front = acc.Record.Front.Add(s.Record.Front)
						s.Record.Rear = acc.Record.Rear.Add(s.Record.Rear)
						if s.Record.HasRPM {
							s.Record.FrontRPM = wheel.RevsPerMinute(s.Record.Front, pulsesPerRev)
							s.Record.RearRPM = wheel.RevsPerMinute(s.Record.Rear, pulsesPerRev)
						}
					}
					acc = s
					pending = true

				case <-ticker.C:
					flush()
				}
			}
		}()

		return out
	}
}
