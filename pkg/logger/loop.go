package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/itohio/wheellog/pkg/analog"
	"github.com/itohio/wheellog/pkg/config"
	"github.com/itohio/wheellog/pkg/telemetry"
	"github.com/itohio/wheellog/pkg/wheel"
)

// DefaultPeriod is the delay between cycles when none is configured.
const DefaultPeriod = 100 * time.Millisecond

// Sampler reads one frame of analog inputs.
type Sampler interface {
	Sample() analog.Frame
}

// Loop is the logger main loop. It owns the delta history of both wheels and
// is not safe for concurrent use: exactly one goroutine calls Cycle or Run.
type Loop struct {
	cfg     config.LoggerConfig
	front   *wheel.Channel
	rear    *wheel.Channel
	sampler Sampler
	clock   wheel.Clock
	sink    io.Writer

	frontHist wheel.Tracker
	rearHist  wheel.Tracker
	buf       []byte
	last      telemetry.Record

	cycles      atomic.Uint64
	records     atomic.Uint64
	writeErrors atomic.Uint64
}

// New creates a loop that reads the two wheel channels and the sampler and
// writes one line per cycle to sink.
func New(cfg config.LoggerConfig, front, rear *wheel.Channel, sampler Sampler, clock wheel.Clock, sink io.Writer) *Loop {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.PulsesPerRev < 1 {
		cfg.PulsesPerRev = 1
	}
	if cfg.TimeBase == "" {
		cfg.TimeBase = config.TimeBaseSample
	}

	return &Loop{
		cfg:     cfg,
		front:   front,
		rear:    rear,
		sampler: sampler,
		clock:   clock,
		sink:    sink,
		buf:     make([]byte, 0, 96),
	}
}

// Cycle runs one iteration: snapshot both wheels, update their deltas, sample
// the analog inputs, then encode and write the record. The record is returned
// even when it was not written. A write error is logged, counted and returned;
// the next cycle proceeds regardless.
func (l *Loop) Cycle() (telemetry.Record, error) {
	front := l.front.Snapshot()
	rear := l.rear.Snapshot()

	if l.cfg.TimeBase == config.TimeBaseSample {
		now := l.clock.Micros()
		front.Timestamp = now
		rear.Timestamp = now
	}

	rec := telemetry.Record{
		Front: l.frontHist.Update(front),
		Rear:  l.rearHist.Update(rear),
	}
	rec.Analog = l.sampler.Sample()
	rec.Timestamp = l.clock.Millis()

	if l.cfg.WithRPM {
		rec.HasRPM = true
		rec.FrontRPM = wheel.RevsPerMinute(rec.Front, l.cfg.PulsesPerRev)
		rec.RearRPM = wheel.RevsPerMinute(rec.Rear, l.cfg.PulsesPerRev)
	}

	l.last = rec
	n := l.cycles.Add(1)
	if n == 1 && l.cfg.SkipFirst {
		return rec, nil
	}

	l.buf = rec.Append(l.buf[:0])
	if _, err := l.sink.Write(l.buf); err != nil {
		l.writeErrors.Add(1)
		log.Printf("logger: write failed: %v", err)
		return rec, fmt.Errorf("write record: %w", err)
	}
	l.records.Add(1)

	return rec, nil
}

// Run cycles until ctx is done, waiting Period between cycles.
func (l *Loop) Run(ctx context.Context) error {
	log.Printf("logger: started, period %v, time base %s", l.cfg.Period, l.cfg.TimeBase)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("logger: stopped after %d cycles (%d write errors)", l.Cycles(), l.WriteErrors())
			return ctx.Err()
		case <-timer.C:
		}

		// Write errors are logged and counted by Cycle; the loop keeps going.
		_, _ = l.Cycle()
		timer.Reset(l.cfg.Period)
	}
}

// Last returns the record of the most recent cycle, written or not. Like
// Cycle it belongs to the loop goroutine; read it after Run returns.
func (l *Loop) Last() telemetry.Record {
	return l.last
}

// Cycles returns the number of completed cycles.
func (l *Loop) Cycles() uint64 {
	return l.cycles.Load()
}

// Records returns the number of records written to the sink.
func (l *Loop) Records() uint64 {
	return l.records.Load()
}

// WriteErrors returns the number of records the sink rejected.
func (l *Loop) WriteErrors() uint64 {
	return l.writeErrors.Load()
}
