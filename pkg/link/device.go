// Package link connects the host to a logger and delivers its telemetry
// records, either from a serial port or from an in-process simulated logger.
package link

import (
	"bufio"
	"context"
	"io"
	"log"
	"strings"
	"time"

	"github.com/itohio/wheellog/pkg/telemetry"
)

// DefaultBufferSize is the default size for the samples channel buffer.
const DefaultBufferSize = 100

// Error is a link state error.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrNotConnected     = Error("not connected")
	ErrAlreadyConnected = Error("already connected")
)

// Sample is one telemetry record together with the host time it arrived.
type Sample struct {
	Time   time.Time
	Record telemetry.Record
}

// Device defines the interface for loggers (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Samples() <-chan Sample
	IsConnected() bool
}

var _ Device = (*Serial)(nil)

var _ Device = (*Mock)(nil)

// readSamples scans telemetry lines from r into out until r fails or ctx is
// done, then closes out. Lines that do not parse are logged and skipped; when
// out is full the sample is dropped.
func readSamples(ctx context.Context, r io.Reader, out chan<- Sample) {
	defer close(out)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("link: panic in readSamples: %v", r)
		}
	}()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		rec, err := telemetry.Parse(line)
		if err != nil {
			log.Printf("link: failed to parse line %q: %v", line, err)
			continue
		}

		select {
		case out <- Sample{Time: time.Now(), Record: rec}:
		case <-ctx.Done():
			return
		default:
			log.Printf("link: samples channel full, dropping sample")
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		log.Printf("link: read failed: %v", err)
	}
}
