// Package recorder writes readings to disk: a raw file holding the telemetry
// exactly as received, and a data file holding the decoded values.
package recorder

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/itohio/wheellog/pkg/config"
	"github.com/itohio/wheellog/pkg/gps"
	"github.com/itohio/wheellog/pkg/reading"
	"github.com/itohio/wheellog/pkg/telemetry"
)

// CurrentLink is the name of the symlink that points at the raw file being
// written.
const CurrentLink = "current"

// stampLayout names files by the minute the recording started.
const stampLayout = "2006-01-02T1504"

// Recorder writes the readings of one session.
type Recorder struct {
	minMPH float64
	minRPM int

	raw       *os.File
	data      *os.File
	rawHeader bool
	buf       []byte

	written int
	skipped int
}

// New creates raw-<stamp>.csv and data-<stamp>.csv in cfg.DataDir and points
// the current link at the raw file.
func New(cfg config.RecorderConfig, started time.Time) (*Recorder, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	stamp := started.Format(stampLayout)
	rawPath := filepath.Join(cfg.DataDir, "raw-"+stamp+".csv")
	dataPath := filepath.Join(cfg.DataDir, "data-"+stamp+".csv")

	raw, err := os.Create(rawPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create raw file: %w", err)
	}
	data, err := os.Create(dataPath)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("failed to create data file: %w", err)
	}

	r := &Recorder{
		minMPH: cfg.MinMPH,
		minRPM: cfg.MinRPM,
		raw:    raw,
		data:   data,
		buf:    make([]byte, 0, 256),
	}

	if _, err := data.WriteString(reading.DataColumns + "\n"); err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to write data header: %w", err)
	}

	link := filepath.Join(cfg.DataDir, CurrentLink)
	os.Remove(link)
	if err := os.Symlink(filepath.Base(rawPath), link); err != nil {
		log.Printf("recorder: failed to update %s link: %v", CurrentLink, err)
	}

	log.Printf("recorder: writing raw log to %s, data to %s", rawPath, dataPath)

	return r, nil
}

// RawPath returns the raw file path.
func (r *Recorder) RawPath() string { return r.raw.Name() }

// DataPath returns the data file path.
func (r *Recorder) DataPath() string { return r.data.Name() }

// Write records rd if the vehicle is moving and reports whether it did.
func (r *Recorder) Write(rd reading.Reading) (bool, error) {
	if !reading.Moving(rd, r.minMPH, r.minRPM) {
		r.skipped++
		return false, nil
	}

	if !r.rawHeader {
		header := "timestamp," + telemetry.Header(rd.Raw.HasRPM) + "," + gps.Columns + "\n"
		if _, err := r.raw.WriteString(header); err != nil {
			return false, fmt.Errorf("failed to write raw header: %w", err)
		}
		r.rawHeader = true
	}

	r.buf = appendRaw(r.buf[:0], rd)
	r.buf = append(r.buf, '\n')
	if _, err := r.raw.Write(r.buf); err != nil {
		return false, fmt.Errorf("failed to write raw line: %w", err)
	}

	r.buf = rd.AppendData(r.buf[:0])
	r.buf = append(r.buf, '\n')
	if _, err := r.data.Write(r.buf); err != nil {
		return false, fmt.Errorf("failed to write data line: %w", err)
	}

	r.written++
	return true, nil
}

// Run records readings from in until it is closed. Write errors are logged;
// the session carries on with the next reading.
func (r *Recorder) Run(in <-chan reading.Reading) {
	for rd := range in {
		if _, err := r.Write(rd); err != nil {
			log.Printf("recorder: %v", err)
		}
	}
	log.Printf("recorder: input closed after %d readings (%d not moving)", r.written, r.skipped)
}

// Stats returns the number of written and skipped readings.
func (r *Recorder) Stats() (written, skipped int) {
	return r.written, r.skipped
}

// Close closes both files.
func (r *Recorder) Close() error {
	return errors.Join(r.raw.Close(), r.data.Close())
}
