// Package gps tracks the vehicle position and ground speed from an NMEA
// receiver.
package gps

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/itohio/wheellog/pkg/config"
)

const (
	knotsToMPH   = 1.150779448
	metersToFeet = 3.2808399
)

// Columns is the CSV header of a fix.
const Columns = "latitude,longitude,altitudeFt,mph,utc"

// Fix is the most recent position report.
type Fix struct {
	Lat    float64   `json:"lat"`
	Lon    float64   `json:"lon"`
	AltFt  int       `json:"alt_ft"`
	MPH    float64   `json:"mph"`
	UTC    time.Time `json:"utc"`
	Valid  bool      `json:"valid"`   // Position and speed are known
	HasAlt bool      `json:"has_alt"` // Altitude is known
}

// AppendCSV appends the fix as five CSV fields. Unknown values are left empty.
func (f Fix) AppendCSV(dst []byte) []byte {
	if f.Valid {
		dst = strconv.AppendFloat(dst, f.Lat, 'f', -1, 64)
		dst = append(dst, ',')
		dst = strconv.AppendFloat(dst, f.Lon, 'f', -1, 64)
	} else {
		dst = append(dst, ',')
	}
	dst = append(dst, ',')
	if f.HasAlt {
		dst = strconv.AppendInt(dst, int64(f.AltFt), 10)
	}
	dst = append(dst, ',')
	if f.Valid {
		dst = strconv.AppendFloat(dst, f.MPH, 'f', 1, 64)
	}
	dst = append(dst, ',')
	if !f.UTC.IsZero() {
		dst = f.UTC.AppendFormat(dst, time.RFC3339)
	}
	return dst
}

// ParseCSV parses the five fields written by AppendCSV.
func ParseCSV(fields []string) (Fix, error) {
	var (
		fix Fix
		err error
	)

	if len(fields) != 5 {
		return fix, fmt.Errorf("gps: expected 5 fields, got %d", len(fields))
	}

	if fields[0] != "" {
		if fix.Lat, err = strconv.ParseFloat(fields[0], 64); err != nil {
			return fix, fmt.Errorf("gps: invalid latitude: %w", err)
		}
		if fix.Lon, err = strconv.ParseFloat(fields[1], 64); err != nil {
			return fix, fmt.Errorf("gps: invalid longitude: %w", err)
		}
		fix.Valid = true
	}
	if fields[2] != "" {
		if fix.AltFt, err = strconv.Atoi(fields[2]); err != nil {
			return fix, fmt.Errorf("gps: invalid altitude: %w", err)
		}
		fix.HasAlt = true
	}
	if fields[3] != "" {
		if fix.MPH, err = strconv.ParseFloat(fields[3], 64); err != nil {
			return fix, fmt.Errorf("gps: invalid speed: %w", err)
		}
	}
	if fields[4] != "" {
		if fix.UTC, err = time.Parse(time.RFC3339, fields[4]); err != nil {
			return fix, fmt.Errorf("gps: invalid utc: %w", err)
		}
	}

	return fix, nil
}

// Reader keeps the latest fix assembled from RMC and GGA sentences.
type Reader struct {
	mu  sync.RWMutex
	fix Fix
}

// NewReader creates a reader with no fix.
func NewReader() *Reader {
	return &Reader{}
}

// Latest returns the newest fix.
func (r *Reader) Latest() Fix {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fix
}

// Update applies one NMEA sentence. Sentences other than RMC and GGA are
// ignored.
func (r *Reader) Update(line string) error {
	sentence, err := nmea.Parse(line)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch sentence.DataType() {
	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		if m.Validity != nmea.ValidRMC {
			r.fix.Valid = false
			return nil
		}
		r.fix.Lat = m.Latitude
		r.fix.Lon = m.Longitude
		r.fix.MPH = m.Speed * knotsToMPH
		r.fix.Valid = true
		if m.Date.Valid && m.Time.Valid {
			r.fix.UTC = time.Date(2000+m.Date.YY, time.Month(m.Date.MM), m.Date.DD,
				m.Time.Hour, m.Time.Minute, m.Time.Second, m.Time.Millisecond*int(time.Millisecond), time.UTC)
		}

	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		if m.FixQuality == nmea.Invalid {
			r.fix.HasAlt = false
			return nil
		}
		r.fix.AltFt = int(m.Altitude * metersToFeet)
		r.fix.HasAlt = true
	}

	return nil
}

// Run reads NMEA lines from src until it fails or ctx is done. Lines that do
// not parse are skipped; receivers emit partial sentences on start up.
func (r *Reader) Run(ctx context.Context, src io.Reader) error {
	reader := bufio.NewReader(src)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("gps: read failed: %w", err)
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}
		r.Update(line)
	}
}

// Open opens the receiver's serial port.
func Open(cfg config.GPSConfig) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:        cfg.Port,
		BaudRate:        cfg.BaudRate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("gps: failed to open %s: %w", cfg.Port, err)
	}
	log.Printf("gps: serial port opened on %s at %d baud", cfg.Port, cfg.BaudRate)

	return port, nil
}
