package recorder

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/itohio/wheellog/pkg/gps"
	"github.com/itohio/wheellog/pkg/reading"
	"github.com/itohio/wheellog/pkg/telemetry"
)

// Error is a recorder error.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrNotRaw     = Error("file name must contain 'raw'")
	ErrFieldCount = Error("wrong number of raw fields")
)

// gpsFields is the number of trailing fix columns on a raw line.
const gpsFields = 5

// appendRaw appends a raw line: host time, the record as received and the
// GPS fix.
func appendRaw(dst []byte, rd reading.Reading) []byte {
	dst = reading.AppendTime(dst, rd.Time)
	dst = append(dst, ',')
	dst = rd.Raw.Append(dst)
	dst = dst[:len(dst)-1] // record terminator
	dst = append(dst, ',')
	return rd.GPS.AppendCSV(dst)
}

// ParseRaw parses one raw line back into its parts.
func ParseRaw(line string) (time.Time, telemetry.Record, gps.Fix, error) {
	var (
		rec telemetry.Record
		fix gps.Fix
	)

	fields := strings.Split(strings.TrimSpace(line), ",")
	n := len(fields) - 1 - gpsFields
	if n != telemetry.NumFields && n != telemetry.NumFieldsRPM {
		return time.Time{}, rec, fix, fmt.Errorf("%w: got %d", ErrFieldCount, len(fields))
	}

	at, err := reading.ParseTime(fields[0])
	if err != nil {
		return at, rec, fix, fmt.Errorf("invalid timestamp: %w", err)
	}
	if rec, err = telemetry.Parse(strings.Join(fields[1:1+n], ",")); err != nil {
		return at, rec, fix, err
	}
	if fix, err = gps.ParseCSV(fields[1+n:]); err != nil {
		return at, rec, fix, err
	}

	return at, rec, fix, nil
}

// DataPath returns the data file name for a raw file: every "raw" in the
// file name becomes "data".
func DataPath(rawPath string) (string, error) {
	dir, name := filepath.Split(rawPath)
	if !strings.Contains(name, "raw") {
		return "", fmt.Errorf("%w: %s", ErrNotRaw, rawPath)
	}
	return filepath.Join(dir, strings.ReplaceAll(name, "raw", "data")), nil
}

// DecodeFile decodes a raw file into its data file and returns the data file
// path and the number of readings written. Lines that do not parse are logged
// and skipped.
func DecodeFile(rawPath string, pulsesPerRev int) (string, int, error) {
	dataPath, err := DataPath(rawPath)
	if err != nil {
		return "", 0, err
	}

	in, err := os.Open(rawPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open raw file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dataPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create data file: %w", err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	w.WriteString(reading.DataColumns + "\n")

	var (
		count int
		buf   []byte
	)
	scanner := bufio.NewScanner(in)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := scanner.Text()
		if line == "" || line[0] < '0' || line[0] > '9' {
			continue // header
		}

		at, rec, fix, err := ParseRaw(line)
		if err != nil {
			log.Printf("recorder: %s:%d: %v", rawPath, lineNo, err)
			continue
		}

		buf = reading.Decode(at, rec, fix, pulsesPerRev).AppendData(buf[:0])
		buf = append(buf, '\n')
		w.Write(buf)
		count++
	}
	if err := scanner.Err(); err != nil {
		return dataPath, count, fmt.Errorf("failed to read raw file: %w", err)
	}

	if err := w.Flush(); err != nil {
		return dataPath, count, fmt.Errorf("failed to write data file: %w", err)
	}

	return dataPath, count, nil
}
