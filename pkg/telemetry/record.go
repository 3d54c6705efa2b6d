package telemetry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/itohio/wheellog/pkg/analog"
	"github.com/itohio/wheellog/pkg/wheel"
)

// Error is a telemetry parse error.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrFieldCount = Error("wrong number of fields")
	ErrRange      = Error("value out of range")
)

const (
	// NumFields is the number of columns in a baseline record.
	NumFields = 5 + analog.NumInputs
	// NumFieldsRPM is the number of columns when RPM columns are appended.
	NumFieldsRPM = NumFields + 2
)

// Columns names the baseline record columns in wire order. The wire format has no
// header line; this is for files and displays built from records.
var Columns = [NumFields]string{
	"millis",
	"deltaFrontCount", "deltaFrontMicros",
	"deltaRearCount", "deltaRearMicros",
	"AFR", "FP", "FT", "MAP", "LRH", "RRH",
}

// RPMColumns names the optional trailing columns.
var RPMColumns = [2]string{"frontRPM", "rearRPM"}

// Header returns the comma separated column names, with the RPM columns when
// withRPM is set.
func Header(withRPM bool) string {
	cols := Columns[:]
	if withRPM {
		cols = append(cols[:len(cols):len(cols)], RPMColumns[:]...)
	}
	return strings.Join(cols, ",")
}

// Record is one telemetry line.
type Record struct {
	Timestamp uint32 // Loop clock in milliseconds; wraps
	Front     wheel.Delta
	Rear      wheel.Delta
	Analog    analog.Frame

	// Optional computed wheel rates, emitted only when HasRPM is set.
	HasRPM   bool
	FrontRPM uint32
	RearRPM  uint32
}

// Append appends the CSV encoding of r, newline terminated, to dst.
// Format: millis,fCount,fMicros,rCount,rMicros,AFR,FP,FT,MAP,LRH,RRH[,fRPM,rRPM]
// Example: 123456,10,50000,5,50000,100,200,300,400,500,600
func (r Record) Append(dst []byte) []byte {
	dst = strconv.AppendUint(dst, uint64(r.Timestamp), 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(r.Front.Count), 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(r.Front.Time), 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(r.Rear.Count), 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(r.Rear.Time), 10)
	for _, v := range r.Analog {
		dst = append(dst, ',')
		dst = strconv.AppendUint(dst, uint64(v), 10)
	}
	if r.HasRPM {
		dst = append(dst, ',')
		dst = strconv.AppendUint(dst, uint64(r.FrontRPM), 10)
		dst = append(dst, ',')
		dst = strconv.AppendUint(dst, uint64(r.RearRPM), 10)
	}
	return append(dst, '\n')
}

// String returns the encoded line without the terminator.
func (r Record) String() string {
	b := r.Append(nil)
	return string(b[:len(b)-1])
}

// Parse decodes one record line. Surrounding whitespace and the line terminator
// are ignored. Both the baseline and the RPM-extended layouts are accepted.
func Parse(line string) (Record, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != NumFields && len(parts) != NumFieldsRPM {
		return Record{}, fmt.Errorf("%w: expected %d or %d comma-separated values, got %d",
			ErrFieldCount, NumFields, NumFieldsRPM, len(parts))
	}

	var (
		r   Record
		err error
	)
	field := func(i, bits int) uint64 {
		if err != nil {
			return 0
		}
		v, perr := strconv.ParseUint(strings.TrimSpace(parts[i]), 10, bits)
		if perr != nil {
			if errors.Is(perr, strconv.ErrRange) {
				err = fmt.Errorf("%w: %s=%q", ErrRange, columnName(i), parts[i])
			} else {
				err = fmt.Errorf("invalid %s: %w", columnName(i), perr)
			}
		}
		return v
	}

	r.Timestamp = uint32(field(0, 32))
	r.Front.Count = wheel.Count(field(1, 16))
	r.Front.Time = wheel.Micros(field(2, 32))
	r.Rear.Count = wheel.Count(field(3, 16))
	r.Rear.Time = wheel.Micros(field(4, 32))
	for i := range r.Analog {
		r.Analog[i] = uint16(field(5+i, 16))
	}
	if len(parts) == NumFieldsRPM {
		r.HasRPM = true
		r.FrontRPM = uint32(field(NumFields, 32))
		r.RearRPM = uint32(field(NumFields+1, 32))
	}
	if err != nil {
		return Record{}, err
	}

	return r, nil
}

func columnName(i int) string {
	if i < NumFields {
		return Columns[i]
	}
	return RPMColumns[i-NumFields]
}
