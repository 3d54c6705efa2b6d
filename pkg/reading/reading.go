package reading

import (
	"math"
	"strconv"
	"time"

	"github.com/itohio/wheellog/pkg/analog"
	"github.com/itohio/wheellog/pkg/gps"
	"github.com/itohio/wheellog/pkg/telemetry"
	"github.com/itohio/wheellog/pkg/wheel"
)

// DataColumns is the header of a decoded data file.
const DataColumns = "time,mph,fRpm,rRpm,afr,map,fTemp,fPress,lrh,rrh,utc"

// analogFactor converts a 10-bit sample to volts (1023 = 5 V).
const analogFactor = 0.004887585

// Reading represents one telemetry record in physical units.
type Reading struct {
	Time         time.Time        `json:"time"`       // Host time the record arrived
	FrontRPM     uint32           `json:"front_rpm"`  // Front axle revolutions per minute
	RearRPM      uint32           `json:"rear_rpm"`   // Rear axle revolutions per minute
	AFR          float64          `json:"afr"`        // Air-fuel ratio
	MAP          float64          `json:"map_psi"`    // Manifold absolute pressure (psi)
	FuelTemp     int              `json:"fuel_temp"`  // 0..100
	FuelPressure int              `json:"fuel_press"` // 0..100
	LeftRide     int              `json:"lrh"`        // 0..100, 100 fully extended
	RightRide    int              `json:"rrh"`        // 0..100, 100 fully extended
	GPS          gps.Fix          `json:"gps"`
	Raw          telemetry.Record `json:"-"`
}

// Decode converts a record to physical units. fix is attached as is.
func Decode(at time.Time, rec telemetry.Record, fix gps.Fix, pulsesPerRev int) Reading {
	return Reading{
		Time:         at,
		FrontRPM:     wheel.RevsPerMinute(rec.Front, pulsesPerRev),
		RearRPM:      wheel.RevsPerMinute(rec.Rear, pulsesPerRev),
		AFR:          AFR(rec.Analog[analog.AFR]),
		MAP:          MAP(rec.Analog[analog.MAP]),
		FuelTemp:     FuelTemperature(rec.Analog[analog.FT]),
		FuelPressure: FuelPressure(rec.Analog[analog.FP]),
		LeftRide:     RideHeight(rec.Analog[analog.LRH]),
		RightRide:    RideHeight(rec.Analog[analog.RRH]),
		GPS:          fix,
		Raw:          rec,
	}
}

// AFR converts the wideband controller output: 0 V reads 9.0, 5 V reads 16.0.
func AFR(raw uint16) float64 {
	return oneDecimal(1.4*(float64(raw)*analogFactor) + 9)
}

// MAP converts a GM 3-bar sensor output to psi.
func MAP(raw uint16) float64 {
	kpa := (float64(raw)*analogFactor + 0.0179) / 0.0162
	return oneDecimal(kpa * 0.145038)
}

// FuelTemperature normalizes the temperature sender to 0..100.
func FuelTemperature(raw uint16) int {
	return int(raw) * 100 / 1023
}

// FuelPressure normalizes the pressure sender to 0..100. The sender voltage
// drops as pressure rises.
func FuelPressure(raw uint16) int {
	return inverted(raw)
}

// RideHeight normalizes a ride height potentiometer to 0..100. The reading
// rises as the unit compresses.
func RideHeight(raw uint16) int {
	return inverted(raw)
}

func inverted(raw uint16) int {
	return int(100 - float64(raw)*100/1023)
}

// oneDecimal truncates v toward zero to one decimal place.
func oneDecimal(v float64) float64 {
	return math.Trunc(v*10+math.Copysign(1e-9, v)) / 10
}

// Moving reports whether the vehicle moves: faster than minMPH by GPS or
// either axle turning faster than minRPM.
func Moving(r Reading, minMPH float64, minRPM int) bool {
	if r.GPS.Valid && r.GPS.MPH > minMPH {
		return true
	}
	return int64(r.FrontRPM) > int64(minRPM) || int64(r.RearRPM) > int64(minRPM)
}

// AppendData appends the reading as one decoded data line, without terminator.
func (r Reading) AppendData(dst []byte) []byte {
	dst = AppendTime(dst, r.Time)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(r.GPS.MPH), 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(r.FrontRPM), 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(r.RearRPM), 10)
	dst = append(dst, ',')
	dst = strconv.AppendFloat(dst, r.AFR, 'f', 1, 64)
	dst = append(dst, ',')
	dst = strconv.AppendFloat(dst, r.MAP, 'f', 1, 64)
	for _, v := range [...]int{r.FuelTemp, r.FuelPressure, r.LeftRide, r.RightRide} {
		dst = append(dst, ',')
		dst = strconv.AppendInt(dst, int64(v), 10)
	}
	dst = append(dst, ',')
	if !r.GPS.UTC.IsZero() {
		dst = r.GPS.UTC.AppendFormat(dst, time.RFC3339)
	}
	return dst
}

// AppendTime appends t as Unix seconds with millisecond precision, e.g.
// 1526430861.829.
func AppendTime(dst []byte, t time.Time) []byte {
	ms := t.UnixMilli()
	dst = strconv.AppendInt(dst, ms/1000, 10)
	dst = append(dst, '.')
	frac := ms % 1000
	if frac < 100 {
		dst = append(dst, '0')
	}
	if frac < 10 {
		dst = append(dst, '0')
	}
	return strconv.AppendInt(dst, frac, 10)
}

// ParseTime parses a time written by AppendTime.
func ParseTime(s string) (time.Time, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(int64(math.Round(v * 1000))), nil
}
