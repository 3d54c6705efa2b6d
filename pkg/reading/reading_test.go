package reading

import (
	"testing"
	"time"

	"github.com/itohio/wheellog/pkg/analog"
	"github.com/itohio/wheellog/pkg/gps"
	"github.com/itohio/wheellog/pkg/telemetry"
	"github.com/itohio/wheellog/pkg/wheel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAFR(t *testing.T) {
	tests := []struct {
		raw  uint16
		want float64
	}{
		{raw: 0, want: 9.0},
		{raw: 512, want: 12.5},
		{raw: 731, want: 14.0},
		// 1023 reads 4.9999995 V, which truncates below 16.0.
		{raw: 1023, want: 15.9},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, AFR(tt.raw), "raw %d", tt.raw)
	}
}

func TestMAP(t *testing.T) {
	tests := []struct {
		raw  uint16
		want float64
	}{
		{raw: 0, want: 0.1},
		{raw: 512, want: 22.5},
		{raw: 1023, want: 44.9},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MAP(tt.raw), "raw %d", tt.raw)
	}
}

func TestNormalizedSenders(t *testing.T) {
	tests := []struct {
		raw                  uint16
		temp, pressure, ride int
	}{
		{raw: 0, temp: 0, pressure: 100, ride: 100},
		{raw: 1, temp: 0, pressure: 99, ride: 99},
		{raw: 512, temp: 50, pressure: 49, ride: 49},
		{raw: 1023, temp: 100, pressure: 0, ride: 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.temp, FuelTemperature(tt.raw), "raw %d", tt.raw)
		assert.Equal(t, tt.pressure, FuelPressure(tt.raw), "raw %d", tt.raw)
		assert.Equal(t, tt.ride, RideHeight(tt.raw), "raw %d", tt.raw)
	}
}

func TestDecode(t *testing.T) {
	at := time.UnixMilli(1526430861829)
	rec := telemetry.Record{
		Timestamp: 5000,
		Front:     wheel.Delta{Count: 10, Time: 500000},
		Rear:      wheel.Delta{Count: 0, Time: 500000},
		Analog:    analog.Frame{512, 0, 1023, 512, 0, 1023},
	}
	fix := gps.Fix{MPH: 30.7, Valid: true}

	r := Decode(at, rec, fix, 1)

	assert.Equal(t, at, r.Time)
	assert.Equal(t, uint32(1200), r.FrontRPM)
	assert.Equal(t, uint32(0), r.RearRPM)
	assert.Equal(t, 12.5, r.AFR)
	assert.Equal(t, 100, r.FuelPressure)
	assert.Equal(t, 100, r.FuelTemp)
	assert.Equal(t, 22.5, r.MAP)
	assert.Equal(t, 100, r.LeftRide)
	assert.Equal(t, 0, r.RightRide)
	assert.Equal(t, fix, r.GPS)
	assert.Equal(t, rec, r.Raw)

	assert.Equal(t, uint32(300), Decode(at, rec, fix, 4).FrontRPM)
}

func TestMoving(t *testing.T) {
	tests := []struct {
		name string
		r    Reading
		want bool
	}{
		{name: "parked", r: Reading{}, want: false},
		{name: "gps speed", r: Reading{GPS: gps.Fix{MPH: 2, Valid: true}}, want: true},
		{name: "gps speed without fix", r: Reading{GPS: gps.Fix{MPH: 2}}, want: false},
		{name: "creeping", r: Reading{GPS: gps.Fix{MPH: 1, Valid: true}, FrontRPM: 1}, want: false},
		{name: "front wheel", r: Reading{FrontRPM: 2}, want: true},
		{name: "rear wheel", r: Reading{RearRPM: 60}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Moving(tt.r, 1, 1))
		})
	}
}

func TestAppendData(t *testing.T) {
	r := Reading{
		Time:         time.UnixMilli(1526430861029),
		FrontRPM:     1200,
		RearRPM:      1190,
		AFR:          12.5,
		MAP:          22.5,
		FuelTemp:     50,
		FuelPressure: 49,
		LeftRide:     100,
		RightRide:    0,
		GPS: gps.Fix{
			MPH:   30.7,
			UTC:   time.Date(2018, time.May, 16, 0, 34, 21, 0, time.UTC),
			Valid: true,
		},
	}

	assert.Equal(t, "1526430861.029,30,1200,1190,12.5,22.5,50,49,100,0,2018-05-16T00:34:21Z", string(r.AppendData(nil)))

	r.GPS = gps.Fix{}
	r.AFR = 9
	assert.Equal(t, "1526430861.029,0,1200,1190,9.0,22.5,50,49,100,0,", string(r.AppendData(nil)))
}

func TestTime(t *testing.T) {
	for _, ms := range []int64{1526430861829, 1526430861000, 1526430861009, 1526430861099} {
		at := time.UnixMilli(ms)
		s := string(AppendTime(nil, at))

		got, err := ParseTime(s)
		require.NoError(t, err, s)
		assert.True(t, at.Equal(got), s)
	}

	assert.Equal(t, "1526430861.009", string(AppendTime(nil, time.UnixMilli(1526430861009))))

	_, err := ParseTime("soon")
	assert.Error(t, err)
}
