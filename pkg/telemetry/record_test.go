package telemetry

import (
	"testing"

	"github.com/itohio/wheellog/pkg/analog"
	"github.com/itohio/wheellog/pkg/wheel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Append(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{
			name: "zero record",
			rec:  Record{},
			want: "0,0,0,0,0,0,0,0,0,0,0\n",
		},
		{
			name: "field order",
			rec: Record{
				Timestamp: 123456,
				Front:     wheel.Delta{Count: 10, Time: 50000},
				Rear:      wheel.Delta{Count: 5, Time: 49000},
				Analog:    analog.Frame{100, 200, 300, 400, 500, 600},
			},
			want: "123456,10,50000,5,49000,100,200,300,400,500,600\n",
		},
		{
			name: "max values",
			rec: Record{
				Timestamp: 4294967295,
				Front:     wheel.Delta{Count: 65535, Time: 4294967295},
				Rear:      wheel.Delta{Count: 65535, Time: 4294967295},
				Analog:    analog.Frame{1023, 1023, 1023, 1023, 1023, 1023},
			},
			want: "4294967295,65535,4294967295,65535,4294967295,1023,1023,1023,1023,1023,1023\n",
		},
		{
			name: "with rpm columns",
			rec: Record{
				Timestamp: 1,
				Front:     wheel.Delta{Count: 1, Time: 1000000},
				Analog:    analog.Frame{1, 2, 3, 4, 5, 6},
				HasRPM:    true,
				FrontRPM:  60,
				RearRPM:   0,
			},
			want: "1,1,1000000,0,0,1,2,3,4,5,6,60,0\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(tt.rec.Append(nil)))
		})
	}
}

func TestRecord_AppendReusesBuffer(t *testing.T) {
	buf := make([]byte, 0, 128)
	buf = Record{Timestamp: 1}.Append(buf[:0])
	first := string(buf)
	buf = Record{Timestamp: 2}.Append(buf[:0])

	assert.Equal(t, "1,0,0,0,0,0,0,0,0,0,0\n", first)
	assert.Equal(t, "2,0,0,0,0,0,0,0,0,0,0\n", string(buf))
}

func TestRecord_String(t *testing.T) {
	r := Record{Timestamp: 7, Analog: analog.Frame{1, 2, 3, 4, 5, 6}}
	assert.Equal(t, "7,0,0,0,0,1,2,3,4,5,6", r.String())
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Record
		wantErr error
	}{
		{
			name: "valid line",
			line: "123456,10,50000,5,49000,100,200,300,400,500,600",
			want: Record{
				Timestamp: 123456,
				Front:     wheel.Delta{Count: 10, Time: 50000},
				Rear:      wheel.Delta{Count: 5, Time: 49000},
				Analog:    analog.Frame{100, 200, 300, 400, 500, 600},
			},
		},
		{
			name: "terminator and whitespace",
			line: "  1,2,3,4,5,6,7,8,9,10,11\r\n",
			want: Record{
				Timestamp: 1,
				Front:     wheel.Delta{Count: 2, Time: 3},
				Rear:      wheel.Delta{Count: 4, Time: 5},
				Analog:    analog.Frame{6, 7, 8, 9, 10, 11},
			},
		},
		{
			name: "rpm columns",
			line: "1,1,1000000,0,0,1,2,3,4,5,6,60,0",
			want: Record{
				Timestamp: 1,
				Front:     wheel.Delta{Count: 1, Time: 1000000},
				Analog:    analog.Frame{1, 2, 3, 4, 5, 6},
				HasRPM:    true,
				FrontRPM:  60,
			},
		},
		{
			name:    "too few fields",
			line:    "1,2,3,4,5,6,7,8,9,10",
			wantErr: ErrFieldCount,
		},
		{
			name:    "twelve fields",
			line:    "1,2,3,4,5,6,7,8,9,10,11,12",
			wantErr: ErrFieldCount,
		},
		{
			name:    "empty",
			line:    "",
			wantErr: ErrFieldCount,
		},
		{
			name:    "count overflows 16 bits",
			line:    "1,65536,3,4,5,6,7,8,9,10,11",
			wantErr: ErrRange,
		},
		{
			name:    "timestamp overflows 32 bits",
			line:    "4294967296,2,3,4,5,6,7,8,9,10,11",
			wantErr: ErrRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.line)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_InvalidNumbers(t *testing.T) {
	lines := []string{
		"abc,2,3,4,5,6,7,8,9,10,11",
		"1,-2,3,4,5,6,7,8,9,10,11",
		"1,2,3,4,5,6,7,8,9,10,x",
		"1,2,3,4,5,6,7,8,9,10,",
	}

	for _, line := range lines {
		_, err := Parse(line)
		assert.Error(t, err, line)
	}
}

func TestParse_RoundTripsEncoder(t *testing.T) {
	r := Record{
		Timestamp: 99,
		Front:     wheel.Delta{Count: 65535, Time: 1},
		Rear:      wheel.Delta{Count: 3, Time: 4294967295},
		Analog:    analog.Frame{0, 1, 2, 1021, 1022, 1023},
	}

	got, err := Parse(string(r.Append(nil)))
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestHeader(t *testing.T) {
	assert.Equal(t, "millis,deltaFrontCount,deltaFrontMicros,deltaRearCount,deltaRearMicros,AFR,FP,FT,MAP,LRH,RRH", Header(false))
	assert.Equal(t, Header(false)+",frontRPM,rearRPM", Header(true))
	// The shared column array is left alone.
	assert.Equal(t, "AFR", Columns[5])
}
