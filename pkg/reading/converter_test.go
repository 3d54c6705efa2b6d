package reading

import (
	"testing"
	"time"

	"github.com/itohio/wheellog/pkg/config"
	"github.com/itohio/wheellog/pkg/gps"
	"github.com/itohio/wheellog/pkg/link"
	"github.com/itohio/wheellog/pkg/telemetry"
	"github.com/itohio/wheellog/pkg/wheel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedFix gps.Fix

func (f fixedFix) Latest() gps.Fix { return gps.Fix(f) }

func sample(count wheel.Count, dt wheel.Micros) link.Sample {
	return link.Sample{
		Time: time.Now(),
		Record: telemetry.Record{
			Front: wheel.Delta{Count: count, Time: dt},
			Rear:  wheel.Delta{Count: count, Time: dt},
		},
	}
}

// TestConverter_GracefulShutdown tests that the converter closes its output
// channel when the input channel is closed.
func TestConverter_GracefulShutdown(t *testing.T) {
	fix := gps.Fix{MPH: 42, Valid: true}
	converter := NewConverter(config.Default(), fixedFix(fix), 10)

	input := make(chan link.Sample, 10)
	output := converter(input)

	for i := 0; i < 3; i++ {
		input <- sample(10, 100000)
	}
	close(input)

	var got []Reading
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range output {
			got = append(got, r)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Output channel did not close within timeout")
	}

	require.Len(t, got, 3)
	for _, r := range got {
		assert.Equal(t, uint32(6000), r.FrontRPM)
		assert.Equal(t, fix, r.GPS)
	}
}

func TestConverter_NoGPS(t *testing.T) {
	input := make(chan link.Sample, 1)
	output := NewConverter(config.Default(), nil, 0)(input)

	input <- sample(1, 1000000)
	close(input)

	r, ok := <-output
	require.True(t, ok)
	assert.Equal(t, uint32(60), r.FrontRPM)
	assert.False(t, r.GPS.Valid)

	_, ok = <-output
	assert.False(t, ok)
}

func TestAccumulator_SumsDeltas(t *testing.T) {
	input := make(chan link.Sample, 10)
	output := NewAccumulator(time.Hour, 1, 10)(input)

	first := sample(10, 100000)
	first.Record.Analog[0] = 1
	last := sample(5, 100000)
	last.Record.Analog[0] = 2
	last.Record.HasRPM = true

	input <- first
	input <- sample(3, 100000)
	input <- last
	close(input)

	got, ok := <-output
	require.True(t, ok)
	assert.Equal(t, wheel.Delta{Count: 18, Time: 300000}, got.Record.Front)
	assert.Equal(t, wheel.Delta{Count: 18, Time: 300000}, got.Record.Rear)
	assert.Equal(t, uint16(2), got.Record.Analog[0])
	assert.Equal(t, last.Time, got.Time)
	assert.Equal(t, uint32(3600), got.Record.FrontRPM)

	_, ok = <-output
	assert.False(t, ok, "Channel should be closed")
}

func TestAccumulator_Windows(t *testing.T) {
	input := make(chan link.Sample)
	output := NewAccumulator(20*time.Millisecond, 1, 10)(input)

	input <- sample(1, 100)
	time.Sleep(60 * time.Millisecond)
	input <- sample(2, 100)
	close(input)

	var got []wheel.Count
	for s := range output {
		got = append(got, s.Record.Front.Count)
	}
	assert.Equal(t, []wheel.Count{1, 2}, got)
}

func TestAccumulator_Passthrough(t *testing.T) {
	input := make(chan link.Sample)
	output := NewAccumulator(0, 1, 10)(input)

	assert.Equal(t, (<-chan link.Sample)(input), output)
}

func TestTee(t *testing.T) {
	input := make(chan Reading)
	outs := Tee(input, 2, 1)
	require.Len(t, outs, 2)

	input <- Reading{FrontRPM: 1}
	input <- Reading{FrontRPM: 2}
	// Tee receives 3 only after it has offered 2 to every output, and both
	// outputs were still holding 1 then.
	input <- Reading{FrontRPM: 3}
	close(input)

	for i, out := range outs {
		var got []uint32
		for r := range out {
			got = append(got, r.FrontRPM)
		}
		require.NotEmpty(t, got, "output %d", i)
		assert.Equal(t, uint32(1), got[0], "output %d", i)
		assert.NotContains(t, got, uint32(2), "output %d", i)
		assert.LessOrEqual(t, len(got), 2, "output %d", i)
	}
}

func TestTee_ClosesOutputs(t *testing.T) {
	input := make(chan Reading)
	outs := Tee(input, 3, 0)
	close(input)

	for _, out := range outs {
		_, ok := <-out
		assert.False(t, ok)
	}
}
