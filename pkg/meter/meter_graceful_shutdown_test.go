package meter

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/itohio/wheellog/pkg/config"
	"github.com/itohio/wheellog/pkg/reading"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMeter_GracefulShutdown_NoCallbacksAfterClose tests that the meter stops
// making callbacks after the input channel is closed.
func TestMeter_GracefulShutdown_NoCallbacksAfterClose(t *testing.T) {
	m := New(config.Default().Dash)

	var calls atomic.Int32
	m.OnUpdate(func([]reading.Reading, []float64, []Spin) {
		calls.Add(1)
	})

	input := make(chan reading.Reading, 10)
	done := make(chan struct{})
	go func() {
		m.ProcessReadings(input)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		input <- at(i*100, 600, 600)
	}
	close(input)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ProcessReadings did not return after input closed")
	}
	require.Equal(t, int32(3), calls.Load())

	// Readings arriving after shutdown still update the window but are not
	// reported.
	m.processReading(at(300, 600, 600))
	assert.Equal(t, int32(3), calls.Load())
	assert.Len(t, m.Readings(), 4)

	m.ResetShutdown()
	m.processReading(at(400, 600, 600))
	assert.Equal(t, int32(4), calls.Load())
}
