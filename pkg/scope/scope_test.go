package scope

import (
	"testing"
	"time"

	"github.com/itohio/wheellog/pkg/reading"
	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2020, time.July, 29, 14, 5, 0, 0, time.UTC)

func TestScale_Empty(t *testing.T) {
	yMax, xMin, xMax := scale(nil, 30*time.Second, t0)

	assert.Equal(t, 1000.0, yMax)
	assert.Equal(t, t0.Add(-30*time.Second), xMin)
	assert.Equal(t, t0, xMax)
}

func TestScale(t *testing.T) {
	readings := []reading.Reading{
		{Time: t0, FrontRPM: 500, RearRPM: 400},
		{Time: t0.Add(time.Second), FrontRPM: 900, RearRPM: 1000},
	}

	yMax, xMin, xMax := scale(readings, 30*time.Second, time.Now())
	assert.InDelta(t, 1100.0, yMax, 1e-9)
	assert.Equal(t, t0.Add(time.Second), xMax)
	assert.Equal(t, xMax.Add(-30*time.Second), xMin, "short data still shows the whole window")

	_, xMin, _ = scale(readings, 500*time.Millisecond, time.Now())
	assert.Equal(t, t0, xMin, "data longer than the window is shown whole")

	readings = []reading.Reading{{Time: t0}}
	yMax, _, _ = scale(readings, time.Second, time.Now())
	assert.Equal(t, 100.0, yMax, "parked wheels still get an axis")
}

func TestPlot(t *testing.T) {
	p := plot{x: 10, y: 20, w: 100, h: 50, yMax: 1000, xMin: t0, xMax: t0.Add(10 * time.Second)}

	assert.Equal(t, float32(10), p.xFor(t0))
	assert.Equal(t, float32(60), p.xFor(t0.Add(5*time.Second)))
	assert.Equal(t, float32(110), p.xFor(t0.Add(10*time.Second)))

	assert.Equal(t, float32(70), p.yFor(0))
	assert.Equal(t, float32(20), p.yFor(1000))
	assert.Equal(t, float32(45), p.yFor(500))

	p.xMax = p.xMin
	assert.Equal(t, float32(10), p.xFor(t0.Add(time.Second)))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "0s", formatAgo(0))
	assert.Equal(t, "-2.5s", formatAgo(2500*time.Millisecond))
	assert.Equal(t, "50%", formatPercent(0.5))
	assert.Equal(t, "-100%", formatPercent(-1))
}
