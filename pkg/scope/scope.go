// Package scope is a Fyne widget that plots wheel RPM over a time window in
// the style of an oscilloscope.
package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/wheellog/pkg/config"
	"github.com/itohio/wheellog/pkg/meter"
	"github.com/itohio/wheellog/pkg/reading"
)

const maxDisplayPoints = 1000

// ScopeWidget displays front and rear RPM traces and marks wheelspin.
type ScopeWidget struct {
	widget.BaseWidget

	// Data (protected by mu)
	mu      sync.RWMutex
	window  time.Duration
	display []reading.Reading // Downsampled readings, reused between updates
	spins   []meter.Spin
	slip    float64 // Slip of the newest reading
	yMax    float64
	xMin    time.Time
	xMax    time.Time
}

// New creates a scope showing cfg.WindowSeconds of data.
func New(cfg config.DashConfig) *ScopeWidget {
	s := &ScopeWidget{
		window:  time.Duration(cfg.WindowSeconds * float64(time.Second)),
		display: make([]reading.Reading, 0, maxDisplayPoints),
	}
	s.updateScale()
	s.ExtendBaseWidget(s)
	s.Refresh()
	return s
}

// SetWindow changes the time window shown.
func (s *ScopeWidget) SetWindow(d time.Duration) {
	s.mu.Lock()
	s.window = d
	s.updateScale()
	s.mu.Unlock()

	s.Refresh()
}

// UpdateData replaces the plotted data. Call it on the Fyne thread, e.g. via
// fyne.Do.
func (s *ScopeWidget) UpdateData(readings []reading.Reading, spins []meter.Spin, minRPM uint32) {
	s.mu.Lock()
	s.display = Downsample(s.display, readings, maxDisplayPoints)
	s.spins = spins
	s.slip = 0
	if len(readings) > 0 {
		s.slip = meter.Slip(readings[len(readings)-1], minRPM)
	}
	s.updateScale()
	s.mu.Unlock()

	s.Refresh()
}

// updateScale computes the axis ranges for the displayed readings. RPM axes
// start at zero.
func (s *ScopeWidget) updateScale() {
	s.yMax, s.xMin, s.xMax = scale(s.display, s.window, time.Now())
}

// scale returns the RPM axis maximum and the time range for readings. Empty
// data gets a window ending at now.
func scale(readings []reading.Reading, window time.Duration, now time.Time) (yMax float64, xMin, xMax time.Time) {
	if window <= 0 {
		window = 10 * time.Second
	}
	if len(readings) == 0 {
		return 1000, now.Add(-window), now
	}

	for _, r := range readings {
		yMax = max(yMax, float64(r.FrontRPM), float64(r.RearRPM))
	}
	// 10% headroom, and never a flat axis.
	yMax = max(yMax*1.1, 100)

	xMax = readings[len(readings)-1].Time
	xMin = readings[0].Time
	if xMax.Sub(xMin) < window {
		xMin = xMax.Add(-window)
	}
	return yMax, xMin, xMax
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &scopeRenderer{
		scope:   s,
		grid:    grid,
		objects: []fyne.CanvasObject{grid},
	}
}
