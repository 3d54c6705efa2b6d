package scope

import (
	"image/color"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"github.com/itohio/wheellog/pkg/meter"
	"github.com/itohio/wheellog/pkg/reading"
)

var (
	gridColor  = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	frontColor = color.RGBA{R: 255, G: 165, B: 0, A: 255}   // Orange
	rearColor  = color.RGBA{R: 100, G: 200, B: 255, A: 255} // Light blue
	spinColor  = color.RGBA{R: 200, G: 40, B: 40, A: 90}
	textColor  = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

// scopeRenderer renders the scope widget. Objects are rebuilt on every
// refresh.
type scopeRenderer struct {
	scope *ScopeWidget

	grid    *canvas.Rectangle
	objects []fyne.CanvasObject

	lastSize fyne.Size
}

// plot is the drawing area inside the axis margins.
type plot struct {
	x, y, w, h float32
	yMax       float64
	xMin, xMax time.Time
}

func (p plot) xFor(t time.Time) float32 {
	span := p.xMax.Sub(p.xMin).Seconds()
	if span <= 0 {
		return p.x
	}
	return p.x + float32(t.Sub(p.xMin).Seconds()/span)*p.w
}

func (p plot) yFor(rpm uint32) float32 {
	return p.y + p.h - float32(float64(rpm)/p.yMax)*p.h
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.grid.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh redraws the traces.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	readings := r.scope.display
	spins := r.scope.spins
	slip := r.scope.slip
	p := plot{yMax: r.scope.yMax, xMin: r.scope.xMin, xMax: r.scope.xMax}
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	const (
		marginLeft   = 60
		marginRight  = 20
		marginTop    = 20
		marginBottom = 40
	)
	p.x, p.y = marginLeft, marginTop
	p.w = size.Width - marginLeft - marginRight
	p.h = size.Height - marginTop - marginBottom

	r.objects = []fyne.CanvasObject{r.grid}
	r.drawSpins(p, spins)
	r.drawGrid(p)
	r.drawTrace(p, readings, frontColor, func(rd reading.Reading) uint32 { return rd.FrontRPM })
	r.drawTrace(p, readings, rearColor, func(rd reading.Reading) uint32 { return rd.RearRPM })
	if len(readings) > 0 {
		r.drawLatest(p, readings[len(readings)-1], slip)
	}
}

// drawGrid draws the oscilloscope-style grid.
func (r *scopeRenderer) drawGrid(p plot) {
	const numHLines, numVLines = 8, 10

	for i := range numHLines + 1 {
		y := p.y + float32(i)*p.h/numHLines
		r.line(p.x, y, p.x+p.w, y, gridColor, 1)

		value := p.yMax - float64(i)*p.yMax/numHLines
		text := r.text(strconv.Itoa(int(value)), labelColor, 10, fyne.TextAlignTrailing)
		text.Move(fyne.NewPos(p.x-5, y-6))
	}

	span := p.xMax.Sub(p.xMin)
	for i := range numVLines + 1 {
		x := p.x + float32(i)*p.w/numVLines
		r.line(x, p.y, x, p.y+p.h, gridColor, 1)

		// Seconds before the newest reading.
		ago := span - time.Duration(i)*span/numVLines
		text := r.text(formatAgo(ago), labelColor, 10, fyne.TextAlignCenter)
		text.Move(fyne.NewPos(x-20, p.y+p.h+5))
	}
}

// drawTrace draws one RPM trace as connected segments.
func (r *scopeRenderer) drawTrace(p plot, readings []reading.Reading, c color.Color, rpm func(reading.Reading) uint32) {
	for i := 1; i < len(readings); i++ {
		r.line(
			p.xFor(readings[i-1].Time), p.yFor(rpm(readings[i-1])),
			p.xFor(readings[i].Time), p.yFor(rpm(readings[i])),
			c, 1.5)
	}
}

// drawSpins shades each wheelspin episode and labels its peak slip.
func (r *scopeRenderer) drawSpins(p plot, spins []meter.Spin) {
	for _, s := range spins {
		x0 := max(p.xFor(s.StartTime), p.x)
		x1 := max(p.xFor(s.EndTime), x0+1)

		band := canvas.NewRectangle(spinColor)
		band.Move(fyne.NewPos(x0, p.y))
		band.Resize(fyne.NewSize(x1-x0, p.h))
		r.objects = append(r.objects, band)

		text := r.text(formatPercent(s.PeakSlip), textColor, 12, fyne.TextAlignCenter)
		text.Move(fyne.NewPos((x0+x1)/2-20, p.y+2))
	}
}

// drawLatest prints the newest values in the top left corner.
func (r *scopeRenderer) drawLatest(p plot, rd reading.Reading, slip float64) {
	line := "front " + strconv.FormatUint(uint64(rd.FrontRPM), 10) +
		"  rear " + strconv.FormatUint(uint64(rd.RearRPM), 10) +
		" rpm  slip " + formatPercent(slip)
	text := r.text(line, textColor, 11, fyne.TextAlignLeading)
	text.Move(fyne.NewPos(p.x+10, p.y+10))
}

func (r *scopeRenderer) line(x1, y1, x2, y2 float32, c color.Color, width float32) {
	l := canvas.NewLine(c)
	l.Position1 = fyne.NewPos(x1, y1)
	l.Position2 = fyne.NewPos(x2, y2)
	l.StrokeWidth = width
	r.objects = append(r.objects, l)
}

func (r *scopeRenderer) text(s string, c color.Color, size float32, align fyne.TextAlign) *canvas.Text {
	t := canvas.NewText(s, c)
	t.TextSize = size
	t.Alignment = align
	r.objects = append(r.objects, t)
	return t
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy is a no-op; Fyne owns the canvas objects.
func (r *scopeRenderer) Destroy() {}

func formatAgo(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	return "-" + strconv.FormatFloat(d.Seconds(), 'f', 1, 64) + "s"
}

func formatPercent(f float64) string {
	return strconv.FormatFloat(f*100, 'f', 0, 64) + "%"
}
