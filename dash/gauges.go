package main

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/wheellog/pkg/reading"
)

// gauges shows the latest engine and chassis values under the scope.
type gauges struct {
	afr, mapPSI, fuelPress, fuelTemp, ride, speed *widget.Label
}

func newGauges() *gauges {
	label := func() *widget.Label {
		l := widget.NewLabel("-")
		l.TextStyle = fyne.TextStyle{Monospace: true, Bold: true}
		return l
	}
	return &gauges{
		afr:       label(),
		mapPSI:    label(),
		fuelPress: label(),
		fuelTemp:  label(),
		ride:      label(),
		speed:     label(),
	}
}

func (g *gauges) container() fyne.CanvasObject {
	return container.NewGridWithColumns(6,
		widget.NewForm(widget.NewFormItem("AFR", g.afr)),
		widget.NewForm(widget.NewFormItem("MAP", g.mapPSI)),
		widget.NewForm(widget.NewFormItem("FP", g.fuelPress)),
		widget.NewForm(widget.NewFormItem("FT", g.fuelTemp)),
		widget.NewForm(widget.NewFormItem("Ride L/R", g.ride)),
		widget.NewForm(widget.NewFormItem("MPH", g.speed)),
	)
}

// update must run on the Fyne thread.
func (g *gauges) update(r reading.Reading) {
	g.afr.SetText(fmt.Sprintf("%.1f", r.AFR))
	g.mapPSI.SetText(fmt.Sprintf("%.1f psi", r.MAP))
	g.fuelPress.SetText(fmt.Sprintf("%d%%", r.FuelPressure))
	g.fuelTemp.SetText(fmt.Sprintf("%d%%", r.FuelTemp))
	g.ride.SetText(fmt.Sprintf("%d/%d", r.LeftRide, r.RightRide))
	if r.GPS.Valid {
		g.speed.SetText(fmt.Sprintf("%.0f", r.GPS.MPH))
	} else {
		g.speed.SetText("-")
	}
}
