package main

import (
	"fmt"

	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/wheellog/pkg/link"
)

// spinFactor is how much faster the rear wheel turns during simulated
// wheelspin.
const spinFactor = 1.5

// handleSpinToggle switches simulated wheelspin on the mock logger.
func handleSpinToggle(state *appState) {
	mock, ok := state.device.(*link.Mock)
	if !ok || !mock.IsConnected() {
		return
	}

	state.spinning = !state.spinning
	rearHz := state.cfg.Mock.RearHz
	if state.spinning {
		rearHz *= spinFactor
	}

	if err := mock.SetRates(state.cfg.Mock.FrontHz, rearHz); err != nil {
		state.spinning = !state.spinning
		dialog.ShowError(fmt.Errorf("failed to set wheel rates: %w", err), state.window)
		return
	}

	updateSpinButton(state)
}

// updateSpinButton highlights the toggle while wheelspin is simulated.
func updateSpinButton(state *appState) {
	if state.spinning {
		state.spinBtn.Importance = widget.HighImportance
	} else {
		state.spinBtn.Importance = widget.MediumImportance
	}
	state.spinBtn.Refresh()
}
