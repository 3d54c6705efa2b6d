package main

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/wheellog/pkg/link"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createDashTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 400))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 400))
	d.Show()
}

func saveConfig(state *appState) {
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
	}
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	ports, err := link.Ports()
	if err != nil {
		ports = nil
	}
	if current := state.cfg.Serial.Port; current != "" && !slices.Contains(ports, current) {
		ports = append(ports, current)
	}

	portSelect := widget.NewSelect(ports, nil)
	portSelect.SetSelected(state.cfg.Serial.Port)

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.BaudRate))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			changed := false
			if portSelect.Selected != "" && portSelect.Selected != state.cfg.Serial.Port {
				state.cfg.Serial.Port = portSelect.Selected
				changed = true
			}
			if baud, err := strconv.Atoi(baudEntry.Text); err == nil && baud > 0 && baud != state.cfg.Serial.BaudRate {
				state.cfg.Serial.BaudRate = baud
				changed = true
			}
			saveConfig(state)

			// Reconnect with the new port settings.
			if changed && !state.useMock && state.device != nil && state.device.IsConnected() {
				disconnect(state)
				handleConnect(state)
			}
		},
	}

	return container.NewTabItem("Serial", form)
}

// createDashTab creates the scope and wheelspin detection tab.
func createDashTab(state *appState) *container.TabItem {
	windowEntry := widget.NewEntry()
	windowEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Dash.WindowSeconds))

	slipEntry := widget.NewEntry()
	slipEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Dash.SlipThreshold))

	minSpinEntry := widget.NewEntry()
	minSpinEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Dash.MinSpin))

	minRPMEntry := widget.NewEntry()
	minRPMEntry.SetText(strconv.FormatUint(uint64(state.cfg.Dash.MinRPM), 10))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Window (seconds)", Widget: windowEntry},
			{Text: "Slip Threshold (0.1 = 10%)", Widget: slipEntry},
			{Text: "Min Spin (seconds)", Widget: minSpinEntry},
			{Text: "Min Front RPM", Widget: minRPMEntry},
		},
		OnSubmit: func() {
			if ws, err := strconv.ParseFloat(windowEntry.Text, 64); err == nil && ws > 0 {
				state.cfg.Dash.WindowSeconds = ws
			}
			if st, err := strconv.ParseFloat(slipEntry.Text, 64); err == nil {
				state.cfg.Dash.SlipThreshold = st
			}
			if ms, err := strconv.ParseFloat(minSpinEntry.Text, 64); err == nil {
				state.cfg.Dash.MinSpin = ms
			}
			if mr, err := strconv.ParseUint(minRPMEntry.Text, 10, 32); err == nil {
				state.cfg.Dash.MinRPM = uint32(mr)
			}
			saveConfig(state)

			state.spinMeter.Configure(state.cfg.Dash)
			state.scopeWidget.SetWindow(time.Duration(state.cfg.Dash.WindowSeconds * float64(time.Second)))
		},
	}

	return container.NewTabItem("Dash", form)
}

// createMockTab creates the simulated logger tab. Rates apply to a running
// simulation right away.
func createMockTab(state *appState) *container.TabItem {
	frontEntry := widget.NewEntry()
	frontEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Mock.FrontHz))

	rearEntry := widget.NewEntry()
	rearEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Mock.RearHz))

	jitterEntry := widget.NewEntry()
	jitterEntry.SetText(fmt.Sprintf("%.3f", state.cfg.Mock.Jitter))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Front Wheel (Hz)", Widget: frontEntry},
			{Text: "Rear Wheel (Hz)", Widget: rearEntry},
			{Text: "Jitter (0..1)", Widget: jitterEntry},
		},
		OnSubmit: func() {
			if f, err := strconv.ParseFloat(frontEntry.Text, 64); err == nil && f >= 0 {
				state.cfg.Mock.FrontHz = f
			}
			if r, err := strconv.ParseFloat(rearEntry.Text, 64); err == nil && r >= 0 {
				state.cfg.Mock.RearHz = r
			}
			if j, err := strconv.ParseFloat(jitterEntry.Text, 64); err == nil && j >= 0 && j < 1 {
				state.cfg.Mock.Jitter = j
			}
			saveConfig(state)

			if mock, ok := state.device.(*link.Mock); ok && mock.IsConnected() {
				state.spinning = false
				updateSpinButton(state)
				if err := mock.SetRates(state.cfg.Mock.FrontHz, state.cfg.Mock.RearHz); err != nil {
					dialog.ShowError(fmt.Errorf("failed to set wheel rates: %w", err), state.window)
				}
			}
		},
	}

	return container.NewTabItem("Mock", form)
}
