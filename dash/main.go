package main

import (
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/wheellog/pkg/config"
	"github.com/itohio/wheellog/pkg/link"
	"github.com/itohio/wheellog/pkg/meter"
	"github.com/itohio/wheellog/pkg/reading"
	"github.com/itohio/wheellog/pkg/scope"
)

// updateInterval throttles widget updates to ~60 FPS.
const updateInterval = 16 * time.Millisecond

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., /dev/ttyUSB0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use the simulated logger instead of the serial port")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	application := app.NewWithID("com.itohio.wheellog")
	window := application.NewWindow("Wheel Logger")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		spinMeter:  meter.New(cfg.Dash),
		window:     window,
		useMock:    *mockFlag,
	}
	state.scopeWidget = scope.New(cfg.Dash)
	state.gauges = newGauges()
	state.spinMeter.OnUpdate(state.onUpdate)

	window.SetContent(container.NewBorder(
		createToolbar(state),
		state.gauges.container(),
		nil,
		nil,
		state.scopeWidget,
	))
	window.SetOnClosed(func() {
		closeChain(state.chain)
	})
	window.ShowAndRun()
}

// chain tracks the components of the reading chain for graceful shutdown.
type chain struct {
	device    link.Device
	meterDone chan struct{} // Closed when the meter goroutine exits
}

// appState holds the application state.
type appState struct {
	cfg         *config.Config
	configPath  string
	device      link.Device
	spinMeter   *meter.Meter
	scopeWidget *scope.ScopeWidget
	gauges      *gauges
	window      fyne.Window
	connectBtn  *widget.Button
	spinBtn     *widget.Button
	useMock     bool
	spinning    bool   // Simulated wheelspin is on
	chain       *chain // Current chain (nil if not connected)

	lastUpdateTime time.Time
	updateMu       sync.Mutex
}

// createToolbar creates the toolbar with Connect, Settings and the simulated
// wheelspin toggle.
func createToolbar(state *appState) fyne.CanvasObject {
	state.connectBtn = widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	state.spinBtn = widget.NewButtonWithIcon("Spin", theme.MediaFastForwardIcon(), func() {
		handleSpinToggle(state)
	})
	state.spinBtn.Disable()

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(state.connectBtn, settingsBtn),
		container.NewHBox(state.spinBtn),
		nil,
	)
}

// closeChain closes the device and waits for the meter to drain.
func closeChain(c *chain) {
	if c == nil {
		return
	}
	if c.device != nil {
		c.device.Close()
	}
	if c.meterDone != nil {
		<-c.meterDone
	}
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.device != nil && state.device.IsConnected() {
		disconnect(state)
		return
	}

	var device link.Device
	if state.useMock {
		device = link.NewMock(state.cfg, link.DefaultBufferSize)
	} else {
		device = link.New(state.cfg.Serial.Port, state.cfg.Serial.BaudRate, link.DefaultBufferSize)
	}

	if err := device.Connect(); err != nil {
		dialog.ShowError(fmt.Errorf("failed to connect: %w", err), state.window)
		return
	}
	state.device = device
	if state.useMock {
		log.Println("dash: connected to simulated logger")
		state.spinBtn.Enable()
	} else {
		log.Printf("dash: connected to serial port %s", state.cfg.Serial.Port)
	}

	state.spinMeter.Reset()
	state.spinMeter.ResetShutdown()

	readings := reading.NewConverter(state.cfg, nil, 500)(device.Samples())

	meterDone := make(chan struct{})
	go func() {
		defer close(meterDone)
		state.spinMeter.ProcessReadings(readings)
	}()

	state.chain = &chain{device: device, meterDone: meterDone}
}

func disconnect(state *appState) {
	closeChain(state.chain)
	state.chain = nil
	state.device = nil
	state.spinning = false
	updateSpinButton(state)
	state.spinBtn.Disable()
	log.Println("dash: disconnected")
}

// onUpdate pushes meter updates to the widgets, at most once per
// updateInterval.
func (state *appState) onUpdate(readings []reading.Reading, _ []float64, spins []meter.Spin) {
	state.updateMu.Lock()
	now := time.Now()
	if now.Sub(state.lastUpdateTime) < updateInterval {
		state.updateMu.Unlock()
		return
	}
	state.lastUpdateTime = now
	state.updateMu.Unlock()

	minRPM := state.cfg.Dash.MinRPM
	fyne.Do(func() {
		state.scopeWidget.UpdateData(readings, spins, minRPM)
		if len(readings) > 0 {
			state.gauges.update(readings[len(readings)-1])
		}
	})
}
