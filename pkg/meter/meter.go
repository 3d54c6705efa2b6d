// Package meter keeps a rolling window of readings for display, tracks rear
// wheel acceleration and detects wheelspin.
package meter

import (
	"sync"
	"time"

	"github.com/itohio/wheellog/pkg/config"
	"github.com/itohio/wheellog/pkg/reading"
)

var _ SpinMeter = (*Meter)(nil)

// Spin is a wheelspin episode: the rear wheel turning faster than the front
// by more than the slip threshold.
type Spin struct {
	StartIndex int       // First reading in the window buffer
	EndIndex   int       // Last reading in the window buffer (updated while active)
	StartTime  time.Time // Start timestamp
	EndTime    time.Time // End timestamp (updated while active)
	PeakSlip   float64   // Largest slip seen during the episode
	Active     bool      // The latest reading is still spinning
}

// Duration returns how long the episode lasted so far.
func (s Spin) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// UpdateFunc receives the window contents after every reading.
type UpdateFunc func(readings []reading.Reading, accel []float64, spins []Spin)

// SpinMeter processes readings, maintains the window and detects wheelspin.
type SpinMeter interface {
	ProcessReadings(input <-chan reading.Reading)
	Readings() []reading.Reading // Readings in the window, oldest first
	Accelerations() []float64    // Rear wheel acceleration in RPM/s, n-1 values for n readings
	Spins() []Spin               // Wheelspin episodes within the window
	OnUpdate(UpdateFunc)
}

// Meter implements SpinMeter.
//
// accel[i] is the rear RPM change from readings[i] to readings[i+1] divided by
// the time between them, so n readings always have n-1 accelerations. Spin
// indices point into readings and are shifted as old readings leave the window.
type Meter struct {
	mu       sync.RWMutex
	readings []reading.Reading
	accel    []float64
	spins    []Spin
	shutdown bool // Input closed; no more callbacks

	callbacks []UpdateFunc
	cbMu      sync.RWMutex

	window    time.Duration
	threshold float64
	minSpin   time.Duration
	minRPM    uint32
}

// New creates a meter.
func New(cfg config.DashConfig) *Meter {
	m := &Meter{}
	m.configure(cfg)
	return m
}

// Configure applies new settings. They take effect with the next reading.
func (m *Meter) Configure(cfg config.DashConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configure(cfg)
}

func (m *Meter) configure(cfg config.DashConfig) {
	m.window = time.Duration(cfg.WindowSeconds * float64(time.Second))
	m.threshold = cfg.SlipThreshold
	m.minSpin = time.Duration(cfg.MinSpin * float64(time.Second))
	m.minRPM = cfg.MinRPM
}

// Slip returns how much faster the rear wheel turns than the front, as a
// fraction of the front RPM. It is 0 while the front turns slower than minRPM.
func Slip(r reading.Reading, minRPM uint32) float64 {
	if r.FrontRPM == 0 || r.FrontRPM < minRPM {
		return 0
	}
	return (float64(r.RearRPM) - float64(r.FrontRPM)) / float64(r.FrontRPM)
}

// ProcessReadings processes readings until input is closed. After that no
// more callbacks are made.
func (m *Meter) ProcessReadings(input <-chan reading.Reading) {
	for r := range input {
		m.processReading(r)
	}
	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()
}

func (m *Meter) processReading(r reading.Reading) {
	m.mu.Lock()

	m.readings = append(m.readings, r)
	m.trim(r.Time.Add(-m.window))

	if n := len(m.readings); n >= 2 {
		prev, curr := m.readings[n-2], m.readings[n-1]
		var a float64
		if dt := curr.Time.Sub(prev.Time).Seconds(); dt > 0 {
			a = (float64(curr.RearRPM) - float64(prev.RearRPM)) / dt
		}
		m.accel = append(m.accel, a)
	}

	m.updateSpins()

	notify := !m.shutdown
	m.mu.Unlock()

	if notify {
		m.notifyCallbacks()
	}
}

// trim drops readings at or before cutoff along with their accelerations and
// spins. The newest reading is always kept.
func (m *Meter) trim(cutoff time.Time) {
	n := 0
	for n < len(m.readings)-1 && !m.readings[n].Time.After(cutoff) {
		n++
	}
	if n == 0 {
		return
	}

	m.readings = m.readings[n:]
	if n <= len(m.accel) {
		m.accel = m.accel[n:]
	} else {
		m.accel = m.accel[:0]
	}

	spins := m.spins[:0]
	for _, s := range m.spins {
		s.StartIndex -= n
		s.EndIndex -= n
		if s.EndIndex < 0 {
			continue
		}
		if s.StartIndex < 0 {
			s.StartIndex = 0
			s.StartTime = m.readings[0].Time
		}
		spins = append(spins, s)
	}
	m.spins = spins
}

// updateSpins extends, starts or ends a spin for the newest reading.
func (m *Meter) updateSpins() {
	idx := len(m.readings) - 1
	r := m.readings[idx]
	slip := Slip(r, m.minRPM)

	var active *Spin
	if n := len(m.spins); n > 0 && m.spins[n-1].Active {
		active = &m.spins[n-1]
	}

	switch {
	case slip > m.threshold && active != nil:
		active.EndIndex = idx
		active.EndTime = r.Time
		active.PeakSlip = max(active.PeakSlip, slip)

	case slip > m.threshold:
		m.spins = append(m.spins, Spin{
			StartIndex: idx,
			EndIndex:   idx,
			StartTime:  r.Time,
			EndTime:    r.Time,
			PeakSlip:   slip,
			Active:     true,
		})

	case active != nil:
		active.Active = false
		if active.Duration() < m.minSpin {
			// Too short to be anything but noise.
			m.spins = m.spins[:len(m.spins)-1]
		}
	}
}

// Readings returns a copy of the readings in the window.
func (m *Meter) Readings() []reading.Reading {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]reading.Reading(nil), m.readings...)
}

// Accelerations returns a copy of the rear wheel accelerations.
func (m *Meter) Accelerations() []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]float64(nil), m.accel...)
}

// Spins returns the spins in the window that lasted at least the minimum
// duration. An active spin is included once it is long enough.
func (m *Meter) Spins() []Spin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.spinsLocked()
}

func (m *Meter) spinsLocked() []Spin {
	result := make([]Spin, 0, len(m.spins))
	for _, s := range m.spins {
		if s.Duration() >= m.minSpin {
			result = append(result, s)
		}
	}
	return result
}

// OnUpdate registers a callback made after every reading. The callback gets
// copies and should return quickly.
func (m *Meter) OnUpdate(callback UpdateFunc) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// ResetShutdown allows callbacks again. Call it before starting a new chain.
func (m *Meter) ResetShutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = false
}

// Reset clears the window.
func (m *Meter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings = nil
	m.accel = nil
	m.spins = nil
}

func (m *Meter) notifyCallbacks() {
	m.mu.RLock()
	readings := append([]reading.Reading(nil), m.readings...)
	accel := append([]float64(nil), m.accel...)
	spins := m.spinsLocked()
	m.mu.RUnlock()

	m.cbMu.RLock()
	callbacks := append([]UpdateFunc(nil), m.callbacks...)
	m.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(readings, accel, spins)
		}
	}
}
