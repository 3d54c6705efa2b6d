package board

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/itohio/wheellog/pkg/analog"
	"github.com/itohio/wheellog/pkg/config"
	"github.com/itohio/wheellog/pkg/wheel"
)

// idlePoll is how often a stopped simulated wheel checks for a new rate.
const idlePoll = 50 * time.Millisecond

// Sim simulates the logger hardware for testing and development: wheels
// turning at configurable pulse rates and analog inputs holding fixed values.
type Sim struct {
	cfg config.MockConfig

	front   wheel.Channel
	rear    wheel.Channel
	clock   *wheel.MonotonicClock
	sampler *analog.Sampler

	mu      sync.RWMutex
	frontHz float64
	rearHz  float64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSim creates a simulated board and starts its wheels turning.
func NewSim(cfg *config.MockConfig, maxSample uint16) (*Sim, error) {
	if cfg == nil {
		cfg = &config.Default().Mock
	}
	if len(cfg.Analog) != analog.NumInputs {
		return nil, fmt.Errorf("expected %d simulated analog values, got %d", analog.NumInputs, len(cfg.Analog))
	}

	sources := make([]analog.Source, len(cfg.Analog))
	for i, v := range cfg.Analog {
		sources[i] = analog.Fixed(v)
	}
	sampler, err := analog.NewSampler(maxSample, sources...)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Sim{
		cfg:     *cfg,
		clock:   wheel.NewClock(),
		sampler: sampler,
		frontHz: cfg.FrontHz,
		rearHz:  cfg.RearHz,
		ctx:     ctx,
		cancel:  cancel,
	}

	s.wg.Add(2)
	go s.spin(&s.front, func() float64 { return s.rates(true) })
	go s.spin(&s.rear, func() float64 { return s.rates(false) })

	return s, nil
}

// SetRates changes the simulated pulse rates. A rate of 0 stops the wheel.
func (s *Sim) SetRates(frontHz, rearHz float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frontHz = frontHz
	s.rearHz = rearHz
}

func (s *Sim) rates(front bool) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if front {
		return s.frontHz
	}
	return s.rearHz
}

// spin delivers pulses to ch at the rate returned by hz.
func (s *Sim) spin(ch *wheel.Channel, hz func() float64) {
	defer s.wg.Done()

	timer := time.NewTimer(s.period(hz()))
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
		}

		rate := hz()
		if rate > 0 {
			ch.Pulse(s.clock.Micros())
		}
		timer.Reset(s.period(rate))
	}
}

// period returns the delay until the next pulse at hz, with jitter applied.
func (s *Sim) period(hz float64) time.Duration {
	if hz <= 0 {
		return idlePoll
	}
	p := float64(time.Second) / hz
	if s.cfg.Jitter > 0 {
		p *= 1 + s.cfg.Jitter*(2*rand.Float64()-1)
	}
	return time.Duration(p)
}

// Front implements Board.
func (s *Sim) Front() *wheel.Channel { return &s.front }

// Rear implements Board.
func (s *Sim) Rear() *wheel.Channel { return &s.rear }

// Clock implements Board.
func (s *Sim) Clock() wheel.Clock { return s.clock }

// Sampler implements Board.
func (s *Sim) Sampler() *analog.Sampler { return s.sampler }

// Close stops the simulated wheels.
func (s *Sim) Close() error {
	s.cancel()
	s.wg.Wait()
	return nil
}
