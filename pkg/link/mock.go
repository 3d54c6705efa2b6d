package link

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"

	"github.com/itohio/wheellog/pkg/board"
	"github.com/itohio/wheellog/pkg/config"
	"github.com/itohio/wheellog/pkg/logger"
)

// Mock runs a logger loop over a simulated board in-process and reads its
// output back through a pipe, exactly as the serial link would.
type Mock struct {
	cfg     *config.Config
	bufSize int

	mu        sync.RWMutex
	sim       *board.Sim
	pipe      *io.PipeReader
	samples   chan Sample
	cancel    context.CancelFunc
	done      sync.WaitGroup
	connected bool
}

// NewMock creates a simulated link. A nil cfg selects the defaults.
func NewMock(cfg *config.Config, bufSize int) *Mock {
	if cfg == nil {
		cfg = config.Default()
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}
	return &Mock{cfg: cfg, bufSize: bufSize}
}

// Connect starts the simulated board and logger.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return ErrAlreadyConnected
	}

	sim, err := board.NewSim(&m.cfg.Mock, m.cfg.Logger.MaxSample)
	if err != nil {
		return err
	}

	pr, pw := io.Pipe()
	loop := logger.New(m.cfg.Logger, sim.Front(), sim.Rear(), sim.Sampler(), sim.Clock(), pw)

	ctx, cancel := context.WithCancel(context.Background())
	m.sim = sim
	m.pipe = pr
	m.cancel = cancel
	m.samples = make(chan Sample, m.bufSize)
	m.connected = true

	m.done.Add(2)
	go func() {
		defer m.done.Done()
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("link: simulated logger stopped: %v", err)
		}
		pw.Close()
	}()
	go func() {
		defer m.done.Done()
		readSamples(ctx, pr, m.samples)
	}()

	return nil
}

// Close stops the simulated logger. The samples channel is closed once the
// reader has stopped.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.cancel()
	// Unblocks a logger write that nobody reads any more.
	m.pipe.Close()
	m.done.Wait()

	err := m.sim.Close()
	m.sim = nil
	m.connected = false

	return err
}

// Samples returns the channel of received samples. It is nil before the first
// Connect.
func (m *Mock) Samples() <-chan Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.samples
}

// IsConnected returns whether the simulation is running.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// SetRates changes the simulated wheel pulse rates while connected.
func (m *Mock) SetRates(frontHz, rearHz float64) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return ErrNotConnected
	}
	m.sim.SetRates(frontHz, rearHz)
	return nil
}
