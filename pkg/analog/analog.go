package analog

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

// DefaultMaxSample is the full scale of a 10-bit converter.
const DefaultMaxSample = 1023

// Input identifies one of the six analog inputs. The order is the order of the
// telemetry record.
type Input int

const (
	AFR Input = iota // Air-fuel ratio (wideband O2 controller output)
	FP               // Fuel pressure
	FT               // Fuel temperature
	MAP              // Manifold absolute pressure
	LRH              // Left ride height
	RRH              // Right ride height

	NumInputs = 6
)

var inputNames = [NumInputs]string{"AFR", "FP", "FT", "MAP", "LRH", "RRH"}

func (i Input) String() string {
	if i < 0 || int(i) >= NumInputs {
		return fmt.Sprintf("Input(%d)", int(i))
	}
	return inputNames[i]
}

// Frame holds one raw reading per input, indexed by Input.
type Frame [NumInputs]uint16

// Source reads one raw sample from a converter input.
type Source interface {
	Read() (uint16, error)
}

// SourceFunc adapts a function to a Source.
type SourceFunc func() (uint16, error)

// Read implements Source.
func (f SourceFunc) Read() (uint16, error) {
	return f()
}

// Sampler reads all six inputs once per cycle.
type Sampler struct {
	sources   [NumInputs]Source
	maxSample uint16

	mu      sync.Mutex
	lastErr error
}

// NewSampler creates a sampler over sources given in record order
// (AFR, FP, FT, MAP, LRH, RRH). maxSample of 0 selects DefaultMaxSample.
func NewSampler(maxSample uint16, sources ...Source) (*Sampler, error) {
	if len(sources) != NumInputs {
		return nil, fmt.Errorf("expected %d analog sources, got %d", NumInputs, len(sources))
	}
	if maxSample == 0 {
		maxSample = DefaultMaxSample
	}

	s := &Sampler{maxSample: maxSample}
	for i, src := range sources {
		if src == nil {
			return nil, fmt.Errorf("analog source %s is nil", Input(i))
		}
		s.sources[i] = src
	}
	return s, nil
}

// MaxSample returns the largest value Sample can report.
func (s *Sampler) MaxSample() uint16 {
	return s.maxSample
}

// Sample reads every input in order. Values are passed through unfiltered; a
// reading above MaxSample is clamped and a failed read reports 0 for that input.
func (s *Sampler) Sample() Frame {
	var (
		frame Frame
		errs  []error
	)

	for i, src := range s.sources {
		v, err := src.Read()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", Input(i), err))
			continue
		}
		if v > s.maxSample {
			v = s.maxSample
		}
		frame[i] = v
	}

	err := errors.Join(errs...)
	if err != nil {
		log.Printf("analog: sample failed: %v", err)
	}

	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()

	return frame
}

// Err returns the error of the most recent Sample, if any.
func (s *Sampler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
