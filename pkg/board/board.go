// Package board provides the sensor hardware the logger loop reads: two wheel
// pulse channels, six analog inputs and the clock both are timed with.
package board

import (
	"github.com/itohio/wheellog/pkg/analog"
	"github.com/itohio/wheellog/pkg/wheel"
)

// Board defines the interface for logger hardware (real or simulated).
type Board interface {
	Front() *wheel.Channel
	Rear() *wheel.Channel
	Clock() wheel.Clock
	Sampler() *analog.Sampler
	Close() error
}

var _ Board = (*Periph)(nil)

var _ Board = (*Sim)(nil)
