package analog

import (
	"fmt"
	"math"

	adc "periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"
)

// Pin reads conversions from a periph ADC pin.
type Pin struct {
	pin       adc.PinADC
	reference physic.ElectricPotential
	maxSample uint16
}

// NewPin wraps a periph ADC pin as a Source that reports raw conversion
// results.
func NewPin(p adc.PinADC) *Pin {
	return &Pin{pin: p}
}

// NewScaledPin wraps a periph ADC pin as a Source that reports the measured
// voltage on a 0..maxSample scale, where reference reads as maxSample. This
// lets a 16-bit converter stand in for a 10-bit one without changing the
// meaning of the logged values.
func NewScaledPin(p adc.PinADC, reference physic.ElectricPotential, maxSample uint16) *Pin {
	if maxSample == 0 {
		maxSample = DefaultMaxSample
	}
	return &Pin{pin: p, reference: reference, maxSample: maxSample}
}

// Read implements Source. Negative results of a differential input read as 0.
func (p *Pin) Read() (uint16, error) {
	s, err := p.pin.Read()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", p.pin.Name(), err)
	}

	if p.reference <= 0 {
		return clamp(int64(s.Raw), math.MaxUint16), nil
	}

	// nV * 65535 stays far below the int64 range for any sane voltage.
	return clamp(int64(s.V)*int64(p.maxSample)/int64(p.reference), int64(p.maxSample)), nil
}

func clamp(v, hi int64) uint16 {
	switch {
	case v < 0:
		return 0
	case v > hi:
		return uint16(hi)
	}
	return uint16(v)
}

// Fixed is a Source that always returns the same value.
type Fixed uint16

// Read implements Source.
func (f Fixed) Read() (uint16, error) {
	return uint16(f), nil
}
