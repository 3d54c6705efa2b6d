package board

import (
	"errors"
	"fmt"
	"log"

	"github.com/itohio/wheellog/pkg/analog"
	"github.com/itohio/wheellog/pkg/config"
	"github.com/itohio/wheellog/pkg/wheel"
	adc "periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

// adcChannels maps a configured single-ended input number to the converter mux.
var adcChannels = [4]ads1x15.Channel{
	ads1x15.Channel0,
	ads1x15.Channel1,
	ads1x15.Channel2,
	ads1x15.Channel3,
}

// Periph is the Linux single-board-computer hardware: wheel sensors on GPIO
// pins and ADS1115 converters on an I2C bus, all driven through periph.io.
type Periph struct {
	front wheel.Channel
	rear  wheel.Channel
	clock *wheel.MonotonicClock

	watchers []*Watcher
	bus      i2c.BusCloser
	adcs     []*ads1x15.Dev
	sampler  *analog.Sampler
}

// Open initializes the periph host and opens the wheel inputs and converters
// named in cfg.
func Open(cfg *config.Config) (*Periph, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init failed: %w", err)
	}

	b := &Periph{clock: wheel.NewClock()}

	if err := b.openWheels(cfg.Pins); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openADC(cfg.ADC, cfg.Logger.MaxSample); err != nil {
		b.Close()
		return nil, err
	}

	log.Printf("board: wheels on %s/%s, %d converter(s) on i2c %q",
		cfg.Pins.FrontWheel, cfg.Pins.RearWheel, len(b.adcs), cfg.ADC.Bus)

	return b, nil
}

func (b *Periph) openWheels(cfg config.PinsConfig) error {
	for _, w := range []struct {
		name string
		ch   *wheel.Channel
	}{
		{cfg.FrontWheel, &b.front},
		{cfg.RearWheel, &b.rear},
	} {
		pin := gpioreg.ByName(w.name)
		if pin == nil {
			return fmt.Errorf("wheel pin %q not found", w.name)
		}
		watcher, err := Watch(pin, w.ch, b.clock)
		if err != nil {
			return err
		}
		b.watchers = append(b.watchers, watcher)
	}
	return nil
}

func (b *Periph) openADC(cfg config.ADCConfig, maxSample uint16) error {
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return fmt.Errorf("failed to open i2c bus %q: %w", cfg.Bus, err)
	}
	b.bus = bus

	for _, addr := range cfg.Addresses {
		dev, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: addr})
		if err != nil {
			return fmt.Errorf("failed to open ADS1115 at 0x%02X: %w", addr, err)
		}
		b.adcs = append(b.adcs, dev)
	}

	fullScale := physic.ElectricPotential(cfg.FullScale * float64(physic.Volt))
	var reference physic.ElectricPotential
	if !cfg.Raw {
		reference = physic.ElectricPotential(cfg.Reference * float64(physic.Volt))
	}
	rate := physic.Frequency(cfg.SampleRate) * physic.Hertz

	sources := make([]analog.Source, 0, len(cfg.Inputs))
	for i, in := range cfg.Inputs {
		if in.Chip < 0 || in.Chip >= len(b.adcs) || in.Channel < 0 || in.Channel >= len(adcChannels) {
			return fmt.Errorf("%s input: no converter channel %d on chip %d", analog.Input(i), in.Channel, in.Chip)
		}
		pin, err := b.adcs[in.Chip].PinForChannel(adcChannels[in.Channel], fullScale, rate, ads1x15.BestQuality)
		if err != nil {
			return fmt.Errorf("failed to open %s input (chip %d channel %d): %w", analog.Input(i), in.Chip, in.Channel, err)
		}
		sources = append(sources, adcSource(pin, reference, maxSample))
	}

	b.sampler, err = analog.NewSampler(maxSample, sources...)
	return err
}

// adcSource scales pin to the logged 0..maxSample range. Without a reference
// voltage the converter's raw counts are logged instead.
func adcSource(pin adc.PinADC, reference physic.ElectricPotential, maxSample uint16) *analog.Pin {
	if reference <= 0 {
		return analog.NewPin(pin)
	}
	return analog.NewScaledPin(pin, reference, maxSample)
}

// Front implements Board.
func (b *Periph) Front() *wheel.Channel { return &b.front }

// Rear implements Board.
func (b *Periph) Rear() *wheel.Channel { return &b.rear }

// Clock implements Board.
func (b *Periph) Clock() wheel.Clock { return b.clock }

// Sampler implements Board.
func (b *Periph) Sampler() *analog.Sampler { return b.sampler }

// Close stops the edge watchers and releases the converters and the bus.
func (b *Periph) Close() error {
	var errs []error

	for _, w := range b.watchers {
		errs = append(errs, w.Stop())
	}
	b.watchers = nil

	for _, dev := range b.adcs {
		errs = append(errs, dev.Halt())
	}
	b.adcs = nil

	if b.bus != nil {
		errs = append(errs, b.bus.Close())
		b.bus = nil
	}

	return errors.Join(errs...)
}
