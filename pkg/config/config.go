package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Time bases for wheel time deltas.
const (
	// TimeBaseSample measures time between the loop's snapshot instants.
	TimeBaseSample = "sample"
	// TimeBasePulse measures time between the last pulse edges seen at each snapshot.
	TimeBasePulse = "pulse"
)

// Config represents the application configuration.
type Config struct {
	Serial   SerialConfig   `yaml:"serial"`
	Logger   LoggerConfig   `yaml:"logger"`
	Pins     PinsConfig     `yaml:"pins"`
	ADC      ADCConfig      `yaml:"adc"`
	Recorder RecorderConfig `yaml:"recorder"`
	GPS      GPSConfig      `yaml:"gps"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Live     LiveConfig     `yaml:"live"`
	Dash     DashConfig     `yaml:"dash"`
	Mock     MockConfig     `yaml:"mock"`
}

// SerialConfig contains the logger serial link configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// LoggerConfig contains the logger loop parameters.
type LoggerConfig struct {
	Period       time.Duration `yaml:"period"`         // Delay between cycles
	SkipFirst    bool          `yaml:"skip_first"`     // Suppress the first record (deltas since reset)
	WithRPM      bool          `yaml:"with_rpm"`       // Append frontRPM,rearRPM columns
	PulsesPerRev int           `yaml:"pulses_per_rev"` // Sensor pulses per wheel revolution
	MaxSample    uint16        `yaml:"max_sample"`     // Largest analog value emitted
	TimeBase     string        `yaml:"time_base"`      // "sample" or "pulse"
}

// PinsConfig names the wheel sensor GPIO pins (periph names, e.g. "GPIO17").
type PinsConfig struct {
	FrontWheel string `yaml:"front_wheel"`
	RearWheel  string `yaml:"rear_wheel"`
}

// ADCConfig describes the analog front end: ADS1115 converters on an I2C bus.
type ADCConfig struct {
	Bus        string     `yaml:"bus"`         // I2C bus name, "" for the first one
	Addresses  []uint16   `yaml:"addresses"`   // Converter addresses, index is ADCInput.Chip
	FullScale  float64    `yaml:"full_scale"`  // Converter gain range in volts
	Reference  float64    `yaml:"reference"`   // Volts reported as logger.max_sample
	Raw        bool       `yaml:"raw"`         // Log raw converter counts; raise logger.max_sample to 32767 with it
	SampleRate int        `yaml:"sample_rate"` // Conversions per second
	Inputs     []ADCInput `yaml:"inputs"`      // In record order: AFR, FP, FT, MAP, LRH, RRH
}

// ADCInput maps one analog channel to a converter input.
type ADCInput struct {
	Chip    int `yaml:"chip"`
	Channel int `yaml:"channel"` // Single-ended input 0-3
}

// RecorderConfig contains host recorder parameters.
type RecorderConfig struct {
	DataDir string        `yaml:"data_dir"`
	Sleep   time.Duration `yaml:"sleep"`   // Dashboard/recorder refresh interval
	MinMPH  float64       `yaml:"min_mph"` // Only record when moving faster than this...
	MinRPM  int           `yaml:"min_rpm"` // ...or when either wheel turns faster than this
}

// GPSConfig contains the GPS receiver configuration.
type GPSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Port     string `yaml:"port"`
	BaudRate uint   `yaml:"baud_rate"`
}

// MQTTConfig contains the MQTT publisher configuration.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

// LiveConfig contains the live websocket feed configuration.
type LiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// DashConfig contains the dashboard display configuration.
type DashConfig struct {
	WindowSeconds float64 `yaml:"window_seconds"` // Time window shown on the scope
	SlipThreshold float64 `yaml:"slip_threshold"` // Rear over front RPM ratio counted as wheelspin (0.1 = 10%)
	MinSpin       float64 `yaml:"min_spin"`       // Minimum wheelspin duration in seconds
	MinRPM        uint32  `yaml:"min_rpm"`        // Front RPM below which slip is not computed
}

// MockConfig contains simulated sensor configuration.
type MockConfig struct {
	FrontHz float64  `yaml:"front_hz"` // Front wheel pulse rate
	RearHz  float64  `yaml:"rear_hz"`  // Rear wheel pulse rate
	Jitter  float64  `yaml:"jitter"`   // Relative pulse period jitter (0..1)
	Analog  []uint16 `yaml:"analog"`   // Six analog values in record order
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyUSB0",
			BaudRate: 38400,
		},
		Logger: LoggerConfig{
			Period:       100 * time.Millisecond,
			SkipFirst:    false,
			WithRPM:      false,
			PulsesPerRev: 1,
			MaxSample:    1023,
			TimeBase:     TimeBaseSample,
		},
		Pins: PinsConfig{
			FrontWheel: "GPIO17",
			RearWheel:  "GPIO27",
		},
		ADC: ADCConfig{
			Bus:        "",
			Addresses:  []uint16{0x48, 0x49},
			FullScale:  6.144,
			Reference:  5.0,
			SampleRate: 860,
			Inputs: []ADCInput{
				{Chip: 0, Channel: 0}, // AFR
				{Chip: 0, Channel: 1}, // FP
				{Chip: 0, Channel: 2}, // FT
				{Chip: 0, Channel: 3}, // MAP
				{Chip: 1, Channel: 0}, // LRH
				{Chip: 1, Channel: 1}, // RRH
			},
		},
		Recorder: RecorderConfig{
			DataDir: "data",
			Sleep:   400 * time.Millisecond,
			MinMPH:  1,
			MinRPM:  1,
		},
		GPS: GPSConfig{
			Enabled:  false,
			Port:     "/dev/serial0",
			BaudRate: 9600,
		},
		MQTT: MQTTConfig{
			Enabled:  false,
			Broker:   "tcp://localhost:1883",
			ClientID: "wheellog-recorder",
			Topic:    "wheellog/readings",
		},
		Live: LiveConfig{
			Enabled: false,
			Listen:  ":8080",
		},
		Dash: DashConfig{
			WindowSeconds: 30,
			SlipThreshold: 0.1,
			MinSpin:       0.2,
			MinRPM:        30,
		},
		Mock: MockConfig{
			FrontHz: 12,
			RearHz:  11.5,
			Jitter:  0.02,
			Analog:  []uint16{512, 400, 300, 350, 600, 610},
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that have no sensible fallback.
func (c *Config) Validate() error {
	switch c.Logger.TimeBase {
	case TimeBaseSample, TimeBasePulse:
	default:
		return fmt.Errorf("invalid logger.time_base %q: expected %q or %q", c.Logger.TimeBase, TimeBaseSample, TimeBasePulse)
	}

	if len(c.ADC.Inputs) != 6 {
		return fmt.Errorf("adc.inputs: expected 6 entries, got %d", len(c.ADC.Inputs))
	}
	for i, in := range c.ADC.Inputs {
		if in.Chip < 0 || in.Chip >= len(c.ADC.Addresses) {
			return fmt.Errorf("adc.inputs[%d]: chip %d has no address", i, in.Chip)
		}
		if in.Channel < 0 || in.Channel > 3 {
			return fmt.Errorf("adc.inputs[%d]: channel %d out of range 0-3", i, in.Channel)
		}
	}

	if len(c.Mock.Analog) != 6 {
		return fmt.Errorf("mock.analog: expected 6 values, got %d", len(c.Mock.Analog))
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Logger.Period == 0 {
		c.Logger.Period = def.Logger.Period
	}
	if c.Logger.PulsesPerRev == 0 {
		c.Logger.PulsesPerRev = def.Logger.PulsesPerRev
	}
	if c.Logger.MaxSample == 0 {
		c.Logger.MaxSample = def.Logger.MaxSample
	}
	if c.Logger.TimeBase == "" {
		c.Logger.TimeBase = def.Logger.TimeBase
	}

	if c.Pins.FrontWheel == "" {
		c.Pins.FrontWheel = def.Pins.FrontWheel
	}
	if c.Pins.RearWheel == "" {
		c.Pins.RearWheel = def.Pins.RearWheel
	}

	if len(c.ADC.Addresses) == 0 {
		c.ADC.Addresses = def.ADC.Addresses
	}
	if c.ADC.FullScale == 0 {
		c.ADC.FullScale = def.ADC.FullScale
	}
	if c.ADC.Reference == 0 {
		c.ADC.Reference = def.ADC.Reference
	}
	if c.ADC.SampleRate == 0 {
		c.ADC.SampleRate = def.ADC.SampleRate
	}
	if len(c.ADC.Inputs) == 0 {
		c.ADC.Inputs = def.ADC.Inputs
	}

	if c.Recorder.DataDir == "" {
		c.Recorder.DataDir = def.Recorder.DataDir
	}
	if c.Recorder.Sleep == 0 {
		c.Recorder.Sleep = def.Recorder.Sleep
	}

	if c.GPS.Port == "" {
		c.GPS.Port = def.GPS.Port
	}
	if c.GPS.BaudRate == 0 {
		c.GPS.BaudRate = def.GPS.BaudRate
	}

	if c.MQTT.Broker == "" {
		c.MQTT.Broker = def.MQTT.Broker
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = def.MQTT.Topic
	}

	if c.Live.Listen == "" {
		c.Live.Listen = def.Live.Listen
	}

	if c.Dash.WindowSeconds == 0 {
		c.Dash.WindowSeconds = def.Dash.WindowSeconds
	}
	if c.Dash.SlipThreshold == 0 {
		c.Dash.SlipThreshold = def.Dash.SlipThreshold
	}

	if c.Mock.FrontHz == 0 {
		c.Mock.FrontHz = def.Mock.FrontHz
	}
	if c.Mock.RearHz == 0 {
		c.Mock.RearHz = def.Mock.RearHz
	}
	if len(c.Mock.Analog) == 0 {
		c.Mock.Analog = def.Mock.Analog
	}
}
