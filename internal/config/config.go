// Package config handles loading, defaulting, and validation of the recorder's
// TOML configuration file. Every section maps to a typed struct so the rest
// of the codebase gets strong typing without manual key lookups.
//
// Values are layered: Default(), then the TOML file, then WAVREC_* variables
// from the environment or a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/large-farva/wav-recorder/internal/adc"
)

// Source kinds.
const (
	SourceSynthetic = "synthetic"
	SourceReplay    = "replay"
)

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Data     DataConfig     `toml:"data"     json:"data"`
	Logging  LoggingConfig  `toml:"logging"  json:"logging"`
	Server   ServerConfig   `toml:"server"   json:"server"`
	Recorder RecorderConfig `toml:"recorder" json:"recorder"`
	Source   SourceConfig   `toml:"source"   json:"source"`
	Input    InputConfig    `toml:"input"    json:"input"`
	Metrics  MetricsConfig  `toml:"metrics"  json:"metrics"`
	MQTT     MQTTConfig     `toml:"mqtt"     json:"mqtt"`
}

type DataConfig struct {
	Root string `toml:"root" json:"root"`
}

type LoggingConfig struct {
	Level  string `toml:"level"  json:"level"`
	Format string `toml:"format" json:"format"` // "json" or "console"
}

type ServerConfig struct {
	Bind string `toml:"bind" json:"bind"`
}

type RecorderConfig struct {
	SampleRate    int `toml:"sample_rate"    json:"sample_rate"`
	BufferSamples int `toml:"buffer_samples" json:"buffer_samples"`
	QueueCapacity int `toml:"queue_capacity" json:"queue_capacity"`
	CoreClockHz   int `toml:"core_clock_hz"  json:"core_clock_hz"`
}

// SourceConfig selects what stands in for the converter on this host.
type SourceConfig struct {
	Kind      string  `toml:"kind"      json:"kind"`
	ToneHz    float64 `toml:"tone_hz"   json:"tone_hz"`
	Amplitude float64 `toml:"amplitude" json:"amplitude"`
	Values    []int   `toml:"values"    json:"values,omitempty"`
}

type InputConfig struct {
	Keyboard bool `toml:"keyboard" json:"keyboard"`
}

type MetricsConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
}

type MQTTConfig struct {
	Enabled  bool   `toml:"enabled"   json:"enabled"`
	Broker   string `toml:"broker"    json:"broker"`
	ClientID string `toml:"client_id" json:"client_id"`
	Username string `toml:"username"  json:"username"`
	Password string `toml:"password"  json:"-"`
	Topic    string `toml:"topic"     json:"topic"`
	QoS      int    `toml:"qos"       json:"qos"`
}

// Default returns a Config populated with sane defaults. Values here are
// used whenever the TOML file omits a field.
func Default() Config {
	return Config{
		Data: DataConfig{
			Root: "/var/lib/wavrec",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Bind: "0.0.0.0:8080",
		},
		Recorder: RecorderConfig{
			SampleRate:    11025,
			BufferSamples: 2048,
			QueueCapacity: 32,
			CoreClockHz:   64_000_000,
		},
		Source: SourceConfig{
			Kind:      SourceSynthetic,
			ToneHz:    440,
			Amplitude: 0.8,
		},
		Input: InputConfig{
			Keyboard: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		MQTT: MQTTConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "wavrecd",
			Topic:    "wavrec",
		},
	}
}

// Load reads the TOML file at path, layers it on top of the defaults, applies
// environment overrides, and validates the result. An empty path skips the
// file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// A missing .env is the normal case.
	_ = godotenv.Load()

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return cfg, err
	}
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides fields from WAVREC_* variables.
func applyEnv(cfg *Config, getenv func(string) string) error {
	strs := map[string]*string{
		"WAVREC_DATA_ROOT":     &cfg.Data.Root,
		"WAVREC_LOG_LEVEL":     &cfg.Logging.Level,
		"WAVREC_LOG_FORMAT":    &cfg.Logging.Format,
		"WAVREC_BIND":          &cfg.Server.Bind,
		"WAVREC_SOURCE":        &cfg.Source.Kind,
		"WAVREC_MQTT_BROKER":   &cfg.MQTT.Broker,
		"WAVREC_MQTT_USERNAME": &cfg.MQTT.Username,
		"WAVREC_MQTT_PASSWORD": &cfg.MQTT.Password,
		"WAVREC_MQTT_TOPIC":    &cfg.MQTT.Topic,
	}
	for key, dst := range strs {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"WAVREC_SAMPLE_RATE":    &cfg.Recorder.SampleRate,
		"WAVREC_BUFFER_SAMPLES": &cfg.Recorder.BufferSamples,
	}
	for key, dst := range ints {
		v := getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}

	bools := map[string]*bool{
		"WAVREC_KEYBOARD":     &cfg.Input.Keyboard,
		"WAVREC_MQTT_ENABLED": &cfg.MQTT.Enabled,
	}
	for key, dst := range bools {
		v := getenv(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
	}
	return nil
}

func validate(cfg Config) error {
	if cfg.Data.Root == "" {
		return errors.New("data.root must not be empty")
	}
	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return errors.New(`logging.format must be "json" or "console"`)
	}

	r := cfg.Recorder
	if r.CoreClockHz <= 0 {
		return errors.New("recorder.core_clock_hz must be > 0")
	}
	if r.SampleRate <= 0 {
		return errors.New("recorder.sample_rate must be > 0")
	}
	if r.SampleRate > r.CoreClockHz {
		return errors.New("recorder.sample_rate must not exceed recorder.core_clock_hz")
	}
	if r.BufferSamples < 1 {
		return errors.New("recorder.buffer_samples must be >= 1")
	}
	if r.QueueCapacity < 1 {
		return errors.New("recorder.queue_capacity must be >= 1")
	}

	switch cfg.Source.Kind {
	case SourceSynthetic:
		if cfg.Source.ToneHz <= 0 || cfg.Source.ToneHz >= float64(r.SampleRate)/2 {
			return errors.New("source.tone_hz must be between 0 and half the sample rate")
		}
		if cfg.Source.Amplitude < 0 || cfg.Source.Amplitude > 1 {
			return errors.New("source.amplitude must be between 0 and 1")
		}
	case SourceReplay:
		if len(cfg.Source.Values) == 0 {
			return errors.New("source.values must not be empty for replay")
		}
		for _, v := range cfg.Source.Values {
			if v < 0 || v > adc.MaxRaw {
				return fmt.Errorf("source.values entry %d out of range 0..%d", v, adc.MaxRaw)
			}
		}
	default:
		return fmt.Errorf("source.kind %q must be %q or %q", cfg.Source.Kind, SourceSynthetic, SourceReplay)
	}

	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" {
			return errors.New("mqtt.broker must not be empty when mqtt is enabled")
		}
		if cfg.MQTT.Topic == "" {
			return errors.New("mqtt.topic must not be empty when mqtt is enabled")
		}
		if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
			return errors.New("mqtt.qos must be 0, 1 or 2")
		}
	}
	return nil
}

// ReplayValues returns the replay source values as raw converter readings.
func (c SourceConfig) ReplayValues() []uint16 {
	out := make([]uint16, len(c.Values))
	for i, v := range c.Values {
		out[i] = uint16(v)
	}
	return out
}
