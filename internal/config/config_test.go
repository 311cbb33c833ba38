package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wavrec.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := validate(Default()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	d := Default().Recorder
	if d.SampleRate != 11025 || d.BufferSamples != 2048 || d.QueueCapacity != 32 || d.CoreClockHz != 64_000_000 {
		t.Errorf("recorder defaults = %+v", d)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeConfig(t, `
[data]
root = "/tmp/rec"

[recorder]
sample_rate = 8000

[source]
kind = "replay"
values = [0, 2048, 4095]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Data.Root != "/tmp/rec" || cfg.Recorder.SampleRate != 8000 {
		t.Errorf("overlay not applied: %+v", cfg)
	}
	if cfg.Recorder.BufferSamples != 2048 {
		t.Errorf("buffer_samples lost its default: %d", cfg.Recorder.BufferSamples)
	}
	if got := cfg.Source.ReplayValues(); len(got) != 3 || got[2] != 4095 {
		t.Errorf("replay values = %v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Recorder.SampleRate != 11025 {
		t.Errorf("sample_rate = %d", cfg.Recorder.SampleRate)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WAVREC_DATA_ROOT", "/srv/wav")
	t.Setenv("WAVREC_SAMPLE_RATE", "22050")
	t.Setenv("WAVREC_KEYBOARD", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Data.Root != "/srv/wav" || cfg.Recorder.SampleRate != 22050 || cfg.Input.Keyboard {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestEnvBadNumber(t *testing.T) {
	cfg := Default()
	err := applyEnv(&cfg, func(k string) string {
		if k == "WAVREC_SAMPLE_RATE" {
			return "fast"
		}
		return ""
	})
	if err == nil || !strings.Contains(err.Error(), "WAVREC_SAMPLE_RATE") {
		t.Errorf("err = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty root", func(c *Config) { c.Data.Root = "" }, "data.root"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"zero rate", func(c *Config) { c.Recorder.SampleRate = 0 }, "recorder.sample_rate"},
		{"rate above clock", func(c *Config) { c.Recorder.SampleRate = 100; c.Recorder.CoreClockHz = 50 }, "core_clock_hz"},
		{"empty buffer", func(c *Config) { c.Recorder.BufferSamples = 0 }, "recorder.buffer_samples"},
		{"empty queue", func(c *Config) { c.Recorder.QueueCapacity = 0 }, "recorder.queue_capacity"},
		{"tone above nyquist", func(c *Config) { c.Source.ToneHz = 6000 }, "source.tone_hz"},
		{"amplitude", func(c *Config) { c.Source.Amplitude = 1.5 }, "source.amplitude"},
		{"replay without values", func(c *Config) { c.Source.Kind = SourceReplay }, "source.values"},
		{"replay out of range", func(c *Config) { c.Source.Kind = SourceReplay; c.Source.Values = []int{5000} }, "out of range"},
		{"unknown source", func(c *Config) { c.Source.Kind = "mic" }, "source.kind"},
		{"mqtt without topic", func(c *Config) { c.MQTT.Enabled = true; c.MQTT.Topic = "" }, "mqtt.topic"},
		{"mqtt qos", func(c *Config) { c.MQTT.Enabled = true; c.MQTT.QoS = 3 }, "mqtt.qos"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := validate(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %q, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "wavrec.example.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("example config drifted from defaults:\n got %+v\nwant %+v", cfg, Default())
	}
}
