package ctl

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Config fetches and displays the daemon's running configuration.
func Config(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	// Decode into a generic map to preserve all fields for both display modes.
	var raw json.RawMessage
	if err := getJSON(baseURL, "/api/config", &raw); err != nil {
		return err
	}

	if jsonOutput {
		var v any
		_ = json.Unmarshal(raw, &v)
		return printJSON(v)
	}

	var resp struct {
		Path   string `json:"path"`
		Config struct {
			Data struct {
				Root string `json:"root"`
			} `json:"data"`
			Logging struct {
				Level  string `json:"level"`
				Format string `json:"format"`
			} `json:"logging"`
			Server struct {
				Bind string `json:"bind"`
			} `json:"server"`
			Recorder struct {
				SampleRate    int `json:"sample_rate"`
				BufferSamples int `json:"buffer_samples"`
				QueueCapacity int `json:"queue_capacity"`
				CoreClockHz   int `json:"core_clock_hz"`
			} `json:"recorder"`
			Source struct {
				Kind      string  `json:"kind"`
				ToneHz    float64 `json:"tone_hz"`
				Amplitude float64 `json:"amplitude"`
				Values    []int   `json:"values"`
			} `json:"source"`
			Input struct {
				Keyboard bool `json:"keyboard"`
			} `json:"input"`
			Metrics struct {
				Enabled bool `json:"enabled"`
			} `json:"metrics"`
			MQTT struct {
				Enabled  bool   `json:"enabled"`
				Broker   string `json:"broker"`
				ClientID string `json:"client_id"`
				Topic    string `json:"topic"`
				QoS      int    `json:"qos"`
			} `json:"mqtt"`
		} `json:"config"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return err
	}
	cfg := resp.Config

	fmt.Println()
	fmt.Println(header("  DAEMON CONFIGURATION"))
	fmt.Println(rule(50))
	if resp.Path != "" {
		fmt.Printf("  %s %s\n", colorize(dim, "loaded from"), resp.Path)
	}

	section := func(name string) {
		fmt.Printf("\n  %s\n", colorize(bold, "["+name+"]"))
	}
	field := func(key string, val any) {
		fmt.Printf("    %-20s %v\n", colorize(dim, key+":"), val)
	}

	section("data")
	field("root", cfg.Data.Root)

	section("logging")
	field("level", cfg.Logging.Level)
	field("format", cfg.Logging.Format)

	section("server")
	field("bind", cfg.Server.Bind)

	section("recorder")
	field("sample_rate", cfg.Recorder.SampleRate)
	field("buffer_samples", cfg.Recorder.BufferSamples)
	field("queue_capacity", cfg.Recorder.QueueCapacity)
	field("core_clock_hz", cfg.Recorder.CoreClockHz)

	section("source")
	field("kind", cfg.Source.Kind)
	if cfg.Source.Kind == "replay" {
		field("values", len(cfg.Source.Values))
	} else {
		field("tone_hz", cfg.Source.ToneHz)
		field("amplitude", cfg.Source.Amplitude)
	}

	section("input")
	field("keyboard", cfg.Input.Keyboard)

	section("metrics")
	field("enabled", cfg.Metrics.Enabled)

	section("mqtt")
	field("enabled", cfg.MQTT.Enabled)
	if cfg.MQTT.Enabled {
		field("broker", cfg.MQTT.Broker)
		field("client_id", cfg.MQTT.ClientID)
		field("topic", cfg.MQTT.Topic)
		field("qos", cfg.MQTT.QoS)
	}

	fmt.Println()
	return nil
}
