package ctl

import (
	"fmt"
	"strings"
	"time"
)

// StatusResponse mirrors the JSON returned by GET /api/status.
type StatusResponse struct {
	Name            string  `json:"name"`
	Session         string  `json:"session"`
	State           string  `json:"state"`
	UptimeSeconds   int64   `json:"uptime_seconds"`
	File            string  `json:"file"`
	RecordingsDir   string  `json:"recordings_dir"`
	SampleRate      uint32  `json:"sample_rate"`
	DataSize        uint32  `json:"data_size"`
	Samples         uint32  `json:"samples"`
	DurationSeconds float64 `json:"duration_seconds"`
	Ticks           uint64  `json:"ticks"`
	Flushes         uint64  `json:"flushes"`
	QueueDropped    uint64  `json:"queue_dropped"`
	WSClients       int     `json:"ws_clients"`
	MQTT            bool    `json:"mqtt"`
	Disk            *struct {
		AvailableBytes   int64   `json:"available_bytes"`
		RemainingSeconds float64 `json:"remaining_seconds"`
	} `json:"disk"`
}

// Status fetches the daemon status and prints a formatted summary.
func Status(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var s StatusResponse
	if err := getJSON(baseURL, "/api/status", &s); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(s)
	}

	uptime := formatDuration(time.Duration(s.UptimeSeconds) * time.Second)
	field := func(key, val string) {
		fmt.Printf("  %-12s %s\n", colorize(dim, key+":"), val)
	}

	fmt.Println()
	fmt.Println(header("  WAV RECORDER STATUS"))
	fmt.Println(rule(38))
	field("State", colorize(stateColor(s.State), s.State))
	field("Session", s.Session)
	field("Uptime", uptime)
	field("File", s.File)
	field("Folder", s.RecordingsDir)
	field("Rate", fmt.Sprintf("%d Hz", s.SampleRate))
	field("Recorded", fmt.Sprintf("%s  (%d samples, %s)", formatSeconds(s.DurationSeconds), s.Samples, formatBytes(int64(s.DataSize))))
	field("Flushes", fmt.Sprintf("%d", s.Flushes))

	dropped := fmt.Sprintf("%d", s.QueueDropped)
	if s.QueueDropped > 0 {
		dropped = colorize(yellow, dropped)
	}
	field("Dropped", dropped+" ticks")
	if s.Disk != nil {
		field("Disk", fmt.Sprintf("%s free, ~%s of audio", formatBytes(s.Disk.AvailableBytes), formatSeconds(s.Disk.RemainingSeconds)))
	}
	field("Clients", fmt.Sprintf("%d websocket", s.WSClients))
	if s.MQTT {
		field("MQTT", colorize(green, "connected"))
	}
	field("Host", baseURL)
	fmt.Println()

	return nil
}
