// Package telemetry defines the typed events that flow over the WebSocket
// connection between wavrecd and its clients, and over MQTT. Every event
// carries its type, a timestamp and the recording session it belongs to.
package telemetry

import (
	"time"

	"github.com/large-farva/wav-recorder/internal/stats"
)

// EventType identifies the kind of event.
type EventType string

const (
	EventHeartbeat EventType = "heartbeat"
	EventState     EventType = "state"
	EventStats     EventType = "stats"
	EventFlush     EventType = "flush"
	EventLog       EventType = "log"
)

// Event is the base envelope shared by every event type.
type Event struct {
	Type      EventType `json:"type"`
	TS        string    `json:"ts"`
	Session   string    `json:"session,omitempty"`
	Component string    `json:"component,omitempty"`
}

// NowTS returns the current UTC time as an RFC 3339 nano string, matching the
// timestamp format used across all events.
func NowTS() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func envelope(t EventType, session string) Event {
	return Event{Type: t, TS: NowTS(), Session: session, Component: "wavrecd"}
}

// Heartbeat is sent periodically so clients can detect connectivity and
// monitor daemon uptime.
type Heartbeat struct {
	Event
	State         string `json:"state"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func NewHeartbeat(session, state string, uptime time.Duration) Heartbeat {
	return Heartbeat{Event: envelope(EventHeartbeat, session), State: state, UptimeSeconds: int64(uptime.Seconds())}
}

// StateTransition is emitted whenever the recorder moves between states
// (e.g. RECORDING -> STOPPING).
type StateTransition struct {
	Event
	From string `json:"from"`
	To   string `json:"to"`
}

func NewStateTransition(session, from, to string) StateTransition {
	return StateTransition{Event: envelope(EventState, session), From: from, To: to}
}

// Stats carries the live min/max readings.
type Stats struct {
	Event
	stats.Snapshot
}

func NewStats(session string, s stats.Snapshot) Stats {
	return Stats{Event: envelope(EventStats, session), Snapshot: s}
}

// Flush reports one buffer written to the file.
type Flush struct {
	Event
	Samples         int     `json:"samples"`
	Partial         bool    `json:"partial"`
	DataSize        uint32  `json:"data_size"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func NewFlush(session string, samples int, partial bool, dataSize, sampleRate uint32) Flush {
	f := Flush{Event: envelope(EventFlush, session), Samples: samples, Partial: partial, DataSize: dataSize}
	if sampleRate > 0 {
		f.DurationSeconds = float64(dataSize/2) / float64(sampleRate)
	}
	return f
}

// LogLine carries a human-readable log message at a severity level.
type LogLine struct {
	Event
	Level   string `json:"level"`
	Message string `json:"message"`
}

func NewLog(session, level, message string) LogLine {
	return LogLine{Event: envelope(EventLog, session), Level: level, Message: message}
}
