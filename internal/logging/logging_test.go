package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestJSONComponent(t *testing.T) {
	var b bytes.Buffer
	root, err := New(&b, "debug", "json")
	if err != nil {
		t.Fatal(err)
	}
	l := Component(root, "recorder")
	l.Info().Int("flushes", 3).Msg("stopped")

	var line map[string]any
	if err := json.Unmarshal(b.Bytes(), &line); err != nil {
		t.Fatalf("not json: %q", b.String())
	}
	if line["component"] != "recorder" || line["message"] != "stopped" || line["flushes"] != float64(3) {
		t.Errorf("line = %v", line)
	}
}

func TestLevelFilters(t *testing.T) {
	var b bytes.Buffer
	root, err := New(&b, "warn", "json")
	if err != nil {
		t.Fatal(err)
	}
	root.Info().Msg("hidden")
	root.Warn().Msg("shown")
	if strings.Contains(b.String(), "hidden") || !strings.Contains(b.String(), "shown") {
		t.Errorf("output = %q", b.String())
	}
}

func TestConsoleFormat(t *testing.T) {
	var b bytes.Buffer
	root, err := New(&b, "info", "console")
	if err != nil {
		t.Fatal(err)
	}
	l := Component(root, "storage")
	l.Info().Msg("ready")
	if out := b.String(); !strings.Contains(out, "storage") || !strings.Contains(out, "ready") {
		t.Errorf("console output = %q", out)
	}
}

func TestBadLevel(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "shouting", "json"); err == nil {
		t.Error("expected error")
	}
}

func TestRingKeepsNewest(t *testing.T) {
	ring := NewRing(3)
	var seen []string
	ring.Notify(func(e Entry) { seen = append(seen, e.Message) })

	root, err := New(&bytes.Buffer{}, "debug", "console", ring)
	if err != nil {
		t.Fatal(err)
	}
	log := Component(root, "recorder")
	log.Debug().Msg("one")
	log.Info().Msg("two")
	log.Warn().Msg("three")
	log.Error().Msg("four")

	if len(seen) != 4 {
		t.Errorf("notified %d times", len(seen))
	}

	tests := []struct {
		floor zerolog.Level
		limit int
		want  []string
	}{
		{zerolog.DebugLevel, 0, []string{"two", "three", "four"}},
		{zerolog.WarnLevel, 0, []string{"three", "four"}},
		{zerolog.DebugLevel, 1, []string{"four"}},
		{zerolog.FatalLevel, 0, nil},
	}
	for _, tt := range tests {
		got := ring.Entries(tt.floor, tt.limit)
		var msgs []string
		for _, e := range got {
			msgs = append(msgs, e.Message)
			if e.Component != "recorder" || e.TS == "" {
				t.Errorf("entry = %+v", e)
			}
		}
		if strings.Join(msgs, ",") != strings.Join(tt.want, ",") {
			t.Errorf("Entries(%v, %d) = %v, want %v", tt.floor, tt.limit, msgs, tt.want)
		}
	}
}

func TestRingIgnoresNonJSON(t *testing.T) {
	ring := NewRing(2)
	if n, err := ring.Write([]byte("plain text\n")); err != nil || n != 11 {
		t.Errorf("Write = %d, %v", n, err)
	}
	if got := ring.Entries(zerolog.TraceLevel, 0); len(got) != 0 {
		t.Errorf("entries = %v", got)
	}
}
