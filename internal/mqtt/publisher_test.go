package mqtt

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/large-farva/wav-recorder/internal/stats"
)

type sent struct {
	topic    string
	payload  map[string]any
	retained bool
}

func TestPublisherTopics(t *testing.T) {
	var out []sent
	capture := func(retained bool) PublishFunc {
		return func(topic string, payload []byte) error {
			var m map[string]any
			if err := json.Unmarshal(payload, &m); err != nil {
				return err
			}
			out = append(out, sent{topic, m, retained})
			return nil
		}
	}
	p := NewPublisher("lab/rec", "abc", capture(false), capture(true), zerolog.Nop())

	if err := p.Render(stats.Snapshot{Min: 5, Max: 9, Samples: 2}); err != nil {
		t.Fatal(err)
	}
	if err := p.State("RECORDING", "STOPPED"); err != nil {
		t.Fatal(err)
	}

	if len(out) != 2 {
		t.Fatalf("published %d messages", len(out))
	}
	if out[0].topic != "lab/rec/stats" || out[0].retained || out[0].payload["sample_max"] != 9.0 || out[0].payload["session"] != "abc" {
		t.Errorf("stats message = %+v", out[0])
	}
	if out[1].topic != "lab/rec/state" || !out[1].retained || out[1].payload["to"] != "STOPPED" {
		t.Errorf("state message = %+v", out[1])
	}
}

func TestPublisherError(t *testing.T) {
	boom := errors.New("broker gone")
	p := NewPublisher("t", "", func(string, []byte) error { return boom }, nil, zerolog.Nop())
	if err := p.Render(stats.Snapshot{}); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if err := p.State("A", "B"); !errors.Is(err, boom) {
		t.Errorf("state err = %v, want fallback to publish", err)
	}
	p.Close()
}
