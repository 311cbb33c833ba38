package telemetry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/large-farva/wav-recorder/internal/stats"
)

func TestEventsFlattenToJSON(t *testing.T) {
	tests := []struct {
		name string
		ev   any
		want map[string]any
	}{
		{
			name: "stats",
			ev:   NewStats("s1", stats.Snapshot{Min: 10, Max: 4000, Samples: 4}),
			want: map[string]any{"type": "stats", "session": "s1", "sample_min": 10.0, "sample_max": 4000.0, "samples": 4.0},
		},
		{
			name: "state",
			ev:   NewStateTransition("s1", "RECORDING", "STOPPING"),
			want: map[string]any{"type": "state", "from": "RECORDING", "to": "STOPPING"},
		},
		{
			name: "flush",
			ev:   NewFlush("s1", 2048, false, 22050, 11025),
			want: map[string]any{"type": "flush", "samples": 2048.0, "data_size": 22050.0, "duration_seconds": 1.0},
		},
		{
			name: "heartbeat",
			ev:   NewHeartbeat("s1", "RECORDING", 90*time.Second),
			want: map[string]any{"type": "heartbeat", "state": "RECORDING", "uptime_seconds": 90.0},
		},
		{
			name: "log",
			ev:   NewLog("", "warn", "queue saturated"),
			want: map[string]any{"type": "log", "level": "warn", "message": "queue saturated", "component": "wavrecd"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.ev)
			if err != nil {
				t.Fatal(err)
			}
			var got map[string]any
			if err := json.Unmarshal(b, &got); err != nil {
				t.Fatal(err)
			}
			if got["ts"] == "" || got["ts"] == nil {
				t.Error("missing ts")
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}
