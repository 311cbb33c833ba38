// Package stats tracks the running extremes of raw ADC readings for the
// current recording. The controller writes, renderers read; both go through
// the same mutex and hold it only for the comparison or copy.
package stats

import (
	"sync"

	"github.com/large-farva/wav-recorder/internal/adc"
)

// Snapshot is a consistent copy of the statistics.
type Snapshot struct {
	Min     uint32 `json:"sample_min"`
	Max     uint32 `json:"sample_max"`
	Samples uint64 `json:"samples"`
}

// Stats holds the running min/max. Min starts one past the largest raw value
// so the first reading always tightens it.
type Stats struct {
	mu      sync.Mutex
	min     uint32
	max     uint32
	samples uint64
}

// New returns statistics for a fresh session.
func New() *Stats {
	return &Stats{min: adc.MaxRaw + 1}
}

// Observe folds raw into the running bounds and reports whether min or max
// moved.
func (s *Stats) Observe(raw uint16) bool {
	v := uint32(raw)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples++
	changed := false
	if v > s.max {
		s.max = v
		changed = true
	}
	if v < s.min {
		s.min = v
		changed = true
	}
	return changed
}

// Snapshot copies the current values.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Min: s.min, Max: s.max, Samples: s.samples}
}
