package adc

import (
	"math"
	"sync"
)

// Synthetic generates a sine tone centered on mid-scale, standing in for a
// real converter. Each Read advances one sample period, so the output is the
// tone sampled at SampleRate regardless of how fast Read is called.
type Synthetic struct {
	SampleRate int
	ToneHz     float64
	Amplitude  float64 // fraction of full scale, 0..1

	n int
}

// NewSynthetic returns a tone generator. amplitude is clamped to 0..1.
func NewSynthetic(sampleRate int, toneHz, amplitude float64) *Synthetic {
	if amplitude < 0 {
		amplitude = 0
	}
	if amplitude > 1 {
		amplitude = 1
	}
	return &Synthetic{SampleRate: sampleRate, ToneHz: toneHz, Amplitude: amplitude}
}

func (s *Synthetic) Read() uint16 {
	t := float64(s.n) / float64(s.SampleRate)
	s.n++

	mid := float64(MaxRaw) / 2
	v := mid + mid*s.Amplitude*math.Sin(2*math.Pi*s.ToneHz*t)
	if v < 0 {
		v = 0
	}
	if v > MaxRaw {
		v = MaxRaw
	}
	return uint16(math.Round(v))
}

// Sequence replays a fixed list of raw values, wrapping around at the end.
// It is safe for concurrent use so tests can inspect Reads while a recorder
// runs.
type Sequence struct {
	mu     sync.Mutex
	values []uint16
	i      int
	reads  int
}

// NewSequence returns a reader over values. An empty list reads as zero.
func NewSequence(values ...uint16) *Sequence {
	return &Sequence{values: append([]uint16(nil), values...)}
}

func (s *Sequence) Read() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reads++
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.i]
	s.i = (s.i + 1) % len(s.values)
	if v > MaxRaw {
		v = MaxRaw
	}
	return v
}

// Reads reports how many times Read has been called.
func (s *Sequence) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}
