// Package buffer holds samples between the tick handler and the WAV writer.
package buffer

import "errors"

// DefaultCapacity is the number of samples gathered before each flush.
const DefaultCapacity = 2048

// Buffer is a fixed-capacity linear buffer of PCM samples with a write
// cursor. It is not safe for concurrent use; the recorder's controller loop
// is its only owner.
type Buffer struct {
	samples []int16
	cursor  int
}

// New allocates a buffer holding capacity samples.
func New(capacity int) (*Buffer, error) {
	if capacity < 1 {
		return nil, errors.New("buffer capacity must be >= 1")
	}
	return &Buffer{samples: make([]int16, capacity)}, nil
}

// Push appends one sample and reports whether the buffer is now full. Pushing
// into a full buffer panics; callers drain on the full signal.
func (b *Buffer) Push(s int16) bool {
	if b.cursor == len(b.samples) {
		panic("buffer: push into full buffer")
	}
	b.samples[b.cursor] = s
	b.cursor++
	return b.cursor == len(b.samples)
}

// Drain returns the samples pushed since the last drain and resets the
// cursor. The slice aliases the buffer's storage and stays valid until the
// next Push.
func (b *Buffer) Drain() []int16 {
	out := b.samples[:b.cursor]
	b.cursor = 0
	return out
}

// Len returns the number of buffered samples.
func (b *Buffer) Len() int { return b.cursor }

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int { return len(b.samples) }
