package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hashicorp/go-multierror"
)

// Largest data size whose chunk size still fits the 32-bit RIFF field.
const maxDataSize = math.MaxUint32 - riffBaseSize

var (
	// ErrFailed is returned by every call after a seek or write error.
	ErrFailed = errors.New("wav: writer failed")
	// ErrTooLarge is returned when an append would overflow the RIFF size.
	ErrTooLarge = errors.New("wav: recording exceeds 4 GiB")
)

// File is the storage a Writer streams into, typically an *os.File opened
// for writing and positioned at offset 0.
type File interface {
	io.WriteSeeker
	io.Closer
}

// Writer streams samples into a WAV file and keeps its header sizes current.
// It is not safe for concurrent use.
type Writer struct {
	f          File
	sampleRate uint32

	dataSize  uint32
	chunkSize uint32

	headerWritten bool
	closed        bool
	err           error

	scratch []byte
}

// NewWriter wraps f. Call WriteHeader before the first Append.
func NewWriter(f File, sampleRate uint32) *Writer {
	return &Writer{
		f:          f,
		sampleRate: sampleRate,
		chunkSize:  riffBaseSize,
	}
}

// WriteHeader writes the 44-byte header with an empty data chunk. It must be
// called exactly once.
func (w *Writer) WriteHeader() error {
	if w.err != nil {
		return w.err
	}
	if w.headerWritten {
		return errors.New("wav: header already written")
	}
	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return w.fail("seek header", err)
	}
	if err := writeHeader(w.f, NewHeader(w.sampleRate, 0)); err != nil {
		return w.fail("write header", err)
	}
	w.headerWritten = true
	return nil
}

// Append patches the header sizes to include samples, then appends them at
// the end of the file. An empty slice is a no-op.
//
// If the process dies between the patch and the payload write, the header
// briefly declares more data than the file holds; Repair fixes that from the
// real file length.
func (w *Writer) Append(samples []int16) error {
	if w.err != nil {
		return w.err
	}
	if !w.headerWritten || w.closed {
		return errors.New("wav: append outside an open recording")
	}
	if len(samples) == 0 {
		return nil
	}

	add := uint64(len(samples)) * blockAlign
	if uint64(w.dataSize)+add > maxDataSize {
		return ErrTooLarge
	}
	dataSize := w.dataSize + uint32(add)
	chunkSize := riffBaseSize + dataSize

	if err := patchSizes(w.f, chunkSize, dataSize); err != nil {
		return w.fail("patch header", err)
	}
	w.dataSize, w.chunkSize = dataSize, chunkSize

	if _, err := w.f.Seek(0, io.SeekEnd); err != nil {
		return w.fail("seek end", err)
	}
	if _, err := w.f.Write(w.encode(samples)); err != nil {
		return w.fail("write samples", err)
	}
	return nil
}

func (w *Writer) encode(samples []int16) []byte {
	n := len(samples) * blockAlign
	if cap(w.scratch) < n {
		w.scratch = make([]byte, n)
	}
	b := w.scratch[:n]
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	return b
}

func (w *Writer) fail(op string, err error) error {
	w.err = fmt.Errorf("%w: %s: %w", ErrFailed, op, err)
	return w.err
}

// Close closes the file. The header is already current, so nothing is
// rewritten.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.f.Close()
}

// Abort makes a best-effort attempt to leave a readable file after a failed
// append: the header sizes are recomputed from the real file length, then
// the file is closed.
func (w *Writer) Abort() error {
	if w.closed {
		return nil
	}
	var result *multierror.Error
	if _, err := Repair(w.f); err != nil {
		result = multierror.Append(result, fmt.Errorf("repair header: %w", err))
	}
	result = multierror.Append(result, w.Close())
	return result.ErrorOrNil()
}

// Err returns the error that failed the writer, if any.
func (w *Writer) Err() error { return w.err }

// SampleRate returns the rate written into the header.
func (w *Writer) SampleRate() uint32 { return w.sampleRate }

// DataSize returns the PCM byte count declared in the header.
func (w *Writer) DataSize() uint32 { return w.dataSize }

// ChunkSize returns the RIFF chunk size declared in the header.
func (w *Writer) ChunkSize() uint32 { return w.chunkSize }

// Samples returns the number of samples appended so far.
func (w *Writer) Samples() uint32 { return w.dataSize / blockAlign }
