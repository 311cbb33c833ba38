// Package wav writes mono 16-bit PCM WAV files incrementally. The header's
// size fields are rewritten on every append so a file cut short at any point
// still describes the samples that made it to disk.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Canonical 44-byte header layout for signed 16-bit little-endian mono PCM.
const (
	HeaderSize = 44

	riffSizeOffset = 4
	dataSizeOffset = 40
	riffBaseSize   = HeaderSize - 8 // chunk_size of a file with no data

	fmtChunkSize  = 16
	formatPCM     = 1
	numChannels   = 1
	bitsPerSample = 16
	blockAlign    = numChannels * bitsPerSample / 8
)

var (
	ErrNotWAV      = errors.New("wav: not a RIFF/WAVE file")
	ErrUnsupported = errors.New("wav: unsupported format")
)

// Header mirrors the on-disk RIFF/WAVE/fmt/data header.
type Header struct {
	RiffID        [4]byte
	ChunkSize     uint32
	WaveID        [4]byte
	FmtID         [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataID        [4]byte
	DataSize      uint32
}

// NewHeader returns the header for a mono 16-bit recording at sampleRate
// holding dataSize bytes of PCM.
func NewHeader(sampleRate, dataSize uint32) Header {
	return Header{
		RiffID:        [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     riffBaseSize + dataSize,
		WaveID:        [4]byte{'W', 'A', 'V', 'E'},
		FmtID:         [4]byte{'f', 'm', 't', ' '},
		FmtSize:       fmtChunkSize,
		AudioFormat:   formatPCM,
		NumChannels:   numChannels,
		SampleRate:    sampleRate,
		ByteRate:      sampleRate * blockAlign,
		BlockAlign:    blockAlign,
		BitsPerSample: bitsPerSample,
		DataID:        [4]byte{'d', 'a', 't', 'a'},
		DataSize:      dataSize,
	}
}

// Samples returns the number of whole samples the header declares.
func (h Header) Samples() uint32 { return h.DataSize / blockAlign }

// DurationSeconds returns the declared length of the recording.
func (h Header) DurationSeconds() float64 {
	if h.SampleRate == 0 {
		return 0
	}
	return float64(h.Samples()) / float64(h.SampleRate)
}

// ReadHeader decodes and validates a header written by this package.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("read wav header: %w", err)
	}
	if string(h.RiffID[:]) != "RIFF" || string(h.WaveID[:]) != "WAVE" ||
		string(h.FmtID[:]) != "fmt " || string(h.DataID[:]) != "data" {
		return h, ErrNotWAV
	}
	if h.AudioFormat != formatPCM || h.NumChannels != numChannels || h.BitsPerSample != bitsPerSample {
		return h, fmt.Errorf("%w: format %d, %d channel(s), %d bits", ErrUnsupported, h.AudioFormat, h.NumChannels, h.BitsPerSample)
	}
	return h, nil
}

func writeHeader(w io.Writer, h Header) error {
	return binary.Write(w, binary.LittleEndian, &h)
}

// patchSizes overwrites the RIFF chunk size (offset 4) and the data
// sub-chunk size (offset 40) in place.
func patchSizes(ws io.WriteSeeker, chunkSize, dataSize uint32) error {
	if _, err := ws.Seek(riffSizeOffset, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(ws, binary.LittleEndian, chunkSize); err != nil {
		return err
	}
	if _, err := ws.Seek(dataSizeOffset, io.SeekStart); err != nil {
		return err
	}
	return binary.Write(ws, binary.LittleEndian, dataSize)
}

// Repair patches both size fields from the actual length of ws, rounded down
// to whole samples. Files shorter than a header are left alone. It returns
// the data size now declared.
func Repair(ws io.WriteSeeker) (uint32, error) {
	size, err := ws.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if size < HeaderSize {
		return 0, nil
	}

	data := size - HeaderSize
	data -= data % blockAlign
	if data > maxDataSize {
		data = maxDataSize
	}
	dataSize := uint32(data)

	if err := patchSizes(ws, riffBaseSize+dataSize, dataSize); err != nil {
		return 0, err
	}
	return dataSize, nil
}
