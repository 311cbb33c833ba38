package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

// memFile is an in-memory File that can be told to fail a given write.
type memFile struct {
	data   []byte
	pos    int64
	writes int
	failAt int // 1-based write index that fails; 0 never fails
	closed bool
}

func (m *memFile) Write(p []byte) (int, error) {
	m.writes++
	if m.failAt > 0 && m.writes == m.failAt {
		return 0, errors.New("disk full")
	}
	end := m.pos + int64(len(p))
	if end > int64(len(m.data)) {
		m.data = append(m.data, make([]byte, end-int64(len(m.data)))...)
	}
	copy(m.data[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		m.pos = offset
	case io.SeekCurrent:
		m.pos += offset
	case io.SeekEnd:
		m.pos = int64(len(m.data)) + offset
	}
	return m.pos, nil
}

func (m *memFile) Close() error {
	m.closed = true
	return nil
}

func le32(b []byte, off int) uint32 { return binary.LittleEndian.Uint32(b[off:]) }

func TestWriteHeader(t *testing.T) {
	f := &memFile{}
	w := NewWriter(f, 11025)
	if err := w.WriteHeader(); err != nil {
		t.Fatal(err)
	}

	want := []byte{
		'R', 'I', 'F', 'F', 36, 0, 0, 0, 'W', 'A', 'V', 'E',
		'f', 'm', 't', ' ', 16, 0, 0, 0, 1, 0, 1, 0,
		0x11, 0x2b, 0, 0, // 11025
		0x22, 0x56, 0, 0, // 22050
		2, 0, 16, 0,
		'd', 'a', 't', 'a', 0, 0, 0, 0,
	}
	if !bytes.Equal(f.data, want) {
		t.Fatalf("header mismatch\n got %v\nwant %v", f.data, want)
	}
	if err := w.WriteHeader(); err == nil {
		t.Error("second WriteHeader should fail")
	}
}

func TestAppendKeepsHeaderCurrent(t *testing.T) {
	f := &memFile{}
	w := NewWriter(f, 8000)
	if err := w.WriteHeader(); err != nil {
		t.Fatal(err)
	}

	batches := [][]int16{{1, -1, 300}, {}, {-32767}, {32767, 0, 5, 6, 7}}
	var all []int16
	for _, b := range batches {
		if err := w.Append(b); err != nil {
			t.Fatal(err)
		}
		all = append(all, b...)

		dataSize := uint32(len(all) * 2)
		if got := le32(f.data, dataSizeOffset); got != dataSize {
			t.Fatalf("data_size = %d, want %d", got, dataSize)
		}
		if got := le32(f.data, riffSizeOffset); got != 36+dataSize {
			t.Fatalf("chunk_size = %d, want %d", got, 36+dataSize)
		}
		if len(f.data) != HeaderSize+int(dataSize) {
			t.Fatalf("file size = %d, want %d", len(f.data), HeaderSize+dataSize)
		}
		if w.DataSize() != dataSize || w.ChunkSize() != 36+dataSize || int(w.Samples()) != len(all) {
			t.Fatalf("counters %d/%d/%d", w.DataSize(), w.ChunkSize(), w.Samples())
		}
	}

	for i, s := range all {
		got := int16(binary.LittleEndian.Uint16(f.data[HeaderSize+2*i:]))
		if got != s {
			t.Errorf("sample %d = %d, want %d", i, got, s)
		}
	}
}

func TestAppendBeforeHeader(t *testing.T) {
	w := NewWriter(&memFile{}, 8000)
	if err := w.Append([]int16{1}); err == nil {
		t.Fatal("append before header should fail")
	}
}

func TestAppendFailureIsSticky(t *testing.T) {
	// header is write 1; the first append patches (writes 2, 3) then writes
	// the payload (write 4).
	f := &memFile{failAt: 4}
	w := NewWriter(f, 8000)
	if err := w.WriteHeader(); err != nil {
		t.Fatal(err)
	}
	err := w.Append([]int16{1, 2})
	if !errors.Is(err, ErrFailed) {
		t.Fatalf("err = %v, want ErrFailed", err)
	}
	if err := w.Append([]int16{3}); !errors.Is(err, ErrFailed) {
		t.Fatalf("later append err = %v", err)
	}

	// The header got ahead of the payload; Abort brings it back.
	if got := le32(f.data, dataSizeOffset); got != 4 {
		t.Fatalf("declared data_size = %d before abort", got)
	}
	if err := w.Abort(); err != nil {
		t.Fatal(err)
	}
	if !f.closed {
		t.Error("abort should close the file")
	}
	if got := le32(f.data, dataSizeOffset); got != 0 {
		t.Errorf("data_size after abort = %d, want 0", got)
	}
	if got := le32(f.data, riffSizeOffset); got != 36 {
		t.Errorf("chunk_size after abort = %d, want 36", got)
	}
}

func TestRepair(t *testing.T) {
	tests := []struct {
		name     string
		payload  int
		wantData uint32
	}{
		{name: "empty", payload: 0, wantData: 0},
		{name: "whole samples", payload: 10, wantData: 10},
		{name: "torn sample", payload: 7, wantData: 6},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := &memFile{}
			if err := writeHeader(f, NewHeader(11025, 0)); err != nil {
				t.Fatal(err)
			}
			f.data = append(f.data, make([]byte, test.payload)...)

			got, err := Repair(f)
			if err != nil {
				t.Fatal(err)
			}
			if got != test.wantData || le32(f.data, dataSizeOffset) != test.wantData {
				t.Errorf("repaired data_size = %d, want %d", got, test.wantData)
			}
			if le32(f.data, riffSizeOffset) != 36+test.wantData {
				t.Errorf("chunk_size = %d", le32(f.data, riffSizeOffset))
			}
		})
	}

	short := &memFile{data: []byte("RIFF")}
	if n, err := Repair(short); err != nil || n != 0 {
		t.Errorf("short file repair = %d, %v", n, err)
	}
}

func TestReadHeader(t *testing.T) {
	var b bytes.Buffer
	if err := writeHeader(&b, NewHeader(11025, 2048)); err != nil {
		t.Fatal(err)
	}
	h, err := ReadHeader(bytes.NewReader(b.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if h.SampleRate != 11025 || h.Samples() != 1024 {
		t.Errorf("header = %+v", h)
	}
	if d := h.DurationSeconds(); d < 0.0928 || d > 0.0929 {
		t.Errorf("duration = %v", d)
	}

	bad := append([]byte("RIFX"), b.Bytes()[4:]...)
	if _, err := ReadHeader(bytes.NewReader(bad)); !errors.Is(err, ErrNotWAV) {
		t.Errorf("bad magic err = %v", err)
	}
	if _, err := ReadHeader(bytes.NewReader(b.Bytes()[:20])); err == nil {
		t.Error("truncated header should fail")
	}
}

func TestRoundTripDecode(t *testing.T) {
	const (
		rate = 11025
		k    = 5000
	)
	path := filepath.Join(t.TempDir(), "rt.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}

	w := NewWriter(f, rate)
	if err := w.WriteHeader(); err != nil {
		t.Fatal(err)
	}
	chunk := make([]int16, 0, 2048)
	for i := 0; i < k; i++ {
		chunk = append(chunk, int16((i*13)%65534-32767))
		if len(chunk) == cap(chunk) {
			if err := w.Append(chunk); err != nil {
				t.Fatal(err)
			}
			chunk = chunk[:0]
		}
	}
	if err := w.Append(chunk); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	in, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()

	d := gowav.NewDecoder(in)
	if !d.IsValidFile() {
		t.Fatal("decoder rejected file")
	}
	var buf *audio.IntBuffer
	buf, err = d.FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}
	if d.SampleRate != rate || d.NumChans != 1 || d.BitDepth != 16 {
		t.Errorf("format = %d Hz, %d ch, %d bits", d.SampleRate, d.NumChans, d.BitDepth)
	}
	if len(buf.Data) != k {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), k)
	}
	for i, v := range buf.Data {
		if v != (i*13)%65534-32767 {
			t.Fatalf("sample %d = %d", i, v)
		}
	}
}
