package recorder

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/large-farva/wav-recorder/internal/adc"
	"github.com/large-farva/wav-recorder/internal/buffer"
	"github.com/large-farva/wav-recorder/internal/event"
	"github.com/large-farva/wav-recorder/internal/sampler"
	"github.com/large-farva/wav-recorder/internal/stats"
	"github.com/large-farva/wav-recorder/internal/wav"
)

type memFile struct {
	mu     sync.Mutex
	data   []byte
	pos    int64
	writes int
	failAt int
	closed bool
}

func (m *memFile) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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
	m.mu.Lock()
	defer m.mu.Unlock()
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
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memFile) snapshot() ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.data), m.closed
}

func (m *memFile) dataSize() uint32 {
	b, _ := m.snapshot()
	return binary.LittleEndian.Uint32(b[40:])
}

type countingDisplay struct{ n atomic.Int64 }

func (d *countingDisplay) Refresh() { d.n.Add(1) }

type harness struct {
	rec     *Recorder
	timer   *sampler.ManualTimer
	queue   *event.Queue
	file    *memFile
	stats   *stats.Stats
	display *countingDisplay

	mu      sync.Mutex
	states  []State
	running chan struct{}
	flushes chan Flush
	done    chan error
}

func newHarness(t *testing.T, capacity, queueCap int, reader adc.Reader, file *memFile) *harness {
	t.Helper()
	buf, err := buffer.New(capacity)
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{
		timer:   &sampler.ManualTimer{},
		queue:   event.NewQueue(queueCap),
		file:    file,
		stats:   stats.New(),
		display: &countingDisplay{},
		running: make(chan struct{}),
		flushes: make(chan Flush, 16),
		done:    make(chan error, 1),
	}
	h.rec, err = New(Options{
		Sampler:    sampler.New(h.timer, sampler.DefaultCoreClockHz),
		SampleRate: 11025,
		ADC:        reader,
		Buffer:     buf,
		Writer:     wav.NewWriter(file, 11025),
		Stats:      h.stats,
		Queue:      h.queue,
		Display:    h.display,
		Logger:     zerolog.Nop(),
		OnState: func(_, to State) {
			h.mu.Lock()
			h.states = append(h.states, to)
			h.mu.Unlock()
			if to == Recording {
				close(h.running)
			}
		},
		OnFlush: func(f Flush) {
			f.PCM = slices.Clone(f.PCM)
			h.flushes <- f
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func (h *harness) start(t *testing.T, ctx context.Context) {
	t.Helper()
	go func() { h.done <- h.rec.Run(ctx) }()
	select {
	case <-h.running:
	case err := <-h.done:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(time.Second):
		t.Fatal("recorder never reached RECORDING")
	}
}

func (h *harness) cancel(t *testing.T) error {
	t.Helper()
	if err := h.queue.Put(context.Background(), event.Cancel); err != nil {
		t.Fatal(err)
	}
	return h.wait(t)
}

func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func (h *harness) nextFlush(t *testing.T) Flush {
	t.Helper()
	select {
	case f := <-h.flushes:
		return f
	case <-time.After(time.Second):
		t.Fatal("no flush")
		return Flush{}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRecordFlushAndCancel(t *testing.T) {
	file := &memFile{}
	h := newHarness(t, 4, event.DefaultCapacity, adc.NewSequence(0, 2048, 4095, 2048, 1000, 3000), file)
	h.start(t, context.Background())

	if got := h.timer.Fire(4); got != 4 {
		t.Fatalf("fired %d ticks", got)
	}
	f := h.nextFlush(t)
	if want := []int16{-32767, 8, 32767, 8}; !slices.Equal(f.PCM, want) {
		t.Errorf("first flush = %v, want %v", f.PCM, want)
	}
	if f.Partial || f.DataSize != 8 {
		t.Errorf("first flush partial=%v data_size=%d", f.Partial, f.DataSize)
	}
	if got := file.dataSize(); got != 8 {
		t.Errorf("header data_size after flush = %d, want 8", got)
	}

	h.timer.Fire(2)
	if err := h.cancel(t); err != nil {
		t.Fatalf("Run: %v", err)
	}

	f = h.nextFlush(t)
	if want := []int16{adc.ToPCM(1000), adc.ToPCM(3000)}; !slices.Equal(f.PCM, want) || !f.Partial {
		t.Errorf("final flush = %+v, want partial %v", f, want)
	}

	data, closed := file.snapshot()
	if !closed {
		t.Error("file not closed")
	}
	if len(data) != wav.HeaderSize+12 {
		t.Errorf("file length = %d, want %d", len(data), wav.HeaderSize+12)
	}
	if got := binary.LittleEndian.Uint32(data[40:]); got != 12 {
		t.Errorf("data_size = %d, want 12", got)
	}
	if got := binary.LittleEndian.Uint32(data[4:]); got != 48 {
		t.Errorf("chunk_size = %d, want 48", got)
	}

	snap := h.stats.Snapshot()
	if snap.Min != 0 || snap.Max != 4095 || snap.Samples != 6 {
		t.Errorf("stats = %+v", snap)
	}
	if h.timer.Enabled() {
		t.Error("timer still enabled after stop")
	}

	h.mu.Lock()
	states := slices.Clone(h.states)
	h.mu.Unlock()
	if want := []State{Recording, Stopping, Stopped}; !slices.Equal(states, want) {
		t.Errorf("states = %v, want %v", states, want)
	}
}

func TestContextCancelStopsGracefully(t *testing.T) {
	file := &memFile{}
	h := newHarness(t, 8, event.DefaultCapacity, adc.NewSequence(100, 200, 300), file)
	ctx, cancel := context.WithCancel(context.Background())
	h.start(t, ctx)

	h.timer.Fire(3)
	waitFor(t, "3 ticks", func() bool { return h.rec.Ticks() == 3 })
	cancel()

	if err := h.wait(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := file.dataSize(); got != 6 {
		t.Errorf("data_size = %d, want 6", got)
	}
	if h.rec.State() != Stopped {
		t.Errorf("state = %s", h.rec.State())
	}
}

func TestContextCancelKeepsQueuedTicks(t *testing.T) {
	for i := 0; i < 20; i++ {
		file := &memFile{}
		g := &gatedReader{entered: make(chan struct{}), release: make(chan struct{})}
		h := newHarness(t, 64, 64, g, file)
		ctx, cancel := context.WithCancel(context.Background())
		h.start(t, ctx)

		h.timer.Fire(1)
		<-g.entered
		// 19 more wait in the queue while the controller is stuck in Read.
		if got := h.timer.Fire(19); got != 19 {
			t.Fatalf("fired %d", got)
		}
		cancel()
		close(g.release)

		if err := h.wait(t); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if got := file.dataSize(); got != 40 {
			t.Fatalf("run %d: data_size = %d, want 40", i, got)
		}
		if h.rec.Ticks() != 20 || h.timer.Enabled() {
			t.Fatalf("run %d: ticks = %d, timer enabled = %v", i, h.rec.Ticks(), h.timer.Enabled())
		}
	}
}

func TestContextCancelStopsAtQueuedCancel(t *testing.T) {
	file := &memFile{}
	g := &gatedReader{entered: make(chan struct{}), release: make(chan struct{})}
	h := newHarness(t, 64, 64, g, file)
	ctx, cancel := context.WithCancel(context.Background())
	h.start(t, ctx)

	h.timer.Fire(1)
	<-g.entered
	h.timer.Fire(2)
	if err := h.queue.Put(context.Background(), event.Cancel); err != nil {
		t.Fatal(err)
	}
	h.queue.TryPut(event.Tick{})
	cancel()
	close(g.release)

	if err := h.wait(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := file.dataSize(); got != 6 {
		t.Errorf("data_size = %d, want 6", got)
	}
}

func TestOtherInputsIgnored(t *testing.T) {
	file := &memFile{}
	h := newHarness(t, 4, event.DefaultCapacity, adc.NewSequence(1), file)
	h.start(t, context.Background())

	for _, in := range []event.Input{
		{Key: event.KeyOk, Action: event.ActionShort},
		{Key: event.KeyBack, Action: event.ActionLong},
		{Key: event.KeyBack, Action: event.ActionPress},
	} {
		if err := h.queue.Put(context.Background(), in); err != nil {
			t.Fatal(err)
		}
	}
	if err := h.cancel(t); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, closed := file.snapshot()
	if !closed || len(data) != wav.HeaderSize {
		t.Errorf("closed=%v len=%d, want header-only file", closed, len(data))
	}
	if h.rec.Flushes() != 0 {
		t.Errorf("flushes = %d", h.rec.Flushes())
	}
}

func TestDisplayRefreshOnlyOnChange(t *testing.T) {
	file := &memFile{}
	h := newHarness(t, 8, event.DefaultCapacity, adc.NewSequence(100, 100, 50, 200, 150), file)
	h.start(t, context.Background())

	h.timer.Fire(5)
	if err := h.cancel(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := h.display.n.Load(); got != 3 {
		t.Errorf("refreshes = %d, want 3", got)
	}
}

// gatedReader blocks its first Read until released.
type gatedReader struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedReader) Read() uint16 {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return 2048
}

func TestTicksDroppedWhenQueueFull(t *testing.T) {
	file := &memFile{}
	g := &gatedReader{entered: make(chan struct{}), release: make(chan struct{})}
	h := newHarness(t, 1024, event.DefaultCapacity, g, file)
	h.start(t, context.Background())

	h.timer.Fire(1)
	<-g.entered

	// The controller is stuck in Read; the queue absorbs 32 and drops the rest.
	h.timer.Fire(40)
	if got := h.rec.Dropped(); got != 8 {
		t.Errorf("dropped = %d, want 8", got)
	}
	close(g.release)

	waitFor(t, "queued ticks", func() bool { return h.rec.Ticks() == 33 })
	if err := h.cancel(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := file.dataSize(); got != 66 {
		t.Errorf("data_size = %d, want 66", got)
	}
}

func TestAppendFailureAbortsSession(t *testing.T) {
	// Write 1 is the header, 2 and 3 patch the sizes, 4 is the payload.
	file := &memFile{failAt: 4}
	h := newHarness(t, 2, event.DefaultCapacity, adc.NewSequence(10, 20), file)
	h.start(t, context.Background())

	h.timer.Fire(2)
	err := h.wait(t)
	if !errors.Is(err, ErrSessionFailed) {
		t.Fatalf("err = %v, want ErrSessionFailed", err)
	}
	if !errors.Is(err, wav.ErrFailed) {
		t.Errorf("err = %v, want wrapped wav.ErrFailed", err)
	}

	data, closed := file.snapshot()
	if !closed {
		t.Error("file not closed")
	}
	if got := binary.LittleEndian.Uint32(data[40:]); got != 0 {
		t.Errorf("repaired data_size = %d, want 0", got)
	}
	if h.timer.Enabled() {
		t.Error("timer still enabled")
	}
	if h.rec.State() != Stopped {
		t.Errorf("state = %s", h.rec.State())
	}
}

func TestHeaderFailureNeverStartsSampler(t *testing.T) {
	file := &memFile{failAt: 1}
	h := newHarness(t, 4, event.DefaultCapacity, adc.NewSequence(1), file)

	err := h.rec.Run(context.Background())
	if !errors.Is(err, ErrSessionFailed) {
		t.Fatalf("err = %v", err)
	}
	if _, closed := file.snapshot(); !closed {
		t.Error("file not closed")
	}
	if h.timer.Autoreload() != 0 || h.timer.Enabled() {
		t.Error("sampler was programmed")
	}
	if err := h.rec.Run(context.Background()); err == nil {
		t.Error("second Run succeeded")
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("empty options accepted")
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{Idle, "IDLE"},
		{Recording, "RECORDING"},
		{Stopping, "STOPPING"},
		{Stopped, "STOPPED"},
		{State(9), "STATE(9)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
