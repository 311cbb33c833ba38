// Package recorder runs the controller loop of a recording session. It
// drains a single event queue fed by the sampling timer and by input
// sources, turns each tick into one PCM sample, and flushes full buffers to
// the WAV writer.
//
// Lifecycle:
//  1. Idle: write the WAV header and program the sampler
//  2. Recording: start the sampler, process events in arrival order
//  3. Stopping: on cancel, stop the sampler, flush what is buffered, close.
//     When ctx ends instead, ticks already queued are recorded first
//  4. Stopped: terminal
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/large-farva/wav-recorder/internal/adc"
	"github.com/large-farva/wav-recorder/internal/buffer"
	"github.com/large-farva/wav-recorder/internal/event"
	"github.com/large-farva/wav-recorder/internal/metrics"
	"github.com/large-farva/wav-recorder/internal/sampler"
	"github.com/large-farva/wav-recorder/internal/stats"
	"github.com/large-farva/wav-recorder/internal/wav"
)

// ErrSessionFailed wraps any error that ended a recording early or left the
// file in doubt.
var ErrSessionFailed = errors.New("recording session failed")

// State is the controller's position in the session lifecycle.
type State int32

const (
	Idle State = iota
	Recording
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Recording:
		return "RECORDING"
	case Stopping:
		return "STOPPING"
	case Stopped:
		return "STOPPED"
	}
	return fmt.Sprintf("STATE(%d)", int32(s))
}

// Display is asked to redraw whenever min or max moves. Refresh must not
// block.
type Display interface {
	Refresh()
}

// Flush describes one append to the WAV file. PCM aliases the sample buffer
// and is only valid during the OnFlush call.
type Flush struct {
	PCM      []int16
	Partial  bool
	DataSize uint32
}

// Options holds everything a Recorder needs from the caller.
type Options struct {
	Sampler    *sampler.Sampler
	SampleRate uint32
	ADC        adc.Reader
	Buffer     *buffer.Buffer
	Writer     *wav.Writer
	Stats      *stats.Stats
	Queue      *event.Queue
	Display    Display
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics // optional

	OnState func(from, to State) // optional
	OnFlush func(Flush)          // optional
}

// Recorder is a single-use controller for one recording.
type Recorder struct {
	sampler    *sampler.Sampler
	sampleRate uint32
	adc        adc.Reader
	buf        *buffer.Buffer
	writer     *wav.Writer
	stats      *stats.Stats
	queue      *event.Queue
	display    Display
	log        zerolog.Logger
	metrics    *metrics.Metrics
	onState    func(from, to State)
	onFlush    func(Flush)

	state   atomic.Int32
	ticks   atomic.Uint64
	flushes atomic.Uint64
}

// New validates opts and returns a Recorder in the Idle state.
func New(opts Options) (*Recorder, error) {
	switch {
	case opts.Sampler == nil:
		return nil, errors.New("recorder: nil sampler")
	case opts.SampleRate == 0:
		return nil, errors.New("recorder: sample rate must be > 0")
	case opts.ADC == nil:
		return nil, errors.New("recorder: nil adc reader")
	case opts.Buffer == nil:
		return nil, errors.New("recorder: nil buffer")
	case opts.Writer == nil:
		return nil, errors.New("recorder: nil wav writer")
	case opts.Stats == nil:
		return nil, errors.New("recorder: nil stats")
	case opts.Queue == nil:
		return nil, errors.New("recorder: nil event queue")
	}
	display := opts.Display
	if display == nil {
		display = nopDisplay{}
	}
	return &Recorder{
		sampler:    opts.Sampler,
		sampleRate: opts.SampleRate,
		adc:        opts.ADC,
		buf:        opts.Buffer,
		writer:     opts.Writer,
		stats:      opts.Stats,
		queue:      opts.Queue,
		display:    display,
		log:        opts.Logger,
		metrics:    opts.Metrics,
		onState:    opts.OnState,
		onFlush:    opts.OnFlush,
	}, nil
}

// Run records until a cancel input arrives or ctx is done, and returns once
// the file is closed. A nil error means every accepted sample reached the
// file.
func (r *Recorder) Run(ctx context.Context) error {
	if r.State() != Idle {
		return errors.New("recorder: Run called twice")
	}

	if err := r.writer.WriteHeader(); err != nil {
		var result *multierror.Error
		result = multierror.Append(result, fmt.Errorf("write header: %w", err), r.writer.Close())
		r.transition(Stopped)
		return fmt.Errorf("%w: %w", ErrSessionFailed, result.ErrorOrNil())
	}

	r.sampler.Init(r.sampleRate)
	r.sampler.Start(r.onTimer)
	r.transition(Recording)
	r.log.Info().Uint32("sample_rate", r.sampleRate).Int("buffer", r.buf.Cap()).Msg("recording started")

	for {
		ev, err := r.queue.Get(ctx)
		if err != nil {
			r.log.Info().Err(err).Msg("context done, stopping")
			return r.finish(r.drain())
		}

		switch ev := ev.(type) {
		case event.Tick:
			if err := r.tick(); err != nil {
				return r.finish(err)
			}
		case event.Input:
			if ev.IsCancel() {
				r.log.Info().Stringer("input", ev).Msg("cancel requested")
				return r.finish(nil)
			}
			r.log.Debug().Stringer("input", ev).Msg("input ignored")
		}
	}
}

// onTimer runs in the timer's interrupt context.
func (r *Recorder) onTimer() {
	r.queue.TryPut(event.Tick{})
}

func (r *Recorder) tick() error {
	raw := r.adc.Read()
	changed := r.stats.Observe(raw)
	r.ticks.Add(1)
	r.metrics.Tick()

	if r.buf.Push(adc.ToPCM(raw)) {
		if err := r.flush(false); err != nil {
			return err
		}
	}
	if changed {
		r.display.Refresh()
	}
	return nil
}

func (r *Recorder) flush(partial bool) error {
	pcm := r.buf.Drain()
	if len(pcm) == 0 {
		return nil
	}
	if err := r.writer.Append(pcm); err != nil {
		r.metrics.AppendFailed()
		return fmt.Errorf("append %d samples: %w", len(pcm), err)
	}
	r.flushes.Add(1)
	r.metrics.Flushed(len(pcm))
	if r.onFlush != nil {
		r.onFlush(Flush{PCM: pcm, Partial: partial, DataSize: r.writer.DataSize()})
	}
	return nil
}

// drain stops the sampler and handles every event already queued, up to the
// first cancel, so a context cancellation keeps the samples taken before it.
func (r *Recorder) drain() error {
	r.transition(Stopping)
	r.sampler.Stop()

	for {
		ev, ok := r.queue.TryGet()
		if !ok {
			return nil
		}
		switch ev := ev.(type) {
		case event.Tick:
			if err := r.tick(); err != nil {
				return err
			}
		case event.Input:
			if ev.IsCancel() {
				return nil
			}
		}
	}
}

// finish runs the Stopping phase. cause is the append error that ended the
// session early, or nil for a requested stop.
func (r *Recorder) finish(cause error) error {
	r.transition(Stopping)
	if r.sampler.Running() {
		r.sampler.Stop()
	}

	var result *multierror.Error
	if cause == nil {
		if err := r.flush(true); err != nil {
			cause = fmt.Errorf("final flush: %w", err)
		}
	}

	if cause != nil {
		result = multierror.Append(result, cause)
		r.log.Error().Err(cause).Msg("write failed, repairing header")
		if err := r.writer.Abort(); err != nil {
			result = multierror.Append(result, fmt.Errorf("abort: %w", err))
		}
	} else if err := r.writer.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close: %w", err))
	}

	r.sampler.Deinit()
	r.transition(Stopped)

	r.log.Info().
		Uint64("ticks", r.ticks.Load()).
		Uint64("flushes", r.flushes.Load()).
		Uint32("samples", r.writer.Samples()).
		Uint64("dropped", r.queue.Dropped()).
		Msg("recording stopped")

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %w", ErrSessionFailed, err)
	}
	return nil
}

func (r *Recorder) transition(to State) {
	from := State(r.state.Swap(int32(to)))
	if from == to {
		return
	}
	if r.onState != nil {
		r.onState(from, to)
	}
}

// State returns the current lifecycle state. Safe for concurrent use.
func (r *Recorder) State() State { return State(r.state.Load()) }

// Ticks returns how many ticks the controller has processed.
func (r *Recorder) Ticks() uint64 { return r.ticks.Load() }

// Flushes returns how many appends reached the writer.
func (r *Recorder) Flushes() uint64 { return r.flushes.Load() }

// Dropped returns how many ticks were lost to a full queue.
func (r *Recorder) Dropped() uint64 { return r.queue.Dropped() }

type nopDisplay struct{}

func (nopDisplay) Refresh() {}
