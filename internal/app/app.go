// Package app wires together the HTTP server, WebSocket hub, recordings
// folder and the recorder for one recording session. It owns the daemon's
// lifecycle and is the single source of truth for the current operating
// state.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/large-farva/wav-recorder/internal/adc"
	"github.com/large-farva/wav-recorder/internal/buffer"
	"github.com/large-farva/wav-recorder/internal/config"
	"github.com/large-farva/wav-recorder/internal/display"
	"github.com/large-farva/wav-recorder/internal/event"
	"github.com/large-farva/wav-recorder/internal/input"
	"github.com/large-farva/wav-recorder/internal/logging"
	"github.com/large-farva/wav-recorder/internal/metrics"
	"github.com/large-farva/wav-recorder/internal/mqtt"
	"github.com/large-farva/wav-recorder/internal/recorder"
	"github.com/large-farva/wav-recorder/internal/sampler"
	"github.com/large-farva/wav-recorder/internal/stats"
	"github.com/large-farva/wav-recorder/internal/storage"
	"github.com/large-farva/wav-recorder/internal/telemetry"
	"github.com/large-farva/wav-recorder/internal/wav"
	"github.com/large-farva/wav-recorder/internal/ws"
)

const (
	heartbeatInterval = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Options holds everything the App needs from the caller.
type Options struct {
	Logger     zerolog.Logger
	Cfg        config.Config
	ConfigPath string
	Bind       string
	Keyboard   bool

	Logs    *logging.Ring // recent log lines for /api/logs; optional
	Console io.Writer     // live stats line; nil disables it
	Timer   sampler.Timer // nil uses a software ticker
	ADC     adc.Reader    // nil builds one from Cfg.Source
}

// App is the top-level daemon process for one recording session.
type App struct {
	log        zerolog.Logger
	cfg        config.Config
	configPath string
	bind       string
	keyboard   bool
	logs       *logging.Ring
	console    io.Writer
	timer      sampler.Timer
	reader     adc.Reader

	session   uuid.UUID
	startedAt time.Time
	state     atomic.Value // BOOTING, then the recorder's states

	hub     *ws.Hub
	stats   *stats.Stats
	queue   *event.Queue
	metrics *metrics.Metrics
	view    *display.View
	mqtt    *mqtt.Publisher
	mqttQ   chan [2]string

	store    *storage.Store
	rec      *recorder.Recorder
	fileName string
	dataSize atomic.Uint32

	server *http.Server
	addr   atomic.Value
}

// New creates an App in the BOOTING state. Call Run to start recording.
func New(opts Options) (*App, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}

	a := &App{
		log:        opts.Logger.With().Str("session", id.String()).Logger(),
		cfg:        opts.Cfg,
		configPath: opts.ConfigPath,
		bind:       opts.Bind,
		keyboard:   opts.Keyboard,
		logs:       opts.Logs,
		console:    opts.Console,
		timer:      opts.Timer,
		reader:     opts.ADC,
		session:    id,
		startedAt:  time.Now(),
		stats:      stats.New(),
		queue:      event.NewQueue(opts.Cfg.Recorder.QueueCapacity),
	}
	a.hub = ws.NewHub(logging.Component(a.log, "ws"))
	if a.cfg.Metrics.Enabled {
		a.metrics = metrics.New(a.queue.Dropped)
	}
	if a.logs != nil {
		a.logs.Notify(func(e logging.Entry) {
			ev := telemetry.NewLog(id.String(), e.Level, e.Message)
			if e.Component != "" {
				ev.Component = e.Component
			}
			a.hub.BroadcastJSON(ev)
		})
	}
	a.state.Store("BOOTING")
	return a, nil
}

// Run records until ctx is done or a cancel input arrives, then shuts the
// HTTP server down. The returned error is non-nil when the session failed
// or could not start.
func (a *App) Run(ctx context.Context) error {
	bind := a.bind
	if bind == "" && a.cfg.Server.Bind != "" {
		bind = a.cfg.Server.Bind
	}
	if bind == "" {
		bind = "0.0.0.0:8080"
	}

	a.server = &http.Server{
		Addr:              bind,
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}
	a.addr.Store(ln.Addr().String())

	if err := a.prepare(time.Now()); err != nil {
		_ = ln.Close()
		a.transition("FAILED")
		return err
	}
	defer func() {
		if err := a.store.Unlock(); err != nil {
			a.log.Warn().Err(err).Msg("unlock recordings folder")
		}
	}()

	a.log.Info().Str("addr", ln.Addr().String()).Msg("listening")

	bg, stopBg := context.WithCancel(context.Background())
	defer stopBg()

	var wg sync.WaitGroup
	for _, fn := range []func(context.Context){a.hub.Run, a.view.Run, a.heartbeatLoop, a.mqttStateLoop} {
		fn := fn
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(bg)
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error().Err(err).Msg("http server failed, stopping recording")
			serveErr <- err
			_ = a.queue.Put(bg, event.Cancel)
		}
	}()

	if a.keyboard {
		if err := input.NewKeyboard(logging.Component(a.log, "input")).Run(bg, a.queue); err != nil {
			a.log.Warn().Err(err).Msg("keyboard input disabled")
		}
	}
	input.CancelOnDone(ctx, bg, a.queue, logging.Component(a.log, "input"))

	var result *multierror.Error
	if err := a.rec.Run(bg); err != nil {
		result = multierror.Append(result, err)
	}

	a.log.Info().Msg("recording finished, shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, fmt.Errorf("http shutdown: %w", err))
	}

	stopBg()
	wg.Wait()
	if a.mqtt != nil {
		a.mqtt.Close()
	}

	select {
	case err := <-serveErr:
		result = multierror.Append(result, err)
	default:
	}
	return result.ErrorOrNil()
}

// prepare opens the recordings folder, creates the session's file and
// builds the recorder. Nothing is sampled yet.
func (a *App) prepare(now time.Time) error {
	cfg := a.cfg
	store, err := storage.Open(cfg.Data.Root)
	if err != nil {
		return err
	}
	if err := store.Lock(); err != nil {
		return err
	}

	fixed, err := store.RepairAll("")
	if err != nil {
		a.log.Warn().Err(err).Msg("some recordings could not be repaired")
	}
	for _, name := range fixed {
		a.log.Info().Str("file", name).Msg("repaired header of interrupted recording")
	}

	buf, err := buffer.New(cfg.Recorder.BufferSamples)
	if err != nil {
		_ = store.Unlock()
		return err
	}

	f, path, err := store.Create(now)
	if err != nil {
		_ = store.Unlock()
		return err
	}
	a.store = store
	a.fileName = filepath.Base(path)

	rate := uint32(cfg.Recorder.SampleRate)
	reader := a.reader
	if reader == nil {
		reader = newReader(cfg.Source, rate)
	}
	timer := a.timer
	if timer == nil {
		timer = sampler.NewTickerTimer(uint32(cfg.Recorder.CoreClockHz))
	}

	renderers := []display.Renderer{
		display.RendererFunc(func(s stats.Snapshot) error {
			a.hub.BroadcastJSON(telemetry.NewStats(a.session.String(), s))
			return nil
		}),
	}
	if a.metrics != nil {
		renderers = append(renderers, display.RendererFunc(func(s stats.Snapshot) error {
			if s.Samples > 0 {
				a.metrics.Bounds(s.Min, s.Max)
			}
			return nil
		}))
	}
	if a.console != nil {
		renderers = append(renderers, display.Console{W: a.console})
	}
	if cfg.MQTT.Enabled {
		p, err := mqtt.Connect(mqtt.ClientConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Topic:    cfg.MQTT.Topic,
			QoS:      byte(cfg.MQTT.QoS),
		}, a.session.String(), logging.Component(a.log, "mqtt"))
		if err != nil {
			a.log.Warn().Err(err).Msg("mqtt disabled")
		} else {
			a.mqtt = p
			a.mqttQ = make(chan [2]string, 8)
			renderers = append(renderers, p)
		}
	}
	a.view = display.New(a.stats, logging.Component(a.log, "display"), renderers...)

	a.rec, err = recorder.New(recorder.Options{
		Sampler:    sampler.New(timer, uint32(cfg.Recorder.CoreClockHz)),
		SampleRate: rate,
		ADC:        reader,
		Buffer:     buf,
		Writer:     wav.NewWriter(f, rate),
		Stats:      a.stats,
		Queue:      a.queue,
		Display:    a.view,
		Logger:     logging.Component(a.log, "recorder"),
		Metrics:    a.metrics,
		OnState:    func(_, to recorder.State) { a.transition(to.String()) },
		OnFlush:    a.onFlush,
	})
	if err != nil {
		_ = f.Close()
		_ = store.Unlock()
		return err
	}

	a.log.Info().
		Str("file", path).
		Uint32("sample_rate", rate).
		Int("buffer_samples", buf.Cap()).
		Str("source", cfg.Source.Kind).
		Msg("session prepared")
	return nil
}

func newReader(src config.SourceConfig, rate uint32) adc.Reader {
	if src.Kind == config.SourceReplay {
		return adc.NewSequence(src.ReplayValues()...)
	}
	return adc.NewSynthetic(int(rate), src.ToneHz, src.Amplitude)
}

// onFlush runs on the recorder's goroutine after every append.
func (a *App) onFlush(f recorder.Flush) {
	a.dataSize.Store(f.DataSize)
	a.hub.BroadcastJSON(telemetry.NewFlush(a.session.String(), len(f.PCM), f.Partial, f.DataSize, uint32(a.cfg.Recorder.SampleRate)))
}

// transition atomically updates the daemon state and broadcasts the change
// to all connected WebSocket clients and the MQTT broker.
func (a *App) transition(newState string) {
	old := a.state.Load().(string)
	if old == newState {
		return
	}
	a.state.Store(newState)
	a.log.Info().Str("from", old).Str("to", newState).Msg("state")

	a.hub.BroadcastJSON(telemetry.NewStateTransition(a.session.String(), old, newState))
	if a.mqttQ != nil {
		select {
		case a.mqttQ <- [2]string{old, newState}:
		default:
			a.log.Warn().Str("to", newState).Msg("mqtt state queue full, dropping")
		}
	}
}

// mqttStateLoop publishes state changes in order without blocking the
// recorder on the broker.
func (a *App) mqttStateLoop(ctx context.Context) {
	if a.mqttQ == nil {
		return
	}
	publish := func(s [2]string) {
		if err := a.mqtt.State(s[0], s[1]); err != nil {
			a.log.Warn().Err(err).Msg("mqtt state publish failed")
		}
	}
	for {
		select {
		case s := <-a.mqttQ:
			publish(s)
		case <-ctx.Done():
			for {
				select {
				case s := <-a.mqttQ:
					publish(s)
				default:
					return
				}
			}
		}
	}
}

// heartbeatLoop sends a periodic heartbeat event so clients can detect
// connectivity and track uptime without polling.
func (a *App) heartbeatLoop(ctx context.Context) {
	t := time.NewTicker(heartbeatInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.hub.BroadcastJSON(telemetry.NewHeartbeat(a.session.String(), a.State(), time.Since(a.startedAt)))
		}
	}
}

// State returns the current daemon state.
func (a *App) State() string { return a.state.Load().(string) }

// Session returns the recording session id.
func (a *App) Session() string { return a.session.String() }

// Addr returns the address the HTTP server listens on, or "" before Run.
func (a *App) Addr() string {
	s, _ := a.addr.Load().(string)
	return s
}
