// Package display renders the live min/max statistics. Refresh requests come
// from the recorder's controller and are coalesced; rendering happens on a
// separate goroutine so a slow renderer never stalls sampling.
package display

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/large-farva/wav-recorder/internal/stats"
)

// Renderer draws one statistics snapshot.
type Renderer interface {
	Render(stats.Snapshot) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(stats.Snapshot) error

func (f RendererFunc) Render(s stats.Snapshot) error { return f(s) }

// View owns the render loop for a set of renderers.
type View struct {
	stats     *stats.Stats
	renderers []Renderer
	log       zerolog.Logger

	pending chan struct{}
	mu      sync.Mutex
	renders uint64
}

// New returns a view over s. Call Run to start rendering.
func New(s *stats.Stats, log zerolog.Logger, renderers ...Renderer) *View {
	return &View{
		stats:     s,
		renderers: renderers,
		log:       log,
		pending:   make(chan struct{}, 1),
	}
}

// Refresh asks for a redraw. It never blocks; a request made while another
// is still pending is folded into it.
func (v *View) Refresh() {
	select {
	case v.pending <- struct{}{}:
	default:
	}
}

// Run renders once per refresh request until ctx is cancelled, then renders a
// final frame so the last values are shown.
func (v *View) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			v.render()
			return
		case <-v.pending:
			v.render()
		}
	}
}

func (v *View) render() {
	snap := v.stats.Snapshot()
	for _, r := range v.renderers {
		if err := r.Render(snap); err != nil {
			v.log.Warn().Err(err).Msg("render failed")
		}
	}
	v.mu.Lock()
	v.renders++
	v.mu.Unlock()
}

// Renders returns how many frames have been drawn.
func (v *View) Renders() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.renders
}

// Console prints the statistics as a single rewritten terminal line.
type Console struct {
	W io.Writer
}

func (c Console) Render(s stats.Snapshot) error {
	lo := s.Min
	if s.Samples == 0 {
		lo = 0
	}
	_, err := fmt.Fprintf(c.W, "\rMin: %-4d  Max: %-4d  Samples: %d", lo, s.Max, s.Samples)
	return err
}
