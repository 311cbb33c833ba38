package input

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/large-farva/wav-recorder/internal/event"
)

// CancelOnDone posts a cancel once ctx is done, typically a context wired to
// SIGINT and SIGTERM, so an interrupted recording is flushed and closed like
// one stopped from the keyboard. The cancel is queued behind any ticks
// already waiting. post bounds the Put and the goroutine's lifetime.
func CancelOnDone(ctx, post context.Context, q Poster, log zerolog.Logger) {
	go func() {
		select {
		case <-post.Done():
			return
		case <-ctx.Done():
		}
		log.Info().Err(context.Cause(ctx)).Msg("shutdown requested, cancelling recording")
		if err := q.Put(post, event.Cancel); err != nil {
			log.Warn().Err(err).Msg("cancel not delivered")
		}
	}()
}
