// Package input turns terminal keys and process signals into recorder input
// events. Inputs are posted with a blocking Put so a burst of ticks never
// crowds out a cancel.
package input

import (
	"context"
	"sync"

	"github.com/eiannone/keyboard"
	"github.com/rs/zerolog"

	"github.com/large-farva/wav-recorder/internal/event"
)

// Poster accepts input events; *event.Queue satisfies it.
type Poster interface {
	Put(ctx context.Context, ev event.Event) error
}

// Translate maps a terminal key to a recorder input. Every key is reported
// as a short press.
func Translate(char rune, key keyboard.Key) (event.Input, bool) {
	var k event.Key
	switch {
	case key == keyboard.KeyEsc, key == keyboard.KeyBackspace, key == keyboard.KeyBackspace2,
		key == keyboard.KeyCtrlC, char == 'q', char == 'Q':
		k = event.KeyBack
	case key == keyboard.KeyEnter, char == ' ':
		k = event.KeyOk
	case key == keyboard.KeyArrowUp:
		k = event.KeyUp
	case key == keyboard.KeyArrowDown:
		k = event.KeyDown
	case key == keyboard.KeyArrowLeft:
		k = event.KeyLeft
	case key == keyboard.KeyArrowRight:
		k = event.KeyRight
	default:
		return event.Input{}, false
	}
	return event.Input{Key: k, Action: event.ActionShort}, true
}

// Keyboard reads keys from the controlling terminal.
type Keyboard struct {
	log zerolog.Logger
}

func NewKeyboard(log zerolog.Logger) *Keyboard {
	return &Keyboard{log: log}
}

// Run puts the terminal in raw mode and posts translated keys to q until ctx
// is done or the terminal goes away. It returns the error from opening the
// terminal, if any; the caller decides whether that is fatal.
func (k *Keyboard) Run(ctx context.Context, q Poster) error {
	if err := keyboard.Open(); err != nil {
		return err
	}

	closeOnce := &sync.Once{}
	closeKeyboard := func() {
		closeOnce.Do(func() { _ = keyboard.Close() })
	}
	go func() {
		<-ctx.Done()
		closeKeyboard()
	}()

	go func() {
		defer closeKeyboard()
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				k.log.Debug().Err(err).Msg("keyboard closed")
				return
			}
			in, ok := Translate(char, key)
			if !ok {
				continue
			}
			k.log.Debug().Stringer("input", in).Msg("key")
			if err := q.Put(ctx, in); err != nil {
				return
			}
		}
	}()
	return nil
}
