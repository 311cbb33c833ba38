// Package event defines the messages that drive the recorder's controller
// loop and the bounded queue that carries them. The queue is the only point
// where timer callbacks, input sources and the controller meet.
package event

import "fmt"

// Event is either a Tick or an Input. The unexported marker method keeps the
// set closed so type switches over it are exhaustive.
type Event interface {
	isEvent()
}

// Tick is posted once per sampling period by the timer callback.
type Tick struct{}

// Input is a user key event.
type Input struct {
	Key    Key
	Action Action
}

func (Tick) isEvent()  {}
func (Input) isEvent() {}

// Cancel is the input that ends a recording.
var Cancel = Input{Key: KeyBack, Action: ActionShort}

// IsCancel reports whether in ends the recording.
func (in Input) IsCancel() bool { return in == Cancel }

func (in Input) String() string { return fmt.Sprintf("%s/%s", in.Key, in.Action) }

// Key identifies a button.
type Key uint8

const (
	KeyUp Key = iota
	KeyDown
	KeyLeft
	KeyRight
	KeyOk
	KeyBack
)

func (k Key) String() string {
	switch k {
	case KeyUp:
		return "up"
	case KeyDown:
		return "down"
	case KeyLeft:
		return "left"
	case KeyRight:
		return "right"
	case KeyOk:
		return "ok"
	case KeyBack:
		return "back"
	}
	return fmt.Sprintf("key(%d)", uint8(k))
}

// Action is what happened to a key.
type Action uint8

const (
	ActionPress Action = iota
	ActionRelease
	ActionShort
	ActionLong
	ActionRepeat
)

func (a Action) String() string {
	switch a {
	case ActionPress:
		return "press"
	case ActionRelease:
		return "release"
	case ActionShort:
		return "short"
	case ActionLong:
		return "long"
	case ActionRepeat:
		return "repeat"
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}
