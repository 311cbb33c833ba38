package logging

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Entry is one log line kept by a Ring.
type Entry struct {
	TS        string `json:"ts"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Component string `json:"component,omitempty"`
}

// Ring keeps the most recent log lines in memory. It is an io.Writer that
// expects zerolog's JSON lines, so it must sit before any console writer.
type Ring struct {
	mu     sync.Mutex
	buf    []Entry
	next   int
	full   bool
	notify func(Entry)
}

// NewRing returns a ring holding up to size entries.
func NewRing(size int) *Ring {
	if size < 1 {
		size = 1
	}
	return &Ring{buf: make([]Entry, size)}
}

// Notify registers fn to be called for every new entry. fn runs on the
// logging goroutine and must not block.
func (r *Ring) Notify(fn func(Entry)) {
	r.mu.Lock()
	r.notify = fn
	r.mu.Unlock()
}

func (r *Ring) Write(p []byte) (int, error) {
	var line struct {
		Time      string `json:"time"`
		Level     string `json:"level"`
		Message   string `json:"message"`
		Component string `json:"component"`
	}
	if err := json.Unmarshal(p, &line); err != nil {
		// Not a zerolog line; keep the writer chain going.
		return len(p), nil
	}
	e := Entry{TS: line.Time, Level: line.Level, Message: line.Message, Component: line.Component}

	r.mu.Lock()
	r.buf[r.next] = e
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
	fn := r.notify
	r.mu.Unlock()

	if fn != nil {
		fn(e)
	}
	return len(p), nil
}

// Entries returns up to limit of the newest entries at or above floor, oldest
// first. A limit of zero or less returns everything that matches.
func (r *Ring) Entries(floor zerolog.Level, limit int) []Entry {
	r.mu.Lock()
	var all []Entry
	if r.full {
		all = append(all, r.buf[r.next:]...)
	}
	all = append(all, r.buf[:r.next]...)
	r.mu.Unlock()

	out := make([]Entry, 0, len(all))
	for _, e := range all {
		lvl, err := zerolog.ParseLevel(e.Level)
		if err != nil || lvl < floor {
			continue
		}
		out = append(out, e)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
