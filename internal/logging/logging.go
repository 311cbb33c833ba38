// Package logging builds the zerolog loggers used across the daemon.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var pid = os.Getpid()

// New returns a root logger writing to w at level. format is "json" for
// machine-readable lines or "console" for a human-readable terminal writer.
// Extra writers always receive the raw JSON lines.
func New(w io.Writer, level, format string, extra ...io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := w
	if format == "console" {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: "15:04:05.0000",
			NoColor:    !isTerminal(w),
			PartsOrder: []string{
				zerolog.TimestampFieldName,
				zerolog.LevelFieldName,
				"component",
				zerolog.MessageFieldName,
			},
			FieldsExclude: []string{"component", "pid"},
		}
	}

	if len(extra) > 0 {
		out = zerolog.MultiLevelWriter(append([]io.Writer{out}, extra...)...)
	}

	return zerolog.New(out).Level(lvl).With().
		Timestamp().
		Str("pid", fmt.Sprintf("%4x", pid)).
		Logger(), nil
}

// Component returns a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	st, err := f.Stat()
	if err != nil {
		return false
	}
	return st.Mode()&os.ModeCharDevice != 0
}
