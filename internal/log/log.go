// Package log bootstraps the process-wide zerolog logger. Grounded on the
// donor's cmd/.../main.go console-writer bootstrap
// (zerolog.TimeFieldFormat = time.RFC3339, a ConsoleWriter for TTY output,
// a plain JSON writer otherwise).
package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Bootstrap configures and returns the process logger per level/format,
// matching internal/config.LogConfig's fields.
func Bootstrap(level, format string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var w io.Writer = os.Stderr
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(w).With().Timestamp().Logger()
	if lvl, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil {
		l = l.Level(lvl)
	} else {
		l = l.Level(zerolog.InfoLevel)
	}
	return l
}
