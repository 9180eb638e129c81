// Package logging builds the process logger from the logging config.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/orrn/printqueue/internal/config"
)

// New returns a logger writing to w. The "json" format emits one JSON object
// per line; "text" and "plain" use the console writer, "plain" without color.
func New(cfg config.LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := w
	switch cfg.Format {
	case "text":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case "plain":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Component returns a child logger tagged with the component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
