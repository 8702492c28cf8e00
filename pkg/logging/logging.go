// Package logging builds the zerolog loggers used across the reader.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Options struct {
	Level  string // trace, debug, info, warn, error; empty means info
	Format string // text or json
	// File receives the log when set; otherwise Output is used.
	File   string
	Output io.Writer
}

// New returns a logger and a function that releases its output file, if any.
func New(opts Options) (zerolog.Logger, func() error, error) {
	noop := func() error { return nil }

	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), noop, fmt.Errorf("log level: %w", err)
		}
		level = parsed
	}

	out := opts.Output
	closeFn := noop
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return zerolog.Nop(), noop, fmt.Errorf("log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), noop, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = f.Close
	}
	if out == nil {
		out = os.Stderr
	}

	switch opts.Format {
	case "", "text":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly, NoColor: opts.File != ""}
	case "json":
	default:
		closeFn()
		return zerolog.Nop(), noop, fmt.Errorf("unknown log format %q", opts.Format)
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger, closeFn, nil
}

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// FromContext returns the logger stored in ctx, or a disabled logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}
