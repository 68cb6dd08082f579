package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options controls the global logger setup.
type Options struct {
	// Level is the minimum level that gets emitted (default: info).
	Level string
	// Format is "json" for production or "console" for local runs.
	Format string
	// Service is stamped on every event for log aggregation.
	Service string
	// Disabled discards all output, used by tests.
	Disabled bool
}

// Configure initializes the global logger and returns the root instance.
func Configure(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer = os.Stdout
	if opts.Disabled {
		output = io.Discard
	} else if opts.Format == "console" {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	return ctx.Logger()
}
