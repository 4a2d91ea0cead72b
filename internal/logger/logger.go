// Package logger builds the zerolog.Logger every checkdag entry point
// shares, mirroring the global-logger idiom the teacher uses directly at
// its package root (factory.go, internal/application/executor/node_executors.go
// both call github.com/rs/zerolog/log.* without constructing a local
// instance). checkdag is a library first, so rather than mutate the global
// logger it hands callers a configured zerolog.Logger to thread through
// (host.WithLogger and gateway.NewServer take one); neither cmd/checkdagctl
// nor cmd/server uses the global logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Options configures New. Format is "json" or "console"; Level is any
// zerolog.ParseLevel-compatible string ("debug", "info", "warn", "error").
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// New builds a zerolog.Logger. With Format "console" (or unset) output is
// routed through go-colorable so ANSI color codes survive on Windows
// consoles, and color is disabled automatically when the destination isn't
// a terminal (go-isatty), matching how a teacher CLI frontend would behave.
func New(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	if opts.Format != "json" {
		f := asFile(out)
		colorableOut := colorable.NewColorable(f)
		noColor := !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
		out = zerolog.ConsoleWriter{Out: colorableOut, NoColor: noColor, TimeFormat: "15:04:05"}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// asFile returns w itself when it is an *os.File (go-colorable needs one to
// probe console mode on Windows) and os.Stderr otherwise.
func asFile(w io.Writer) *os.File {
	if f, ok := w.(*os.File); ok {
		return f
	}
	return os.Stderr
}
