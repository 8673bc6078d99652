// Package log configures structured logging for the copilot AI client.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Setup installs the copilot logger as the process default. Verbosity:
//
//   - quiet mode:   only WARN and ERROR messages
//   - normal mode:  INFO and above
//   - verbose mode: DEBUG and above
//
// Quiet wins when both flags are set. Output goes to stderr so piped
// completions on stdout stay clean.
func Setup(verbose, quiet bool) {
	slog.SetDefault(New(os.Stderr, verbose, quiet))
}

// New builds the copilot logger writing to w. Every record carries an
// app=copilot attribute so copilot lines are filterable when the client is
// embedded next to other slog users.
func New(w io.Writer, verbose, quiet bool) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: levelFor(verbose, quiet),
	})
	return slog.New(handler).With("app", "copilot")
}

func levelFor(verbose, quiet bool) slog.Level {
	switch {
	case quiet:
		return slog.LevelWarn
	case verbose:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
