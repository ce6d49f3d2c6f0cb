// Package logging provides the vault core's injected reporter: a fixed
// small vocabulary (info/warn/error) with no process-wide state, per the
// design note that the core must not reach for global logging. cmd/rvault
// wires a devlog-backed Reporter; the core itself defaults to a no-op.
package logging

import (
	"log/slog"
	"os"

	"hermannm.dev/devlog"
)

// Reporter is the small vocabulary the vault core reports through.
type Reporter interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Noop discards everything; it is the core's default Reporter so that
// library callers who don't care about logging pay nothing for it.
type Noop struct{}

func (Noop) Info(string, ...any)  {}
func (Noop) Warn(string, ...any)  {}
func (Noop) Error(string, ...any) {}

// slogReporter adapts log/slog, backed by a devlog handler, to Reporter.
type slogReporter struct {
	logger *slog.Logger
}

// NewDevlog builds a Reporter backed by hermannm.dev/devlog, the
// human-friendly development log handler this corpus's server uses. It
// is meant for cmd/rvault and other interactive front-ends.
func NewDevlog(level slog.Leveler) Reporter {
	handler := devlog.NewHandler(os.Stderr, &devlog.Options{Level: level})
	return &slogReporter{logger: slog.New(handler)}
}

func (r *slogReporter) Info(msg string, args ...any)  { r.logger.Info(msg, args...) }
func (r *slogReporter) Warn(msg string, args ...any)  { r.logger.Warn(msg, args...) }
func (r *slogReporter) Error(msg string, args ...any) { r.logger.Error(msg, args...) }
