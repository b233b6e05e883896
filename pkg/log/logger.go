// Package log provides the zerolog-backed structured logging used by the
// regress workflow. Every workflow operation logs start and finish events
// with the session id, recipe tag and fold count so an experiment can be
// reconstructed from its log stream.
package log

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	regerrors "github.com/YuminosukeSato/regress/pkg/errors"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
)

func init() {
	// Route best-effort warnings from pkg/errors into the shared logger.
	regerrors.SetZerologWarnFunc(func(warning error) {
		l := Logger()
		l.Warn().Err(warning).Msg("best-effort operation failed")
	})
}

// Logger returns the shared logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetLogger replaces the shared logger.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// SetOutput redirects the shared logger to w, keeping the current level.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = logger.Output(w)
}

// SetLevel adjusts the shared logger's level. Accepted values are "debug",
// "info", "warn", "error" and "disabled".
func SetLevel(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return regerrors.NewValidationError("log_level", "must be one of debug, info, warn, error, disabled", level)
	}
	mu.Lock()
	defer mu.Unlock()
	logger = logger.Level(lvl)
	return nil
}

// WithSession returns a logger carrying the experiment session id.
func WithSession(sessionID string) zerolog.Logger {
	return Logger().With().Str(KeySessionID, sessionID).Logger()
}
