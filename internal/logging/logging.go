// Package logging sets up the application logger. The terminal belongs to
// the UI, so logs go to a rotated file under the XDG state directory.
package logging

import (
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 3
	defaultMaxAgeDays = 28
)

// New creates a file-backed logger. path overrides the default location
// ($XDG_STATE_HOME/musix/musix.log); level is one of debug, info, warn,
// error (anything else falls back to info).
func New(path, level string) zerolog.Logger {
	if path == "" {
		path = filepath.Join(xdg.StateHome, "musix", "musix.log")
	}

	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    defaultMaxSizeMB,
		MaxBackups: defaultMaxBackups,
		MaxAge:     defaultMaxAgeDays,
	}

	return zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
