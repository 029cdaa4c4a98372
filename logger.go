package graphkv

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var logLevel = new(slog.LevelVar)

// ConfigureLogging installs the default slog logger of the server.
//
// GRAPHKV_LOG_LEVEL picks the level (DEBUG, INFO, WARN or ERROR, case insensitive, Info when unset
// or unknown). GRAPHKV_LOG_FORMAT=json switches from text to JSON lines.
func ConfigureLogging() {
	slog.SetDefault(newLogger(os.Stdout, os.Getenv("GRAPHKV_LOG_LEVEL"), os.Getenv("GRAPHKV_LOG_FORMAT")))
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		l = slog.LevelInfo
	}
	logLevel.Set(l)

	opts := &slog.HandlerOptions{Level: logLevel}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SetLogLevel changes the level of the logger installed by ConfigureLogging.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}
