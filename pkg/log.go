package pkg

import (
	"io"
	"log/slog"

	console "github.com/phsym/console-slog"
)

const TraceLevel = slog.Level(-8)

func ParseLevel(level string) slog.Level {
	var lv slog.LevelVar
	if level == "trace" {
		lv.Set(TraceLevel)
	} else if err := lv.UnmarshalText([]byte(level)); err != nil {
		lv.Set(slog.LevelInfo)
	}
	return lv.Level()
}

// NewLogger returns a console logger writing to w at the given level name.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(console.NewHandler(w, &console.HandlerOptions{
		Level: ParseLevel(level),
	}))
}

// DiscardLogger drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 4}))
}

func OrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
