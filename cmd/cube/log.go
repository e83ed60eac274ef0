package main

import (
	"io"
	"log/slog"
	"os"
)

// logConfig configures handling of log events.
type logConfig struct {
	Level  string `long:"level" env:"LEVEL" default:"warn" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Logging level"`
	Format string `long:"format" env:"FORMAT" default:"text" choice:"text" choice:"json" description:"Logging output format"`
}

// newLogger builds the logger for a command run, writing to stderr.
func (cfg logConfig) newLogger() *slog.Logger {
	return cfg.newLoggerTo(os.Stderr)
}

func (cfg logConfig) newLoggerTo(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
