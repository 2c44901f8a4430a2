// Package logging configures the process-wide slog logger: level, format,
// destination, and rotation for file destinations.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger setup. File is "stderr", "stdout", or a path;
// paths are size-rotated. Quiet discards all output regardless of the other
// settings.
type Options struct {
	File       string
	Level      string // debug, info, warn, error
	Format     string // text, json
	Quiet      bool
	MaxSizeMB  int // rotation threshold
	MaxBackups int // rotated files to keep
	MaxAgeDays int // 0 keeps rotated files forever
}

// Setup builds the logger and installs it as the slog default.
func Setup(opts Options) (*slog.Logger, error) {
	var level slog.Level
	switch opts.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning", "":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", opts.Level)
	}

	var w io.Writer
	switch {
	case opts.Quiet:
		w = io.Discard
	case opts.File == "stderr" || opts.File == "":
		w = os.Stderr
	case opts.File == "stdout":
		w = os.Stdout
	default:
		w = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
	}

	hopts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch opts.Format {
	case "json":
		handler = slog.NewJSONHandler(w, hopts)
	case "text", "":
		handler = slog.NewTextHandler(w, hopts)
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}
