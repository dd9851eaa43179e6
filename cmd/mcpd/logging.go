package main

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the operational logger for mcpd. When the stdio
// transport is in use, stdout is reserved for the MCP JSON-RPC stream, so
// operational logs go only to the rotated file and stderr; otherwise they
// also go to stdout.
func newLogger(logPath string, alsoStdout bool) *slog.Logger {
	fileLogger := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
		Compress:   true,
	}

	var w io.Writer = io.MultiWriter(fileLogger, os.Stderr)
	if alsoStdout {
		w = io.MultiWriter(fileLogger, os.Stderr, os.Stdout)
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
