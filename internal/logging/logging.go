// Package logging configures the process-wide structured logger. Output is
// one JSON object per line on stdout so journald or a file tail can consume
// it without a parser of its own.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

var levelVar = new(slog.LevelVar)

// Setup parses level, installs a JSON handler as the slog default and
// returns a logger carrying the daemon identity.
func Setup(level, version string) (*slog.Logger, error) {
	if err := SetLevel(level); err != nil {
		return nil, err
	}
	return build(os.Stdout, version), nil
}

// SetLevel adjusts the minimum level of all loggers created by Setup.
func SetLevel(level string) error {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if normalized == "" {
		normalized = "info"
	}
	if err := levelVar.UnmarshalText([]byte(normalized)); err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	return nil
}

func build(w io.Writer, version string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelVar})
	logger := slog.New(handler).With("service", "loggard", "version", version)
	slog.SetDefault(logger)
	return logger
}
