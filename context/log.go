// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package context

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
)

var levelMap = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// InitLogger builds the process logger. Empty level and format fall back to
// LOG_LEVEL and LOG_FORMAT, then to "info" and "json".
func InitLogger(level, format string) (*slog.Logger, error) {
	return initLogger(os.Stdout, level, format)
}

func initLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
		if level == "" {
			level = "info"
		}
	}
	if format == "" {
		format = os.Getenv("LOG_FORMAT")
		if format == "" {
			format = "json"
		}
	}
	logLevel, ok := levelMap[strings.ToLower(level)]
	if !ok {
		var valid []string
		for k := range levelMap {
			valid = append(valid, k)
		}
		slices.Sort(valid)
		return nil, fmt.Errorf("invalid log level: %s; supported: %s", level, strings.Join(valid, ", "))
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format: %s; supported: json, text", format)
	}

	logger := slog.New(handler)
	// This sets a default global logger for both slog and legacy log packages.
	slog.SetDefault(logger)
	return logger, nil
}
