// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"flag"
	"log/slog"
	"os"
)

// CommonFlags holds the flag values shared by all ringlog service
// binaries. Call [RegisterCommonFlags] to bind these to the default
// flag set before calling flag.Parse.
type CommonFlags struct {
	ConfigPath  string
	ShowVersion bool
}

// RegisterCommonFlags binds [CommonFlags] fields to the default flag
// set with standard names, defaults, and help text. Service binaries
// call this before flag.Parse, then register any service-specific
// flags before parsing.
func RegisterCommonFlags(flags *CommonFlags) {
	flag.StringVar(&flags.ConfigPath, "config", "", "path to the YAML config file (overrides RINGLOG_CONFIG)")
	flag.BoolVar(&flags.ShowVersion, "version", false, "print version information and exit")
}

// NewLogger creates the standard ringlog service logger: a JSON
// handler writing to stderr at Info level. It also sets the default
// slog logger so that third-party code using slog.Info etc. gets
// the same handler.
func NewLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}
