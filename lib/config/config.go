// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for ringlog components.
//
// Configuration is loaded from a single file specified by:
//   - RINGLOG_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures deterministic,
// auditable configuration with no hidden overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for the collector.
type Config struct {
	// Store configures the in-memory ring store.
	Store StoreConfig `yaml:"store"`

	// Collector configures batching and queueing behavior.
	Collector CollectorConfig `yaml:"collector"`

	// Sink configures where shipments are written.
	Sink SinkConfig `yaml:"sink"`
}

// StoreConfig configures the ring store that buffers framed messages
// between ingest and drain.
type StoreConfig struct {
	// Capacity is the ring slot count. One slot is sacrificed to
	// distinguish full from empty, so usable capacity is Capacity-1.
	// Must be at least 2. Default: 4096.
	Capacity int `yaml:"capacity"`

	// DrainWindowBytes caps the bytes removed from the store per
	// drain pass. A complete frame must fit within the window or it
	// stays in the store, so this must be at least 3 (the smallest
	// frame footprint: one payload byte, checksum, terminator).
	// Default: 512.
	DrainWindowBytes int `yaml:"drain_window_bytes"`
}

// CollectorConfig configures batching and queueing behavior.
type CollectorConfig struct {
	// FlushInterval is the drain cadence as a Go duration string
	// ("250ms", "2s"). Default: 250ms.
	FlushInterval string `yaml:"flush_interval"`

	// QueueMaxBytes bounds the shipment queue between the collector
	// loop and the shipper. When the bound is exceeded, the oldest
	// shipments are dropped. Default: 8 MiB.
	QueueMaxBytes int `yaml:"queue_max_bytes"`

	// Compression selects the shipment body compression.
	// Values: "none", "lz4", "zstd". Default: zstd.
	Compression string `yaml:"compression"`
}

// SinkConfig configures where shipments are written.
type SinkConfig struct {
	// Type selects the sink implementation.
	// Values: "file" (append CBOR stream to Path), "stdout".
	// Default: file.
	Type string `yaml:"type"`

	// Path is the shipment stream file for the "file" sink type.
	// Supports ${HOME} and ${VAR:-default} expansion.
	Path string `yaml:"path"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "ringlog")

	return &Config{
		Store: StoreConfig{
			Capacity:         4096,
			DrainWindowBytes: 512,
		},
		Collector: CollectorConfig{
			FlushInterval: "250ms",
			QueueMaxBytes: 8 * 1024 * 1024,
			Compression:   "zstd",
		},
		Sink: SinkConfig{
			Type: "file",
			Path: filepath.Join(defaultRoot, "shipments.cbor"),
		},
	}
}

// Load loads configuration from RINGLOG_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults - if RINGLOG_CONFIG is not set, this fails.
// This ensures deterministic, auditable configuration with no hidden overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("RINGLOG_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("RINGLOG_CONFIG environment variable not set; " +
			"set it to the path of your ringlog.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables do not
// override config values - this ensures deterministic, auditable configuration.
// The only expansion performed is ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// Expand ${HOME} and similar variables in paths for portability.
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Sink.Path = expandVars(c.Sink.Path, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Store.Capacity < 2 {
		errs = append(errs, fmt.Errorf("store.capacity must be at least 2, got %d", c.Store.Capacity))
	}

	if c.Store.DrainWindowBytes < 3 {
		errs = append(errs, fmt.Errorf("store.drain_window_bytes must be at least 3 (smallest frame footprint), got %d",
			c.Store.DrainWindowBytes))
	}

	if interval, err := time.ParseDuration(c.Collector.FlushInterval); err != nil {
		errs = append(errs, fmt.Errorf("collector.flush_interval: %w", err))
	} else if interval <= 0 {
		errs = append(errs, fmt.Errorf("collector.flush_interval must be positive, got %s", interval))
	}

	if c.Collector.QueueMaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("collector.queue_max_bytes must be positive, got %d", c.Collector.QueueMaxBytes))
	}

	compressionValues := []string{"none", "lz4", "zstd"}
	if !contains(compressionValues, c.Collector.Compression) {
		errs = append(errs, fmt.Errorf("collector.compression must be one of: %v", compressionValues))
	}

	sinkTypes := []string{"file", "stdout"}
	if !contains(sinkTypes, c.Sink.Type) {
		errs = append(errs, fmt.Errorf("sink.type must be one of: %v", sinkTypes))
	}

	if c.Sink.Type == "file" && c.Sink.Path == "" {
		errs = append(errs, fmt.Errorf("sink.path is required for the file sink"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsureSinkDir creates the parent directory of the sink path if it
// doesn't exist. No-op for non-file sinks.
func (c *Config) EnsureSinkDir() error {
	if c.Sink.Type != "file" || c.Sink.Path == "" {
		return nil
	}

	dir := filepath.Dir(c.Sink.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
