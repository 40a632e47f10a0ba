// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ringlog-foundation/ringlog/lib/clock"
	"github.com/ringlog-foundation/ringlog/lib/config"
	"github.com/ringlog-foundation/ringlog/lib/ring"
	"github.com/ringlog-foundation/ringlog/lib/service"
	"github.com/ringlog-foundation/ringlog/lib/shipment"
	"github.com/ringlog-foundation/ringlog/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var flags service.CommonFlags
	service.RegisterCommonFlags(&flags)

	// Collector-specific flags.
	inputPath := flag.String("input", "",
		"read records from this file instead of stdin")
	maxLineBytes := flag.Int("max-line-bytes", 1024*1024,
		"maximum accepted record length in bytes")

	flag.Parse()

	if flags.ShowVersion {
		fmt.Printf("ringlog-collector %s\n", version.Info())
		return nil
	}

	logger := service.NewLogger()

	var cfg *config.Config
	var err error
	if flags.ConfigPath != "" {
		cfg, err = config.LoadFile(flags.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureSinkDir(); err != nil {
		return err
	}

	flushInterval, err := time.ParseDuration(cfg.Collector.FlushInterval)
	if err != nil {
		return fmt.Errorf("collector.flush_interval: %w", err)
	}
	compression, err := shipment.ParseCompressionTag(cfg.Collector.Compression)
	if err != nil {
		return fmt.Errorf("collector.compression: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var input io.Reader = os.Stdin
	inputName := "stdin"
	if *inputPath != "" {
		file, err := os.Open(*inputPath)
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer file.Close()
		input = file
		inputName = *inputPath
	}

	var sink io.Writer
	sinkName := "stdout"
	switch cfg.Sink.Type {
	case "file":
		file, err := os.OpenFile(cfg.Sink.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("opening sink: %w", err)
		}
		defer file.Close()
		sink = file
		sinkName = cfg.Sink.Path
	case "stdout":
		sink = os.Stdout
	default:
		return fmt.Errorf("unsupported sink type %q", cfg.Sink.Type)
	}

	collector := &Collector{
		store:         ring.NewStore(cfg.Store.Capacity),
		queue:         NewQueue(cfg.Collector.QueueMaxBytes),
		clock:         clock.Real(),
		logger:        logger,
		drainWindow:   cfg.Store.DrainWindowBytes,
		flushInterval: flushInterval,
		compression:   compression,
	}
	source := NewSource(input, *maxLineBytes, logger)
	shipper := newWriterShipper(sink)

	records := make(chan []byte)

	sourceDone := make(chan error, 1)
	go func() {
		sourceDone <- source.Run(ctx, records)
	}()

	collectorDone := make(chan struct{})
	go func() {
		collector.Run(ctx, records)
		close(collectorDone)
	}()

	// The shipper gets its own context so that its final drain pass
	// starts only after the collector has queued its last shipments,
	// whether shutdown came from a signal or from input exhaustion.
	shipperCtx, stopShipper := context.WithCancel(context.Background())
	defer stopShipper()

	var shipped atomic.Uint64
	shipperDone := make(chan struct{})
	go func() {
		runShipper(shipperCtx, collector.queue, shipper, collector.clock, &shipped, logger)
		close(shipperDone)
	}()

	logger.Info("ringlog collector running",
		"input", inputName,
		"sink", sinkName,
		"store_capacity", cfg.Store.Capacity,
		"drain_window", cfg.Store.DrainWindowBytes,
		"flush_interval", flushInterval,
		"queue_max", cfg.Collector.QueueMaxBytes,
		"compression", cfg.Collector.Compression,
	)

	// Run until the input is exhausted or a signal arrives. Either way
	// the collector finishes with a full drain of the store.
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case <-collectorDone:
		logger.Info("input exhausted")
	}
	<-collectorDone

	// Report a source error when one is already available. A source
	// blocked in a stdin read cannot be interrupted; it is abandoned to
	// process exit.
	select {
	case err := <-sourceDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("input read failed", "error", err)
		}
	default:
	}

	// The collector queued its final shipments; let the shipper drain.
	stopShipper()
	<-shipperDone

	stats := collector.Stats()
	logger.Info("collector stopped",
		"records_accepted", source.accepted.Load(),
		"records_rejected_empty", source.rejectedEmpty.Load(),
		"records_rejected_nul", source.rejectedNUL.Load(),
		"frames_written", stats.Framed,
		"dropped_oversize", stats.DroppedOversize,
		"dropped_no_space", stats.DroppedNoSpace,
		"corrupt_frames", stats.CorruptFrames,
		"shipments_packed", stats.Shipments,
		"shipments_shipped", shipped.Load(),
		"shipments_dropped", collector.queue.Dropped(),
	)
	return nil
}
