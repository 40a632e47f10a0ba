// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ringlog-foundation/ringlog/lib/clock"
	"github.com/ringlog-foundation/ringlog/lib/codec"
	"github.com/ringlog-foundation/ringlog/lib/shipment"
)

// Shipper sends one packed shipment to the sink. The collector uses
// this interface so that tests can substitute a failing or recording
// implementation without touching the filesystem.
type Shipper interface {
	Ship(ctx context.Context, batch *shipment.Shipment) error
}

// writerShipper appends CBOR-encoded shipments to an io.Writer (the
// sink file or stdout). Ship consults the context before encoding; an
// in-progress write is not interruptible.
type writerShipper struct {
	encoder *codec.Encoder
}

// newWriterShipper creates a Shipper that appends each shipment to w
// as one CBOR item, forming a decodable stream.
func newWriterShipper(w io.Writer) *writerShipper {
	return &writerShipper{encoder: codec.NewEncoder(w)}
}

func (s *writerShipper) Ship(ctx context.Context, batch *shipment.Shipment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.encoder.Encode(batch); err != nil {
		return fmt.Errorf("encoding shipment %d: %w", batch.Sequence, err)
	}
	return nil
}

// Backoff constants for the shipper retry loop. Starts at
// initialBackoff and doubles on each consecutive failure, capped at
// maxBackoff. Resets to initialBackoff on success.
const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// runShipper drains the queue by shipping batches to the sink. It runs
// in its own goroutine for the collector's lifetime.
//
// The loop peeks at the oldest shipment, attempts to ship it, and pops
// it on success. On failure it backs off exponentially (1s → 2s → 4s
// → ... → 30s cap). When the context is cancelled, it makes one final
// drain pass with a short timeout before returning.
//
// The shipped counter is incremented atomically on each successful
// ship (main reads it for the final stats line).
func runShipper(ctx context.Context, queue *Queue, shipper Shipper, clk clock.Clock, shipped *atomic.Uint64, logger *slog.Logger) {
	backoff := initialBackoff

	for {
		// Wait for shipments or shutdown.
		select {
		case <-queue.Notify():
		case <-ctx.Done():
			drainQueue(queue, shipper, shipped, logger)
			return
		}

		// Drain all available shipments.
		for {
			batch := queue.Peek()
			if batch == nil {
				break
			}

			if err := shipper.Ship(ctx, batch); err != nil {
				if ctx.Err() != nil {
					drainQueue(queue, shipper, shipped, logger)
					return
				}
				logger.Warn("shipment failed, will retry",
					"error", err,
					"backoff", backoff,
					"queue_len", queue.Len(),
				)
				select {
				case <-clk.After(backoff):
				case <-ctx.Done():
					drainQueue(queue, shipper, shipped, logger)
					return
				}
				backoff = backoff * 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				continue
			}

			queue.Pop()
			shipped.Add(1)
			backoff = initialBackoff
		}
	}
}

// drainQueue makes one best-effort pass through the queue after
// shutdown, using a short timeout shared across the pass. This gives
// the shipments packed during graceful shutdown a chance to reach the
// sink.
func drainQueue(queue *Queue, shipper Shipper, shipped *atomic.Uint64, logger *slog.Logger) {
	const drainTimeout = 5 * time.Second
	drainContext, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		batch := queue.Peek()
		if batch == nil {
			return
		}
		if err := shipper.Ship(drainContext, batch); err != nil {
			logger.Warn("drain: shipment failed, abandoning remaining",
				"error", err,
				"remaining", queue.Len(),
			)
			return
		}
		queue.Pop()
		shipped.Add(1)
	}
}
