// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/ringlog-foundation/ringlog/lib/clock"
	"github.com/ringlog-foundation/ringlog/lib/ring"
	"github.com/ringlog-foundation/ringlog/lib/shipment"
)

// frameOverhead is the number of bytes a frame adds around its
// payload: the checksum byte and the terminator.
const frameOverhead = 2

// Collector owns the ring store and turns accepted records into packed
// shipments. The store is not safe for concurrent use; Run is its
// serialization boundary — every write and drain happens on the Run
// goroutine. Created in run() and shared with nothing but the queue,
// which is thread-safe.
type Collector struct {
	store         *ring.Store
	queue         *Queue
	clock         clock.Clock
	logger        *slog.Logger
	drainWindow   int
	flushInterval time.Duration
	compression   shipment.CompressionTag

	sequence uint64
	stats    CollectorStats
}

// CollectorStats counts the collector's work. All fields are written
// only by the Run goroutine and are not synchronized; read them after
// Run has returned.
type CollectorStats struct {
	// Framed counts records written into the store.
	Framed uint64
	// DroppedOversize counts records whose frame footprint exceeds
	// the store capacity and could never fit.
	DroppedOversize uint64
	// DroppedNoSpace counts records the store could not take even
	// after an inline drain.
	DroppedNoSpace uint64
	// CorruptFrames counts frames discarded by drain on checksum
	// mismatch.
	CorruptFrames uint64
	// Shipments counts batches packed and pushed to the queue.
	Shipments uint64
}

// Run is the collector loop. It returns when ctx is cancelled or the
// records channel closes (input exhausted), after a final drain that
// packs everything left in the store.
func (c *Collector) Run(ctx context.Context, records <-chan []byte) {
	ticker := c.clock.NewTicker(c.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case record, ok := <-records:
			if !ok {
				c.drainAll()
				return
			}
			c.ingest(record)
		case <-ticker.C:
			c.flushOnce(c.drainWindow)
		case <-ctx.Done():
			c.drainAll()
			return
		}
	}
}

// Stats returns the collector's counters. Call only after Run has
// returned.
func (c *Collector) Stats() CollectorStats {
	return c.stats
}

// ingest frames one record into the store. WriteMessage has no
// rollback on a mid-frame ErrFull, so the write is never started
// unless the whole footprint fits: when space is short the store is
// drained inline first.
func (c *Collector) ingest(record []byte) {
	footprint := len(record) + frameOverhead
	if footprint > c.store.Capacity() {
		c.stats.DroppedOversize++
		c.logger.Warn("record larger than store, dropped",
			"record_bytes", len(record),
			"store_capacity", c.store.Capacity(),
		)
		return
	}

	if c.freeBytes() < footprint {
		c.drainAll()
		if c.freeBytes() < footprint {
			c.stats.DroppedNoSpace++
			c.logger.Warn("store still short after drain, record dropped",
				"record_bytes", len(record),
				"store_bytes", c.store.Len(),
			)
			return
		}
	}

	if err := ring.WriteMessage(c.store, record); err != nil {
		c.stats.DroppedNoSpace++
		c.logger.Error("frame write failed",
			"error", err,
			"record_bytes", len(record),
		)
		return
	}
	c.stats.Framed++
}

func (c *Collector) freeBytes() int {
	return c.store.Capacity() - c.store.Len()
}

// flushOnce performs one budgeted drain pass and packs whatever it
// yields. It reports whether another pass might make progress: true
// after a corrupt frame was discarded (complete frames may sit behind
// it), false after a clean pass.
func (c *Collector) flushOnce(budget int) bool {
	payloads, err := ring.Drain(c.store, budget)
	if len(payloads) > 0 {
		c.pack(payloads)
	}
	if err != nil {
		c.stats.CorruptFrames++
		c.logger.Warn("corrupt frame discarded",
			"error", err,
			"store_bytes", c.store.Len(),
		)
		return true
	}
	return false
}

// drainAll empties every complete frame from the store in
// full-capacity passes, packing each batch. A window-sized pass could
// never retire a frame wider than the window; the full budget
// guarantees progress, and repeating after a checksum failure resumes
// from the frame boundary behind the discarded frame.
func (c *Collector) drainAll() {
	for c.flushOnce(c.store.Capacity()) {
	}
}

// pack wraps drained payloads into the next shipment and queues it for
// the shipper.
func (c *Collector) pack(payloads [][]byte) {
	c.sequence++
	batch, err := shipment.Pack(c.sequence, c.clock.Now(), payloads, c.compression)
	if err != nil {
		c.logger.Error("pack failed, batch lost",
			"error", err,
			"messages", len(payloads),
		)
		return
	}
	if err := c.queue.Push(batch); err != nil {
		c.logger.Error("queue rejected shipment",
			"error", err,
			"shipment_bytes", batch.SizeBytes(),
		)
		return
	}
	c.stats.Shipments++
}
