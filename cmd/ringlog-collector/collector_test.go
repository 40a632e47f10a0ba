// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ringlog-foundation/ringlog/lib/clock"
	"github.com/ringlog-foundation/ringlog/lib/ring"
	"github.com/ringlog-foundation/ringlog/lib/shipment"
	"github.com/ringlog-foundation/ringlog/lib/testutil"
)

const testFlushInterval = 250 * time.Millisecond

// newTestCollector builds a collector around the given clock with
// uncompressed shipments so assertions see exact payloads.
func newTestCollector(capacity, window int, clk clock.Clock) *Collector {
	return &Collector{
		store:         ring.NewStore(capacity),
		queue:         NewQueue(1 << 20),
		clock:         clk,
		logger:        slog.Default(),
		drainWindow:   window,
		flushInterval: testFlushInterval,
		compression:   shipment.CompressionNone,
	}
}

// unpack decodes a shipment's payloads as strings, failing the test on
// a decode error.
func unpack(t *testing.T, batch *shipment.Shipment) []string {
	t.Helper()
	payloads, err := batch.Unpack()
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	messages := make([]string, len(payloads))
	for i, payload := range payloads {
		messages[i] = string(payload)
	}
	return messages
}

func TestCollectorFlushTickPacksShipment(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fakeClock := clock.Fake(epoch)
	collector := newTestCollector(256, 64, fakeClock)
	records := make(chan []byte)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		collector.Run(ctx, records)
		close(done)
	}()

	testutil.RequireSend(t, records, []byte("first event"), time.Second, "record delivery")
	testutil.RequireSend(t, records, []byte("second event"), time.Second, "record delivery")

	fakeClock.WaitForTimers(1)
	fakeClock.Advance(testFlushInterval)
	testutil.RequireReceive(t, collector.queue.Notify(), 5*time.Second, "flush notification")

	cancel()
	testutil.RequireClosed(t, done, 5*time.Second, "collector exit")

	if collector.queue.Len() != 1 {
		t.Fatalf("expected 1 shipment, got %d", collector.queue.Len())
	}
	batch := collector.queue.Peek()
	if batch.Sequence != 1 {
		t.Fatalf("expected sequence 1, got %d", batch.Sequence)
	}
	if batch.MessageCount != 2 {
		t.Fatalf("expected 2 messages, got %d", batch.MessageCount)
	}
	messages := unpack(t, batch)
	want := []string{"first event", "second event"}
	if !reflect.DeepEqual(messages, want) {
		t.Fatalf("expected %v, got %v", want, messages)
	}
	if !batch.CreatedTime().Equal(epoch.Add(testFlushInterval)) {
		t.Fatalf("expected created at %v, got %v", epoch.Add(testFlushInterval), batch.CreatedTime())
	}

	stats := collector.Stats()
	if stats.Framed != 2 {
		t.Fatalf("expected 2 framed, got %d", stats.Framed)
	}
	if stats.Shipments != 1 {
		t.Fatalf("expected 1 shipment packed, got %d", stats.Shipments)
	}
}

func TestCollectorEmptyTickShipsNothing(t *testing.T) {
	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	collector := newTestCollector(256, 64, fakeClock)
	records := make(chan []byte)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		collector.Run(ctx, records)
		close(done)
	}()

	// First tick fires with nothing buffered; only the tick after the
	// record lands produces a shipment. Whichever tick the loop
	// observes, exactly one shipment with one message comes out.
	fakeClock.WaitForTimers(1)
	fakeClock.Advance(testFlushInterval)
	testutil.RequireSend(t, records, []byte("solo"), time.Second, "record delivery")
	fakeClock.Advance(testFlushInterval)
	testutil.RequireReceive(t, collector.queue.Notify(), 5*time.Second, "flush notification")

	cancel()
	testutil.RequireClosed(t, done, 5*time.Second, "collector exit")

	if collector.queue.Len() != 1 {
		t.Fatalf("expected 1 shipment, got %d", collector.queue.Len())
	}
	batch := collector.queue.Peek()
	if batch.Sequence != 1 {
		t.Fatalf("expected sequence 1, got %d", batch.Sequence)
	}
	if messages := unpack(t, batch); !reflect.DeepEqual(messages, []string{"solo"}) {
		t.Fatalf("expected [solo], got %v", messages)
	}
}

func TestCollectorInlineDrainOnPressure(t *testing.T) {
	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	// Usable capacity 63: two 20-byte records (22-byte footprints)
	// fit, the third forces an inline drain.
	collector := newTestCollector(64, 16, fakeClock)
	records := make(chan []byte)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		collector.Run(ctx, records)
		close(done)
	}()

	first := strings.Repeat("a", 20)
	second := strings.Repeat("b", 20)
	third := strings.Repeat("c", 20)
	testutil.RequireSend(t, records, []byte(first), time.Second, "record delivery")
	testutil.RequireSend(t, records, []byte(second), time.Second, "record delivery")
	testutil.RequireSend(t, records, []byte(third), time.Second, "record delivery")

	// No tick has fired; the shipment can only come from the inline
	// drain that made room for the third record.
	testutil.RequireReceive(t, collector.queue.Notify(), 5*time.Second, "inline drain notification")

	cancel()
	testutil.RequireClosed(t, done, 5*time.Second, "collector exit")

	if collector.queue.Len() != 2 {
		t.Fatalf("expected 2 shipments, got %d", collector.queue.Len())
	}
	batch := collector.queue.Peek()
	if batch.Sequence != 1 {
		t.Fatalf("expected sequence 1, got %d", batch.Sequence)
	}
	if messages := unpack(t, batch); !reflect.DeepEqual(messages, []string{first, second}) {
		t.Fatalf("expected first two records, got %v", messages)
	}

	// The shutdown drain packed the third record.
	collector.queue.Pop()
	batch = collector.queue.Peek()
	if batch.Sequence != 2 {
		t.Fatalf("expected sequence 2, got %d", batch.Sequence)
	}
	if messages := unpack(t, batch); !reflect.DeepEqual(messages, []string{third}) {
		t.Fatalf("expected third record, got %v", messages)
	}

	stats := collector.Stats()
	if stats.Framed != 3 {
		t.Fatalf("expected 3 framed, got %d", stats.Framed)
	}
	if stats.DroppedNoSpace != 0 {
		t.Fatalf("expected 0 no-space drops, got %d", stats.DroppedNoSpace)
	}
	if stats.Shipments != 2 {
		t.Fatalf("expected 2 shipments packed, got %d", stats.Shipments)
	}
}

func TestCollectorOversizeRecordDropped(t *testing.T) {
	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	// Usable capacity 31; a 40-byte record can never fit.
	collector := newTestCollector(32, 16, fakeClock)
	records := make(chan []byte)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		collector.Run(ctx, records)
		close(done)
	}()

	testutil.RequireSend(t, records, []byte(strings.Repeat("x", 40)), time.Second, "record delivery")

	cancel()
	testutil.RequireClosed(t, done, 5*time.Second, "collector exit")

	stats := collector.Stats()
	if stats.DroppedOversize != 1 {
		t.Fatalf("expected 1 oversize drop, got %d", stats.DroppedOversize)
	}
	if stats.Framed != 0 {
		t.Fatalf("expected 0 framed, got %d", stats.Framed)
	}
	if collector.queue.Len() != 0 {
		t.Fatalf("expected empty queue, got %d shipments", collector.queue.Len())
	}
}

func TestCollectorInputExhaustedDrains(t *testing.T) {
	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	collector := newTestCollector(256, 64, fakeClock)
	records := make(chan []byte)

	done := make(chan struct{})
	go func() {
		collector.Run(context.Background(), records)
		close(done)
	}()

	record := testutil.UniqueID("tail-event")
	testutil.RequireSend(t, records, []byte(record), time.Second, "record delivery")
	close(records)
	testutil.RequireClosed(t, done, 5*time.Second, "collector exit")

	if collector.queue.Len() != 1 {
		t.Fatalf("expected 1 shipment, got %d", collector.queue.Len())
	}
	if messages := unpack(t, collector.queue.Peek()); !reflect.DeepEqual(messages, []string{record}) {
		t.Fatalf("expected [%s], got %v", record, messages)
	}
}

func TestCollectorShutdownDrainFlushesBacklog(t *testing.T) {
	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	collector := newTestCollector(256, 64, fakeClock)
	records := make(chan []byte)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		collector.Run(ctx, records)
		close(done)
	}()

	testutil.RequireSend(t, records, []byte("pending one"), time.Second, "record delivery")
	testutil.RequireSend(t, records, []byte("pending two"), time.Second, "record delivery")

	// No tick fires; cancellation alone must recover the backlog.
	cancel()
	testutil.RequireClosed(t, done, 5*time.Second, "collector exit")

	if collector.queue.Len() != 1 {
		t.Fatalf("expected 1 shipment, got %d", collector.queue.Len())
	}
	messages := unpack(t, collector.queue.Peek())
	want := []string{"pending one", "pending two"}
	if !reflect.DeepEqual(messages, want) {
		t.Fatalf("expected %v, got %v", want, messages)
	}
}

func TestCollectorCorruptFrameDiscardedOnDrain(t *testing.T) {
	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	collector := newTestCollector(256, 64, fakeClock)
	store := collector.store

	if err := ring.WriteMessage(store, []byte("good before")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	// Hand-write a frame whose stored checksum disagrees with its
	// payload.
	for _, value := range []byte("evil") {
		if err := store.Push(value); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	if err := store.Push(ring.Checksum([]byte("evil")) ^ 0xFF); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := store.Push(ring.Terminator); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := ring.WriteMessage(store, []byte("good after")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	collector.drainAll()

	// The drain pass that hit the corrupt frame discarded its own
	// accumulation ("good before" included); the following pass
	// recovered the frame behind it.
	stats := collector.Stats()
	if stats.CorruptFrames != 1 {
		t.Fatalf("expected 1 corrupt frame, got %d", stats.CorruptFrames)
	}
	if stats.Shipments != 1 {
		t.Fatalf("expected 1 shipment, got %d", stats.Shipments)
	}
	if messages := unpack(t, collector.queue.Peek()); !reflect.DeepEqual(messages, []string{"good after"}) {
		t.Fatalf("expected [good after], got %v", messages)
	}
	if !store.Empty() {
		t.Fatalf("expected empty store, got %d bytes", store.Len())
	}
}

func TestCollectorTornFrameCannotBeReclaimed(t *testing.T) {
	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	// Usable capacity 31.
	collector := newTestCollector(32, 16, fakeClock)
	store := collector.store

	// A torn frame — payload bytes without a terminator — occupies
	// space no drain can reclaim.
	for i := 0; i < 25; i++ {
		if err := store.Push(0x41); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}

	collector.ingest([]byte("0123456789"))

	stats := collector.Stats()
	if stats.DroppedNoSpace != 1 {
		t.Fatalf("expected 1 no-space drop, got %d", stats.DroppedNoSpace)
	}
	if stats.Framed != 0 {
		t.Fatalf("expected 0 framed, got %d", stats.Framed)
	}
	if collector.queue.Len() != 0 {
		t.Fatalf("expected empty queue, got %d shipments", collector.queue.Len())
	}
	if store.Len() != 25 {
		t.Fatalf("expected torn frame left in place, store has %d bytes", store.Len())
	}
}

func TestCollectorWindowBudgetSplitsFlushes(t *testing.T) {
	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	// Window 16 holds one 12-byte footprint, not two.
	collector := newTestCollector(256, 16, fakeClock)
	records := make(chan []byte)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		collector.Run(ctx, records)
		close(done)
	}()

	first := strings.Repeat("a", 10)
	second := strings.Repeat("b", 10)
	testutil.RequireSend(t, records, []byte(first), time.Second, "record delivery")
	testutil.RequireSend(t, records, []byte(second), time.Second, "record delivery")

	fakeClock.WaitForTimers(1)
	fakeClock.Advance(testFlushInterval)
	testutil.RequireReceive(t, collector.queue.Notify(), 5*time.Second, "first flush")
	fakeClock.Advance(testFlushInterval)
	testutil.RequireReceive(t, collector.queue.Notify(), 5*time.Second, "second flush")

	cancel()
	testutil.RequireClosed(t, done, 5*time.Second, "collector exit")

	if collector.queue.Len() != 2 {
		t.Fatalf("expected 2 shipments, got %d", collector.queue.Len())
	}
	batch := collector.queue.Peek()
	if batch.Sequence != 1 {
		t.Fatalf("expected sequence 1, got %d", batch.Sequence)
	}
	if messages := unpack(t, batch); !reflect.DeepEqual(messages, []string{first}) {
		t.Fatalf("expected first record alone, got %v", messages)
	}

	collector.queue.Pop()
	batch = collector.queue.Peek()
	if batch.Sequence != 2 {
		t.Fatalf("expected sequence 2, got %d", batch.Sequence)
	}
	if messages := unpack(t, batch); !reflect.DeepEqual(messages, []string{second}) {
		t.Fatalf("expected second record alone, got %v", messages)
	}
}
