// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"sync"

	"github.com/gammazero/deque"

	"github.com/ringlog-foundation/ringlog/lib/shipment"
)

// Queue is a size-bounded FIFO of packed shipments between the
// collector loop and the shipper goroutine. When a Push would exceed
// the byte limit, the oldest shipments are dropped until the new one
// fits. This provides backpressure when the shipper can't keep up: the
// collector loses old shipments rather than exhausting memory.
//
// The notify channel (capacity 1) signals the shipper goroutine when
// new shipments are available. The shipper selects on Notify()
// alongside context cancellation.
//
// Thread-safe: all methods may be called concurrently.
type Queue struct {
	mu        sync.Mutex
	shipments deque.Deque[*shipment.Shipment]
	totalSize int
	maxSize   int
	dropped   uint64
	notify    chan struct{}
}

// NewQueue creates a Queue with the given maximum byte capacity.
// The maxSize must be positive.
func NewQueue(maxSize int) *Queue {
	if maxSize <= 0 {
		panic(fmt.Sprintf("queue: maxSize must be positive, got %d", maxSize))
	}
	return &Queue{
		maxSize: maxSize,
		notify:  make(chan struct{}, 1),
	}
}

// Push appends a shipment to the queue. If the single shipment exceeds
// maxSize, Push returns an error (this indicates a configuration
// problem — the drain window should be well below the queue size). If
// adding the shipment would exceed maxSize, the oldest shipments are
// dropped until it fits. Each dropped shipment increments the Dropped
// counter.
func (q *Queue) Push(batch *shipment.Shipment) error {
	if batch == nil {
		return fmt.Errorf("queue: refusing to push nil shipment")
	}
	size := batch.SizeBytes()
	if size > q.maxSize {
		return fmt.Errorf("queue: shipment size %d exceeds max queue size %d", size, q.maxSize)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	// Drop oldest shipments until there's room.
	for q.totalSize+size > q.maxSize && q.shipments.Len() > 0 {
		evicted := q.shipments.PopFront()
		q.totalSize -= evicted.SizeBytes()
		q.dropped++
	}

	q.shipments.PushBack(batch)
	q.totalSize += size

	// Non-blocking signal to the shipper.
	select {
	case q.notify <- struct{}{}:
	default:
	}

	return nil
}

// Peek returns the oldest shipment without removing it. Returns nil if
// the queue is empty.
func (q *Queue) Peek() *shipment.Shipment {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.shipments.Len() == 0 {
		return nil
	}
	return q.shipments.Front()
}

// Pop removes the oldest shipment. No-op if the queue is empty.
func (q *Queue) Pop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.shipments.Len() == 0 {
		return
	}
	evicted := q.shipments.PopFront()
	q.totalSize -= evicted.SizeBytes()
}

// Len returns the number of shipments in the queue.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.shipments.Len()
}

// SizeBytes returns the total byte size of all queued shipments.
func (q *Queue) SizeBytes() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.totalSize
}

// Dropped returns the total number of shipments dropped due to queue
// overflow since creation.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Notify returns a channel that receives a signal (at most once per
// Push) when new shipments are available. The shipper goroutine
// selects on this channel alongside its context to wake up for
// shipping.
func (q *Queue) Notify() <-chan struct{} {
	return q.notify
}
