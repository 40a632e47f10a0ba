// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

package ring

import (
	"errors"
	"fmt"
)

// ErrFull is returned by Push when the store is at capacity. A framing
// write that hits ErrFull mid-frame leaves the partial frame in place;
// the next read surfaces the damage as ErrTruncated or
// ErrChecksumMismatch.
var ErrFull = errors.New("ring: store full")

// Store is a fixed-capacity circular byte buffer with one write
// position (head) and one read position (tail). One slot is sacrificed
// so that head == tail unambiguously means empty: the store holds at
// most capacity-1 live bytes, and a push that would advance head onto
// tail is rejected rather than overwriting unread data.
type Store struct {
	slots []byte
	// head is the next write index. Advances only on successful Push.
	head int
	// tail is the next read index. Advances only on Pop.
	tail int
}

// NewStore creates a store with the given slot count. Usable capacity
// is capacity-1 bytes (one slot is the empty/full discriminator).
// Panics if capacity < 2 — a store that cannot hold a single byte is a
// programming error, not a runtime condition.
func NewStore(capacity int) *Store {
	if capacity < 2 {
		panic(fmt.Sprintf("ring: capacity must be at least 2, got %d", capacity))
	}
	return &Store{slots: make([]byte, capacity)}
}

// Push writes one byte at head. Returns ErrFull when the store is at
// capacity; a rejected push does not move head.
func (store *Store) Push(value byte) error {
	next := (store.head + 1) % len(store.slots)
	if next == store.tail {
		return ErrFull
	}
	store.slots[store.head] = value
	store.head = next
	return nil
}

// Pop removes and returns the byte at tail. The second return is false
// when the store is empty, in which case tail does not move.
func (store *Store) Pop() (byte, bool) {
	if store.head == store.tail {
		return 0, false
	}
	value := store.slots[store.tail]
	store.tail = (store.tail + 1) % len(store.slots)
	return value, true
}

// Empty reports whether the store holds no bytes.
func (store *Store) Empty() bool {
	return store.head == store.tail
}

// Full reports whether the next Push would be rejected.
func (store *Store) Full() bool {
	return (store.head+1)%len(store.slots) == store.tail
}

// Len returns the number of live bytes in the store.
func (store *Store) Len() int {
	return (store.head - store.tail + len(store.slots)) % len(store.slots)
}

// Capacity returns the usable capacity in bytes: one less than the
// slot count.
func (store *Store) Capacity() int {
	return len(store.slots) - 1
}

// PeekAt returns the byte at the given offset from tail without
// consuming it. The bounded drain uses PeekAt to measure a frame
// before committing to consume it, so it must never move tail. Panics
// when offset lies outside the occupied region — callers bound their
// scans by Len, and a wild offset would read stale slot contents as if
// they were data.
func (store *Store) PeekAt(offset int) byte {
	if offset < 0 || offset >= store.Len() {
		panic(fmt.Sprintf("ring: peek offset %d outside occupied region (%d bytes)", offset, store.Len()))
	}
	return store.slots[(store.tail+offset)%len(store.slots)]
}
