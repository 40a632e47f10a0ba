// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

// Package ring implements ringlog's fixed-capacity circular byte store
// and the message framing protocol layered on top of it.
//
// A Store is a one-slot-sacrifice ring: head is the next write index,
// tail the next read index, and head == tail always means empty. One
// slot is never used for data, so a full store ((head+1) mod N == tail)
// is distinguishable from an empty one without a separate counter.
// Push and Pop are O(1); the store is never resized and unread data is
// never overwritten.
//
// Messages are framed as payload bytes, one XOR checksum byte, and a
// 0x00 terminator:
//
//	[payload...][checksum][0x00]
//
// WriteMessage frames through Store.Push. ReadMessage pops one frame
// and verifies its checksum. Drain removes whole frames up to a byte
// budget, measuring each frame with non-destructive peeks before
// committing to consume it, so a bounded transfer window (a DMA slot,
// a fixed-size packet) never strands the store mid-frame.
//
// Payloads must be non-empty and must not contain the terminator
// value. The first rule is enforced (ErrEmptyPayload); the second is a
// caller contract that the framer deliberately does not police — a
// violating payload corrupts framing in a way the checksum usually,
// but not always, detects.
//
// The store is not safe for concurrent use. The collector owns its
// store from a single goroutine; callers adding concurrency must lock
// externally.
package ring
