// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

package ring

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

// mustWrite frames payload into store, failing the test on any error.
func mustWrite(t *testing.T, store *Store, payload []byte) {
	t.Helper()
	if err := WriteMessage(store, payload); err != nil {
		t.Fatalf("WriteMessage(%v): %v", payload, err)
	}
}

func TestDrainWholeStore(t *testing.T) {
	t.Parallel()
	store := NewStore(64)

	want := [][]byte{{10, 11}, {20}, {30, 31, 32}}
	for _, payload := range want {
		mustWrite(t, store, payload)
	}

	got, err := Drain(store, store.Capacity())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Drain returned %d payloads, want %d", len(got), len(want))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Fatalf("payload %d: got %v, want %v", i, got[i], want[i])
		}
	}
	if !store.Empty() {
		t.Fatalf("store not empty after full drain: %d bytes left", store.Len())
	}
}

func TestDrainRespectsBudget(t *testing.T) {
	t.Parallel()
	// Three 2-byte payloads, 4-byte footprint each (payload + checksum
	// + terminator), 12 bytes total.
	frames := [][]byte{{1, 2}, {3, 4}, {5, 6}}

	tests := []struct {
		budget     int
		wantFrames int
	}{
		{3, 0},  // smaller than one footprint
		{4, 1},  // exactly one
		{7, 1},  // one fits, two would exceed
		{8, 2},  // exactly two
		{11, 2}, // two fit, three would exceed
		{12, 3}, // exact total is not "exceeding"
	}

	for _, test := range tests {
		store := NewStore(64)
		for _, payload := range frames {
			mustWrite(t, store, payload)
		}

		got, err := Drain(store, test.budget)
		if err != nil {
			t.Fatalf("Drain(budget=%d): %v", test.budget, err)
		}
		if len(got) != test.wantFrames {
			t.Fatalf("Drain(budget=%d): got %d payloads, want %d", test.budget, len(got), test.wantFrames)
		}
		wantRemaining := (len(frames) - test.wantFrames) * 4
		if store.Len() != wantRemaining {
			t.Fatalf("Drain(budget=%d): %d bytes left, want %d", test.budget, store.Len(), wantRemaining)
		}
	}
}

func TestDrainNeverLeavesStoreMidFrame(t *testing.T) {
	t.Parallel()
	store := NewStore(64)

	mustWrite(t, store, []byte{1, 2})
	mustWrite(t, store, []byte{3, 4})

	// Budget admits only the first frame. The second must remain whole
	// and readable.
	if _, err := Drain(store, 5); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	got, err := ReadMessage(store)
	if err != nil {
		t.Fatalf("ReadMessage after bounded drain: %v", err)
	}
	if !bytes.Equal(got, []byte{3, 4}) {
		t.Fatalf("frame after bounded drain: got %v, want [3 4]", got)
	}
}

func TestDrainStopsAtIncompleteTrailingFrame(t *testing.T) {
	t.Parallel()
	store := NewStore(64)

	mustWrite(t, store, []byte{1, 2})
	mustWrite(t, store, []byte{3, 4})
	// A trailing frame still being written: payload bytes without
	// checksum or terminator.
	store.Push(9)
	store.Push(9)

	got, err := Drain(store, store.Capacity())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Drain returned %d payloads, want 2", len(got))
	}
	if store.Len() != 2 {
		t.Fatalf("incomplete frame bytes: got %d left, want 2", store.Len())
	}

	// Draining again finds nothing complete — still success.
	again, err := Drain(store, store.Capacity())
	if err != nil {
		t.Fatalf("second Drain: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("second Drain returned %d payloads, want 0", len(again))
	}
}

func TestDrainChecksumMismatchAbortsCall(t *testing.T) {
	t.Parallel()
	store := NewStore(64)

	mustWrite(t, store, []byte{10, 11})
	// A corrupt middle frame: stored checksum disagrees with the fold.
	for _, value := range []byte{20, 21, 0xEE, Terminator} {
		if err := store.Push(value); err != nil {
			t.Fatalf("Push(%d): %v", value, err)
		}
	}
	mustWrite(t, store, []byte{30, 31})

	payloads, err := Drain(store, store.Capacity())
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("Drain over corrupt frame: got %v, want ErrChecksumMismatch", err)
	}
	if payloads != nil {
		t.Fatalf("failed drain must discard accumulated payloads, got %v", payloads)
	}

	// The bad frame was consumed through its terminator; the next call
	// starts at the third frame's boundary.
	got, err := Drain(store, store.Capacity())
	if err != nil {
		t.Fatalf("Drain after abort: %v", err)
	}
	if len(got) != 1 || !bytes.Equal(got[0], []byte{30, 31}) {
		t.Fatalf("Drain after abort: got %v, want [[30 31]]", got)
	}
}

func TestDrainZeroChecksumFrameMidStream(t *testing.T) {
	t.Parallel()
	store := NewStore(64)

	// [1,2,3] folds to checksum 0: the frame ends in two zero bytes
	// and must not be misread as a shorter frame.
	mustWrite(t, store, []byte{1, 2, 3})
	mustWrite(t, store, []byte{9})

	got, err := Drain(store, store.Capacity())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Drain returned %d payloads, want 2", len(got))
	}
	if !bytes.Equal(got[0], []byte{1, 2, 3}) || !bytes.Equal(got[1], []byte{9}) {
		t.Fatalf("Drain payloads: got %v, want [[1 2 3] [9]]", got)
	}
	if !store.Empty() {
		t.Fatalf("store not empty: %d bytes left", store.Len())
	}
}

func TestDrainEmptyStore(t *testing.T) {
	t.Parallel()
	store := NewStore(16)

	got, err := Drain(store, 16)
	if err != nil {
		t.Fatalf("Drain on empty store: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Drain on empty store returned %d payloads", len(got))
	}
}

func TestDrainWriteInterleavingSoak(t *testing.T) {
	t.Parallel()
	store := NewStore(64)

	var written, recovered [][]byte
	drainInto := func(budget int) {
		t.Helper()
		payloads, err := Drain(store, budget)
		if err != nil {
			t.Fatalf("Drain: %v", err)
		}
		recovered = append(recovered, payloads...)
	}

	for i := 0; i < 60; i++ {
		payload := []byte(fmt.Sprintf("msg-%02d", i))

		// Make room the way a real caller must: drain before the frame
		// would not fit (a mid-frame ErrFull has no rollback).
		if store.Capacity()-store.Len() < len(payload)+2 {
			drainInto(32)
		}
		mustWrite(t, store, payload)
		written = append(written, payload)

		if i%5 == 0 {
			drainInto(16)
		}
	}
	for !store.Empty() {
		drainInto(store.Capacity())
	}

	if len(recovered) != len(written) {
		t.Fatalf("recovered %d payloads, want %d", len(recovered), len(written))
	}
	for i := range written {
		if !bytes.Equal(recovered[i], written[i]) {
			t.Fatalf("payload %d: got %q, want %q", i, recovered[i], written[i])
		}
	}
}
