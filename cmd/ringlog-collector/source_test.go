// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ringlog-foundation/ringlog/lib/testutil"
)

func TestSourceDeliversRecords(t *testing.T) {
	source := NewSource(strings.NewReader("alpha\nbeta\ngamma\n"), 1024, slog.Default())
	records := make(chan []byte, 8)

	if err := source.Run(context.Background(), records); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var got []string
	for record := range records {
		got = append(got, string(record))
	}
	want := []string{"alpha", "beta", "gamma"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if source.accepted.Load() != 3 {
		t.Fatalf("expected 3 accepted, got %d", source.accepted.Load())
	}
}

func TestSourceSkipsEmptyLines(t *testing.T) {
	source := NewSource(strings.NewReader("one\n\ntwo\n\n\nthree\n"), 1024, slog.Default())
	records := make(chan []byte, 8)

	if err := source.Run(context.Background(), records); err != nil {
		t.Fatalf("Run: %v", err)
	}

	count := 0
	for range records {
		count++
	}
	if count != 3 {
		t.Fatalf("expected 3 records, got %d", count)
	}
	if source.rejectedEmpty.Load() != 3 {
		t.Fatalf("expected 3 empty rejections, got %d", source.rejectedEmpty.Load())
	}
}

func TestSourceRejectsNULRecords(t *testing.T) {
	source := NewSource(strings.NewReader("good\nbad\x00record\nalso good\n"), 1024, slog.Default())
	records := make(chan []byte, 8)

	if err := source.Run(context.Background(), records); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var got []string
	for record := range records {
		got = append(got, string(record))
	}
	want := []string{"good", "also good"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if source.rejectedNUL.Load() != 1 {
		t.Fatalf("expected 1 NUL rejection, got %d", source.rejectedNUL.Load())
	}
}

func TestSourceCopiesRecords(t *testing.T) {
	// The scanner reuses its internal buffer between lines, so records
	// must be copied before sending.
	var input strings.Builder
	for i := 0; i < 3; i++ {
		fmt.Fprintf(&input, "%s\n", strings.Repeat(string(rune('a'+i)), 64))
	}
	source := NewSource(strings.NewReader(input.String()), 1024, slog.Default())
	records := make(chan []byte, 8)

	if err := source.Run(context.Background(), records); err != nil {
		t.Fatalf("Run: %v", err)
	}

	index := 0
	for record := range records {
		want := strings.Repeat(string(rune('a'+index)), 64)
		if string(record) != want {
			t.Fatalf("record %d: expected %q, got %q", index, want, record)
		}
		index++
	}
}

func TestSourceContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	source := NewSource(strings.NewReader("stuck\n"), 1024, slog.Default())
	records := make(chan []byte) // no reader; the send blocks

	done := make(chan error, 1)
	go func() {
		done <- source.Run(ctx, records)
	}()

	cancel()
	err := testutil.RequireReceive(t, done, 5*time.Second, "source exit")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// The records channel must be closed even on the cancel path.
	if _, ok := <-records; ok {
		t.Fatal("expected records channel to be closed")
	}
}

func TestSourceTooLongRecord(t *testing.T) {
	source := NewSource(strings.NewReader(strings.Repeat("x", 100)+"\n"), 16, slog.Default())
	records := make(chan []byte, 4)

	err := source.Run(context.Background(), records)
	if !errors.Is(err, bufio.ErrTooLong) {
		t.Fatalf("expected bufio.ErrTooLong, got %v", err)
	}
}

func TestNewSourcePanicsOnNonPositiveMaxLineBytes(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for maxLineBytes=0")
		}
	}()
	NewSource(strings.NewReader(""), 0, slog.Default())
}
