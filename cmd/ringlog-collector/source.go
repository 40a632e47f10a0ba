// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
)

// Source reads newline-delimited records from an input stream and
// delivers them to the collector loop. Records that violate the
// framing contract are rejected here so the store only ever sees
// frameable payloads: empty lines carry nothing to frame, and a record
// containing a NUL byte would be indistinguishable from a frame
// terminator.
//
// The counters are atomic because main reads them for the final stats
// line while the source goroutine may still be blocked in a read.
type Source struct {
	reader       io.Reader
	maxLineBytes int
	logger       *slog.Logger

	accepted      atomic.Uint64
	rejectedEmpty atomic.Uint64
	rejectedNUL   atomic.Uint64
}

// NewSource creates a Source reading from reader. Records longer than
// maxLineBytes abort the scan with bufio.ErrTooLong; maxLineBytes must
// be positive.
func NewSource(reader io.Reader, maxLineBytes int, logger *slog.Logger) *Source {
	if maxLineBytes <= 0 {
		panic(fmt.Sprintf("source: maxLineBytes must be positive, got %d", maxLineBytes))
	}
	return &Source{
		reader:       reader,
		maxLineBytes: maxLineBytes,
		logger:       logger,
	}
}

// Run scans the input until EOF, a read error, or context
// cancellation, sending each accepted record on records. The channel
// is closed when Run returns so the collector loop can tell input
// exhaustion from shutdown. Each record is copied out of the scanner
// before sending; the next Scan call overwrites the scanner's view.
//
// A Read blocked on an interactive stdin cannot be interrupted by the
// context; cancellation then takes effect at the next line boundary,
// or the goroutine is abandoned to process exit.
func (s *Source) Run(ctx context.Context, records chan<- []byte) error {
	defer close(records)

	scanner := bufio.NewScanner(s.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), s.maxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			s.rejectedEmpty.Add(1)
			s.logger.Debug("empty record skipped")
			continue
		}
		if index := bytes.IndexByte(line, 0x00); index >= 0 {
			s.rejectedNUL.Add(1)
			s.logger.Warn("record contains NUL byte, dropped",
				"record_bytes", len(line),
				"nul_offset", index,
			)
			continue
		}

		record := make([]byte, len(line))
		copy(record, line)

		select {
		case records <- record:
			s.accepted.Add(1)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}
