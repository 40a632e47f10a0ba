// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

// Ringlog-collector is the log collection daemon. It reads
// newline-delimited records from stdin (or a file), frames each record
// into an in-memory ring store, and periodically drains the store into
// compressed CBOR shipments appended to a sink file or stdout.
//
// Data flow:
//
//	input lines → source → ring store → drain → shipment queue → shipper → sink
//
// Flush triggers:
//   - Timer: the collector loop drains up to store.drain_window_bytes
//     from the store every collector.flush_interval (default 250ms)
//   - Pressure: when a record does not fit in the store, the loop
//     drains the whole store inline before writing it
//
// The shipment queue provides backpressure: when the shipper can't
// keep up, the oldest shipments are dropped rather than exhausting
// memory. The shipper retries with exponential backoff (1s → 30s cap)
// on sink failures.
package main
