// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

// Package shipment defines the unit of transfer between the collector
// and its sink: a batch of messages drained from the ring store,
// CBOR-encoded and optionally compressed.
//
// A Shipment carries a monotonic sequence number, a creation
// timestamp, and a body holding the encoded message batch. Bodies are
// compressed with LZ4 (fast, modest ratio) or zstd (better ratio for
// text-like payloads); when compression fails to shrink a body, the
// packer stores it raw under CompressionNone so decompression cost is
// never paid for nothing. The compression tag travels inside the
// shipment, so a sink can decode shipments produced under any
// configuration.
//
// Shipments are written to sinks as a CBOR sequence (one document per
// shipment, back to back) via codec.NewEncoder, and read back with
// codec.NewDecoder.
package shipment
