// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides ringlog's standard CBOR encoding configuration.
//
// Ringlog uses two serialization formats with a clear boundary: CBOR
// for the shipment stream the collector writes to its sink, and JSON
// for human-facing CLI output. This package holds the shared CBOR
// encoding and decoding modes so that the collector and the CLI decode
// path encode identically without duplicating configuration.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
// Same logical data always produces identical bytes, which keeps
// shipment streams diffable and makes byte-level tests meaningful.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For the shipment stream (a CBOR sequence on a file or pipe):
//
//	encoder := codec.NewEncoder(sink)
//	decoder := codec.NewDecoder(source)
//
// Types serialized by this package carry cbor struct tags: the
// shipment envelope is only ever CBOR on the wire, and its JSON
// rendering for CLI output goes through a separate presentation type.
package codec
