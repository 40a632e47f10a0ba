// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

package shipment

import (
	"fmt"
	"time"

	"github.com/ringlog-foundation/ringlog/lib/codec"
)

// Shipment is one drained batch of messages, ready for a sink. The
// body is the CBOR encoding of the message list, compressed per the
// Compression tag. RawSize records the uncompressed body length —
// LZ4 block decompression needs it, and it doubles as a sanity check
// for the other tags.
type Shipment struct {
	Sequence     uint64         `cbor:"seq"`
	CreatedAt    int64          `cbor:"created_at"` // Unix milliseconds
	Compression  CompressionTag `cbor:"compression"`
	RawSize      int64          `cbor:"raw_size"`
	MessageCount int            `cbor:"message_count"`
	Body         []byte         `cbor:"body"`
}

// envelopeOverhead approximates the CBOR framing cost of the
// non-body shipment fields (map header, keys, integer values). Used
// only for queue byte accounting, so precision does not matter.
const envelopeOverhead = 64

// Pack encodes a batch of messages into a shipment. The batch is
// CBOR-encoded and then compressed with the requested algorithm; if
// the body does not shrink, it is stored raw under CompressionNone
// instead. Message slices are copied into the encoded body, so the
// caller may reuse them after Pack returns.
func Pack(sequence uint64, createdAt time.Time, messages [][]byte, tag CompressionTag) (*Shipment, error) {
	raw, err := codec.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}

	body, err := CompressBody(raw, tag)
	if err != nil {
		if !IsIncompressible(err) {
			return nil, fmt.Errorf("compress batch: %w", err)
		}
		body = raw
		tag = CompressionNone
	}

	return &Shipment{
		Sequence:     sequence,
		CreatedAt:    createdAt.UnixMilli(),
		Compression:  tag,
		RawSize:      int64(len(raw)),
		MessageCount: len(messages),
		Body:         body,
	}, nil
}

// Unpack decompresses and decodes the shipment body, returning the
// original message batch in drain order.
func (shipment *Shipment) Unpack() ([][]byte, error) {
	raw, err := DecompressBody(shipment.Body, shipment.Compression, int(shipment.RawSize))
	if err != nil {
		return nil, fmt.Errorf("shipment %d: %w", shipment.Sequence, err)
	}

	var messages [][]byte
	if err := codec.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("shipment %d: decode batch: %w", shipment.Sequence, err)
	}
	return messages, nil
}

// CreatedTime returns the shipment creation timestamp as a time.Time.
func (shipment *Shipment) CreatedTime() time.Time {
	return time.UnixMilli(shipment.CreatedAt)
}

// SizeBytes estimates the encoded size of the shipment for queue byte
// accounting: the body length plus a fixed allowance for the envelope
// fields.
func (shipment *Shipment) SizeBytes() int {
	return len(shipment.Body) + envelopeOverhead
}
