// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

package ring

import "errors"

// Terminator marks the end of a frame. Payload bytes must never carry
// this value (caller contract, not enforced).
const Terminator byte = 0x00

var (
	// ErrTruncated is returned by ReadMessage when the store runs out
	// of bytes before a terminator appears: the frame was never fully
	// written, or the store was empty to begin with. The failed read
	// consumes everything up to exhaustion so the partial frame cannot
	// be read twice.
	ErrTruncated = errors.New("ring: frame truncated")

	// ErrChecksumMismatch is returned when a frame's stored checksum
	// byte disagrees with the fold computed over its payload, or when
	// a frame carries no checksum byte at all (a bare terminator).
	ErrChecksumMismatch = errors.New("ring: checksum mismatch")

	// ErrEmptyPayload is returned by WriteMessage for zero-length
	// payloads. Frame scanning classifies a zero byte by the byte that
	// follows it, relying on the byte after a terminator always being
	// the next frame's first payload byte. An empty payload would
	// follow a terminator with its own zero checksum byte and misframe
	// the message before it.
	ErrEmptyPayload = errors.New("ring: empty payload")
)

// WriteMessage frames payload into the store: the payload bytes, then
// the XOR checksum, then the terminator. On ErrFull the bytes already
// pushed stay in place — there is no rollback — and the next read
// reports the damage as ErrTruncated or ErrChecksumMismatch. Callers
// hitting ErrFull must drain before retrying.
func WriteMessage(store *Store, payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyPayload
	}
	for _, value := range payload {
		if err := store.Push(value); err != nil {
			return err
		}
	}
	if err := store.Push(Checksum(payload)); err != nil {
		return err
	}
	return store.Push(Terminator)
}

// ReadMessage pops one frame from the store and returns its payload.
// Whatever the outcome, the store is consumed through the frame's
// terminator (or to exhaustion on truncation): a malformed frame is
// never left behind to be read twice.
//
// A popped zero byte is classified by one byte of lookahead — a zero
// immediately followed by another zero in the occupied region is a
// zero checksum byte with the real terminator behind it; any other
// zero is the terminator. See scanFrame for why the classification is
// exact. One corner is accepted rather than guarded: a frame cut off
// exactly after a zero checksum byte (its terminator never written)
// reads one byte short and can still verify.
func ReadMessage(store *Store) ([]byte, error) {
	var body []byte
	for {
		value, ok := store.Pop()
		if !ok {
			return nil, ErrTruncated
		}
		if value == Terminator {
			if !store.Empty() && store.PeekAt(0) == Terminator {
				// Zero checksum byte; the next byte is the frame's
				// real terminator.
				body = append(body, value)
				store.Pop()
			}
			break
		}
		body = append(body, value)
	}
	if len(body) == 0 {
		// A bare terminator carries no checksum byte to verify.
		return nil, ErrChecksumMismatch
	}
	payload, stored := body[:len(body)-1], body[len(body)-1]
	if Checksum(payload) != stored {
		return nil, ErrChecksumMismatch
	}
	return payload, nil
}

// Drain removes whole frames from the store, accumulating their
// payloads, until the store empties, the next frame would not fit in
// the remaining byte budget, or no complete frame is present. An
// incomplete trailing frame is "not enough data yet", not an error:
// the payloads accumulated so far are returned as success. The budget
// counts every byte removed, terminators included, and frames are
// never split across calls.
//
// A checksum mismatch fails the whole call: payloads already
// accumulated in this call are discarded, and the bad frame has been
// fully consumed, so the store still sits at a frame boundary.
// Success or failure, Drain always leaves the store at a frame
// boundary, never mid-frame.
func Drain(store *Store, maxBytes int) ([][]byte, error) {
	var payloads [][]byte
	consumed := 0
	for !store.Empty() {
		bodyLen, ok := scanFrame(store)
		if !ok {
			break
		}
		// The frame footprint includes the terminator behind the body.
		footprint := bodyLen + 1
		if consumed+footprint > maxBytes {
			break
		}

		body := make([]byte, bodyLen)
		for i := range body {
			body[i], _ = store.Pop()
		}
		store.Pop() // the terminator measured by scanFrame

		if bodyLen == 0 {
			// A bare terminator carries no checksum byte to verify.
			return nil, ErrChecksumMismatch
		}
		payload, stored := body[:bodyLen-1], body[bodyLen-1]
		if Checksum(payload) != stored {
			return nil, ErrChecksumMismatch
		}
		payloads = append(payloads, payload)
		consumed += footprint
	}
	return payloads, nil
}

// scanFrame measures the frame at the read position without consuming
// anything. It returns the frame's body length (payload plus checksum
// byte, terminator excluded) and whether a complete frame is present.
// The scan covers only the occupied region: slot contents beyond Len
// are stale leftovers, not data.
//
// The first zero at offset k is classified by one byte of lookahead:
// if the byte at k+1 is also zero and still inside the occupied
// region, the zero at k is a zero checksum byte and k+1 holds the
// terminator (body length k+1); otherwise the zero at k is the
// terminator (body length k). Under the framing contract — non-empty
// payloads free of terminator bytes — this is exact: the only zero a
// frame body can contain is a zero checksum byte, which is always
// followed immediately by the terminator, while the byte after a true
// terminator is the next frame's first payload byte, never zero.
func scanFrame(store *Store) (bodyLen int, ok bool) {
	occupied := store.Len()
	for offset := 0; offset < occupied; offset++ {
		if store.PeekAt(offset) != Terminator {
			continue
		}
		if offset+1 < occupied && store.PeekAt(offset+1) == Terminator {
			return offset + 1, true
		}
		return offset, true
	}
	return 0, false
}
