// Copyright 2026 The Ringlog Authors
// SPDX-License-Identifier: Apache-2.0

package ring

// Checksum XOR-folds every byte of payload, starting from zero, and
// returns the single integrity byte carried by each frame.
//
// This is deliberately not a polynomial CRC-8. The XOR fold is the
// wire contract: stored frames are only readable by a reader computing
// the identical fold, and substituting a table-driven CRC would change
// every stored checksum byte.
func Checksum(payload []byte) byte {
	var sum byte
	for _, value := range payload {
		sum ^= value
	}
	return sum
}
