// Package crc32check computes the zlib-polynomial CRC32 the ISP "S" command
// and the flash-write pipeline's local verification both rely on.
//
// The pack's one third-party CRC32 library reference (zappem.net/pub/debug/xcrc32,
// seen in other_examples/tinkerator-qftool) exposes no way to confirm its
// polynomial against the pinned test vector this package must satisfy
// (CRC32(0xFF×1024) == 3090874356), so this is deliberately built on the
// standard library's hash/crc32 (IEEE table), which is the same polynomial
// zlib uses and is mathematically verifiable from its own documentation.
// See DESIGN.md for the full justification.
package crc32check

import (
	"fmt"
	"hash/crc32"
)

// Sum returns the zlib/IEEE-polynomial CRC32 of data.
func Sum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// init asserts the one pinned test vector SPEC_FULL.md §8 requires, so a
// toolchain or table regression is caught the moment this package loads
// rather than buried in a flaky flash-write test.
func init() {
	probe := make([]byte, 1024)
	for i := range probe {
		probe[i] = 0xFF
	}
	if got := Sum(probe); got != 3090874356 {
		panic(fmt.Sprintf("crc32check: CRC32(0xFF*1024) mismatch, got %d", got))
	}
}
