// Package imageprep rewrites the Cortex-M vector-table checksum word so an
// image will boot, and can reverse that rewrite for testing.
package imageprep

import "encoding/binary"

// VectorTableWords is the number of leading little-endian u32 words the
// bootloader checksums.
const VectorTableWords = 8

// MakeBootable sets word checksumIndex of image's vector table such that the
// two's-complement sum of the first VectorTableWords words is zero, which is
// what a Cortex-M bootloader requires before it will run the image. image is
// not mutated; a new slice is returned.
func MakeBootable(checksumIndex int, image []byte) []byte {
	out := append([]byte(nil), image...)
	words := make([]uint32, VectorTableWords)
	for i := 0; i < VectorTableWords; i++ {
		words[i] = binary.LittleEndian.Uint32(out[i*4 : i*4+4])
	}
	words[checksumIndex] = 0

	var sum uint32
	for _, w := range words {
		sum += w
	}
	checksum := -sum // two's-complement negation, wraps mod 2^32 as uint32
	words[checksumIndex] = checksum

	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], w)
	}
	return out
}

// RemoveBootableChecksum zeroes the checksum word, producing an image the
// bootloader will refuse to run. Inverse of MakeBootable up to that word.
func RemoveBootableChecksum(checksumIndex int, image []byte) []byte {
	out := append([]byte(nil), image...)
	binary.LittleEndian.PutUint32(out[checksumIndex*4:checksumIndex*4+4], 0)
	return out
}
