package engine

import "hash/crc32"

// castagnoliTable is the polynomial spec §4.4's "crc32c" refers to
// (original_source/cpp/crc32c/crc32c.h): standard CRC-32C with the
// register initialized to -1 and complemented again at the end.
// That's exactly what hash/crc32's Update/Checksum already do, so the
// plain buffer-in-hand case needs nothing beyond stdlib.
var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// crc32Checksum is the span-integrity crc32c spec §4.4 checks every
// inline body and, via the combinators below, every blocked span's
// declared structure against.
func crc32Checksum(body []byte) uint32 {
	return crc32.Checksum(body, castagnoliTable)
}

// crc32cZeroExtend returns the crc32c that results from appending n
// zero bytes after a buffer whose crc32c is crc. The shard never
// holds span content, but a run of zero bytes is cheap to
// materialize directly, so the "zero extension" combinator crc32c.h
// documents is just a streaming Update over an actual zero buffer.
func crc32cZeroExtend(crc uint32, n int64) uint32 {
	const chunk = 64 * 1024
	zeros := make([]byte, chunk)
	for n > 0 {
		k := int64(chunk)
		if n < k {
			k = n
		}
		crc = crc32.Update(crc, castagnoliTable, zeros[:k])
		n -= k
	}
	return crc
}

// crc32cAppend returns crc32c(A++B) given crc1 = crc32c(A), crc2 =
// crc32c(B) and len(B), with neither buffer in hand. Continuing crc1
// by len2 zero bytes reproduces the shift every byte of B would apply
// to A's running checksum; XORing in crc2 then supplies what B itself
// contributed starting from a fresh checksum, and XORing in the crc32c
// of len2 zero bytes cancels the init/final complement that both of
// those terms carry. This is the same crc-combine identity zlib's
// crc32_combine implements, here derived from Update/Checksum's
// documented behavior rather than from a hand-rolled GF(2) matrix,
// since both already bake in the standard init/final complement
// crc32c.h describes.
func crc32cAppend(crc1, crc2 uint32, len2 int) uint32 {
	return crc32cZeroExtend(crc1, int64(len2)) ^ crc2 ^ crc32cZeroExtend(0, int64(len2))
}

// crc32cAppendAll returns crc32c of the concatenation, in order, of
// several equal-length buffers given only each one's own crc32c.
func crc32cAppendAll(crcs []uint32, length int) uint32 {
	var out uint32
	for _, c := range crcs {
		out = crc32cAppend(out, c, length)
	}
	return out
}

// crc32cXorReduce returns crc32c(A1^A2^...^Ak) — the bitwise XOR of k
// equal-length buffers — given only each Ai's own crc32c and their
// shared length, used to check an RS parity cell against the data
// cells it was computed from. crc32c is linear in its input bits once
// the standard init/final complement is accounted for; that
// complement contributes a length-dependent constant (crc32c of a
// same-length zero buffer) that cancels in pairs, so it survives the
// XOR-reduction only when k is even.
func crc32cXorReduce(crcs []uint32, length int) uint32 {
	var out uint32
	for _, c := range crcs {
		out ^= c
	}
	if len(crcs)%2 == 0 {
		out ^= crc32Checksum(make([]byte, length))
	}
	return out
}
