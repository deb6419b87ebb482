package simd

import "bytes"

// Memmem returns the index of the first instance of needle in haystack, or
// -1 if needle is not present. It backs the dispatch layer's literal-prefix
// fast path (required literal run >= 2 bytes ahead of either match engine).
//
// Short needles (<= 32 bytes) scan for a pair of rare bytes at their known
// relative offset via MemchrPair, which is far more selective than a
// single-byte scan: a false-positive candidate needs both bytes to land at
// exactly the right distance apart. Each candidate is then verified with a
// full byte comparison. Long needles reuse the same scan; the per-candidate
// verification cost still amortizes to O(n) in practice since two widely
// separated rare bytes rarely recur together.
func Memmem(haystack, needle []byte) int {
	needleLen := len(needle)
	haystackLen := len(haystack)

	if needleLen == 0 {
		return 0
	}
	if haystackLen == 0 || needleLen > haystackLen {
		return -1
	}
	if needleLen == 1 {
		return Memchr(haystack, needle[0])
	}
	return memmemScan(haystack, needle)
}

// memmemScan finds needle in haystack using the two rarest bytes in needle
// as a joint anchor.
func memmemScan(haystack, needle []byte) int {
	needleLen := len(needle)
	haystackLen := len(haystack)

	rare := SelectRareBytes(needle)
	lo, hi := rare.Index1, rare.Index2
	loByte, hiByte := rare.Byte1, rare.Byte2
	if lo > hi {
		lo, hi = hi, lo
		loByte, hiByte = hiByte, loByte
	}
	offset := hi - lo

	searchStart := 0
	for {
		var candidatePos int
		if lo == hi {
			candidatePos = Memchr(haystack[searchStart:], loByte)
		} else {
			candidatePos = MemchrPair(haystack[searchStart:], loByte, hiByte, offset)
		}
		if candidatePos == -1 {
			return -1
		}
		candidatePos += searchStart

		needleStartPos := candidatePos - lo
		if needleStartPos < 0 || needleStartPos+needleLen > haystackLen {
			searchStart = candidatePos + 1
			if searchStart >= haystackLen {
				return -1
			}
			continue
		}

		if bytes.Equal(haystack[needleStartPos:needleStartPos+needleLen], needle) {
			return needleStartPos
		}

		searchStart = candidatePos + 1
		if searchStart >= haystackLen {
			return -1
		}
	}
}
