// Package bitfield provides the bit extraction and insertion helpers used
// throughout the decoder and the execution engine.
//
// Ranges are inclusive and counted from the least significant bit, so
// Range(w, 28, 31) returns the ARM condition field of an instruction word.
package bitfield

import "fmt"

// mask returns a right-aligned mask covering hi-lo+1 bits. A 32-bit wide
// range is handled separately because shifting a uint32 by 32 yields 0.
func mask(lo, hi uint8) uint32 {
	if lo > hi || hi > 31 {
		panic(fmt.Sprintf("bitfield: invalid range [%d:%d]", lo, hi))
	}
	width := hi - lo + 1
	if width == 32 {
		return 0xFFFF_FFFF
	}
	return (uint32(1) << width) - 1
}

// Range extracts bits lo through hi (inclusive) of word and right-aligns
// them. It panics if lo > hi or hi > 31.
func Range(word uint32, lo, hi uint8) uint32 {
	return (word >> lo) & mask(lo, hi)
}

// Bit reports whether bit n of word is set. It panics if n > 31.
func Bit(word uint32, n uint8) bool {
	if n > 31 {
		panic(fmt.Sprintf("bitfield: invalid bit index %d", n))
	}
	return word&(1<<n) != 0
}

// SetBits returns word with bits lo through hi replaced by the low bits of
// data. Bits outside the range are left unchanged.
func SetBits(word uint32, lo, hi uint8, data uint32) uint32 {
	m := mask(lo, hi)
	return (word &^ (m << lo)) | ((data & m) << lo)
}

// SetBit returns word with bit n set or cleared.
func SetBit(word uint32, n uint8, set bool) uint32 {
	if set {
		return SetBits(word, n, n, 1)
	}
	return SetBits(word, n, n, 0)
}

// SignExtend interprets the low width bits of value as a two's complement
// number and extends it to 32 bits.
func SignExtend(value uint32, width uint8) uint32 {
	if width == 0 || width > 32 {
		panic(fmt.Sprintf("bitfield: invalid sign extension width %d", width))
	}
	shift := 32 - width
	return uint32(int32(value<<shift) >> shift)
}
