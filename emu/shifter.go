package emu

import (
	"math/bits"

	"github.com/sarchlab/arm7sim/insts"
)

// zeroShift is the behavior of one shift type when the immediate shift
// amount field is zero.
type zeroShift func(value uint32, carry bool) (uint32, bool)

// lsl0 is a plain register operand: value and carry pass through.
func lsl0(value uint32, carry bool) (uint32, bool) {
	return value, carry
}

// lsr0 encodes LSR #32.
func lsr0(value uint32, _ bool) (uint32, bool) {
	return 0, value&0x80000000 != 0
}

// asr0 encodes ASR #32.
func asr0(value uint32, _ bool) (uint32, bool) {
	if value&0x80000000 != 0 {
		return 0xFFFFFFFF, true
	}
	return 0, false
}

// rrx rotates right by one through the carry flag.
func rrx(value uint32, carry bool) (uint32, bool) {
	result := value >> 1
	if carry {
		result |= 0x80000000
	}
	return result, value&1 != 0
}

// ror0Immediate is a rotated immediate with a zero rotate field.
func ror0Immediate(value uint32, carry bool) (uint32, bool) {
	return value, carry
}

var zeroShiftTable = [4]zeroShift{
	insts.ShiftLSL: lsl0,
	insts.ShiftLSR: lsr0,
	insts.ShiftASR: asr0,
	insts.ShiftROR: rrx,
}

// ShiftImmediate applies a shift encoded with a 5-bit immediate amount and
// returns the result and the shifter carry-out.
func ShiftImmediate(value uint32, st insts.ShiftType, amount uint32, carry bool) (uint32, bool) {
	amount &= 0x1F
	if amount == 0 {
		return zeroShiftTable[st&3](value, carry)
	}
	return shiftNonZero(value, st, amount)
}

// ShiftRegister applies a shift whose amount is the bottom byte of a
// register. An amount of zero leaves value and carry unchanged; amounts of
// 32 and above follow the ARM7TDMI rules.
func ShiftRegister(value uint32, st insts.ShiftType, amount uint32, carry bool) (uint32, bool) {
	amount &= 0xFF
	if amount == 0 {
		return value, carry
	}

	switch st & 3 {
	case insts.ShiftLSL:
		switch {
		case amount < 32:
			return shiftNonZero(value, st, amount)
		case amount == 32:
			return 0, value&1 != 0
		default:
			return 0, false
		}
	case insts.ShiftLSR:
		switch {
		case amount < 32:
			return shiftNonZero(value, st, amount)
		case amount == 32:
			return 0, value&0x80000000 != 0
		default:
			return 0, false
		}
	case insts.ShiftASR:
		if amount < 32 {
			return shiftNonZero(value, st, amount)
		}
		return asr0(value, carry)
	default:
		amount &= 0x1F
		if amount == 0 {
			return value, value&0x80000000 != 0
		}
		return shiftNonZero(value, st, amount)
	}
}

// RotateImmediate expands a data processing immediate: imm8 rotated right
// by twice the rotate field.
func RotateImmediate(imm8, rotate uint32, carry bool) (uint32, bool) {
	if rotate == 0 {
		return ror0Immediate(imm8, carry)
	}
	result := bits.RotateLeft32(imm8, -int(rotate*2))
	return result, result&0x80000000 != 0
}

// shiftNonZero applies a shift by 1..31.
func shiftNonZero(value uint32, st insts.ShiftType, amount uint32) (uint32, bool) {
	switch st & 3 {
	case insts.ShiftLSL:
		return value << amount, value&(1<<(32-amount)) != 0
	case insts.ShiftLSR:
		return value >> amount, value&(1<<(amount-1)) != 0
	case insts.ShiftASR:
		return uint32(int32(value) >> amount), value&(1<<(amount-1)) != 0
	default:
		return bits.RotateLeft32(value, -int(amount)), value&(1<<(amount-1)) != 0
	}
}
