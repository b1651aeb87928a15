// Package insts provides ARM32 instruction definitions and decoding.
package insts

import (
	"github.com/sarchlab/arm7sim/bitfield"
)

// Decoder decodes ARM32 machine code into instructions.
//
// Decoding is a pure function of the instruction word: the decoder holds
// no state and every 32-bit word decodes to exactly one Instruction.
type Decoder struct{}

// NewDecoder creates a new ARM32 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Fixed patterns that are matched before the class dispatch.
const (
	bxPattern  = 0x12FFF1 // bits [27:4] of BX
	swiPattern = 0b1111   // bits [27:24] of SWI
)

// conditionTable maps bits [31:28] to a condition code.
var conditionTable = [16]Cond{
	CondEQ, CondNE, CondCS, CondCC, CondMI, CondPL, CondVS, CondVC,
	CondHI, CondLS, CondGE, CondLT, CondGT, CondLE, CondAL, CondNV,
}

// classTable dispatches on bits [27:25].
var classTable = [8]func(word uint32) Op{
	0b000: decodeDataProcessingClass,
	0b001: decodeDataProcessingClass,
	0b010: decodeSingleDataTransfer,
	0b011: decodeSingleDataTransfer,
	0b100: decodeBlockDataTransfer,
	0b101: decodeBranch,
	0b110: decodeUndefined, // coprocessor data transfer
	0b111: decodeUndefined, // coprocessor operations (SWI is matched earlier)
}

// dataProcessingTable maps the ALU opcode field (bits [24:21]).
var dataProcessingTable = [16]Op{
	OpAND, OpEOR, OpSUB, OpRSB, OpADD, OpADC, OpSBC, OpRSC,
	OpTST, OpTEQ, OpCMP, OpCMN, OpORR, OpMOV, OpBIC, OpMVN,
}

// multiplyClassTable dispatches the multiply/swap space on bits [24:23].
var multiplyClassTable = [4]func(word uint32) Op{
	0b00: decodeMultiply,
	0b01: decodeMultiplyLong,
	0b10: decodeSwap,
	0b11: decodeUndefined,
}

// multiplyLongTable is indexed by bits [22:21] (signed, accumulate).
var multiplyLongTable = [4]Op{
	0b00: OpUMULL,
	0b01: OpUMLAL,
	0b10: OpSMULL,
	0b11: OpSMLAL,
}

// halfwordTable is indexed by the L bit and then by bits [6:5] (S, H).
var halfwordTable = [2][4]Op{
	{OpUndefined, OpSTRH, OpUndefined, OpUndefined},
	{OpUndefined, OpLDRH, OpLDRSB, OpLDRSH},
}

// singleTransferTable is indexed by the L bit and then by the B bit.
var singleTransferTable = [2][2]Op{
	{OpSTR, OpSTRB},
	{OpLDR, OpLDRB},
}

// Decode decodes a 32-bit ARM32 instruction word.
func (d *Decoder) Decode(word uint32) Instruction {
	return Decode(word)
}

// Decode decodes a 32-bit ARM32 instruction word. It is total: encodings
// that do not name a valid instruction decode to OpUndefined.
func Decode(word uint32) Instruction {
	return Instruction{
		Cond: conditionTable[bitfield.Range(word, 28, 31)],
		Op:   decodeOp(word),
		Raw:  word,
	}
}

func decodeOp(word uint32) Op {
	if bitfield.Range(word, 4, 27) == bxPattern {
		return OpBX
	}
	if bitfield.Range(word, 24, 27) == swiPattern {
		return OpSWI
	}
	return classTable[bitfield.Range(word, 25, 27)](word)
}

func decodeUndefined(uint32) Op {
	return OpUndefined
}

func decodeBranch(word uint32) Op {
	if bitfield.Bit(word, 24) {
		return OpBL
	}
	return OpB
}

func decodeBlockDataTransfer(word uint32) Op {
	if bitfield.Bit(word, 20) {
		return OpLDM
	}
	return OpSTM
}

// decodeSingleDataTransfer decodes LDR/STR and their byte forms. A register
// offset shifted by a register (bit 25 and bit 4 set) is not a valid
// encoding.
func decodeSingleDataTransfer(word uint32) Op {
	if bitfield.Bit(word, 25) && bitfield.Bit(word, 4) {
		return OpUndefined
	}
	return singleTransferTable[bitfield.Range(word, 20, 20)][bitfield.Range(word, 22, 22)]
}

// decodeDataProcessingClass disambiguates the 000/001 space: data
// processing and PSR transfer, the multiply family and swap, and the
// halfword transfers.
func decodeDataProcessingClass(word uint32) Op {
	immediate := bitfield.Bit(word, 25)
	bit4 := bitfield.Bit(word, 4)
	bit7 := bitfield.Bit(word, 7)

	if immediate || !bit4 || !bit7 {
		return decodeDataProcessing(word)
	}

	if bitfield.Range(word, 4, 7) == 0b1001 {
		return multiplyClassTable[bitfield.Range(word, 23, 24)](word)
	}

	// bit 4 and bit 7 are set here. With a register offset (bit 22 clear)
	// bits [11:8] are should-be-zero; with an immediate offset they hold
	// the high nibble of the offset.
	if bitfield.Bit(word, 22) || bitfield.Range(word, 8, 11) == 0 {
		return halfwordTable[bitfield.Range(word, 20, 20)][bitfield.Range(word, 5, 6)]
	}

	return OpUndefined
}

// decodeDataProcessing decodes the ALU opcode field. The comparison
// opcodes with S clear are the PSR transfer space.
func decodeDataProcessing(word uint32) Op {
	op := dataProcessingTable[bitfield.Range(word, 21, 24)]
	if !op.IsComparison() || bitfield.Bit(word, 20) {
		return op
	}

	switch op {
	case OpTST, OpCMP:
		return decodeMRS(word)
	default:
		return decodeMSR(word)
	}
}

// decodeMRS validates MRS: cond 00010 Ps 001111 Rd 000000000000.
func decodeMRS(word uint32) Op {
	if bitfield.Bit(word, 25) {
		return OpUndefined
	}
	if bitfield.Range(word, 16, 21) != 0b001111 {
		return OpUndefined
	}
	if bitfield.Range(word, 0, 11) != 0 {
		return OpUndefined
	}
	return OpMRS
}

// decodeMSR validates MSR: cond 00I10 Pd 10 mask 1111 operand. The register
// form requires bits [11:4] to be zero.
func decodeMSR(word uint32) Op {
	if bitfield.Range(word, 20, 21) != 0b10 {
		return OpUndefined
	}
	if bitfield.Range(word, 12, 15) != 0b1111 {
		return OpUndefined
	}
	if !bitfield.Bit(word, 25) && bitfield.Range(word, 4, 11) != 0 {
		return OpUndefined
	}
	return OpMSR
}

func decodeMultiply(word uint32) Op {
	if bitfield.Bit(word, 22) {
		return OpUndefined
	}
	if bitfield.Bit(word, 21) {
		return OpMLA
	}
	return OpMUL
}

func decodeMultiplyLong(word uint32) Op {
	return multiplyLongTable[bitfield.Range(word, 21, 22)]
}

// decodeSwap requires the should-be-zero bits [21:20] and [11:8].
func decodeSwap(word uint32) Op {
	if bitfield.Range(word, 20, 21) != 0 || bitfield.Range(word, 8, 11) != 0 {
		return OpUndefined
	}
	if bitfield.Bit(word, 22) {
		return OpSWPB
	}
	return OpSWP
}
