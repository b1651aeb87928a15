// Package insts provides ARM32 instruction definitions and decoding.
package insts

import (
	"fmt"
	"strings"

	"github.com/sarchlab/arm7sim/bitfield"
)

// Op represents an ARM32 opcode.
type Op uint8

// ARM32 opcodes. OpUndefined is the zero value and marks encodings that are
// architecturally invalid.
const (
	OpUndefined Op = iota
	OpADC
	OpADD
	OpAND
	OpB
	OpBL
	OpBIC
	OpBX
	OpCMN
	OpCMP
	OpEOR
	OpLDM
	OpLDR
	OpLDRB
	OpLDRH
	OpLDRSB
	OpLDRSH
	OpMLA
	OpMOV
	OpMRS
	OpMSR
	OpMUL
	OpMVN
	OpORR
	OpRSB
	OpRSC
	OpSBC
	OpSMLAL
	OpSMULL
	OpSTM
	OpSTR
	OpSTRB
	OpSTRH
	OpSUB
	OpSWI
	OpSWP
	OpSWPB
	OpTEQ
	OpTST
	OpUMLAL
	OpUMULL

	// NumOps is the number of opcodes, OpUndefined included.
	NumOps
)

var opNames = [NumOps]string{
	OpUndefined: "UNDEFINED",
	OpADC:       "ADC",
	OpADD:       "ADD",
	OpAND:       "AND",
	OpB:         "B",
	OpBL:        "BL",
	OpBIC:       "BIC",
	OpBX:        "BX",
	OpCMN:       "CMN",
	OpCMP:       "CMP",
	OpEOR:       "EOR",
	OpLDM:       "LDM",
	OpLDR:       "LDR",
	OpLDRB:      "LDRB",
	OpLDRH:      "LDRH",
	OpLDRSB:     "LDRSB",
	OpLDRSH:     "LDRSH",
	OpMLA:       "MLA",
	OpMOV:       "MOV",
	OpMRS:       "MRS",
	OpMSR:       "MSR",
	OpMUL:       "MUL",
	OpMVN:       "MVN",
	OpORR:       "ORR",
	OpRSB:       "RSB",
	OpRSC:       "RSC",
	OpSBC:       "SBC",
	OpSMLAL:     "SMLAL",
	OpSMULL:     "SMULL",
	OpSTM:       "STM",
	OpSTR:       "STR",
	OpSTRB:      "STRB",
	OpSTRH:      "STRH",
	OpSUB:       "SUB",
	OpSWI:       "SWI",
	OpSWP:       "SWP",
	OpSWPB:      "SWPB",
	OpTEQ:       "TEQ",
	OpTST:       "TST",
	OpUMLAL:     "UMLAL",
	OpUMULL:     "UMULL",
}

func (op Op) String() string {
	if op >= NumOps {
		return fmt.Sprintf("Op(%d)", uint8(op))
	}
	return opNames[op]
}

// IsDataProcessing reports whether op is one of the sixteen ALU operations
// that share the data processing encoding.
func (op Op) IsDataProcessing() bool {
	switch op {
	case OpAND, OpEOR, OpSUB, OpRSB, OpADD, OpADC, OpSBC, OpRSC,
		OpTST, OpTEQ, OpCMP, OpCMN, OpORR, OpMOV, OpBIC, OpMVN:
		return true
	}
	return false
}

// IsComparison reports whether op only sets flags and never writes Rd.
func (op Op) IsComparison() bool {
	return op == OpTST || op == OpTEQ || op == OpCMP || op == OpCMN
}

// IsLogical reports whether op is a logical data processing operation.
// Logical operations take C from the barrel shifter and leave V alone.
func (op Op) IsLogical() bool {
	switch op {
	case OpAND, OpEOR, OpTST, OpTEQ, OpORR, OpMOV, OpBIC, OpMVN:
		return true
	}
	return false
}

// Cond represents an ARM condition code (bits [31:28]).
type Cond uint8

// ARM condition codes.
const (
	CondEQ Cond = 0b0000 // Equal (Z == 1)
	CondNE Cond = 0b0001 // Not Equal (Z == 0)
	CondCS Cond = 0b0010 // Carry Set / Unsigned higher or same (C == 1)
	CondCC Cond = 0b0011 // Carry Clear / Unsigned lower (C == 0)
	CondMI Cond = 0b0100 // Minus / Negative (N == 1)
	CondPL Cond = 0b0101 // Plus / Positive or zero (N == 0)
	CondVS Cond = 0b0110 // Overflow (V == 1)
	CondVC Cond = 0b0111 // No overflow (V == 0)
	CondHI Cond = 0b1000 // Unsigned higher (C == 1 && Z == 0)
	CondLS Cond = 0b1001 // Unsigned lower or same (C == 0 || Z == 1)
	CondGE Cond = 0b1010 // Signed greater than or equal (N == V)
	CondLT Cond = 0b1011 // Signed less than (N != V)
	CondGT Cond = 0b1100 // Signed greater than (Z == 0 && N == V)
	CondLE Cond = 0b1101 // Signed less than or equal (Z == 1 || N != V)
	CondAL Cond = 0b1110 // Always (unconditional)
	CondNV Cond = 0b1111 // Reserved on ARMv4, never passes
)

var condNames = [16]string{
	"EQ", "NE", "CS", "CC", "MI", "PL", "VS", "VC",
	"HI", "LS", "GE", "LT", "GT", "LE", "AL", "NV",
}

func (c Cond) String() string {
	return condNames[c&0xF]
}

// ShiftType represents a barrel shifter operation.
type ShiftType uint8

// Shift types.
const (
	ShiftLSL ShiftType = 0b00 // Logical shift left
	ShiftLSR ShiftType = 0b01 // Logical shift right
	ShiftASR ShiftType = 0b10 // Arithmetic shift right
	ShiftROR ShiftType = 0b11 // Rotate right (RRX when the amount is #0)
)

var shiftNames = [4]string{"LSL", "LSR", "ASR", "ROR"}

func (s ShiftType) String() string {
	return shiftNames[s&0x3]
}

// Instruction represents a decoded ARM32 instruction.
//
// Only the condition and the opcode are resolved by the decoder. Operand
// fields are extracted from Raw on demand by the accessor methods; which
// accessors are meaningful depends on Op.
type Instruction struct {
	Cond Cond   // Condition code
	Op   Op     // Operation code
	Raw  uint32 // Instruction word as fetched
}

// String returns the mnemonic, the condition suffix (omitted for AL) and
// the raw word, e.g. "MOVEQ 0x03a00020".
func (i Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(i.Op.String())
	if i.Cond != CondAL {
		sb.WriteString(i.Cond.String())
	}
	if i.Op.IsDataProcessing() && i.SetFlags() && !i.Op.IsComparison() {
		sb.WriteString("S")
	}
	fmt.Fprintf(&sb, " 0x%08x", i.Raw)
	return sb.String()
}

// Rn returns the first operand / base register (bits [19:16]).
func (i Instruction) Rn() uint8 { return uint8(bitfield.Range(i.Raw, 16, 19)) }

// Rd returns the destination / source register (bits [15:12]).
func (i Instruction) Rd() uint8 { return uint8(bitfield.Range(i.Raw, 12, 15)) }

// Rs returns the shift or multiplier register (bits [11:8]).
func (i Instruction) Rs() uint8 { return uint8(bitfield.Range(i.Raw, 8, 11)) }

// Rm returns the second operand register (bits [3:0]).
func (i Instruction) Rm() uint8 { return uint8(bitfield.Range(i.Raw, 0, 3)) }

// SetFlags reports the S bit (bit 20) of data processing and multiply
// instructions.
func (i Instruction) SetFlags() bool { return bitfield.Bit(i.Raw, 20) }

// Load reports the L bit (bit 20) of transfer instructions.
func (i Instruction) Load() bool { return bitfield.Bit(i.Raw, 20) }

// WriteBack reports the W bit (bit 21) of transfer instructions.
func (i Instruction) WriteBack() bool { return bitfield.Bit(i.Raw, 21) }

// ByteTransfer reports the B bit (bit 22) of single transfer and swap
// instructions.
func (i Instruction) ByteTransfer() bool { return bitfield.Bit(i.Raw, 22) }

// Up reports the U bit (bit 23): the offset is added to the base.
func (i Instruction) Up() bool { return bitfield.Bit(i.Raw, 23) }

// PreIndexed reports the P bit (bit 24): the offset is applied before the
// transfer.
func (i Instruction) PreIndexed() bool { return bitfield.Bit(i.Raw, 24) }

// ImmediateOperand reports the I bit (bit 25) of data processing and MSR
// instructions: operand 2 is a rotated 8-bit immediate.
func (i Instruction) ImmediateOperand() bool { return bitfield.Bit(i.Raw, 25) }

// RegisterOffset reports bit 25 of single data transfers, where a set bit
// selects a shifted register offset instead of a 12-bit immediate.
func (i Instruction) RegisterOffset() bool { return bitfield.Bit(i.Raw, 25) }

// Imm8 returns the 8-bit immediate of a rotated immediate operand.
func (i Instruction) Imm8() uint32 { return bitfield.Range(i.Raw, 0, 7) }

// Rotate returns the 4-bit rotate field of a rotated immediate operand.
// The immediate is rotated right by twice this value.
func (i Instruction) Rotate() uint32 { return bitfield.Range(i.Raw, 8, 11) }

// ShiftType returns the shift applied to Rm (bits [6:5]).
func (i Instruction) ShiftType() ShiftType {
	return ShiftType(bitfield.Range(i.Raw, 5, 6))
}

// ShiftByRegister reports bit 4: the shift amount is the bottom byte of Rs
// rather than an immediate.
func (i Instruction) ShiftByRegister() bool { return bitfield.Bit(i.Raw, 4) }

// ShiftAmount returns the 5-bit immediate shift amount (bits [11:7]).
func (i Instruction) ShiftAmount() uint32 { return bitfield.Range(i.Raw, 7, 11) }

// Offset12 returns the 12-bit immediate offset of a single data transfer.
func (i Instruction) Offset12() uint32 { return bitfield.Range(i.Raw, 0, 11) }

// HalfwordImmediate reports bit 22 of halfword transfers: the offset is an
// 8-bit immediate split across bits [11:8] and [3:0].
func (i Instruction) HalfwordImmediate() bool { return bitfield.Bit(i.Raw, 22) }

// HalfwordOffset returns the split 8-bit immediate offset of a halfword
// transfer.
func (i Instruction) HalfwordOffset() uint32 {
	return bitfield.Range(i.Raw, 8, 11)<<4 | bitfield.Range(i.Raw, 0, 3)
}

// RegisterList returns the 16-bit register list of a block transfer.
func (i Instruction) RegisterList() uint16 { return uint16(bitfield.Range(i.Raw, 0, 15)) }

// UserBank reports the S bit (bit 22) of block transfers.
func (i Instruction) UserBank() bool { return bitfield.Bit(i.Raw, 22) }

// BranchOffset returns the signed byte offset of B and BL: the 24-bit
// field sign-extended and multiplied by four.
func (i Instruction) BranchOffset() int32 {
	return int32(bitfield.SignExtend(bitfield.Range(i.Raw, 0, 23), 24)) << 2
}

// Link reports the L bit (bit 24) of branch instructions.
func (i Instruction) Link() bool { return bitfield.Bit(i.Raw, 24) }

// UseSPSR reports the Pd/Ps bit (bit 22) of PSR transfers.
func (i Instruction) UseSPSR() bool { return bitfield.Bit(i.Raw, 22) }

// FieldMask returns the MSR field mask (bits [19:16]): bit 0 selects the
// control byte, bit 1 extension, bit 2 status and bit 3 flags.
func (i Instruction) FieldMask() uint8 { return uint8(bitfield.Range(i.Raw, 16, 19)) }

// Accumulate reports the A bit (bit 21) of multiply instructions.
func (i Instruction) Accumulate() bool { return bitfield.Bit(i.Raw, 21) }

// SignedMultiply reports the U bit (bit 22) of long multiplies, which is
// set for the signed forms.
func (i Instruction) SignedMultiply() bool { return bitfield.Bit(i.Raw, 22) }

// MulRd returns the destination of MUL/MLA (bits [19:16]).
func (i Instruction) MulRd() uint8 { return i.Rn() }

// MulRn returns the accumulator of MLA (bits [15:12]).
func (i Instruction) MulRn() uint8 { return i.Rd() }

// RdHi returns the high destination of a long multiply (bits [19:16]).
func (i Instruction) RdHi() uint8 { return i.Rn() }

// RdLo returns the low destination of a long multiply (bits [15:12]).
func (i Instruction) RdLo() uint8 { return i.Rd() }

// Comment returns the 24-bit comment field of SWI.
func (i Instruction) Comment() uint32 { return bitfield.Range(i.Raw, 0, 23) }
