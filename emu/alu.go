package emu

import (
	"fmt"
	"math/bits"

	"github.com/sarchlab/arm7sim/insts"
)

// ALU implements the ARM data processing and multiply instructions.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// aluResult is the outcome of one data processing operation before it is
// written back.
type aluResult struct {
	value      uint32
	carry      bool
	overflow   bool
	arithmetic bool
}

// Operand2 resolves the second operand of a data processing instruction
// at address addr and returns it with the shifter carry-out.
func (a *ALU) Operand2(inst insts.Instruction, addr uint32) (uint32, bool) {
	carry := a.regFile.CPSR().C()

	if inst.ImmediateOperand() {
		return RotateImmediate(inst.Imm8(), inst.Rotate(), carry)
	}

	if inst.ShiftByRegister() {
		rm := a.regFile.readOperand(inst.Rm(), addr, 12)
		amount := a.regFile.readOperand(inst.Rs(), addr, 8) & 0xFF
		return ShiftRegister(rm, inst.ShiftType(), amount, carry)
	}

	rm := a.regFile.readOperand(inst.Rm(), addr, 8)
	return ShiftImmediate(rm, inst.ShiftType(), inst.ShiftAmount(), carry)
}

// DataProcessing executes AND, EOR, SUB, RSB, ADD, ADC, SBC, RSC, TST,
// TEQ, CMP, CMN, ORR, MOV, BIC and MVN. A result written to R15 is
// aligned to the instruction set in effect after the write.
func (a *ALU) DataProcessing(inst insts.Instruction, addr uint32) error {
	bias := uint32(8)
	if !inst.ImmediateOperand() && inst.ShiftByRegister() {
		bias = 12
	}
	op1 := a.regFile.readOperand(inst.Rn(), addr, bias)
	op2, shifterCarry := a.Operand2(inst, addr)
	carryIn := a.regFile.CPSR().C()

	res, err := compute(inst.Op, op1, op2, carryIn, shifterCarry)
	if err != nil {
		return err
	}

	if !inst.Op.IsComparison() {
		rd := inst.Rd()
		if rd == 15 {
			if inst.SetFlags() {
				if err := a.regFile.RestoreCPSR(); err != nil {
					return err
				}
			}
			a.regFile.branchTo(res.value)
			return nil
		}
		a.regFile.SetRegister(rd, res.value)
	}

	if inst.SetFlags() {
		a.setFlags(res)
	}
	return nil
}

func compute(op insts.Op, op1, op2 uint32, carryIn, shifterCarry bool) (aluResult, error) {
	switch op {
	case insts.OpAND, insts.OpTST:
		return logical(op1&op2, shifterCarry), nil
	case insts.OpEOR, insts.OpTEQ:
		return logical(op1^op2, shifterCarry), nil
	case insts.OpORR:
		return logical(op1|op2, shifterCarry), nil
	case insts.OpBIC:
		return logical(op1&^op2, shifterCarry), nil
	case insts.OpMOV:
		return logical(op2, shifterCarry), nil
	case insts.OpMVN:
		return logical(^op2, shifterCarry), nil
	case insts.OpADD, insts.OpCMN:
		return addWithCarry(op1, op2, false), nil
	case insts.OpADC:
		return addWithCarry(op1, op2, carryIn), nil
	case insts.OpSUB, insts.OpCMP:
		return addWithCarry(op1, ^op2, true), nil
	case insts.OpSBC:
		return addWithCarry(op1, ^op2, carryIn), nil
	case insts.OpRSB:
		return addWithCarry(op2, ^op1, true), nil
	case insts.OpRSC:
		return addWithCarry(op2, ^op1, carryIn), nil
	}
	return aluResult{}, fmt.Errorf("%w: %v is not a data processing operation", ErrUnimplemented, op)
}

func logical(value uint32, carry bool) aluResult {
	return aluResult{value: value, carry: carry}
}

// addWithCarry returns a + b + carryIn with the unsigned carry-out and
// signed overflow. Subtraction a - b is addWithCarry(a, ^b, true); the
// carry is then the inverted borrow.
func addWithCarry(a, b uint32, carryIn bool) aluResult {
	var cin uint32
	if carryIn {
		cin = 1
	}

	sum, carryOut := bits.Add32(a, b, cin)

	return aluResult{
		value:      sum,
		carry:      carryOut != 0,
		overflow:   (a^sum)&(b^sum)&0x80000000 != 0,
		arithmetic: true,
	}
}

// setFlags writes N, Z and C, and V for arithmetic operations.
func (a *ALU) setFlags(res aluResult) {
	cpsr := a.regFile.CPSR()
	cpsr.SetNZ(res.value)
	cpsr.SetC(res.carry)
	if res.arithmetic {
		cpsr.SetV(res.overflow)
	}
}

// Multiply executes MUL and MLA. With S set, N and Z are updated; C and V
// are left unchanged.
func (a *ALU) Multiply(inst insts.Instruction) {
	result := a.regFile.GetRegister(inst.Rm()) * a.regFile.GetRegister(inst.Rs())
	if inst.Accumulate() {
		result += a.regFile.GetRegister(inst.MulRn())
	}

	a.regFile.SetRegister(inst.MulRd(), result)

	if inst.SetFlags() {
		a.regFile.CPSR().SetNZ(result)
	}
}

// MultiplyLong executes UMULL, UMLAL, SMULL and SMLAL. The 64-bit result
// is split across RdHi:RdLo. With S set, only N and Z are updated.
func (a *ALU) MultiplyLong(inst insts.Instruction) {
	rm := a.regFile.GetRegister(inst.Rm())
	rs := a.regFile.GetRegister(inst.Rs())

	var result uint64
	if inst.SignedMultiply() {
		result = uint64(int64(int32(rm)) * int64(int32(rs)))
	} else {
		result = uint64(rm) * uint64(rs)
	}

	if inst.Accumulate() {
		hi := uint64(a.regFile.GetRegister(inst.RdHi()))
		lo := uint64(a.regFile.GetRegister(inst.RdLo()))
		result += hi<<32 | lo
	}

	a.regFile.SetRegister(inst.RdLo(), uint32(result))
	a.regFile.SetRegister(inst.RdHi(), uint32(result>>32))

	if inst.SetFlags() {
		cpsr := a.regFile.CPSR()
		cpsr.SetN(result&(1<<63) != 0)
		cpsr.SetZ(result == 0)
	}
}
