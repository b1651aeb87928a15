package emu

import "github.com/sarchlab/arm7sim/insts"

// BranchUnit implements ARM branch operations and condition evaluation.
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// B branches relative to the instruction at addr. The offset is added to
// the prefetched PC, addr + 8.
func (b *BranchUnit) B(addr uint32, offset int32) {
	b.regFile.SetPC(addr + 8 + uint32(offset))
}

// BL saves the address of the next instruction in R14 of the current bank,
// then branches like B.
func (b *BranchUnit) BL(addr uint32, offset int32) {
	b.regFile.SetRegister(14, addr+4)
	b.B(addr, offset)
}

// BX branches to the address in Rm. Bit 0 of the target selects the
// instruction set: set enters Thumb state.
func (b *BranchUnit) BX(rm uint8, addr uint32) {
	target := b.regFile.readOperand(rm, addr, 8)

	if target&1 != 0 {
		b.regFile.SetExecMode(ExecThumb)
		b.regFile.SetPC(target &^ 1)
		return
	}

	b.regFile.SetExecMode(ExecARM)
	b.regFile.SetPC(target &^ 3)
}

// CheckCondition evaluates a condition code against the CPSR flags. The
// reserved NV code never passes.
func (b *BranchUnit) CheckCondition(cond insts.Cond) bool {
	return EvaluateCond(*b.regFile.CPSR(), cond)
}

// EvaluateCond evaluates a condition code against the flags of a PSR.
func EvaluateCond(psr PSR, cond insts.Cond) bool {
	switch cond {
	case insts.CondEQ:
		// Equal: Z == 1
		return psr.Z()
	case insts.CondNE:
		// Not Equal: Z == 0
		return !psr.Z()
	case insts.CondCS:
		// Carry Set / Unsigned higher or same: C == 1
		return psr.C()
	case insts.CondCC:
		// Carry Clear / Unsigned lower: C == 0
		return !psr.C()
	case insts.CondMI:
		// Minus / Negative: N == 1
		return psr.N()
	case insts.CondPL:
		// Plus / Positive or zero: N == 0
		return !psr.N()
	case insts.CondVS:
		// Overflow: V == 1
		return psr.V()
	case insts.CondVC:
		// No overflow: V == 0
		return !psr.V()
	case insts.CondHI:
		// Unsigned higher: C == 1 && Z == 0
		return psr.C() && !psr.Z()
	case insts.CondLS:
		// Unsigned lower or same: C == 0 || Z == 1
		return !psr.C() || psr.Z()
	case insts.CondGE:
		// Signed greater than or equal: N == V
		return psr.N() == psr.V()
	case insts.CondLT:
		// Signed less than: N != V
		return psr.N() != psr.V()
	case insts.CondGT:
		// Signed greater than: Z == 0 && N == V
		return !psr.Z() && (psr.N() == psr.V())
	case insts.CondLE:
		// Signed less than or equal: Z == 1 || N != V
		return psr.Z() || (psr.N() != psr.V())
	case insts.CondAL:
		return true
	default:
		// NV is reserved and never passes.
		return false
	}
}
