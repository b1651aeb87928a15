package emu

import "github.com/sarchlab/arm7sim/insts"

// PSRTransferUnit implements MRS and MSR.
type PSRTransferUnit struct {
	regFile *RegFile
}

// NewPSRTransferUnit creates a new PSRTransferUnit connected to the given
// register file.
func NewPSRTransferUnit(regFile *RegFile) *PSRTransferUnit {
	return &PSRTransferUnit{regFile: regFile}
}

// MRS copies the CPSR, or the current SPSR, into Rd. Reading the SPSR in a
// mode without one yields the CPSR.
func (u *PSRTransferUnit) MRS(inst insts.Instruction) {
	psr := u.regFile.CPSR()
	if spsr := u.regFile.SPSR(); inst.UseSPSR() && spsr != nil {
		psr = spsr
	}
	u.regFile.SetRegister(inst.Rd(), uint32(*psr))
}

// fieldMask expands the 4-bit MSR field mask into a PSR bit mask.
func fieldMask(fields uint8) uint32 {
	var mask uint32
	if fields&0b0001 != 0 {
		mask |= psrControlMask
	}
	if fields&0b0010 != 0 {
		mask |= psrExtensionMask
	}
	if fields&0b0100 != 0 {
		mask |= psrStatusMask
	}
	if fields&0b1000 != 0 {
		mask |= psrFlagsMask
	}
	return mask
}

// MSR writes the selected fields of the CPSR or the current SPSR from a
// register or a rotated immediate. User mode may write only the flags
// field of the CPSR. Writing an SPSR in a mode without one has no effect.
// The T bit is never changed by MSR.
func (u *PSRTransferUnit) MSR(inst insts.Instruction) error {
	var value uint32
	if inst.ImmediateOperand() {
		value, _ = RotateImmediate(inst.Imm8(), inst.Rotate(), false)
	} else {
		value = u.regFile.GetRegister(inst.Rm())
	}

	mask := fieldMask(inst.FieldMask())

	if inst.UseSPSR() {
		spsr := u.regFile.SPSR()
		if spsr == nil {
			return nil
		}
		*spsr = PSR(uint32(*spsr)&^mask | value&mask)
		return nil
	}

	if !u.regFile.Mode().Privileged() {
		mask &= psrFlagsMask
	}
	mask &^= 1 << psrT

	cpsr := *u.regFile.CPSR()
	return u.regFile.WriteCPSR(PSR(uint32(cpsr)&^mask | value&mask))
}
