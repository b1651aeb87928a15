package emu

import (
	"math/bits"

	"github.com/sarchlab/arm7sim/insts"
)

// LoadStoreUnit implements the ARM single, halfword, block and swap
// transfers.
type LoadStoreUnit struct {
	regFile *RegFile
	memory  Memory

	// storePCOffset is added to the instruction address when R15 is
	// stored.
	storePCOffset uint32
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file and memory.
func NewLoadStoreUnit(regFile *RegFile, memory Memory, storePCOffset uint32) *LoadStoreUnit {
	return &LoadStoreUnit{
		regFile:       regFile,
		memory:        memory,
		storePCOffset: storePCOffset,
	}
}

// readWordRotated loads the aligned word containing addr, rotated right so
// that the addressed byte lands in bits [7:0].
func (lsu *LoadStoreUnit) readWordRotated(addr uint32) uint32 {
	value := lsu.memory.Read32(addr &^ 3)
	return bits.RotateLeft32(value, -int(addr&3)*8)
}

// storeValue returns the value register n contributes to a store.
func (lsu *LoadStoreUnit) storeValue(n uint8, addr uint32) uint32 {
	if n == 15 {
		return addr + lsu.storePCOffset
	}
	return lsu.regFile.GetRegister(n)
}

func (lsu *LoadStoreUnit) setLoaded(n uint8, value uint32) {
	if n == 15 {
		lsu.regFile.branchTo(value)
		return
	}
	lsu.regFile.SetRegister(n, value)
}

// addressing computes the effective address of a single or halfword
// transfer and the base value to write back. Post-indexed transfers always
// write back.
func addressing(inst insts.Instruction, base, offset uint32) (effective, updated uint32, writeBack bool) {
	if inst.Up() {
		updated = base + offset
	} else {
		updated = base - offset
	}

	if inst.PreIndexed() {
		return updated, updated, inst.WriteBack()
	}
	return base, updated, true
}

// SingleDataTransfer executes LDR, STR, LDRB and STRB for the instruction
// at addr. Misaligned word loads read the aligned word and rotate it.
func (lsu *LoadStoreUnit) SingleDataTransfer(inst insts.Instruction, addr uint32) {
	base := lsu.regFile.readOperand(inst.Rn(), addr, 8)

	offset := inst.Offset12()
	if inst.RegisterOffset() {
		rm := lsu.regFile.readOperand(inst.Rm(), addr, 8)
		offset, _ = ShiftImmediate(rm, inst.ShiftType(), inst.ShiftAmount(),
			lsu.regFile.CPSR().C())
	}

	effective, updated, writeBack := addressing(inst, base, offset)

	if !inst.Load() {
		value := lsu.storeValue(inst.Rd(), addr)
		if inst.Op == insts.OpSTRB {
			lsu.memory.Write8(effective, uint8(value))
		} else {
			lsu.memory.Write32(effective&^3, value)
		}
		if writeBack {
			lsu.regFile.SetRegister(inst.Rn(), updated)
		}
		return
	}

	var value uint32
	if inst.Op == insts.OpLDRB {
		value = uint32(lsu.memory.Read8(effective))
	} else {
		value = lsu.readWordRotated(effective)
	}

	// The loaded value wins when the base is also the destination.
	if writeBack {
		lsu.regFile.SetRegister(inst.Rn(), updated)
	}
	lsu.setLoaded(inst.Rd(), value)
}

// HalfwordTransfer executes LDRH, STRH, LDRSB and LDRSH. A misaligned LDRH
// reads the aligned halfword and rotates it right by 8; a misaligned LDRSH
// loads a sign-extended byte instead.
func (lsu *LoadStoreUnit) HalfwordTransfer(inst insts.Instruction, addr uint32) {
	base := lsu.regFile.readOperand(inst.Rn(), addr, 8)

	var offset uint32
	if inst.HalfwordImmediate() {
		offset = inst.HalfwordOffset()
	} else {
		offset = lsu.regFile.readOperand(inst.Rm(), addr, 8)
	}

	effective, updated, writeBack := addressing(inst, base, offset)

	if inst.Op == insts.OpSTRH {
		value := lsu.storeValue(inst.Rd(), addr)
		lsu.memory.Write16(effective&^1, uint16(value))
		if writeBack {
			lsu.regFile.SetRegister(inst.Rn(), updated)
		}
		return
	}

	var value uint32
	switch inst.Op {
	case insts.OpLDRH:
		value = uint32(lsu.memory.Read16(effective &^ 1))
		if effective&1 != 0 {
			value = bits.RotateLeft32(value, -8)
		}
	case insts.OpLDRSB:
		value = uint32(int32(int8(lsu.memory.Read8(effective))))
	case insts.OpLDRSH:
		if effective&1 != 0 {
			value = uint32(int32(int8(lsu.memory.Read8(effective))))
		} else {
			value = uint32(int32(int16(lsu.memory.Read16(effective))))
		}
	}

	if writeBack {
		lsu.regFile.SetRegister(inst.Rn(), updated)
	}
	lsu.setLoaded(inst.Rd(), value)
}

// Swap executes SWP and SWPB: Rd receives the old memory contents at [Rn]
// and Rm is written in their place.
func (lsu *LoadStoreUnit) Swap(inst insts.Instruction) {
	addr := lsu.regFile.GetRegister(inst.Rn())
	source := lsu.regFile.GetRegister(inst.Rm())

	var old uint32
	if inst.Op == insts.OpSWPB {
		old = uint32(lsu.memory.Read8(addr))
		lsu.memory.Write8(addr, uint8(source))
	} else {
		old = lsu.readWordRotated(addr)
		lsu.memory.Write32(addr&^3, source)
	}

	lsu.setLoaded(inst.Rd(), old)
}

// emptyListSize is the base adjustment of a block transfer with an empty
// register list, which transfers R15 only.
const emptyListSize = 0x40

// BlockDataTransfer executes LDM and STM for the instruction at addr.
//
// The register list is always walked from R0 to R15 at ascending
// addresses. Decrementing modes start from the lowest address and swap
// the before/after sense. With the S bit set, STM and LDM without R15
// access the User bank; LDM with R15 restores the CPSR from the SPSR.
func (lsu *LoadStoreUnit) BlockDataTransfer(inst insts.Instruction, addr uint32) error {
	list := inst.RegisterList()
	rn := inst.Rn()
	base := lsu.regFile.GetRegister(rn)

	size := uint32(bits.OnesCount16(list)) * 4
	if list == 0 {
		list = 1 << 15
		size = emptyListSize
	}

	pre := inst.PreIndexed()
	address := base
	if !inst.Up() {
		address = base - size
		pre = !pre
	}

	loadsPC := inst.Load() && list&(1<<15) != 0
	userBank := inst.UserBank() && !loadsPC

	var pc uint32

	for n := uint8(0); n < 16; n++ {
		if list&(1<<n) == 0 {
			continue
		}

		if pre {
			address += 4
		}

		if inst.Load() {
			value := lsu.memory.Read32(address &^ 3)
			switch {
			case n == 15:
				pc = value
			case userBank:
				lsu.regFile.SetUserRegister(n, value)
			default:
				lsu.regFile.SetRegister(n, value)
			}
		} else {
			var value uint32
			switch {
			case n == 15:
				value = addr + lsu.storePCOffset
			case userBank:
				value = lsu.regFile.GetUserRegister(n)
			default:
				value = lsu.regFile.GetRegister(n)
			}
			lsu.memory.Write32(address&^3, value)
		}

		if !pre {
			address += 4
		}
	}

	if inst.WriteBack() {
		lowest := uint8(bits.TrailingZeros16(list))
		switch {
		case lowest == rn:
			lsu.regFile.SetRegister(rn, base)
		case inst.Up():
			lsu.regFile.SetRegister(rn, base+size)
		default:
			lsu.regFile.SetRegister(rn, base-size)
		}
	}

	if loadsPC {
		if inst.UserBank() {
			if err := lsu.regFile.RestoreCPSR(); err != nil {
				return err
			}
		}
		lsu.regFile.branchTo(pc)
	}

	return nil
}
