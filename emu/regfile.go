package emu

import "fmt"

// NumPhysicalRegisters is the number of 32-bit register slots backing the
// sixteen logical registers across all banks.
const NumPhysicalRegisters = 31

// Physical slot layout:
//
//	 0..15  R0-R15 (User/System, and the unbanked registers of every mode)
//	16..22  R8_fiq-R14_fiq
//	23..24  R13_svc, R14_svc
//	25..26  R13_abt, R14_abt
//	27..28  R13_irq, R14_irq
//	29..30  R13_und, R14_und
const (
	slotFIQBase = 16
	slotSVCBase = 23
	slotABTBase = 25
	slotIRQBase = 27
	slotUNDBase = 29
)

// bankTable maps (mode index, logical register) to a physical slot. It is
// built once from the layout above.
var bankTable = buildBankTable()

func modeIndex(m OperatingMode) int {
	switch m {
	case ModeUser:
		return 0
	case ModeFIQ:
		return 1
	case ModeIRQ:
		return 2
	case ModeSupervisor:
		return 3
	case ModeAbort:
		return 4
	case ModeUndefined:
		return 5
	case ModeSystem:
		return 6
	}
	panic(fmt.Sprintf("emu: invalid operating mode %v", m))
}

func buildBankTable() [7][16]uint8 {
	var table [7][16]uint8

	for _, m := range AllModes {
		row := &table[modeIndex(m)]
		for n := range row {
			row[n] = uint8(n)
		}

		switch m {
		case ModeFIQ:
			for n := 8; n <= 14; n++ {
				row[n] = uint8(slotFIQBase + n - 8)
			}
		case ModeSupervisor:
			row[13], row[14] = slotSVCBase, slotSVCBase+1
		case ModeAbort:
			row[13], row[14] = slotABTBase, slotABTBase+1
		case ModeIRQ:
			row[13], row[14] = slotIRQBase, slotIRQBase+1
		case ModeUndefined:
			row[13], row[14] = slotUNDBase, slotUNDBase+1
		}
	}

	return table
}

// RegisterSlot returns the physical slot that logical register n resolves
// to in the given mode.
func RegisterSlot(n uint8, m OperatingMode) int {
	return int(bankTable[modeIndex(m)][n&0xF])
}

// RegFile represents the ARM7TDMI register file: the banked general-purpose
// registers, the six PSR copies and the mode selectors.
//
// RegFile is a plain value. Copying it takes a complete snapshot of the
// processor state.
type RegFile struct {
	regs [NumPhysicalRegisters]uint32
	psr  [NumPSRSlots]PSR

	mode     OperatingMode
	execMode ExecMode

	invalidModePolicy InvalidModePolicy
}

// NewRegFile creates a register file in the given operating mode with all
// registers and flags cleared.
func NewRegFile(mode OperatingMode) *RegFile {
	r := &RegFile{invalidModePolicy: InvalidModeReject}
	r.SetOperatingMode(mode)
	return r
}

// SetInvalidModePolicy selects how unrecognized mode patterns are handled.
func (r *RegFile) SetInvalidModePolicy(p InvalidModePolicy) {
	r.invalidModePolicy = p
}

// GetRegister reads logical register n (0-15) in the current mode.
func (r *RegFile) GetRegister(n uint8) uint32 {
	return r.regs[RegisterSlot(n, r.mode)]
}

// SetRegister writes logical register n (0-15) in the current mode.
func (r *RegFile) SetRegister(n uint8, value uint32) {
	r.regs[RegisterSlot(n, r.mode)] = value
}

// GetUserRegister reads logical register n from the User bank regardless
// of the current mode.
func (r *RegFile) GetUserRegister(n uint8) uint32 {
	return r.regs[RegisterSlot(n, ModeUser)]
}

// SetUserRegister writes logical register n in the User bank regardless of
// the current mode.
func (r *RegFile) SetUserRegister(n uint8, value uint32) {
	r.regs[RegisterSlot(n, ModeUser)] = value
}

// PC returns R15.
func (r *RegFile) PC() uint32 {
	return r.regs[15]
}

// SetPC writes R15.
func (r *RegFile) SetPC(value uint32) {
	r.regs[15] = value
}

// PSR returns the PSR copy held in a slot.
func (r *RegFile) PSR(slot PSRSlot) *PSR {
	return &r.psr[slot]
}

// CPSR returns the current program status register.
func (r *RegFile) CPSR() *PSR {
	return &r.psr[SlotCPSR]
}

// SPSR returns the saved program status register of the current mode, or
// nil in User and System mode.
func (r *RegFile) SPSR() *PSR {
	slot := psrSlotOf(r.mode)
	if slot == SlotCPSR {
		return nil
	}
	return &r.psr[slot]
}

// Mode returns the current operating mode.
func (r *RegFile) Mode() OperatingMode {
	return r.mode
}

// ExecMode returns the current instruction set.
func (r *RegFile) ExecMode() ExecMode {
	return r.execMode
}

// SetOperatingMode switches to mode m and writes its pattern into the CPSR
// mode field.
func (r *RegFile) SetOperatingMode(m OperatingMode) {
	modeIndex(m)
	r.mode = m
	r.CPSR().SetModeBits(uint32(m))
}

// SetExecMode selects the instruction set and keeps the CPSR T bit in sync.
func (r *RegFile) SetExecMode(e ExecMode) {
	r.execMode = e
	r.CPSR().SetT(e == ExecThumb)
}

// resolveMode applies the invalid mode policy to a 5-bit pattern.
func (r *RegFile) resolveMode(bits uint32) (OperatingMode, error) {
	if m, ok := ModeFromBits(bits); ok {
		return m, nil
	}
	if r.invalidModePolicy == InvalidModeUser {
		return ModeUser, nil
	}
	return 0, fmt.Errorf("%w: %#07b", ErrInvalidMode, bits&0x1F)
}

// UpdateOperatingMode reads the mode field of the CPSR, or of the current
// SPSR when useSPSR is set, and switches to that mode. In User and System
// mode there is no SPSR and the CPSR is used. An unrecognized pattern is
// handled according to the invalid mode policy; under the reject policy the
// mode is left unchanged and ErrInvalidMode is returned.
func (r *RegFile) UpdateOperatingMode(useSPSR bool) error {
	src := r.CPSR()
	if spsr := r.SPSR(); useSPSR && spsr != nil {
		src = spsr
	}

	m, err := r.resolveMode(src.ModeBits())
	if err != nil {
		return err
	}

	r.SetOperatingMode(m)
	return nil
}

// RestoreCPSR copies the current mode's SPSR into the CPSR and switches to
// the restored mode and instruction set. It has no effect in User and
// System mode.
func (r *RegFile) RestoreCPSR() error {
	spsr := r.SPSR()
	if spsr == nil {
		return nil
	}

	restored := *spsr
	m, err := r.resolveMode(restored.ModeBits())
	if err != nil {
		return err
	}

	r.psr[SlotCPSR] = restored
	r.SetOperatingMode(m)
	r.syncExecMode()
	return nil
}

// WriteCPSR installs a new CPSR value, switching mode accordingly. The T
// bit is applied to the instruction set selector.
func (r *RegFile) WriteCPSR(value PSR) error {
	m, err := r.resolveMode(value.ModeBits())
	if err != nil {
		return err
	}

	r.psr[SlotCPSR] = value
	r.SetOperatingMode(m)
	r.syncExecMode()
	return nil
}

// branchTo writes R15, dropping the bits below the alignment of the
// current instruction set.
func (r *RegFile) branchTo(value uint32) {
	if r.execMode == ExecThumb {
		r.SetPC(value &^ 1)
		return
	}
	r.SetPC(value &^ 3)
}

func (r *RegFile) syncExecMode() {
	if r.CPSR().T() {
		r.execMode = ExecThumb
	} else {
		r.execMode = ExecARM
	}
}

// readOperand reads register n as an instruction operand. R15 reads as the
// instruction address plus the pipeline bias.
func (r *RegFile) readOperand(n uint8, addr, bias uint32) uint32 {
	if n == 15 {
		return addr + bias
	}
	return r.GetRegister(n)
}
