package emu

import (
	"fmt"

	"github.com/sarchlab/arm7sim/bitfield"
)

// PSR is a program status register word.
//
//	31 30 29 28 27 ..  8  7  6  5  4 .. 0
//	 N  Z  C  V  reserved  I  F  T  mode
type PSR uint32

// PSR bit positions.
const (
	psrN = 31
	psrZ = 30
	psrC = 29
	psrV = 28
	psrI = 7
	psrF = 6
	psrT = 5
)

// Field masks selected by the MSR field mask bits.
const (
	psrControlMask   uint32 = 0x000000FF
	psrExtensionMask uint32 = 0x0000FF00
	psrStatusMask    uint32 = 0x00FF0000
	psrFlagsMask     uint32 = 0xFF000000
)

// N returns the negative flag.
func (p PSR) N() bool { return bitfield.Bit(uint32(p), psrN) }

// Z returns the zero flag.
func (p PSR) Z() bool { return bitfield.Bit(uint32(p), psrZ) }

// C returns the carry flag.
func (p PSR) C() bool { return bitfield.Bit(uint32(p), psrC) }

// V returns the overflow flag.
func (p PSR) V() bool { return bitfield.Bit(uint32(p), psrV) }

// I returns the IRQ disable bit.
func (p PSR) I() bool { return bitfield.Bit(uint32(p), psrI) }

// F returns the FIQ disable bit.
func (p PSR) F() bool { return bitfield.Bit(uint32(p), psrF) }

// T returns the Thumb state bit.
func (p PSR) T() bool { return bitfield.Bit(uint32(p), psrT) }

// ModeBits returns the raw 5-bit mode field.
func (p PSR) ModeBits() uint32 { return bitfield.Range(uint32(p), 0, 4) }

// SetN sets the negative flag.
func (p *PSR) SetN(v bool) { p.setBit(psrN, v) }

// SetZ sets the zero flag.
func (p *PSR) SetZ(v bool) { p.setBit(psrZ, v) }

// SetC sets the carry flag.
func (p *PSR) SetC(v bool) { p.setBit(psrC, v) }

// SetV sets the overflow flag.
func (p *PSR) SetV(v bool) { p.setBit(psrV, v) }

// SetT sets the Thumb state bit.
func (p *PSR) SetT(v bool) { p.setBit(psrT, v) }

// SetModeBits replaces the 5-bit mode field.
func (p *PSR) SetModeBits(bits uint32) {
	*p = PSR(bitfield.SetBits(uint32(*p), 0, 4, bits))
}

// SetNZ sets N and Z from a 32-bit result.
func (p *PSR) SetNZ(result uint32) {
	p.SetN(result&0x80000000 != 0)
	p.SetZ(result == 0)
}

func (p *PSR) setBit(n uint8, v bool) {
	*p = PSR(bitfield.SetBit(uint32(*p), n, v))
}

// String renders the flags and mode, e.g. "nZCv T user".
func (p PSR) String() string {
	flag := func(set bool, name byte) byte {
		if set {
			return name
		}
		return name + ('a' - 'A')
	}

	state := "A"
	if p.T() {
		state = "T"
	}

	mode := fmt.Sprintf("%#02x", p.ModeBits())
	if m, ok := ModeFromBits(p.ModeBits()); ok {
		mode = m.String()
	}

	return fmt.Sprintf("%c%c%c%c %s %s",
		flag(p.N(), 'N'), flag(p.Z(), 'Z'), flag(p.C(), 'C'), flag(p.V(), 'V'),
		state, mode)
}

// PSRSlot indexes one of the six physical PSR copies.
type PSRSlot uint8

// PSR slots. Slot 0 is the CPSR shared by every mode; the others hold the
// SPSR of the corresponding privileged mode.
const (
	SlotCPSR PSRSlot = iota
	SlotFIQ
	SlotIRQ
	SlotSupervisor
	SlotAbort
	SlotUndefined

	NumPSRSlots
)

// psrSlotOf returns the SPSR slot of a mode, or SlotCPSR for User and
// System.
func psrSlotOf(m OperatingMode) PSRSlot {
	switch m {
	case ModeFIQ:
		return SlotFIQ
	case ModeIRQ:
		return SlotIRQ
	case ModeSupervisor:
		return SlotSupervisor
	case ModeAbort:
		return SlotAbort
	case ModeUndefined:
		return SlotUndefined
	default:
		return SlotCPSR
	}
}
