package emu

import (
	"fmt"
	"strings"
)

// OperatingMode is one of the seven ARM7TDMI privilege modes. The value is
// the 5-bit pattern held in the PSR mode field.
type OperatingMode uint8

// Operating modes.
const (
	ModeUser       OperatingMode = 0b10000
	ModeFIQ        OperatingMode = 0b10001
	ModeIRQ        OperatingMode = 0b10010
	ModeSupervisor OperatingMode = 0b10011
	ModeAbort      OperatingMode = 0b10111
	ModeUndefined  OperatingMode = 0b11011
	ModeSystem     OperatingMode = 0b11111
)

// AllModes lists every operating mode.
var AllModes = []OperatingMode{
	ModeUser, ModeFIQ, ModeIRQ, ModeSupervisor,
	ModeAbort, ModeUndefined, ModeSystem,
}

var modeNames = map[OperatingMode]string{
	ModeUser:       "user",
	ModeFIQ:        "fiq",
	ModeIRQ:        "irq",
	ModeSupervisor: "supervisor",
	ModeAbort:      "abort",
	ModeUndefined:  "undefined",
	ModeSystem:     "system",
}

// ModeFromBits maps the low five bits of a PSR to an operating mode. It
// reports false for patterns that do not name a mode.
func ModeFromBits(bits uint32) (OperatingMode, bool) {
	m := OperatingMode(bits & 0x1F)
	_, ok := modeNames[m]
	return m, ok
}

// ParseOperatingMode parses a mode name such as "user" or "svc".
func ParseOperatingMode(name string) (OperatingMode, error) {
	switch strings.ToLower(name) {
	case "user", "usr":
		return ModeUser, nil
	case "fiq":
		return ModeFIQ, nil
	case "irq":
		return ModeIRQ, nil
	case "supervisor", "svc":
		return ModeSupervisor, nil
	case "abort", "abt":
		return ModeAbort, nil
	case "undefined", "und":
		return ModeUndefined, nil
	case "system", "sys":
		return ModeSystem, nil
	}
	return 0, fmt.Errorf("unknown operating mode %q", name)
}

// String returns the lower-case mode name.
func (m OperatingMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("OperatingMode(%#02x)", uint8(m))
}

// Privileged reports whether the mode is any mode other than User.
func (m OperatingMode) Privileged() bool {
	return m != ModeUser
}

// HasSPSR reports whether the mode owns a saved program status register.
// User and System share the CPSR slot and have none.
func (m OperatingMode) HasSPSR() bool {
	return psrSlotOf(m) != SlotCPSR
}

// ExecMode selects the instruction set used to decode fetched words.
type ExecMode uint8

// Instruction sets.
const (
	ExecARM ExecMode = iota
	ExecThumb
)

// String returns "arm" or "thumb".
func (e ExecMode) String() string {
	if e == ExecThumb {
		return "thumb"
	}
	return "arm"
}

// InstructionSize returns the width of an instruction in bytes.
func (e ExecMode) InstructionSize() uint32 {
	if e == ExecThumb {
		return 2
	}
	return 4
}
