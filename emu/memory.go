package emu

// Memory is the byte-addressable store the CPU executes against. 16- and
// 32-bit accesses are little-endian. Alignment and rotation of misaligned
// accesses are handled by the CPU; implementations see the addresses the
// CPU computed and own only storage and address dispatch.
type Memory interface {
	Read8(addr uint32) uint8
	Read16(addr uint32) uint16
	Read32(addr uint32) uint32
	Write8(addr uint32, value uint8)
	Write16(addr uint32, value uint16)
	Write32(addr uint32, value uint32)
}
