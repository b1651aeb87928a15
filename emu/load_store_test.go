package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/arm7sim/emu"
	"github.com/sarchlab/arm7sim/memory"
)

// encodeSingle encodes LDR/STR{B} Rd, [Rn, #offset12] with P, U, W given.
func encodeSingle(load, byteSize, pre, up, writeBack bool, rn, rd, offset12 uint32) uint32 {
	w := condAL | 0b01<<26 | rn<<16 | rd<<12 | offset12
	if pre {
		w |= 1 << 24
	}
	if up {
		w |= 1 << 23
	}
	if byteSize {
		w |= 1 << 22
	}
	if writeBack {
		w |= 1 << 21
	}
	if load {
		w |= 1 << 20
	}
	return w
}

// encodeHalfword encodes LDRH/STRH/LDRSB/LDRSH with an immediate offset.
// sh is bits [6:5]: 01 H, 10 SB, 11 SH.
func encodeHalfword(load bool, sh uint32, pre, up, writeBack bool, rn, rd, offset8 uint32) uint32 {
	w := condAL | 1<<22 | rn<<16 | rd<<12 | (offset8>>4)<<8 | 1<<7 | sh<<5 | 1<<4 | offset8&0xF
	if pre {
		w |= 1 << 24
	}
	if up {
		w |= 1 << 23
	}
	if writeBack {
		w |= 1 << 21
	}
	if load {
		w |= 1 << 20
	}
	return w
}

var _ = Describe("LoadStoreUnit", func() {
	var (
		cpu *emu.CPU
		bus *memory.Bus
	)

	BeforeEach(func() {
		cpu, bus = newTestCPU()
	})

	Describe("Single data transfer", func() {
		BeforeEach(func() {
			cpu.SetRegister(2, 0x100)
		})

		It("should store and load a word", func() {
			cpu.SetRegister(0, 0xDEADBEEF)
			run(cpu, bus,
				0xE5820000, // STR r0, [r2]
				0xE5921000, // LDR r1, [r2]
			)
			Expect(cpu.GetRegister(1)).To(Equal(uint32(0xDEADBEEF)))
			Expect(bus.Read32(0x100)).To(Equal(uint32(0xDEADBEEF)))
		})

		DescribeTable("should rotate misaligned word loads",
			func(offset uint32, expected uint32) {
				Expect(bus.LoadWords(0x100, 0x44332211)).To(Succeed())
				run(cpu, bus, encodeSingle(true, false, true, true, false, 2, 1, offset))
				Expect(cpu.GetRegister(1)).To(Equal(expected))
			},
			Entry("aligned", uint32(0), uint32(0x44332211)),
			Entry("+1", uint32(1), uint32(0x11443322)),
			Entry("+2", uint32(2), uint32(0x22114433)),
			Entry("+3", uint32(3), uint32(0x33221144)),
		)

		It("should store a misaligned word at the aligned address", func() {
			cpu.SetRegister(0, 0xCAFEBABE)
			run(cpu, bus, encodeSingle(false, false, true, true, false, 2, 0, 2))
			Expect(bus.Read32(0x100)).To(Equal(uint32(0xCAFEBABE)))
		})

		It("should load and store bytes", func() {
			Expect(bus.LoadWords(0x100, 0x44332211)).To(Succeed())
			cpu.SetRegister(0, 0x1FF)
			run(cpu, bus,
				encodeSingle(true, true, true, true, false, 2, 1, 1),  // LDRB r1, [r2, #1]
				encodeSingle(false, true, true, true, false, 2, 0, 3), // STRB r0, [r2, #3]
			)
			Expect(cpu.GetRegister(1)).To(Equal(uint32(0x22)))
			Expect(bus.Read32(0x100)).To(Equal(uint32(0xFF332211)))
		})

		It("should write back a pre-indexed address with W", func() {
			run(cpu, bus, encodeSingle(true, false, true, true, true, 2, 1, 4))
			Expect(cpu.GetRegister(2)).To(Equal(uint32(0x104)))
		})

		It("should not write back a pre-indexed address without W", func() {
			run(cpu, bus, encodeSingle(true, false, true, true, false, 2, 1, 4))
			Expect(cpu.GetRegister(2)).To(Equal(uint32(0x100)))
		})

		It("should always write back post-indexed addresses", func() {
			Expect(bus.LoadWords(0x100, 0x11111111, 0x22222222)).To(Succeed())
			run(cpu, bus, encodeSingle(true, false, false, true, false, 2, 1, 4))
			Expect(cpu.GetRegister(1)).To(Equal(uint32(0x11111111)))
			Expect(cpu.GetRegister(2)).To(Equal(uint32(0x104)))
		})

		It("should subtract the offset when U is clear", func() {
			cpu.SetRegister(0, 0x5A5A5A5A)
			run(cpu, bus, encodeSingle(false, false, true, false, false, 2, 0, 4))
			Expect(bus.Read32(0xFC)).To(Equal(uint32(0x5A5A5A5A)))
		})

		It("should use a shifted register offset", func() {
			Expect(bus.LoadWords(0x10C, 0x600DF00D)).To(Succeed())
			cpu.SetRegister(3, 3)
			// LDR r1, [r2, r3, LSL #2]
			run(cpu, bus, encodeSingle(true, false, true, true, false, 2, 1, 2<<7|3)|1<<25)
			Expect(cpu.GetRegister(1)).To(Equal(uint32(0x600DF00D)))
		})

		It("should prefer the loaded value when Rd is the base", func() {
			Expect(bus.LoadWords(0x100, 0x77)).To(Succeed())
			run(cpu, bus, encodeSingle(true, false, false, true, false, 2, 2, 4))
			Expect(cpu.GetRegister(2)).To(Equal(uint32(0x77)))
		})

		It("should store PC plus 12 by default", func() {
			run(cpu, bus, encodeSingle(false, false, true, true, false, 2, 15, 0))
			Expect(bus.Read32(0x100)).To(Equal(uint32(12)))
		})

		It("should store PC plus 8 when configured", func() {
			config := emu.DefaultConfig()
			config.StorePCOffset = 8
			cpu, bus = newTestCPU(emu.WithConfig(config))
			cpu.SetRegister(2, 0x100)

			run(cpu, bus, encodeSingle(false, false, true, true, false, 2, 15, 0))
			Expect(bus.Read32(0x100)).To(Equal(uint32(8)))
		})

		It("should leave read-only memory unchanged", func() {
			Expect(bus.LoadWords(romBase, 0x12345678)).To(Succeed())
			cpu.SetRegister(2, romBase)
			cpu.SetRegister(0, 0)
			run(cpu, bus, 0xE5820000) // STR r0, [r2]
			Expect(bus.Read32(romBase)).To(Equal(uint32(0x12345678)))
		})
	})

	Describe("Halfword transfer", func() {
		BeforeEach(func() {
			cpu.SetRegister(2, 0x200)
		})

		It("should run the halfword store/load sequence", func() {
			run(cpu, bus,
				0xE3E00000, // MVN r0, #0
				0xE1C200B0, // STRH r0, [r2]
				0xE1A00820, // MOV r0, r0, LSR #16
				0xE5921000, // LDR r1, [r2]
				0xE1510000, // CMP r1, r0
			)
			Expect(cpu.GetRegister(1)).To(Equal(uint32(0xFFFF)))
			Expect(cpu.RegFile().CPSR().Z()).To(BeTrue())

			run(cpu, bus,
				0xE5820000, // STR r0, [r2]
				0xE1D210B0, // LDRH r1, [r2]
				0xE1510000, // CMP r1, r0
			)
			Expect(cpu.RegFile().CPSR().Z()).To(BeTrue())
		})

		It("should sign-extend LDRSH", func() {
			run(cpu, bus,
				0xE3A00C7F, // MOV r0, #0x7F00
				0xE1C200B0, // STRH r0, [r2]
				0xE1D210F0, // LDRSH r1, [r2]
			)
			Expect(cpu.GetRegister(1)).To(Equal(uint32(0x7F00)))

			run(cpu, bus,
				0xE3A00CFF, // MOV r0, #0xFF00
				0xE1C200B0, // STRH r0, [r2]
				0xE1D210F0, // LDRSH r1, [r2]
			)
			Expect(cpu.GetRegister(1)).To(Equal(uint32(0xFFFFFF00)))
		})

		It("should sign-extend LDRSB", func() {
			Expect(bus.LoadWords(0x200, 0x00008000)).To(Succeed())
			run(cpu, bus, encodeHalfword(true, 0b10, true, true, false, 2, 1, 1))
			Expect(cpu.GetRegister(1)).To(Equal(uint32(0xFFFFFF80)))
		})

		It("should rotate a misaligned LDRH right by 8", func() {
			cpu.SetRegister(0, 0xABCD)
			run(cpu, bus,
				encodeHalfword(false, 0b01, true, true, false, 2, 0, 0), // STRH r0, [r2]
				encodeHalfword(true, 0b01, true, true, false, 2, 1, 1),  // LDRH r1, [r2, #1]
			)
			Expect(cpu.GetRegister(1)).To(Equal(uint32(0xCD0000AB)))
		})

		It("should load a sign-extended byte for a misaligned LDRSH", func() {
			cpu.SetRegister(0, 0x80AB)
			run(cpu, bus,
				encodeHalfword(false, 0b01, true, true, false, 2, 0, 0),
				encodeHalfword(true, 0b11, true, true, false, 2, 1, 1), // LDRSH r1, [r2, #1]
			)
			Expect(cpu.GetRegister(1)).To(Equal(uint32(0xFFFFFF80)))
		})

		It("should compose a split immediate offset", func() {
			Expect(bus.LoadWords(0x200+0x24, 0x1234)).To(Succeed())
			run(cpu, bus, encodeHalfword(true, 0b01, true, true, true, 2, 1, 0x24))
			Expect(cpu.GetRegister(1)).To(Equal(uint32(0x1234)))
			Expect(cpu.GetRegister(2)).To(Equal(uint32(0x224)))
		})

		It("should use a register offset", func() {
			Expect(bus.LoadWords(0x208, 0x4321)).To(Succeed())
			cpu.SetRegister(3, 8)
			run(cpu, bus, 0xE19210B3) // LDRH r1, [r2, r3]
			Expect(cpu.GetRegister(1)).To(Equal(uint32(0x4321)))
		})
	})

	Describe("Swap", func() {
		BeforeEach(func() {
			cpu.SetRegister(2, 0x300)
			Expect(bus.LoadWords(0x300, 0x12345678)).To(Succeed())
		})

		It("should swap a word", func() {
			cpu.SetRegister(1, 0xCAFEBABE)
			run(cpu, bus, 0xE1020091) // SWP r0, r1, [r2]
			Expect(cpu.GetRegister(0)).To(Equal(uint32(0x12345678)))
			Expect(bus.Read32(0x300)).To(Equal(uint32(0xCAFEBABE)))
		})

		It("should swap a byte", func() {
			cpu.SetRegister(1, 0xAB)
			run(cpu, bus, 0xE1420091) // SWPB r0, r1, [r2]
			Expect(cpu.GetRegister(0)).To(Equal(uint32(0x78)))
			Expect(bus.Read32(0x300)).To(Equal(uint32(0x123456AB)))
		})

		It("should swap with the same source and destination", func() {
			cpu.SetRegister(1, 0xCAFEBABE)
			run(cpu, bus, 0xE1021091) // SWP r1, r1, [r2]
			Expect(cpu.GetRegister(1)).To(Equal(uint32(0x12345678)))
			Expect(bus.Read32(0x300)).To(Equal(uint32(0xCAFEBABE)))
		})
	})
})
