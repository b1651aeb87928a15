package memory_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/arm7sim/memory"
)

var _ = Describe("Bus", func() {
	var bus *memory.Bus

	BeforeEach(func() {
		var err error
		bus, err = memory.NewBus(&memory.Layout{
			Regions: []memory.Region{
				{Name: "rom", Base: 0x08000000, Size: 0x100, ReadOnly: true},
				{Name: "ram", Base: 0, Size: 0x1000},
				{Name: "io", Base: 0x04000000, Size: 0x10},
			},
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("should reject an invalid layout", func() {
		_, err := memory.NewBus(&memory.Layout{})
		Expect(err).To(HaveOccurred())
	})

	It("should list regions by base address", func() {
		regions := bus.Regions()
		Expect(regions).To(HaveLen(3))
		Expect(regions[0].Name).To(Equal("ram"))
		Expect(regions[1].Name).To(Equal("io"))
		Expect(regions[2].Name).To(Equal("rom"))
	})

	It("should start zero-filled", func() {
		Expect(bus.Read32(0x100)).To(BeZero())
	})

	It("should store words little-endian", func() {
		bus.Write32(0x10, 0x11223344)
		Expect(bus.Read8(0x10)).To(Equal(uint8(0x44)))
		Expect(bus.Read8(0x13)).To(Equal(uint8(0x11)))
		Expect(bus.Read16(0x10)).To(Equal(uint16(0x3344)))
		Expect(bus.Read16(0x12)).To(Equal(uint16(0x1122)))
		Expect(bus.Read32(0x10)).To(Equal(uint32(0x11223344)))
	})

	It("should not align accesses", func() {
		bus.Write32(0x21, 0xAABBCCDD)
		Expect(bus.Read8(0x20)).To(BeZero())
		Expect(bus.Read8(0x21)).To(Equal(uint8(0xDD)))
		Expect(bus.Read32(0x21)).To(Equal(uint32(0xAABBCCDD)))
	})

	It("should report which addresses are mapped", func() {
		Expect(bus.Mapped(0)).To(BeTrue())
		Expect(bus.Mapped(0xFFF)).To(BeTrue())
		Expect(bus.Mapped(0x1000)).To(BeFalse())
		Expect(bus.Mapped(0x0800000F)).To(BeTrue())
		Expect(bus.Mapped(0x08000100)).To(BeFalse())
	})

	It("should read 0 from unmapped addresses and drop writes", func() {
		bus.Write32(0x2000, 0xFFFFFFFF)
		Expect(bus.Read32(0x2000)).To(BeZero())
	})

	It("should compose accesses that straddle a region boundary", func() {
		bus.Write16(0xFFF, 0xBEEF)
		Expect(bus.Read8(0xFFF)).To(Equal(uint8(0xEF)))
		Expect(bus.Read16(0xFFF)).To(Equal(uint16(0x00EF)))
	})

	It("should dispatch to the region holding the address", func() {
		bus.Write8(0x04000003, 0x7F)
		Expect(bus.Read8(0x04000003)).To(Equal(uint8(0x7F)))
		Expect(bus.Read8(0x3)).To(BeZero())
	})

	Describe("Read-only regions", func() {
		It("should ignore CPU writes", func() {
			bus.Write32(0x08000000, 0x12345678)
			Expect(bus.Read32(0x08000000)).To(BeZero())
			Expect(bus.ReadOnly(0x08000000)).To(BeTrue())
			Expect(bus.ReadOnly(0x0)).To(BeFalse())
			Expect(bus.ReadOnly(0x09000000)).To(BeFalse())
		})

		It("should accept host loads", func() {
			Expect(bus.LoadWords(0x08000000, 0xE3A00001, 0xE12FFF1E)).To(Succeed())
			Expect(bus.Read32(0x08000000)).To(Equal(uint32(0xE3A00001)))
			Expect(bus.Read32(0x08000004)).To(Equal(uint32(0xE12FFF1E)))
		})
	})

	It("should fail to load into unmapped memory", func() {
		Expect(bus.Load(0xFFE, []byte{1, 2, 3})).NotTo(Succeed())
	})
})
