package insts_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/arm7sim/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("Condition field", func() {
		DescribeTable("should map bits [31:28] to a condition",
			func(word uint32, cond insts.Cond) {
				Expect(decoder.Decode(word).Cond).To(Equal(cond))
			},
			Entry("EQ", uint32(0x03A00020), insts.CondEQ),
			Entry("NE", uint32(0x13A00020), insts.CondNE),
			Entry("CS", uint32(0x23A00020), insts.CondCS),
			Entry("CC", uint32(0x33A00020), insts.CondCC),
			Entry("MI", uint32(0x43A00020), insts.CondMI),
			Entry("PL", uint32(0x53A00020), insts.CondPL),
			Entry("VS", uint32(0x63A00020), insts.CondVS),
			Entry("VC", uint32(0x73A00020), insts.CondVC),
			Entry("HI", uint32(0x83A00020), insts.CondHI),
			Entry("LS", uint32(0x93A00020), insts.CondLS),
			Entry("GE", uint32(0xA3A00020), insts.CondGE),
			Entry("LT", uint32(0xB3A00020), insts.CondLT),
			Entry("GT", uint32(0xC3A00020), insts.CondGT),
			Entry("LE", uint32(0xD3A00020), insts.CondLE),
			Entry("AL", uint32(0xE3A00020), insts.CondAL),
			Entry("NV", uint32(0xF3A00020), insts.CondNV),
		)

		It("should keep the opcode for the reserved condition", func() {
			inst := decoder.Decode(0xF3A00020)
			Expect(inst.Op).To(Equal(insts.OpMOV))
			Expect(inst.Cond).To(Equal(insts.CondNV))
		})
	})

	Describe("Fixed patterns", func() {
		It("should decode BX R1", func() {
			inst := decoder.Decode(0xE12FFF11)
			Expect(inst.Op).To(Equal(insts.OpBX))
			Expect(inst.Rm()).To(Equal(uint8(1)))
		})

		It("should decode SWI", func() {
			inst := decoder.Decode(0xEF000042)
			Expect(inst.Op).To(Equal(insts.OpSWI))
			Expect(inst.Comment()).To(Equal(uint32(0x42)))
		})

		It("should not take a near-BX word for BX", func() {
			// bits [7:4] = 0010 instead of 0001
			Expect(decoder.Decode(0xE12FFF21).Op).NotTo(Equal(insts.OpBX))
		})
	})

	Describe("Data processing", func() {
		DescribeTable("should decode the ALU opcode field",
			func(word uint32, op insts.Op) {
				Expect(decoder.Decode(word).Op).To(Equal(op))
			},
			Entry("AND R0, R1, R2", uint32(0xE0010002), insts.OpAND),
			Entry("EOR R0, R1, R2", uint32(0xE0210002), insts.OpEOR),
			Entry("SUB R0, R1, R2", uint32(0xE0410002), insts.OpSUB),
			Entry("RSB R0, R1, R2", uint32(0xE0610002), insts.OpRSB),
			Entry("ADD R0, R1, R2", uint32(0xE0810002), insts.OpADD),
			Entry("ADC R0, R1, R2", uint32(0xE0A10002), insts.OpADC),
			Entry("SBC R0, R1, R2", uint32(0xE0C10002), insts.OpSBC),
			Entry("RSC R0, R1, R2", uint32(0xE0E10002), insts.OpRSC),
			Entry("TST R1, R2", uint32(0xE1110002), insts.OpTST),
			Entry("TEQ R1, R2", uint32(0xE1310002), insts.OpTEQ),
			Entry("CMP R0, R2", uint32(0xE1500002), insts.OpCMP),
			Entry("CMN R0, #32", uint32(0xE3700020), insts.OpCMN),
			Entry("ORR R0, R1, R2", uint32(0xE1810002), insts.OpORR),
			Entry("MOV R0, #32", uint32(0xE3A00020), insts.OpMOV),
			Entry("BIC R0, R0, #0xF0000000", uint32(0xE3C0020F), insts.OpBIC),
			Entry("MVN R0, #0", uint32(0xE3E00000), insts.OpMVN),
			Entry("MOV R0, R0, LSR #16", uint32(0xE1A00820), insts.OpMOV),
			Entry("ADD R0, R1, R2, LSL R3", uint32(0xE0810312), insts.OpADD),
		)

		It("should classify register-shifted operands", func() {
			inst := decoder.Decode(0xE0810312)
			Expect(inst.ShiftByRegister()).To(BeTrue())
			Expect(inst.Rs()).To(Equal(uint8(3)))
		})
	})

	Describe("PSR transfer", func() {
		DescribeTable("should accept well-formed encodings",
			func(word uint32, op insts.Op) {
				Expect(decoder.Decode(word).Op).To(Equal(op))
			},
			Entry("MRS R0, CPSR", uint32(0xE10F0000), insts.OpMRS),
			Entry("MRS R0, SPSR", uint32(0xE14F0000), insts.OpMRS),
			Entry("MSR CPSR_fc, R0", uint32(0xE129F000), insts.OpMSR),
			Entry("MSR SPSR_fc, R0", uint32(0xE169F000), insts.OpMSR),
			Entry("MSR CPSR_f, #0xF0000000", uint32(0xE328F20F), insts.OpMSR),
			Entry("MSR CPSR_c, #0x11", uint32(0xE321F011), insts.OpMSR),
		)

		DescribeTable("should reject reserved-field violations",
			func(word uint32) {
				Expect(decoder.Decode(word).Op).To(Equal(insts.OpUndefined))
			},
			Entry("MRS with bits [3:0] set", uint32(0xE10F0001)),
			Entry("MRS with bits [11:8] set", uint32(0xE10F0100)),
			Entry("MRS with bits [19:16] != 1111", uint32(0xE10E0000)),
			Entry("MRS with bit 21 set", uint32(0xE12F0000)),
			Entry("MRS with an immediate form", uint32(0xE30F0000)),
			Entry("MSR with Rd field != 1111", uint32(0xE1290000)),
			Entry("MSR with bits [11:4] set", uint32(0xE129F100)),
			Entry("MSR with bit 4 set", uint32(0xE129F010)),
			Entry("MSR with bit 21 clear", uint32(0xE109F000)),
		)

		It("should reject every non-zero pattern in the MRS should-be-zero field", func() {
			for sbz := uint32(1); sbz < 1<<12; sbz++ {
				if sbz&0x90 == 0x90 {
					// bits 7 and 4 both set select the swap/halfword space
					continue
				}
				Expect(decoder.Decode(0xE10F0000 | sbz).Op).
					To(Equal(insts.OpUndefined), "sbz=%#x", sbz)
			}
		})

		It("should decode the comparison opcodes with S set as comparisons", func() {
			Expect(decoder.Decode(0xE1100001).Op).To(Equal(insts.OpTST))
			Expect(decoder.Decode(0xE1700001).Op).To(Equal(insts.OpCMN))
		})
	})

	Describe("Multiply and swap", func() {
		DescribeTable("should decode the multiply space",
			func(word uint32, op insts.Op) {
				Expect(decoder.Decode(word).Op).To(Equal(op))
			},
			Entry("MUL R0, R1, R0", uint32(0xE0000091), insts.OpMUL),
			Entry("MLA R0, R1, R2, R1", uint32(0xE0201291), insts.OpMLA),
			Entry("UMULL R0, R1, R2, R3", uint32(0xE0810392), insts.OpUMULL),
			Entry("UMLAL R0, R1, R2, R3", uint32(0xE0A10392), insts.OpUMLAL),
			Entry("SMULL R0, R1, R2, R3", uint32(0xE0C10392), insts.OpSMULL),
			Entry("SMLAL R0, R1, R2, R3", uint32(0xE0E10392), insts.OpSMLAL),
			Entry("SWP R0, R1, [R2]", uint32(0xE1020091), insts.OpSWP),
			Entry("SWPB R0, R1, [R2]", uint32(0xE1420091), insts.OpSWPB),
			Entry("bits [24:23] = 11", uint32(0xE1800090), insts.OpUndefined),
			Entry("MUL with bit 22 set", uint32(0xE0400091), insts.OpUndefined),
			Entry("SWP with bits [21:20] set", uint32(0xE1300091), insts.OpUndefined),
			Entry("SWP with bit 20 set", uint32(0xE1120091), insts.OpUndefined),
			Entry("SWPB with bits [11:8] set", uint32(0xE1420F91), insts.OpUndefined),
		)

		It("should extract multiply registers", func() {
			inst := decoder.Decode(0xE0201291)
			Expect(inst.MulRd()).To(Equal(uint8(0)))
			Expect(inst.MulRn()).To(Equal(uint8(1)))
			Expect(inst.Rs()).To(Equal(uint8(2)))
			Expect(inst.Rm()).To(Equal(uint8(1)))
		})
	})

	Describe("Halfword and signed transfer", func() {
		DescribeTable("should decode by L and SH",
			func(word uint32, op insts.Op) {
				Expect(decoder.Decode(word).Op).To(Equal(op))
			},
			Entry("STRH R0, [R2]", uint32(0xE1C200B0), insts.OpSTRH),
			Entry("LDRH R1, [R2]", uint32(0xE1D210B0), insts.OpLDRH),
			Entry("LDRSB R1, [R2]", uint32(0xE1D210D0), insts.OpLDRSB),
			Entry("LDRSH R1, [R2]", uint32(0xE1D210F0), insts.OpLDRSH),
			Entry("LDRH R1, [R2, R3]", uint32(0xE19210B3), insts.OpLDRH),
			Entry("LDRH R1, [R2, #16]", uint32(0xE1D211B0), insts.OpLDRH),
			Entry("store with SH = 10", uint32(0xE1C200D0), insts.OpUndefined),
			Entry("store with SH = 11", uint32(0xE1C200F0), insts.OpUndefined),
			Entry("register form with bits [11:8] set", uint32(0xE19211B3), insts.OpUndefined),
		)
	})

	Describe("Single data transfer", func() {
		DescribeTable("should decode by L and B",
			func(word uint32, op insts.Op) {
				Expect(decoder.Decode(word).Op).To(Equal(op))
			},
			Entry("LDR R1, [R2]", uint32(0xE5921000), insts.OpLDR),
			Entry("STR R0, [R2]", uint32(0xE5820000), insts.OpSTR),
			Entry("LDRB R1, [R2]", uint32(0xE5D21000), insts.OpLDRB),
			Entry("STRB R1, [R2]", uint32(0xE5C21000), insts.OpSTRB),
			Entry("LDR R1, [R2, R0, LSL #2]", uint32(0xE7921100), insts.OpLDR),
			Entry("register offset with bit 4 set", uint32(0xE7921010), insts.OpUndefined),
		)
	})

	Describe("Block data transfer", func() {
		DescribeTable("should decode LDM and STM",
			func(word uint32, op insts.Op) {
				Expect(decoder.Decode(word).Op).To(Equal(op))
			},
			Entry("STMIB R11!, {R0, R1}", uint32(0xE9AB0003), insts.OpSTM),
			Entry("LDMDA R11!, {R2, R3}", uint32(0xE83B000C), insts.OpLDM),
			Entry("STMIA R11!, {R0, R1}", uint32(0xE8AB0003), insts.OpSTM),
			Entry("LDMDB R11!, {R2, R3}", uint32(0xE93B000C), insts.OpLDM),
		)
	})

	Describe("Branch", func() {
		It("should decode B and BL", func() {
			Expect(decoder.Decode(0xEA000000).Op).To(Equal(insts.OpB))
			Expect(decoder.Decode(0xEB000000).Op).To(Equal(insts.OpBL))
			Expect(decoder.Decode(0xEB000000).Link()).To(BeTrue())
		})
	})

	Describe("Coprocessor space", func() {
		It("should decode coprocessor encodings as undefined", func() {
			Expect(decoder.Decode(0xEC000000).Op).To(Equal(insts.OpUndefined))
			Expect(decoder.Decode(0xED900000).Op).To(Equal(insts.OpUndefined))
			Expect(decoder.Decode(0xEE000000).Op).To(Equal(insts.OpUndefined))
			Expect(decoder.Decode(0xEE000010).Op).To(Equal(insts.OpUndefined))
		})
	})

	Describe("Totality", func() {
		It("should decode random words to a known opcode", func() {
			rng := rand.New(rand.NewSource(42))
			for i := 0; i < 100000; i++ {
				word := rng.Uint32()
				inst := decoder.Decode(word)

				Expect(inst.Op).To(BeNumerically("<", insts.NumOps))
				Expect(inst.Raw).To(Equal(word))
				Expect(uint32(inst.Cond)).To(Equal(word >> 28))
			}
		})
	})
})
