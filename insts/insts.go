// Package insts provides ARM32 (ARM7TDMI) instruction definitions and
// decoding.
//
// This package turns raw 32-bit ARM instruction words into a structured
// Instruction carrying the condition code, the opcode and the raw word.
// Operand fields are not copied out at decode time; they are read lazily
// through accessor methods, because the same bit positions mean different
// things in different instruction classes. It recognizes:
//   - Data Processing and PSR Transfer (AND ... MVN, MRS, MSR)
//   - Multiply and Multiply Long (MUL, MLA, UMULL, UMLAL, SMULL, SMLAL)
//   - Single Data Swap (SWP, SWPB)
//   - Single Data Transfer (LDR, LDRB, STR, STRB)
//   - Halfword and Signed Data Transfer (LDRH, LDRSB, LDRSH, STRH)
//   - Block Data Transfer (LDM, STM)
//   - Branch, Branch with Link and Branch and Exchange (B, BL, BX)
//   - Software Interrupt (SWI)
//
// Every other encoding decodes to OpUndefined.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0xE3A00020) // MOV R0, #32
//	fmt.Printf("Op: %v, Cond: %v, Rd: %d\n", inst.Op, inst.Cond, inst.Rd())
package insts
