// Package emu provides functional ARM7TDMI emulation: the banked register
// file, the execution units and the CPU that decodes and executes ARM32
// instructions against a host-supplied Memory.
package emu

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/arm7sim/insts"
)

// Hook positions invoked around every executed instruction. The hook
// context Item is an *ExecuteEvent.
var (
	HookPosBeforeExecute = &sim.HookPos{Name: "CPU Before Execute"}
	HookPosAfterExecute  = &sim.HookPos{Name: "CPU After Execute"}
)

// ExecuteEvent describes one instruction passing through Execute.
type ExecuteEvent struct {
	// Addr is the address of the instruction.
	Addr uint32

	// Inst is the decoded instruction.
	Inst insts.Instruction

	// Executed is false when the condition check failed. Only meaningful
	// after execution.
	Executed bool

	// Err is the execution error, if any. Only meaningful after execution.
	Err error
}

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Addr is the address the instruction was fetched from.
	Addr uint32

	// Inst is the decoded instruction.
	Inst insts.Instruction

	// Err is set if an error occurred during execution.
	Err error
}

// CPU executes ARM32 instructions functionally.
type CPU struct {
	*sim.HookableBase

	regFile *RegFile
	memory  Memory
	decoder *insts.Decoder
	config  *Config
	logger  logr.Logger

	// Execution units
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit
	psrUnit    *PSRTransferUnit

	// Execution state
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// CPUOption is a functional option for configuring the CPU.
type CPUOption func(*CPU)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger logr.Logger) CPUOption {
	return func(c *CPU) {
		c.logger = logger
	}
}

// WithConfig sets the CPU configuration.
func WithConfig(config *Config) CPUOption {
	return func(c *CPU) {
		c.config = config.Clone()
	}
}

// WithMaxInstructions sets the maximum number of instructions Step will
// execute. A value of 0 means no limit.
func WithMaxInstructions(max uint64) CPUOption {
	return func(c *CPU) {
		c.maxInstructions = max
	}
}

// NewCPU creates a new ARM7TDMI CPU attached to memory.
func NewCPU(memory Memory, opts ...CPUOption) (*CPU, error) {
	c := &CPU{
		HookableBase: sim.NewHookableBase(),
		memory:       memory,
		decoder:      insts.NewDecoder(),
		config:       DefaultConfig(),
		logger:       logr.Discard(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cpu config: %w", err)
	}

	c.Reset()

	return c, nil
}

// Reset restores the register file to its reset state and clears the
// instruction count. Memory is left untouched.
func (c *CPU) Reset() {
	c.regFile = NewRegFile(c.config.operatingMode())
	c.regFile.SetInvalidModePolicy(c.config.InvalidModePolicy)
	c.regFile.SetPC(c.config.ResetPC)
	c.instructionCount = 0

	// Recreate execution units
	c.alu = NewALU(c.regFile)
	c.lsu = NewLoadStoreUnit(c.regFile, c.memory, c.config.StorePCOffset)
	c.branchUnit = NewBranchUnit(c.regFile)
	c.psrUnit = NewPSRTransferUnit(c.regFile)
}

// RegFile returns the CPU's register file.
func (c *CPU) RegFile() *RegFile {
	return c.regFile
}

// Memory returns the memory the CPU is attached to.
func (c *CPU) Memory() Memory {
	return c.memory
}

// Config returns a copy of the CPU configuration.
func (c *CPU) Config() *Config {
	return c.config.Clone()
}

// InstructionCount returns the number of instructions passed to Execute,
// including those whose condition failed.
func (c *CPU) InstructionCount() uint64 {
	return c.instructionCount
}

// GetRegister reads logical register n in the current mode.
func (c *CPU) GetRegister(n uint8) uint32 {
	return c.regFile.GetRegister(n)
}

// SetRegister writes logical register n in the current mode.
func (c *CPU) SetRegister(n uint8, value uint32) {
	c.regFile.SetRegister(n, value)
}

// SetOperatingMode switches the CPU to mode m.
func (c *CPU) SetOperatingMode(m OperatingMode) {
	c.regFile.SetOperatingMode(m)
}

// EvaluateCond reports whether cond passes against the current flags.
func (c *CPU) EvaluateCond(cond insts.Cond) bool {
	return c.branchUnit.CheckCondition(cond)
}

// Decode decodes an instruction word.
func (c *CPU) Decode(word uint32) insts.Instruction {
	return c.decoder.Decode(word)
}

// Step fetches the word at PC, decodes it and executes it.
func (c *CPU) Step() StepResult {
	// Check instruction limit before executing
	if c.maxInstructions > 0 && c.instructionCount >= c.maxInstructions {
		return StepResult{Err: ErrMaxInstructions}
	}

	addr := c.regFile.PC()
	if c.regFile.ExecMode() == ExecThumb {
		return StepResult{
			Addr: addr,
			Err:  fmt.Errorf("%w: thumb state at PC=0x%08X", ErrUnimplemented, addr),
		}
	}

	// 1. Fetch
	word := c.memory.Read32(addr &^ 3)

	// 2. Decode
	inst := c.decoder.Decode(word)

	// 3. Execute
	err := c.Execute(inst)

	return StepResult{Addr: addr, Inst: inst, Err: err}
}

// Execute executes a decoded instruction located at the current PC. The PC
// is advanced past the instruction first, so a failed condition leaves
// only that change behind.
//
// Execution is atomic: when an error is returned, every register and PSR
// is as it was before the instruction apart from the PC advance. Errors
// are *InstructionError values wrapping ErrUndefined, ErrUnimplemented or
// ErrInvalidMode.
func (c *CPU) Execute(inst insts.Instruction) error {
	addr := c.regFile.PC()
	c.regFile.SetPC(addr + 4)

	event := &ExecuteEvent{Addr: addr, Inst: inst}
	c.invokeHook(HookPosBeforeExecute, event)

	c.instructionCount++

	if !c.branchUnit.CheckCondition(inst.Cond) {
		c.invokeHook(HookPosAfterExecute, event)
		return nil
	}

	event.Executed = true

	snapshot := *c.regFile
	if err := c.execute(inst, addr); err != nil {
		*c.regFile = snapshot
		event.Err = &InstructionError{Addr: addr, Inst: inst, Err: err}
		c.logFailure(event)
	}

	c.invokeHook(HookPosAfterExecute, event)
	return event.Err
}

// execute dispatches a decoded instruction whose condition passed.
func (c *CPU) execute(inst insts.Instruction, addr uint32) error {
	switch inst.Op {
	case insts.OpUndefined:
		return ErrUndefined

	case insts.OpAND, insts.OpEOR, insts.OpSUB, insts.OpRSB,
		insts.OpADD, insts.OpADC, insts.OpSBC, insts.OpRSC,
		insts.OpTST, insts.OpTEQ, insts.OpCMP, insts.OpCMN,
		insts.OpORR, insts.OpMOV, insts.OpBIC, insts.OpMVN:
		return c.alu.DataProcessing(inst, addr)

	case insts.OpMUL, insts.OpMLA:
		c.alu.Multiply(inst)
	case insts.OpUMULL, insts.OpUMLAL, insts.OpSMULL, insts.OpSMLAL:
		c.alu.MultiplyLong(inst)

	case insts.OpLDR, insts.OpLDRB, insts.OpSTR, insts.OpSTRB:
		c.lsu.SingleDataTransfer(inst, addr)
	case insts.OpLDRH, insts.OpLDRSB, insts.OpLDRSH, insts.OpSTRH:
		c.lsu.HalfwordTransfer(inst, addr)
	case insts.OpLDM, insts.OpSTM:
		return c.lsu.BlockDataTransfer(inst, addr)
	case insts.OpSWP, insts.OpSWPB:
		c.lsu.Swap(inst)

	case insts.OpMRS:
		c.psrUnit.MRS(inst)
	case insts.OpMSR:
		return c.psrUnit.MSR(inst)

	case insts.OpB:
		c.branchUnit.B(addr, inst.BranchOffset())
	case insts.OpBL:
		c.branchUnit.BL(addr, inst.BranchOffset())
	case insts.OpBX:
		c.branchUnit.BX(inst.Rm(), addr)

	case insts.OpSWI:
		return fmt.Errorf("%w: software interrupt 0x%06X", ErrUnimplemented, inst.Comment())

	default:
		return fmt.Errorf("%w: no handler for %v", ErrUnimplemented, inst.Op)
	}

	return nil
}

func (c *CPU) invokeHook(pos *sim.HookPos, event *ExecuteEvent) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   event,
	})
}

func (c *CPU) logFailure(event *ExecuteEvent) {
	kv := []any{"addr", fmt.Sprintf("0x%08X", event.Addr), "inst", event.Inst.String()}

	switch {
	case errors.Is(event.Err, ErrUndefined):
		c.logger.V(1).Info("undefined instruction", kv...)
	default:
		c.logger.Error(event.Err, "instruction failed", kv...)
	}
}
