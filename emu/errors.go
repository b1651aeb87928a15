package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/arm7sim/insts"
)

var (
	// ErrUndefined reports an architecturally undefined encoding whose
	// condition passed.
	ErrUndefined = errors.New("undefined instruction")

	// ErrUnimplemented reports a recognized opcode that this core does not
	// execute.
	ErrUnimplemented = errors.New("unimplemented instruction")

	// ErrInvalidMode reports a PSR write that selects an unrecognized mode
	// pattern.
	ErrInvalidMode = errors.New("invalid operating mode")

	// ErrMaxInstructions is returned by Step once the instruction limit is
	// reached.
	ErrMaxInstructions = errors.New("max instructions reached")
)

// InstructionError wraps an execution failure with the faulting
// instruction and its address.
type InstructionError struct {
	Addr uint32
	Inst insts.Instruction
	Err  error
}

func (e *InstructionError) Error() string {
	return fmt.Sprintf("%v at PC=0x%08X (%v)", e.Err, e.Addr, e.Inst)
}

func (e *InstructionError) Unwrap() error {
	return e.Err
}
