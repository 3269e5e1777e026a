package bytecode

import (
	"errors"
	"fmt"
)

var (
	// ErrUnmatchedLoopEnd reports a loop end with no open loop start.
	ErrUnmatchedLoopEnd = errors.New("unexpected end of loop")

	// ErrUnmatchedLoopStart reports a loop start that is never closed.
	ErrUnmatchedLoopStart = errors.New("missing end of loop")

	// ErrBadJumpTarget reports an optimized loop instruction whose target
	// does not point at its matching partner.
	ErrBadJumpTarget = errors.New("loop jump target does not match its partner")

	// ErrInvalidInstruction reports an unknown opcode or an out-of-range
	// count in an optimized sequence.
	ErrInvalidInstruction = errors.New("invalid instruction")

	// ErrInputExhausted reports an input instruction executed after the
	// input stream reached EOF.
	ErrInputExhausted = errors.New("input exhausted")
)

// LoopError describes a malformed program found while building it, most
// often a loop balance violation. Index is the position of the offending
// command or instruction.
type LoopError struct {
	Index int
	Err   error
}

func (e *LoopError) Error() string {
	return fmt.Sprintf("bytecode: %v at index %d", e.Err, e.Index)
}

func (e *LoopError) Unwrap() error {
	return e.Err
}

// ExecError wraps an I/O failure that aborted execution.
type ExecError struct {
	PC  int    // program counter of the failing instruction (-1 for flush)
	Op  string // command or opcode name
	Err error
}

func (e *ExecError) Error() string {
	if e.PC < 0 {
		return fmt.Sprintf("bytecode: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("bytecode: %s at pc %d: %v", e.Op, e.PC, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
