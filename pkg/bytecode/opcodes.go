package bytecode

import (
	"fmt"
	"math"
)

// Command is a primitive tape-machine operation as it appears in source.
// Commands carry no payload; a raw Program is a plain sequence of them.
type Command byte

const (
	CmdIncPointer Command = iota // >
	CmdDecPointer                // <
	CmdIncValue                  // +
	CmdDecValue                  // -
	CmdOutput                    // .
	CmdInput                     // ,
	CmdLoopStart                 // [
	CmdLoopEnd                   // ]
)

var commandSymbols = [...]rune{
	CmdIncPointer: '>',
	CmdDecPointer: '<',
	CmdIncValue:   '+',
	CmdDecValue:   '-',
	CmdOutput:     '.',
	CmdInput:      ',',
	CmdLoopStart:  '[',
	CmdLoopEnd:    ']',
}

// Symbol returns the source character for the command, or '?' if the
// command is out of range.
func (c Command) Symbol() rune {
	if int(c) < len(commandSymbols) {
		return commandSymbols[c]
	}
	return '?'
}

// String returns the source character of the command.
func (c Command) String() string {
	if int(c) < len(commandSymbols) {
		return string(commandSymbols[c])
	}
	return fmt.Sprintf("Command(%d)", byte(c))
}

// Valid reports whether c is one of the eight defined commands.
func (c Command) Valid() bool {
	return c <= CmdLoopEnd
}

// Opcode identifies the kind of an optimized Instruction.
type Opcode byte

const (
	// ========================================================================
	// Counted pointer moves (0x00-0x0F)
	// ========================================================================

	OpAddPointer Opcode = 0x00 // Move pointer right: OpAddPointer <count>
	OpSubPointer Opcode = 0x01 // Move pointer left: OpSubPointer <count>

	// ========================================================================
	// Counted cell arithmetic (0x10-0x1F)
	// ========================================================================

	OpAddValue Opcode = 0x10 // Wrapping add to current cell: OpAddValue <count:u8>
	OpSubValue Opcode = 0x11 // Wrapping subtract from current cell: OpSubValue <count:u8>

	// ========================================================================
	// I/O (0x20-0x2F)
	// ========================================================================

	OpOutput Opcode = 0x20 // Write current cell
	OpInput  Opcode = 0x21 // Read one byte into current cell

	// ========================================================================
	// Control flow (0x30-0x3F)
	// ========================================================================

	OpLoopStart Opcode = 0x30 // Jump past matching end if cell is zero: OpLoopStart <end>
	OpLoopEnd   Opcode = 0x31 // Jump back to matching start if cell is non-zero: OpLoopEnd <start>
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name     string // Human-readable name
	Symbol   rune   // Source command the opcode expands to
	MaxCount uint   // Largest count a counted opcode may carry (0 = not counted)
	IsJump   bool   // Argument is an instruction index
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpAddPointer: {"ADD_PTR", '>', math.MaxUint, false},
	OpSubPointer: {"SUB_PTR", '<', math.MaxUint, false},
	OpAddValue:   {"ADD_VAL", '+', math.MaxUint8, false},
	OpSubValue:   {"SUB_VAL", '-', math.MaxUint8, false},
	OpOutput:     {"OUTPUT", '.', 0, false},
	OpInput:      {"INPUT", ',', 0, false},
	OpLoopStart:  {"LOOP_START", '[', 0, true},
	OpLoopEnd:    {"LOOP_END", ']', 0, true},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op)), Symbol: '?'}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// IsCounted returns true if the opcode folds a run of commands into a count.
func (op Opcode) IsCounted() bool {
	return GetOpcodeInfo(op).MaxCount > 0
}

// IsJump returns true if the opcode's argument is a jump target.
func (op Opcode) IsJump() bool {
	return op == OpLoopStart || op == OpLoopEnd
}

// MaxCount returns the saturation limit for a counted opcode.
func (op Opcode) MaxCount() uint {
	return GetOpcodeInfo(op).MaxCount
}

// AllOpcodes returns a slice of all defined opcodes.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}

// Instruction is a single optimized instruction. Arg is the fold count for
// counted opcodes and the partner's index for loop opcodes; it is unused
// for I/O.
type Instruction struct {
	Op  Opcode
	Arg uint
}

// Convenience constructors, mostly for tests and hand-built programs.

func AddPointer(n uint) Instruction { return Instruction{OpAddPointer, n} }
func SubPointer(n uint) Instruction { return Instruction{OpSubPointer, n} }
func AddValue(n uint8) Instruction  { return Instruction{OpAddValue, uint(n)} }
func SubValue(n uint8) Instruction  { return Instruction{OpSubValue, uint(n)} }
func Output() Instruction           { return Instruction{Op: OpOutput} }
func Input() Instruction            { return Instruction{Op: OpInput} }
func LoopStart(end int) Instruction { return Instruction{OpLoopStart, uint(end)} }
func LoopEnd(start int) Instruction { return Instruction{OpLoopEnd, uint(start)} }

// String renders the instruction the way the disassembler prints it.
func (in Instruction) String() string {
	switch {
	case in.Op.IsJump():
		return fmt.Sprintf("%s -> %d", in.Op, in.Arg)
	case in.Op.IsCounted():
		return fmt.Sprintf("%s %d", in.Op, in.Arg)
	default:
		return in.Op.String()
	}
}
