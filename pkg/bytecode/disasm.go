package bytecode

import (
	"fmt"
	"strings"
)

// commandsPerLine is how many raw commands one listing line shows.
const commandsPerLine = 64

// Disassemble returns a listing of the raw program: the command text in
// fixed-width rows prefixed by the index of each row's first command.
func (p *Program) Disassemble() string {
	return DisassembleCommands(p.commands)
}

// Disassemble returns a listing of the optimized program, one instruction
// per line, indented by loop depth.
func (p *OptimizedProgram) Disassemble() string {
	return DisassembleInstructions(p.code)
}

// DisassembleCommands renders raw commands.
func DisassembleCommands(cmds []Command) string {
	var sb strings.Builder

	loops := 0
	for _, c := range cmds {
		if c == CmdLoopStart {
			loops++
		}
	}
	sb.WriteString("; bfi raw program\n")
	sb.WriteString(fmt.Sprintf("; %d commands, %d loops\n\n", len(cmds), loops))

	for row := 0; row < len(cmds); row += commandsPerLine {
		end := min(row+commandsPerLine, len(cmds))
		sb.WriteString(fmt.Sprintf("%04d  ", row))
		for _, c := range cmds[row:end] {
			sb.WriteRune(c.Symbol())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// DisassembleInstructions renders optimized instructions.
func DisassembleInstructions(code []Instruction) string {
	var sb strings.Builder

	loops := 0
	for _, in := range code {
		if in.Op == OpLoopStart {
			loops++
		}
	}
	sb.WriteString("; bfi optimized program\n")
	sb.WriteString(fmt.Sprintf("; %d instructions, %d loops, %d source commands\n\n",
		len(code), loops, foldedCount(code)))

	depth := 0
	for i, in := range code {
		if in.Op == OpLoopEnd && depth > 0 {
			depth--
		}
		sb.WriteString(fmt.Sprintf("%04d  %s%s\n", i, strings.Repeat("  ", depth), in))
		if in.Op == OpLoopStart {
			depth++
		}
	}
	return sb.String()
}

// foldedCount is the number of source commands the instructions stand for.
func foldedCount(code []Instruction) uint {
	var n uint
	for _, in := range code {
		if in.Op.IsCounted() {
			n += in.Arg
		} else {
			n++
		}
	}
	return n
}
