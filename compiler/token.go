package compiler

import (
	"fmt"

	"github.com/chazu/bfi/pkg/bytecode"
)

// Position represents a location in source code.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number, counted in runes
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a recognized command together with where it was found.
type Token struct {
	Cmd bytecode.Command
	Pos Position
}

func (t Token) String() string {
	return fmt.Sprintf("%s@%s", t.Cmd, t.Pos)
}

// Decode maps a source character to its command. Any other character is
// not a command and reports false; such characters are comments.
func Decode(r rune) (bytecode.Command, bool) {
	switch r {
	case '>':
		return bytecode.CmdIncPointer, true
	case '<':
		return bytecode.CmdDecPointer, true
	case '+':
		return bytecode.CmdIncValue, true
	case '-':
		return bytecode.CmdDecValue, true
	case '.':
		return bytecode.CmdOutput, true
	case ',':
		return bytecode.CmdInput, true
	case '[':
		return bytecode.CmdLoopStart, true
	case ']':
		return bytecode.CmdLoopEnd, true
	default:
		return 0, false
	}
}

// Commands strips positions from tokens.
func Commands(tokens []Token) []bytecode.Command {
	cmds := make([]bytecode.Command, len(tokens))
	for i, tok := range tokens {
		cmds[i] = tok.Cmd
	}
	return cmds
}
