package compiler

import (
	"github.com/chazu/bfi/pkg/bytecode"
)

// Diagnostic reports a problem at a source position.
type Diagnostic struct {
	Pos     Position
	Index   int   // token index of the offending command
	Err     error // bytecode.ErrUnmatchedLoopEnd or bytecode.ErrUnmatchedLoopStart
	Message string
}

// MatchBrackets pairs every loop start with its loop end. The result maps
// token indices both ways; unmatched brackets are absent.
func MatchBrackets(tokens []Token) map[int]int {
	pairs := make(map[int]int)
	var open []int
	for i, tok := range tokens {
		switch tok.Cmd {
		case bytecode.CmdLoopStart:
			open = append(open, i)
		case bytecode.CmdLoopEnd:
			if len(open) == 0 {
				continue
			}
			start := open[len(open)-1]
			open = open[:len(open)-1]
			pairs[start] = i
			pairs[i] = start
		}
	}
	return pairs
}

// Check reports every unmatched bracket in tokens, in source order. Unlike
// program validation it does not stop at the first problem, which suits
// editors.
func Check(tokens []Token) []Diagnostic {
	var diags []Diagnostic
	var open []int
	for i, tok := range tokens {
		switch tok.Cmd {
		case bytecode.CmdLoopStart:
			open = append(open, i)
		case bytecode.CmdLoopEnd:
			if len(open) == 0 {
				diags = append(diags, Diagnostic{
					Pos:     tok.Pos,
					Index:   i,
					Err:     bytecode.ErrUnmatchedLoopEnd,
					Message: "']' has no matching '['",
				})
				continue
			}
			open = open[:len(open)-1]
		}
	}

	for _, i := range open {
		diags = append(diags, Diagnostic{
			Pos:     tokens[i].Pos,
			Index:   i,
			Err:     bytecode.ErrUnmatchedLoopStart,
			Message: "'[' is never closed",
		})
	}

	// A stray end only occurs while no start is open, so every one of them
	// precedes the unclosed starts and diags is already in source order.
	return diags
}
