package compiler

import (
	"fmt"
	"io"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/bfi/pkg/bytecode"
)

// SyntaxError is a malformed-program error located in the source.
type SyntaxError struct {
	Pos Position
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %v", e.Pos, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Options controls how source is compiled.
type Options struct {
	Optimize bool // fold runs and precompute loop targets
	Trace    bool // log every executed instruction
	Reserve  int  // initial tape capacity; 0 for the default
}

func (o Options) programOptions() []bytecode.Option {
	return []bytecode.Option{
		bytecode.WithTrace(o.Trace),
		bytecode.WithReserve(o.Reserve),
	}
}

// Compile reads source from r and builds an executable program.
// Unbalanced loops are reported as a *SyntaxError at the first offending
// bracket.
func Compile(r io.Reader, opts Options) (bytecode.Executable, error) {
	tokens, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return CompileTokens(tokens, opts)
}

// CompileString compiles source held in memory.
func CompileString(src string, opts Options) (bytecode.Executable, error) {
	return Compile(strings.NewReader(src), opts)
}

// CompileTokens builds an executable program from already lexed tokens.
func CompileTokens(tokens []Token, opts Options) (bytecode.Executable, error) {
	if diags := Check(tokens); len(diags) > 0 {
		return nil, &SyntaxError{Pos: diags[0].Pos, Err: diags[0].Err}
	}

	prog, err := bytecode.Compile(Commands(tokens), opts.Optimize, opts.programOptions()...)
	if err != nil {
		return nil, err
	}

	commonlog.GetLogger("bfi.compiler").Debugf("compiled %d commands into %d instructions (optimized=%v)",
		len(tokens), prog.Len(), opts.Optimize)
	return prog, nil
}
