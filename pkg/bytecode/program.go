package bytecode

import "io"

// Executable is a validated program ready to run. Both program forms
// implement it.
type Executable interface {
	// Execute runs the program from a fresh tape, reading Input bytes from
	// in and writing Output bytes to out. out is flushed once at the end
	// if it has a Flush method.
	Execute(in io.Reader, out io.Writer) error

	// Cells returns a copy of the tape left by the last execution.
	Cells() []byte

	// Origin returns the index in Cells of the cell execution started on.
	Origin() int

	// Stats returns counters from the last execution.
	Stats() Stats

	// Optimized reports whether this is the folded instruction form.
	Optimized() bool

	// Len returns the number of instructions.
	Len() int

	// Disassemble returns a human-readable listing.
	Disassemble() string
}

// Option configures a program at construction.
type Option func(*machine)

// WithTrace logs every executed instruction at debug level.
func WithTrace(trace bool) Option {
	return func(m *machine) { m.trace = trace }
}

// WithReserve sets the initial backing capacity of the tape.
func WithReserve(cells int) Option {
	return func(m *machine) { m.tape = NewTape(cells) }
}

// Program is the unoptimized form: commands exactly as written. Loop
// partners are found by scanning at run time.
type Program struct {
	machine
	commands []Command
}

// NewProgram validates cmds and wraps them in a Program. It fails with a
// *LoopError if the loops do not balance. The slice is retained; callers
// must not modify it afterwards.
func NewProgram(cmds []Command, opts ...Option) (*Program, error) {
	if err := CheckCommands(cmds); err != nil {
		return nil, err
	}
	p := &Program{commands: cmds}
	p.configure(opts)
	return p, nil
}

// Commands returns the program's commands. The result must not be modified.
func (p *Program) Commands() []Command {
	return p.commands
}

func (p *Program) Len() int        { return len(p.commands) }
func (p *Program) Optimized() bool { return false }

// OptimizedProgram is the folded form with precomputed loop targets.
type OptimizedProgram struct {
	machine
	code []Instruction
}

// NewOptimizedProgram validates code and wraps it in an OptimizedProgram.
// Besides loop balance it checks that every loop instruction points at its
// partner, since the engine trusts those targets without bounds checks on
// the hot path.
func NewOptimizedProgram(code []Instruction, opts ...Option) (*OptimizedProgram, error) {
	if err := CheckInstructions(code); err != nil {
		return nil, err
	}
	p := &OptimizedProgram{code: code}
	p.configure(opts)
	return p, nil
}

// Code returns the program's instructions. The result must not be modified.
func (p *OptimizedProgram) Code() []Instruction {
	return p.code
}

func (p *OptimizedProgram) Len() int        { return len(p.code) }
func (p *OptimizedProgram) Optimized() bool { return true }

// Compile builds an executable from commands, optimizing when asked.
func Compile(cmds []Command, optimize bool, opts ...Option) (Executable, error) {
	if !optimize {
		return NewProgram(cmds, opts...)
	}
	code, err := Optimize(cmds)
	if err != nil {
		return nil, err
	}
	return NewOptimizedProgram(code, opts...)
}

// CheckCommands verifies loop balance of a command sequence: nesting depth
// never goes negative and ends at zero.
func CheckCommands(cmds []Command) error {
	depth := 0
	for i, cmd := range cmds {
		switch cmd {
		case CmdLoopStart:
			depth++
		case CmdLoopEnd:
			if depth == 0 {
				return &LoopError{Index: i, Err: ErrUnmatchedLoopEnd}
			}
			depth--
		default:
			if !cmd.Valid() {
				return &LoopError{Index: i, Err: ErrInvalidInstruction}
			}
		}
	}
	if depth != 0 {
		return &LoopError{Index: unclosedStart(cmds), Err: ErrUnmatchedLoopStart}
	}
	return nil
}

// unclosedStart finds the outermost loop start that is never closed.
func unclosedStart(cmds []Command) int {
	depth := 0
	found := -1
	for i := len(cmds) - 1; i >= 0; i-- {
		switch cmds[i] {
		case CmdLoopEnd:
			depth++
		case CmdLoopStart:
			if depth == 0 {
				found = i
			} else {
				depth--
			}
		}
	}
	return found
}

// CheckInstructions verifies loop balance of an optimized sequence and that
// each loop start and end name each other as targets. Unknown opcodes and
// counts above an opcode's limit are rejected too.
func CheckInstructions(code []Instruction) error {
	var open []int
	for i, in := range code {
		switch in.Op {
		case OpLoopStart:
			open = append(open, i)
		case OpLoopEnd:
			if len(open) == 0 {
				return &LoopError{Index: i, Err: ErrUnmatchedLoopEnd}
			}
			start := open[len(open)-1]
			open = open[:len(open)-1]
			if code[start].Arg != uint(i) {
				return &LoopError{Index: start, Err: ErrBadJumpTarget}
			}
			if in.Arg != uint(start) {
				return &LoopError{Index: i, Err: ErrBadJumpTarget}
			}
		case OpOutput, OpInput:
		default:
			if !in.Op.IsCounted() || in.Arg > in.Op.MaxCount() {
				return &LoopError{Index: i, Err: ErrInvalidInstruction}
			}
		}
	}
	if len(open) != 0 {
		return &LoopError{Index: open[0], Err: ErrUnmatchedLoopStart}
	}
	return nil
}
