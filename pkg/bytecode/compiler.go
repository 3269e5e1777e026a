package bytecode

import "fmt"

// optimizer folds a command stream into instructions. pending is the run
// currently being counted; it is only appended to out once a command of a
// different kind arrives.
type optimizer struct {
	out        []Instruction
	pending    Instruction
	hasPending bool

	// Indices in out of loop starts still waiting for their end.
	open []int
}

// Optimize compiles primitive commands into folded instructions with
// resolved loop targets.
//
// Runs of pointer moves and runs of cell changes collapse into a single
// counted instruction; opposite directions cancel. I/O and loop commands are
// never folded. Each loop start records the index of its matching end and
// vice versa, so the optimized engine never searches for a partner.
//
// A loop end without an open loop start returns a *LoopError wrapping
// ErrUnmatchedLoopEnd. Loop starts that are never closed are left with an
// unresolved target and rejected by NewOptimizedProgram.
func Optimize(cmds []Command) ([]Instruction, error) {
	o := &optimizer{out: make([]Instruction, 0, len(cmds)/2+1)}

	for i, cmd := range cmds {
		switch cmd {
		case CmdIncPointer:
			o.fold(OpAddPointer, OpSubPointer)
		case CmdDecPointer:
			o.fold(OpSubPointer, OpAddPointer)
		case CmdIncValue:
			o.fold(OpAddValue, OpSubValue)
		case CmdDecValue:
			o.fold(OpSubValue, OpAddValue)
		case CmdOutput:
			o.emit(Output())
		case CmdInput:
			o.emit(Input())
		case CmdLoopStart:
			o.flush()
			o.open = append(o.open, len(o.out))
			o.out = append(o.out, Instruction{Op: OpLoopStart})
		case CmdLoopEnd:
			o.flush()
			if len(o.open) == 0 {
				return nil, &LoopError{Index: i, Err: ErrUnmatchedLoopEnd}
			}
			start := o.open[len(o.open)-1]
			o.open = o.open[:len(o.open)-1]
			o.out[start].Arg = uint(len(o.out))
			o.out = append(o.out, LoopEnd(start))
		default:
			return nil, fmt.Errorf("bytecode: invalid command %d at index %d", cmd, i)
		}
	}

	o.flush()
	return o.out, nil
}

// fold counts one command of kind same into the pending run.
func (o *optimizer) fold(same, opposite Opcode) {
	if !o.hasPending {
		o.reopen(same, opposite)
	}

	switch {
	case !o.hasPending:
		o.start(same)
	case o.pending.Op == same:
		if o.pending.Arg == same.MaxCount() {
			o.flush()
			o.start(same)
			return
		}
		o.pending.Arg++
	case o.pending.Op == opposite:
		o.pending.Arg--
		if o.pending.Arg == 0 {
			o.hasPending = false
		}
	default:
		o.flush()
		o.start(same)
	}
}

// reopen resumes the last emitted instruction as the pending run if it
// belongs to the same category. This happens after a run cancelled out and
// keeps the output canonical: folding an expanded program reproduces it.
func (o *optimizer) reopen(same, opposite Opcode) {
	n := len(o.out)
	if n == 0 {
		return
	}
	if last := o.out[n-1]; last.Op == same || last.Op == opposite {
		o.out = o.out[:n-1]
		o.pending = last
		o.hasPending = true
	}
}

func (o *optimizer) start(op Opcode) {
	o.pending = Instruction{op, 1}
	o.hasPending = true
}

func (o *optimizer) flush() {
	if o.hasPending {
		o.out = append(o.out, o.pending)
		o.hasPending = false
	}
}

func (o *optimizer) emit(in Instruction) {
	o.flush()
	o.out = append(o.out, in)
}

// Expand turns optimized instructions back into primitive commands.
// Counted instructions expand to their run; loop targets are dropped.
func Expand(code []Instruction) []Command {
	cmds := make([]Command, 0, len(code))
	for _, in := range code {
		switch in.Op {
		case OpAddPointer:
			cmds = appendRun(cmds, CmdIncPointer, in.Arg)
		case OpSubPointer:
			cmds = appendRun(cmds, CmdDecPointer, in.Arg)
		case OpAddValue:
			cmds = appendRun(cmds, CmdIncValue, in.Arg)
		case OpSubValue:
			cmds = appendRun(cmds, CmdDecValue, in.Arg)
		case OpOutput:
			cmds = append(cmds, CmdOutput)
		case OpInput:
			cmds = append(cmds, CmdInput)
		case OpLoopStart:
			cmds = append(cmds, CmdLoopStart)
		case OpLoopEnd:
			cmds = append(cmds, CmdLoopEnd)
		}
	}
	return cmds
}

func appendRun(cmds []Command, cmd Command, n uint) []Command {
	for ; n > 0; n-- {
		cmds = append(cmds, cmd)
	}
	return cmds
}
