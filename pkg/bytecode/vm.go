package bytecode

import (
	"errors"
	"io"

	"github.com/tliron/commonlog"
)

// Stats holds counters from one execution.
type Stats struct {
	Steps   uint64 // instructions executed, including taken and untaken jumps
	Outputs uint64 // bytes written
	Inputs  uint64 // bytes read
	Cells   int    // cells materialized when execution ended
	Growths int    // tape buffer reallocations
}

// machine is the execution state shared by both program forms. A program
// owns its machine exclusively and is not safe for concurrent use.
type machine struct {
	tape    *Tape
	trace   bool
	log     commonlog.Logger
	stats   Stats
	scratch [1]byte
}

func (m *machine) configure(opts []Option) {
	for _, opt := range opts {
		opt(m)
	}
	if m.tape == nil {
		m.tape = NewTape(DefaultReserve)
	}
	if m.trace {
		m.log = commonlog.GetLogger("bfi.bytecode")
	}
}

// Cells returns a copy of the tape left by the last execution.
func (m *machine) Cells() []byte {
	return m.tape.Cells()
}

// Origin returns the index in Cells of the cell execution started on.
func (m *machine) Origin() int {
	return m.tape.Origin()
}

// Stats returns counters from the last execution.
func (m *machine) Stats() Stats {
	return m.stats
}

func (m *machine) begin() {
	m.tape.Reset()
	m.stats = Stats{}
}

// finish flushes out and records the final tape shape.
func (m *machine) finish(out io.Writer) error {
	m.stats.Cells = m.tape.Len()
	m.stats.Growths = m.tape.Growths()
	if f, ok := out.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return &ExecError{PC: -1, Op: "flush", Err: err}
		}
	}
	return nil
}

// output writes the current cell. A write that reports zero bytes without
// an error is retried until the byte goes through.
func (m *machine) output(out io.Writer) error {
	m.stats.Outputs++
	if bw, ok := out.(io.ByteWriter); ok {
		return bw.WriteByte(m.tape.Get())
	}
	m.scratch[0] = m.tape.Get()
	for {
		n, err := out.Write(m.scratch[:])
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
	}
}

// input reads exactly one byte into the current cell.
func (m *machine) input(in io.Reader) error {
	if in == nil {
		return ErrInputExhausted
	}
	m.stats.Inputs++
	if br, ok := in.(io.ByteReader); ok {
		b, err := br.ReadByte()
		if err != nil {
			return inputError(err)
		}
		m.tape.Set(b)
		return nil
	}
	if _, err := io.ReadFull(in, m.scratch[:]); err != nil {
		return inputError(err)
	}
	m.tape.Set(m.scratch[0])
	return nil
}

func inputError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrInputExhausted
	}
	return err
}

func (m *machine) traceStep(pc int, name string) {
	m.log.Debugf("[%04d] %-14s ptr=%d cell=%d", pc, name, m.tape.Pointer(), m.tape.Get())
}

// ============ Raw engine ============

// Execute runs the raw program. Every loop jump rescans the command list
// for the matching partner.
func (p *Program) Execute(in io.Reader, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	p.begin()
	t := p.tape
	code := p.commands

	for pc := 0; pc < len(code); pc++ {
		cmd := code[pc]
		p.stats.Steps++
		if p.trace {
			p.traceStep(pc, cmd.String())
		}

		var err error
		switch cmd {
		case CmdIncPointer:
			err = t.Right(1)
		case CmdDecPointer:
			err = t.Left(1)
		case CmdIncValue:
			t.Add(1)
		case CmdDecValue:
			t.Sub(1)
		case CmdOutput:
			err = p.output(out)
		case CmdInput:
			err = p.input(in)
		case CmdLoopStart:
			if t.Get() == 0 {
				pc = p.loopEnd(pc)
			}
		case CmdLoopEnd:
			if t.Get() != 0 {
				pc = p.loopStart(pc)
			}
		}
		if err != nil {
			return &ExecError{PC: pc, Op: cmd.String(), Err: err}
		}
	}

	return p.finish(out)
}

// loopEnd scans forward from the loop start at pc to its matching end.
func (p *Program) loopEnd(pc int) int {
	depth := 1
	for i := pc + 1; i < len(p.commands); i++ {
		switch p.commands[i] {
		case CmdLoopStart:
			depth++
		case CmdLoopEnd:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	// Unreachable for a validated program.
	return len(p.commands)
}

// loopStart scans backward from the loop end at pc to its matching start.
func (p *Program) loopStart(pc int) int {
	depth := 1
	for i := pc - 1; i >= 0; i-- {
		switch p.commands[i] {
		case CmdLoopEnd:
			depth++
		case CmdLoopStart:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// ============ Optimized engine ============

// Execute runs the optimized program. Counted instructions apply their
// whole run in one step and loop jumps use the recorded targets.
func (p *OptimizedProgram) Execute(in io.Reader, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	p.begin()
	t := p.tape
	code := p.code

	for pc := 0; pc < len(code); pc++ {
		ins := code[pc]
		p.stats.Steps++
		if p.trace {
			p.traceStep(pc, ins.String())
		}

		var err error
		switch ins.Op {
		case OpAddPointer:
			err = t.Right(ins.Arg)
		case OpSubPointer:
			err = t.Left(ins.Arg)
		case OpAddValue:
			t.Add(byte(ins.Arg))
		case OpSubValue:
			t.Sub(byte(ins.Arg))
		case OpOutput:
			err = p.output(out)
		case OpInput:
			err = p.input(in)
		case OpLoopStart:
			if t.Get() == 0 {
				pc = int(ins.Arg)
			}
		case OpLoopEnd:
			if t.Get() != 0 {
				pc = int(ins.Arg)
			}
		}
		if err != nil {
			return &ExecError{PC: pc, Op: ins.Op.String(), Err: err}
		}
	}

	return p.finish(out)
}
