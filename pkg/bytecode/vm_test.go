package bytecode

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

const helloWorld = "++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++."

// ============ Cell arithmetic ============

func TestVMCellWrapping(t *testing.T) {
	for _, optimize := range []bool{false, true} {
		_, cells := run(t, strings.Repeat("+", 256), optimize, "")
		if cells[0] != 0 {
			t.Errorf("optimize=%v: 256 increments = %d, want 0", optimize, cells[0])
		}
		_, cells = run(t, "-", optimize, "")
		if cells[0] != 255 {
			t.Errorf("optimize=%v: 0-1 = %d, want 255", optimize, cells[0])
		}
		_, cells = run(t, strings.Repeat("+", 255)+">"+"<+", optimize, "")
		if cells[0] != 0 {
			t.Errorf("optimize=%v: 255+1 = %d, want 0", optimize, cells[0])
		}
	}
}

// ============ Tape ============

func TestVMAddingTwo(t *testing.T) {
	prog, err := NewOptimizedProgram([]Instruction{AddValue(2)})
	if err != nil {
		t.Fatal(err)
	}
	if err := prog.Execute(nil, nil); err != nil {
		t.Fatal(err)
	}
	if got := prog.Cells(); !bytes.Equal(got, []byte{2}) {
		t.Errorf("Cells() = %v, want [2]", got)
	}
}

func TestVMMovingData(t *testing.T) {
	prog, err := NewOptimizedProgram([]Instruction{
		AddValue(2),
		LoopStart(6),
		AddPointer(1),
		AddValue(1),
		SubPointer(1),
		SubValue(1),
		LoopEnd(1),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := prog.Execute(nil, nil); err != nil {
		t.Fatal(err)
	}
	if got := prog.Cells(); !bytes.Equal(got, []byte{0, 2}) {
		t.Errorf("Cells() = %v, want [0 2]", got)
	}
}

func TestVMCopyLoop(t *testing.T) {
	for _, optimize := range []bool{false, true} {
		_, cells := run(t, "++[>+<-]", optimize, "")
		if !bytes.Equal(cells, []byte{0, 2}) {
			t.Errorf("optimize=%v: Cells() = %v, want [0 2]", optimize, cells)
		}
	}
}

func TestVMLeftGrowth(t *testing.T) {
	for _, optimize := range []bool{false, true} {
		_, cells := run(t, "<+<++", optimize, "")
		if !bytes.Equal(cells, []byte{2, 1, 0}) {
			t.Errorf("optimize=%v: Cells() = %v, want [2 1 0]", optimize, cells)
		}
	}
}

func TestVMLazyZeroedGrowth(t *testing.T) {
	for _, optimize := range []bool{false, true} {
		// Move far right, then read back every cell on the way home.
		src := strings.Repeat(">", 500) + "." + strings.Repeat("<.", 500)
		out, cells := run(t, src, optimize, "")
		if out != string(make([]byte, 501)) {
			t.Errorf("optimize=%v: intermediate cells are not zero", optimize)
		}
		if len(cells) != 501 {
			t.Errorf("optimize=%v: len(Cells()) = %d, want 501", optimize, len(cells))
		}
	}
}

func TestVMSkipsLoopOnZero(t *testing.T) {
	for _, optimize := range []bool{false, true} {
		out, cells := run(t, "[+++.[>]]+.", optimize, "")
		if out != "\x01" || !bytes.Equal(cells, []byte{1}) {
			t.Errorf("optimize=%v: out=%q cells=%v", optimize, out, cells)
		}
	}
}

// ============ I/O ============

func TestVMHelloWorld(t *testing.T) {
	for _, optimize := range []bool{false, true} {
		out, _ := run(t, helloWorld, optimize, "")
		if out != "Hello World!\n" {
			t.Errorf("optimize=%v: output = %q", optimize, out)
		}
	}
}

func TestVMEcho(t *testing.T) {
	// Read until a zero byte, echoing each one incremented.
	src := ",[+.,]"
	for _, optimize := range []bool{false, true} {
		out, _ := run(t, src, optimize, "HAL\x00")
		if out != "IBM" {
			t.Errorf("optimize=%v: output = %q, want IBM", optimize, out)
		}
	}
}

func TestVMInputWithoutByteReader(t *testing.T) {
	prog, err := Compile(commands(",.,."), true)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := prog.Execute(onlyReader{strings.NewReader("ok")}, onlyWriter{&out}); err != nil {
		t.Fatal(err)
	}
	if out.String() != "ok" {
		t.Errorf("output = %q, want ok", out.String())
	}
}

func TestVMInputExhausted(t *testing.T) {
	for _, optimize := range []bool{false, true} {
		prog, err := Compile(commands("+,,"), optimize)
		if err != nil {
			t.Fatal(err)
		}
		err = prog.Execute(strings.NewReader("x"), io.Discard)
		if !errors.Is(err, ErrInputExhausted) {
			t.Fatalf("optimize=%v: error = %v, want ErrInputExhausted", optimize, err)
		}
		var execErr *ExecError
		if !errors.As(err, &execErr) || execErr.PC != 2 {
			t.Errorf("optimize=%v: expected ExecError at pc 2, got %v", optimize, err)
		}

		if err := prog.Execute(nil, io.Discard); !errors.Is(err, ErrInputExhausted) {
			t.Errorf("optimize=%v: nil input error = %v", optimize, err)
		}
	}
}

var errBroken = errors.New("broken pipe")

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errBroken }

func TestVMInputError(t *testing.T) {
	prog, err := Compile(commands(","), false)
	if err != nil {
		t.Fatal(err)
	}
	if err := prog.Execute(failingReader{}, io.Discard); !errors.Is(err, errBroken) {
		t.Errorf("error = %v, want %v", err, errBroken)
	}
}

// stutterWriter reports a zero-byte write every other call.
type stutterWriter struct {
	buf   bytes.Buffer
	calls int
}

func (w *stutterWriter) Write(p []byte) (int, error) {
	w.calls++
	if w.calls%2 == 1 {
		return 0, nil
	}
	return w.buf.Write(p)
}

func TestVMOutputRetriesZeroByteWrites(t *testing.T) {
	for _, optimize := range []bool{false, true} {
		prog, err := Compile(commands("+++++++++[>+++++++++++<-]>+.+."), optimize)
		if err != nil {
			t.Fatal(err)
		}
		w := &stutterWriter{}
		if err := prog.Execute(nil, w); err != nil {
			t.Fatal(err)
		}
		if w.buf.String() != "de" {
			t.Errorf("optimize=%v: output = %q, want de", optimize, w.buf.String())
		}
		if w.calls != 4 {
			t.Errorf("optimize=%v: write calls = %d, want 4", optimize, w.calls)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errBroken }

func TestVMOutputError(t *testing.T) {
	prog, err := Compile(commands("+."), true)
	if err != nil {
		t.Fatal(err)
	}
	err = prog.Execute(nil, failingWriter{})
	var execErr *ExecError
	if !errors.As(err, &execErr) || !errors.Is(err, errBroken) {
		t.Fatalf("error = %v, want ExecError wrapping %v", err, errBroken)
	}
	if execErr.Op != "OUTPUT" || execErr.PC != 1 {
		t.Errorf("ExecError = %+v", execErr)
	}
}

// countingFlusher records how often Flush is called.
type countingFlusher struct {
	bytes.Buffer
	flushes int
	err     error
}

func (f *countingFlusher) Flush() error {
	f.flushes++
	return f.err
}

func TestVMFlushesOnceAtEnd(t *testing.T) {
	for _, optimize := range []bool{false, true} {
		prog, err := Compile(commands(helloWorld), optimize)
		if err != nil {
			t.Fatal(err)
		}
		f := &countingFlusher{}
		if err := prog.Execute(nil, f); err != nil {
			t.Fatal(err)
		}
		if f.flushes != 1 {
			t.Errorf("optimize=%v: flushes = %d, want 1", optimize, f.flushes)
		}

		f = &countingFlusher{err: errBroken}
		err = prog.Execute(nil, f)
		var execErr *ExecError
		if !errors.As(err, &execErr) || execErr.Op != "flush" || !errors.Is(err, errBroken) {
			t.Errorf("optimize=%v: flush error = %v", optimize, err)
		}
	}
}

func TestVMBufferedOutput(t *testing.T) {
	var dst bytes.Buffer
	w := bufio.NewWriter(&dst)
	prog, err := Compile(commands(helloWorld), true)
	if err != nil {
		t.Fatal(err)
	}
	if err := prog.Execute(nil, w); err != nil {
		t.Fatal(err)
	}
	if dst.String() != "Hello World!\n" {
		t.Errorf("buffered output = %q", dst.String())
	}
}

// ============ Re-execution and stats ============

func TestVMExecuteTwiceResetsTape(t *testing.T) {
	for _, optimize := range []bool{false, true} {
		prog, err := Compile(commands(">+++<<+"), optimize)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 2; i++ {
			if err := prog.Execute(nil, nil); err != nil {
				t.Fatal(err)
			}
			if got := prog.Cells(); !bytes.Equal(got, []byte{1, 0, 3}) {
				t.Errorf("optimize=%v run %d: Cells() = %v, want [1 0 3]", optimize, i, got)
			}
		}
	}
}

func TestVMStats(t *testing.T) {
	raw, err := Compile(commands("++[>+<-]>.,"), false)
	if err != nil {
		t.Fatal(err)
	}
	opt, err := Compile(commands("++[>+<-]>.,"), true)
	if err != nil {
		t.Fatal(err)
	}
	for _, prog := range []Executable{raw, opt} {
		if err := prog.Execute(strings.NewReader("a"), io.Discard); err != nil {
			t.Fatal(err)
		}
	}

	rs, ps := raw.Stats(), opt.Stats()
	// Raw: 2 increments, the first pass through the loop including its
	// start, a second pass resuming after the start, then > . ,
	if rs.Steps != 2+6+5+3 {
		t.Errorf("raw steps = %d, want 16", rs.Steps)
	}
	if ps.Steps >= rs.Steps {
		t.Errorf("optimized steps %d should be fewer than raw %d", ps.Steps, rs.Steps)
	}
	for _, s := range []Stats{rs, ps} {
		if s.Outputs != 1 || s.Inputs != 1 || s.Cells != 2 {
			t.Errorf("stats = %+v", s)
		}
	}
}

func TestVMWithReserve(t *testing.T) {
	prog, err := NewProgram(commands(strings.Repeat(">", 100)), WithReserve(4096))
	if err != nil {
		t.Fatal(err)
	}
	if err := prog.Execute(nil, nil); err != nil {
		t.Fatal(err)
	}
	if prog.Stats().Growths != 0 {
		t.Errorf("Growths = %d, want 0 with a large reserve", prog.Stats().Growths)
	}
	if prog.Stats().Cells != 101 {
		t.Errorf("Cells = %d, want 101", prog.Stats().Cells)
	}
}

func TestVMTraceDoesNotChangeResults(t *testing.T) {
	cmds := commands("++[>+++<-]>.")
	for _, optimize := range []bool{false, true} {
		prog, err := Compile(cmds, optimize, WithTrace(true))
		if err != nil {
			t.Fatal(err)
		}
		var out bytes.Buffer
		if err := prog.Execute(nil, &out); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(out.Bytes(), []byte{6}) {
			t.Errorf("optimize=%v: output = %v, want [6]", optimize, out.Bytes())
		}
	}
}
