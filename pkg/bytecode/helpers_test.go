package bytecode

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

var symbolCommands = map[rune]Command{
	'>': CmdIncPointer,
	'<': CmdDecPointer,
	'+': CmdIncValue,
	'-': CmdDecValue,
	'.': CmdOutput,
	',': CmdInput,
	'[': CmdLoopStart,
	']': CmdLoopEnd,
}

// commands converts source text to commands, skipping anything else.
func commands(src string) []Command {
	var cmds []Command
	for _, r := range src {
		if c, ok := symbolCommands[r]; ok {
			cmds = append(cmds, c)
		}
	}
	return cmds
}

// run builds the program in the requested form and executes it once.
func run(t *testing.T, src string, optimize bool, input string) (string, []byte) {
	t.Helper()
	prog, err := Compile(commands(src), optimize)
	if err != nil {
		t.Fatalf("Compile(%q, optimize=%v) error: %v", src, optimize, err)
	}
	var out bytes.Buffer
	if err := prog.Execute(strings.NewReader(input), &out); err != nil {
		t.Fatalf("Execute(%q, optimize=%v) error: %v", src, optimize, err)
	}
	return out.String(), prog.Cells()
}

// onlyWriter hides every method but Write.
type onlyWriter struct{ w io.Writer }

func (o onlyWriter) Write(p []byte) (int, error) { return o.w.Write(p) }

// onlyReader hides every method but Read.
type onlyReader struct{ r io.Reader }

func (o onlyReader) Read(p []byte) (int, error) { return o.r.Read(p) }
