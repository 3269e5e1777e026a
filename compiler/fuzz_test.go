package compiler

import (
	"slices"
	"testing"

	"github.com/chazu/bfi/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// FuzzCompile: lexing never fails on a string, bracket checking agrees with
// program validation, and folding is stable.
// ---------------------------------------------------------------------------

func FuzzCompile(f *testing.F) {
	seeds := []string{
		"",
		"+-<>.,[]",
		"][",
		"[[[]]",
		"+++[>++<-]>.",
		"a comment with no commands",
		"><><+-+-",
		"\xff\xfe[é]",
		"++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, src string) {
		tokens := ParseString(src)
		diags := Check(tokens)
		cmds := Commands(tokens)

		for _, optimize := range []bool{false, true} {
			_, err := bytecode.Compile(cmds, optimize)
			if (err == nil) != (len(diags) == 0) {
				t.Fatalf("optimize=%v: Compile err = %v but %d diagnostics", optimize, err, len(diags))
			}
		}
		if len(diags) > 0 {
			return
		}

		code, err := bytecode.Optimize(cmds)
		if err != nil {
			t.Fatal(err)
		}
		again, err := bytecode.Optimize(bytecode.Expand(code))
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(code, again) {
			t.Fatalf("refolding changed the code:\n%v\n%v", code, again)
		}
	})
}
