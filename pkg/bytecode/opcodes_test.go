package bytecode

import (
	"math"
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Opcode 0x%02X has no metadata", byte(op))
		}
	}
	if OpcodeCount() != 8 {
		t.Errorf("OpcodeCount() = %d, want 8", OpcodeCount())
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpAddPointer, "ADD_PTR"},
		{OpSubPointer, "SUB_PTR"},
		{OpAddValue, "ADD_VAL"},
		{OpSubValue, "SUB_VAL"},
		{OpOutput, "OUTPUT"},
		{OpInput, "INPUT"},
		{OpLoopStart, "LOOP_START"},
		{OpLoopEnd, "LOOP_END"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Opcode(0x%02X).String() = %q, want %q", byte(tt.op), got, tt.want)
		}
	}
}

func TestUnknownOpcodeString(t *testing.T) {
	got := Opcode(0xEE).String()
	if !strings.HasPrefix(got, "UNKNOWN") {
		t.Errorf("unknown opcode should return UNKNOWN, got %q", got)
	}
}

func TestOpcodeMaxCount(t *testing.T) {
	if OpAddValue.MaxCount() != math.MaxUint8 || OpSubValue.MaxCount() != math.MaxUint8 {
		t.Error("value opcodes should saturate at 255")
	}
	if OpAddPointer.MaxCount() != math.MaxUint || OpSubPointer.MaxCount() != math.MaxUint {
		t.Error("pointer opcodes should saturate at MaxUint")
	}
	for _, op := range []Opcode{OpOutput, OpInput, OpLoopStart, OpLoopEnd} {
		if op.IsCounted() {
			t.Errorf("%s should not be counted", op)
		}
	}
	if !OpLoopStart.IsJump() || !OpLoopEnd.IsJump() || OpAddValue.IsJump() {
		t.Error("IsJump misclassifies opcodes")
	}
}

func TestCommandSymbols(t *testing.T) {
	want := "><+-.,[]"
	var got strings.Builder
	for c := CmdIncPointer; c <= CmdLoopEnd; c++ {
		if !c.Valid() {
			t.Errorf("%d should be valid", c)
		}
		got.WriteRune(c.Symbol())
	}
	if got.String() != want {
		t.Errorf("symbols = %q, want %q", got.String(), want)
	}
	if Command(8).Valid() || Command(8).Symbol() != '?' {
		t.Error("Command(8) should be invalid")
	}
}

func TestInstructionString(t *testing.T) {
	tests := []struct {
		in   Instruction
		want string
	}{
		{AddPointer(3), "ADD_PTR 3"},
		{SubValue(255), "SUB_VAL 255"},
		{Output(), "OUTPUT"},
		{LoopStart(7), "LOOP_START -> 7"},
		{LoopEnd(0), "LOOP_END -> 0"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
