// Package bytecode compiles and executes programs for the eight-command
// tape machine (> < + - . , [ ]).
//
// A program exists in one of two forms:
//
//   - Program: the raw Command sequence exactly as written. Loop jumps are
//     resolved by scanning for the partner bracket every time a jump is
//     taken.
//
//   - OptimizedProgram: the Instruction sequence produced by Optimize. Runs
//     of pointer moves and cell changes are folded into counted
//     instructions, and every loop start and end records the index of its
//     partner, so a jump is a single assignment.
//
// Both forms are validated when they are built: loops must balance, and an
// optimized program's jump targets must name each other. Validation errors
// are returned as *LoopError; the engines never re-check.
//
// # Tape
//
// Execution runs over a Tape of byte cells that is conceptually infinite in
// both directions. It starts as a single zero cell, materializes zero cells
// as the pointer reaches them, and grows its backing buffer geometrically so
// pointer-heavy programs stay linear. Cell arithmetic wraps modulo 256. The
// tape is reset at the start of every execution, so a program can be run
// any number of times.
//
// # I/O
//
// Input reads exactly one byte and fails with ErrInputExhausted at EOF.
// Output writes one byte, retrying writes that report zero bytes. If the
// output writer has a Flush method it is called once, after the program
// ends.
package bytecode
