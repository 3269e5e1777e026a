package bytecode

import (
	"errors"
	"math"
)

// ErrTapeOverflow reports a pointer move that cannot be addressed.
var ErrTapeOverflow = errors.New("tape pointer out of addressable range")

// DefaultReserve is the initial backing capacity of a tape, in cells.
const DefaultReserve = 64

// Tape is a zero-initialized byte tape that is conceptually infinite in
// both directions. Only the cells the pointer has visited are materialized;
// the backing buffer grows geometrically at whichever end needs room, so a
// run of pointer moves costs amortized O(1) per cell.
//
// Cells outside the materialized window [lo, hi) are always zero, which lets
// the window widen without touching memory.
type Tape struct {
	buf     []byte
	lo, hi  int // materialized window in buf
	ptr     int // absolute index into buf
	origin  int // absolute index of the starting cell
	reserve int
	growths int
}

// NewTape returns a tape holding a single zero cell. reserve is a capacity
// hint for the backing buffer; values below 1 select DefaultReserve.
func NewTape(reserve int) *Tape {
	if reserve < 1 {
		reserve = DefaultReserve
	}
	t := &Tape{reserve: reserve}
	t.Reset()
	return t
}

// Reset clears the tape back to a single zero cell under the pointer. The
// backing buffer is kept so repeated executions reuse it.
func (t *Tape) Reset() {
	if t.buf == nil {
		t.buf = make([]byte, t.reserve)
	} else {
		clear(t.buf[t.lo:t.hi])
	}
	origin := len(t.buf) / 2
	t.lo, t.hi, t.ptr, t.origin = origin, origin+1, origin, origin
	t.growths = 0
}

// Right moves the pointer n cells to the right, materializing zero cells as
// needed.
func (t *Tape) Right(n uint) error {
	if n > uint(math.MaxInt-t.ptr-1) {
		return ErrTapeOverflow
	}
	p := t.ptr + int(n)
	if p >= t.hi {
		if p >= len(t.buf) {
			t.growRight(p + 1 - len(t.buf))
		}
		t.hi = p + 1
	}
	t.ptr = p
	return nil
}

// Left moves the pointer n cells to the left, materializing zero cells as
// needed.
func (t *Tape) Left(n uint) error {
	if n > uint(t.ptr) {
		missing := n - uint(t.ptr)
		if missing > uint(math.MaxInt-len(t.buf)) {
			return ErrTapeOverflow
		}
		t.growLeft(int(missing))
	}
	p := t.ptr - int(n)
	if p < t.lo {
		t.lo = p
	}
	t.ptr = p
	return nil
}

// growRight extends the backing buffer by at least extra cells at the end.
func (t *Tape) growRight(extra int) {
	size := len(t.buf) + max(len(t.buf), extra)
	buf := make([]byte, size)
	copy(buf[t.lo:], t.buf[t.lo:t.hi])
	t.buf = buf
	t.growths++
}

// growLeft extends the backing buffer by at least extra cells at the front
// and shifts every index accordingly.
func (t *Tape) growLeft(extra int) {
	shift := max(len(t.buf), extra)
	buf := make([]byte, len(t.buf)+shift)
	copy(buf[t.lo+shift:], t.buf[t.lo:t.hi])
	t.buf = buf
	t.lo += shift
	t.hi += shift
	t.ptr += shift
	t.origin += shift
	t.growths++
}

// Get returns the cell under the pointer.
func (t *Tape) Get() byte {
	return t.buf[t.ptr]
}

// Set stores b in the cell under the pointer.
func (t *Tape) Set(b byte) {
	t.buf[t.ptr] = b
}

// Add adds n to the current cell, wrapping at 256.
func (t *Tape) Add(n byte) {
	t.buf[t.ptr] += n
}

// Sub subtracts n from the current cell, wrapping at 0.
func (t *Tape) Sub(n byte) {
	t.buf[t.ptr] -= n
}

// Len returns the number of materialized cells.
func (t *Tape) Len() int {
	return t.hi - t.lo
}

// Pointer returns the pointer position as an index into Cells.
func (t *Tape) Pointer() int {
	return t.ptr - t.lo
}

// Origin returns the index in Cells of the cell the pointer started on.
func (t *Tape) Origin() int {
	return t.origin - t.lo
}

// Cells returns a copy of the materialized cells, leftmost first.
func (t *Tape) Cells() []byte {
	out := make([]byte, t.hi-t.lo)
	copy(out, t.buf[t.lo:t.hi])
	return out
}

// Growths returns how many times the backing buffer was reallocated since
// the last Reset.
func (t *Tape) Growths() int {
	return t.growths
}
