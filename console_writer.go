// console_writer.go - Scrolling text-mode console writer for the Phosphor Engine

/*
(c) 2025 - 2026 Phosphor Engine contributors
https://github.com/phosphorvm/PhosphorEngine
License: GPLv3 or later
*/

/*
console_writer.go - Text Console Writer

The writer owns the text grid and renders an append-only ASCII byte stream
onto it: line wrapping at the right edge, scrolling when the bottom row is
exceeded, and a blank fresh row after every scroll. It is the one component
of the engine with real invariants, and it is designed total: no input can
make it fail, fault, or write outside the grid.

Position is tracked as a single counter of glyphs written, not as a
row/column pair. Row and column are derived by division and remainder
against the grid width. Keeping one counter makes the advance path a single
increment, at the price of careful normalization whenever the derived row
runs past the visible grid:

    The counter is reduced modulo one page (TEXT_ROWS*TEXT_COLS cells) when
    it comes within a page of the maximum value of its type. Row and column
    are periodic in the page size, so the reduction is invisible to every
    consumer of the counter while making the subsequent round-up overflow
    free.

    A newline rounds the counter up to the next multiple of the width. If
    the resulting row would be at or past the last visible row, the grid
    scrolls up one row and the counter is re-anchored to the first column
    of the last row. The re-anchor also cancels the extra row the round-up
    introduces when a newline arrives exactly at the last cell of the grid,
    which would otherwise scroll twice.

    A plain write whose derived row has somehow run past the grid wraps to
    a fresh line first and clamps to the last row as a final guard, so an
    out-of-bounds cell write is impossible even under corner-case
    sequences.

Every public operation runs with the machine's interrupt delivery masked
and the writer's mutex held, released on every exit path. An interrupt
handler that prints is therefore deferred rather than interleaved with a
half-finished write. All work is synchronous and bounded by the input
length or by one page.
*/

package main

import (
	"math"
	"sync"
)

type ConsoleWriter struct {
	mu      sync.Mutex
	irq     *InterruptController // nil when the machine has no controller
	surface *TextSurface
	cursor  uint64
	attr    Attr
}

// NewConsoleWriter builds the writer over a bound surface and blanks the
// grid so no cell ever exposes uninitialized memory. The machine constructs
// exactly one writer, during assembly, before any program runs.
func NewConsoleWriter(surface *TextSurface, irq *InterruptController) *ConsoleWriter {
	w := &ConsoleWriter{
		irq:     irq,
		surface: surface,
		attr:    DEFAULT_ATTR,
	}
	w.section(func() {
		w.clearLocked()
	})
	return w
}

// section runs fn as one critical section: interrupt delivery masked for
// its duration, writer lock held, both released on every exit path.
func (w *ConsoleWriter) section(fn func()) {
	if w.irq != nil {
		w.irq.WithMasked(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			fn()
		})
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	fn()
}

// WriteByte renders one byte verbatim. A newline advances to the next row;
// anything else is stored at the cursor's derived position with the current
// attribute. Callers that need the printable-ASCII substitution policy use
// WriteString or Write instead.
func (w *ConsoleWriter) WriteByte(b byte) {
	w.section(func() {
		w.writeByteLocked(b)
	})
}

// WriteString renders a byte sequence, substituting the placeholder glyph
// for every byte outside printable ASCII except newline. Malformed input
// degrades visibly instead of erroring.
func (w *ConsoleWriter) WriteString(s string) {
	w.section(func() {
		for i := 0; i < len(s); i++ {
			w.writeFilteredLocked(s[i])
		}
	})
}

// Write implements io.Writer with the same substitution policy as
// WriteString. It never fails; the formatting layer above feeds the
// console through this face.
func (w *ConsoleWriter) Write(p []byte) (int, error) {
	w.section(func() {
		for _, b := range p {
			w.writeFilteredLocked(b)
		}
	})
	return len(p), nil
}

// SetAttr changes the attribute applied to subsequent writes and blanks.
func (w *ConsoleWriter) SetAttr(attr Attr) {
	w.section(func() {
		w.attr = attr
	})
}

func (w *ConsoleWriter) GetAttr() Attr {
	var attr Attr
	w.section(func() {
		attr = w.attr
	})
	return attr
}

// ClearRow blanks one row at the current attribute. Out-of-range rows are
// ignored; blanking an already blank row is a no-op by construction.
func (w *ConsoleWriter) ClearRow(row int) {
	w.section(func() {
		w.surface.BlankRow(row, w.attr)
	})
}

// Clear blanks the whole grid and rewinds the cursor to the top left.
func (w *ConsoleWriter) Clear() {
	w.section(func() {
		w.clearLocked()
	})
}

// Position returns the derived row and column the next glyph would occupy.
func (w *ConsoleWriter) Position() (row, col int) {
	w.section(func() {
		cols := uint64(w.surface.cols)
		r := w.cursor / cols
		if r >= uint64(w.surface.rows) {
			r = uint64(w.surface.rows) - 1
		}
		row = int(r)
		col = int(w.cursor % cols)
	})
	return row, col
}

// Snapshot copies the grid into dst, which should hold one page. This is
// the display refresher's read path; it sees only whole frames, never a
// half-finished write.
func (w *ConsoleWriter) Snapshot(dst []Cell) {
	w.section(func() {
		w.surface.CopyInto(dst)
	})
}

// ScreenText renders the grid as host text for the monitor and tests.
func (w *ConsoleWriter) ScreenText() string {
	var text string
	w.section(func() {
		text = w.surface.ScreenText()
	})
	return text
}

func (w *ConsoleWriter) writeFilteredLocked(b byte) {
	if (b >= PRINTABLE_MIN && b <= PRINTABLE_MAX) || b == '\n' {
		w.writeByteLocked(b)
		return
	}
	w.writeByteLocked(PLACEHOLDER_GLYPH)
}

func (w *ConsoleWriter) writeByteLocked(b byte) {
	if b == '\n' {
		w.advanceLineLocked()
		return
	}

	cols := uint64(w.surface.cols)
	rows := uint64(w.surface.rows)

	row := w.cursor / cols
	if row >= rows {
		// The counter ran off the bottom of the grid. Wrap to a fresh
		// row first, then clamp in case the counter is still out of
		// range, so the cell write below can never leave the grid.
		w.advanceLineLocked()
		row = w.cursor / cols
		if row >= rows {
			row = rows - 1
		}
	}

	w.surface.Put(int(row), int(w.cursor%cols), Cell{Glyph: b, Attr: w.attr})
	w.cursor++
}

// advanceLineLocked moves the cursor to the first column of the next row,
// scrolling when that row would fall at or past the last visible one.
func (w *ConsoleWriter) advanceLineLocked() {
	cols := uint64(w.surface.cols)
	rows := uint64(w.surface.rows)
	page := rows * cols

	// Row and column are periodic in the page size, so reducing the
	// counter modulo one page preserves both while keeping the round-up
	// below from wrapping the integer.
	if w.cursor > math.MaxUint64-page {
		w.cursor %= page
	}

	w.cursor = w.cursor - w.cursor%cols + cols

	if w.cursor/cols >= rows-1 {
		w.scrollLocked()
		w.cursor = (rows - 1) * cols
	}
}

// scrollLocked shifts every row up by one, discarding row 0, and blanks
// the last row at the current attribute.
func (w *ConsoleWriter) scrollLocked() {
	for row := 1; row < w.surface.rows; row++ {
		w.surface.CopyRow(row-1, row)
	}
	w.surface.BlankRow(w.surface.rows-1, w.attr)
}

func (w *ConsoleWriter) clearLocked() {
	w.surface.Fill(BlankCell(w.attr))
	w.cursor = 0
}
