// console_surface.go - Typed handle over the memory-mapped text cell grid

package main

import (
	"strings"
	"unsafe"
)

// TextSurface is the owned view of the text grid. All cell access goes
// through its methods; nothing else in the engine performs pointer
// arithmetic on the window. The surface itself carries no lock: the console
// writer serializes every mutation, and the display reads only through the
// writer's snapshot path.
type TextSurface struct {
	cols  int
	rows  int
	cells []Cell
}

func newTextSurface(cols, rows int, cells []Cell) *TextSurface {
	return &TextSurface{cols: cols, rows: rows, cells: cells}
}

// BindTextSurface builds the surface over the text window of the given
// bus's RAM. This is the single unsafe operation in the engine: it
// reinterprets the window bytes as a slice of exactly one page of cells.
// Stores through the returned handle land in machine RAM directly, so a
// bus read at the corresponding address observes them immediately. Called
// once during machine construction.
func BindTextSurface(bus Bus16) *TextSurface {
	mem := bus.GetMemory()
	window := (*Cell)(unsafe.Pointer(&mem[TEXT_WINDOW]))
	cells := unsafe.Slice(window, TEXT_PAGE_CELLS)
	return newTextSurface(TEXT_COLS, TEXT_ROWS, cells)
}

func (s *TextSurface) Cols() int { return s.cols }
func (s *TextSurface) Rows() int { return s.rows }

func (s *TextSurface) Put(row, col int, c Cell) {
	if row < 0 || row >= s.rows || col < 0 || col >= s.cols {
		return
	}
	s.cells[row*s.cols+col] = c
}

func (s *TextSurface) At(row, col int) Cell {
	if row < 0 || row >= s.rows || col < 0 || col >= s.cols {
		return BlankCell(DEFAULT_ATTR)
	}
	return s.cells[row*s.cols+col]
}

// BlankRow overwrites every cell of the row with the blank glyph at the
// given attribute. Rows outside the grid are ignored.
func (s *TextSurface) BlankRow(row int, attr Attr) {
	if row < 0 || row >= s.rows {
		return
	}
	blank := BlankCell(attr)
	base := row * s.cols
	for col := 0; col < s.cols; col++ {
		s.cells[base+col] = blank
	}
}

// CopyRow copies the source row over the destination row, top-to-bottom
// scroll order being the caller's concern. Out-of-range rows are ignored.
func (s *TextSurface) CopyRow(dst, src int) {
	if dst < 0 || dst >= s.rows || src < 0 || src >= s.rows {
		return
	}
	copy(s.cells[dst*s.cols:(dst+1)*s.cols], s.cells[src*s.cols:(src+1)*s.cols])
}

// Fill sets every cell of the grid.
func (s *TextSurface) Fill(c Cell) {
	for i := range s.cells {
		s.cells[i] = c
	}
}

// CopyInto copies the whole grid into dst, which must hold one page. Used
// by the writer's snapshot path.
func (s *TextSurface) CopyInto(dst []Cell) {
	copy(dst, s.cells)
}

// Text renders one row as a host string for diagnostics and tests. Glyphs
// outside printable ASCII come back as '.', and trailing blanks are
// trimmed.
func (s *TextSurface) Text(row int) string {
	if row < 0 || row >= s.rows {
		return ""
	}
	var b strings.Builder
	b.Grow(s.cols)
	base := row * s.cols
	for col := 0; col < s.cols; col++ {
		g := s.cells[base+col].Glyph
		if g >= PRINTABLE_MIN && g <= PRINTABLE_MAX {
			b.WriteByte(g)
		} else {
			b.WriteByte('.')
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// ScreenText renders the whole grid, one line per row.
func (s *TextSurface) ScreenText() string {
	lines := make([]string, s.rows)
	for row := 0; row < s.rows; row++ {
		lines[row] = s.Text(row)
	}
	return strings.Join(lines, "\n")
}
