// console_writer_test.go - Console writer wrap, scroll and cursor tests

package main

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
)

// newTestConsole builds a writer over a small standalone grid so scroll
// and wrap cases stay hand-checkable. No interrupt controller is attached
// unless the test needs one.
func newTestConsole(cols, rows int) (*ConsoleWriter, *TextSurface) {
	surface := newTextSurface(cols, rows, make([]Cell, cols*rows))
	return NewConsoleWriter(surface, nil), surface
}

// fillRowsLetters writes n glyphs through the writer, row r receiving the
// letter 'A'+r, so after a scroll each row still names where it came from.
func fillRowsLetters(w *ConsoleWriter, cols, n int) {
	for i := 0; i < n; i++ {
		w.WriteByte(byte('A' + (i/cols)%26))
	}
}

// TestWriteLandsAtCursor verifies that a plain string lands cell by cell
// at the derived position and leaves the cursor after the last glyph.
func TestWriteLandsAtCursor(t *testing.T) {
	w, surface := newTestConsole(80, 25)

	w.WriteString("Hello")

	want := "Hello"
	for i := 0; i < len(want); i++ {
		if got := surface.At(0, i).Glyph; got != want[i] {
			t.Fatalf("cell (0,%d) holds %q, expected %q", i, got, want[i])
		}
	}
	if row, col := w.Position(); row != 0 || col != 5 {
		t.Fatalf("position (%d,%d), expected (0,5)", row, col)
	}
}

// TestPositionDerivation verifies that each written glyph occupies the
// distinct cell given by its write order's quotient and remainder by the
// grid width.
func TestPositionDerivation(t *testing.T) {
	w, surface := newTestConsole(4, 3)

	input := "0123456789"
	w.WriteString(input)

	for i := 0; i < len(input); i++ {
		if got := surface.At(i/4, i%4).Glyph; got != input[i] {
			t.Fatalf("glyph %d at (%d,%d) is %q, expected %q", i, i/4, i%4, got, input[i])
		}
	}
}

// TestWriteCarriesCurrentAttribute verifies that SetAttr applies to
// subsequent glyphs without repainting older ones.
func TestWriteCarriesCurrentAttribute(t *testing.T) {
	w, surface := newTestConsole(4, 3)

	w.WriteString("a")
	loud := MakeAttr(COLOR_YELLOW, COLOR_BLUE)
	w.SetAttr(loud)
	w.WriteString("b")

	if got := surface.At(0, 0).Attr; got != DEFAULT_ATTR {
		t.Fatalf("old cell attr 0x%02X, expected default 0x%02X", got, DEFAULT_ATTR)
	}
	if got := surface.At(0, 1).Attr; got != loud {
		t.Fatalf("new cell attr 0x%02X, expected 0x%02X", got, loud)
	}
	if got := w.GetAttr(); got != loud {
		t.Fatalf("GetAttr 0x%02X, expected 0x%02X", got, loud)
	}
}

// TestWrapAtLastColumn verifies that writing past the last column of a
// row continues at the start of the next row without scrolling.
func TestWrapAtLastColumn(t *testing.T) {
	w, surface := newTestConsole(4, 3)

	w.WriteString("abcd")
	w.WriteString("e")

	if got := surface.At(0, 3).Glyph; got != 'd' {
		t.Fatalf("cell (0,3) holds %q, expected 'd'", got)
	}
	if got := surface.At(1, 0).Glyph; got != 'e' {
		t.Fatalf("cell (1,0) holds %q, expected 'e'", got)
	}
	// No scroll: row 0 keeps its content.
	if got := surface.At(0, 0).Glyph; got != 'a' {
		t.Fatalf("cell (0,0) holds %q after wrap, expected 'a'", got)
	}
	if row, col := w.Position(); row != 1 || col != 1 {
		t.Fatalf("position (%d,%d), expected (1,1)", row, col)
	}
}

// TestWrapAtBottomScrolls verifies that filling every cell and writing one
// more byte scrolls exactly once, discards row 0 and lands the byte in the
// first column of the fresh last row.
func TestWrapAtBottomScrolls(t *testing.T) {
	w, surface := newTestConsole(4, 3)

	fillRowsLetters(w, 4, 12)
	w.WriteByte('x')

	// Exactly one scroll: the top row is the old row 1, not row 2.
	if got := surface.At(0, 0).Glyph; got != 'B' {
		t.Fatalf("top row holds %q after scroll, expected 'B'", got)
	}
	if got := surface.At(1, 0).Glyph; got != 'C' {
		t.Fatalf("middle row holds %q after scroll, expected 'C'", got)
	}
	if got := surface.At(2, 0).Glyph; got != 'x' {
		t.Fatalf("cell (2,0) holds %q, expected 'x'", got)
	}
	if got := surface.At(2, 1).Glyph; got != BLANK_GLYPH {
		t.Fatalf("cell (2,1) holds %q, expected blank", got)
	}
	if row, col := w.Position(); row != 2 || col != 1 {
		t.Fatalf("position (%d,%d), expected (2,1)", row, col)
	}
}

// TestNewlineMovesToNextRowStart verifies the plain newline path.
func TestNewlineMovesToNextRowStart(t *testing.T) {
	w, surface := newTestConsole(4, 3)

	w.WriteString("ab\ncd")

	if got := surface.At(0, 1).Glyph; got != 'b' {
		t.Fatalf("cell (0,1) holds %q, expected 'b'", got)
	}
	if got := surface.At(1, 0).Glyph; got != 'c' {
		t.Fatalf("cell (1,0) holds %q, expected 'c'", got)
	}
	if row, col := w.Position(); row != 1 || col != 2 {
		t.Fatalf("position (%d,%d), expected (1,2)", row, col)
	}
}

// TestNewlineIntoLastRowScrolls verifies that a newline whose target row
// would be at or past the last visible row scrolls and pins the cursor to
// the start of the last row.
func TestNewlineIntoLastRowScrolls(t *testing.T) {
	w, surface := newTestConsole(4, 4)

	w.WriteString("a\nb\nc\nd")

	// The newline after "c" lands on the last row, which costs one
	// scroll; "a" is pushed off the top.
	wantRows := []byte{'b', 'c', BLANK_GLYPH, 'd'}
	for row, want := range wantRows {
		if got := surface.At(row, 0).Glyph; got != want {
			t.Fatalf("row %d starts with %q, expected %q", row, got, want)
		}
	}
	if row, col := w.Position(); row != 3 || col != 1 {
		t.Fatalf("position (%d,%d), expected (3,1)", row, col)
	}
}

// TestNewlineAtLastCellScrollsOnce verifies the classic off-by-one trap: a
// newline issued while the cursor sits exactly on the last cell of the grid
// scrolls once, not twice, and parks the cursor at the last row's start.
func TestNewlineAtLastCellScrollsOnce(t *testing.T) {
	w, surface := newTestConsole(4, 3)

	fillRowsLetters(w, 4, 11) // cursor now points at the last cell
	w.WriteByte('\n')

	if got := surface.At(0, 0).Glyph; got != 'B' {
		t.Fatalf("top row holds %q, expected 'B' after exactly one scroll", got)
	}
	for col := 0; col < 4; col++ {
		if got := surface.At(2, col).Glyph; got != BLANK_GLYPH {
			t.Fatalf("cell (2,%d) holds %q, expected a blank last row", col, got)
		}
	}
	if row, col := w.Position(); row != 2 || col != 0 {
		t.Fatalf("position (%d,%d), expected (2,0)", row, col)
	}
}

// TestScrollPreservesRowOrder verifies that after a scroll each row holds
// the previous content of the row below it, in display order.
func TestScrollPreservesRowOrder(t *testing.T) {
	w, surface := newTestConsole(4, 4)

	fillRowsLetters(w, 4, 16)
	w.WriteByte('x') // forces the scroll

	for row := 0; row < 3; row++ {
		want := byte('A' + row + 1)
		for col := 0; col < 4; col++ {
			if got := surface.At(row, col).Glyph; got != want {
				t.Fatalf("cell (%d,%d) holds %q, expected %q", row, col, got, want)
			}
		}
	}
}

// TestScrollBlanksAtCurrentAttribute verifies that the fresh last row is
// blanked with the attribute in effect at scroll time, not the one the
// old content was written with.
func TestScrollBlanksAtCurrentAttribute(t *testing.T) {
	w, surface := newTestConsole(4, 3)

	fillRowsLetters(w, 4, 12)
	alert := MakeAttr(COLOR_WHITE, COLOR_RED)
	w.SetAttr(alert)
	w.WriteByte('x')

	for col := 1; col < 4; col++ {
		cell := surface.At(2, col)
		if cell.Glyph != BLANK_GLYPH {
			t.Fatalf("cell (2,%d) holds %q, expected blank", col, cell.Glyph)
		}
		if cell.Attr != alert {
			t.Fatalf("cell (2,%d) attr 0x%02X, expected 0x%02X", col, cell.Attr, alert)
		}
	}
	// Scrolled rows keep the attribute they were written with.
	if got := surface.At(0, 0).Attr; got != DEFAULT_ATTR {
		t.Fatalf("scrolled row attr 0x%02X, expected default 0x%02X", got, DEFAULT_ATTR)
	}
}

// TestCursorOverflowGuard drives the cursor to within one page of the
// maximum counter value and issues a newline. The counter must be reduced
// modulo the page size, matching what unbounded arithmetic would derive,
// with no panic and no out-of-range write.
func TestCursorOverflowGuard(t *testing.T) {
	// 4x5 grid: page is 20 cells and MaxUint64 ≡ 15 (mod 20).
	w, _ := newTestConsole(4, 5)

	// Reduces to 1, rounds up to 4: row 1, no scroll.
	w.cursor = math.MaxUint64 - 14
	w.WriteByte('\n')
	if w.cursor != 4 {
		t.Fatalf("cursor %d after guarded newline, expected 4", w.cursor)
	}
	if row, col := w.Position(); row != 1 || col != 0 {
		t.Fatalf("position (%d,%d), expected (1,0)", row, col)
	}

	// Reduces to 15 (last cell), rounds up to 16: scroll and re-anchor.
	w.cursor = math.MaxUint64
	w.WriteByte('\n')
	if w.cursor != 16 {
		t.Fatalf("cursor %d after guarded newline at max, expected 16", w.cursor)
	}
	if row, col := w.Position(); row != 4 || col != 0 {
		t.Fatalf("position (%d,%d), expected (4,0)", row, col)
	}
}

// TestCursorDriftRecovery verifies that a write finding the derived row
// past the grid wraps to a fresh line and lands inside the grid.
func TestCursorDriftRecovery(t *testing.T) {
	w, surface := newTestConsole(4, 3)

	w.cursor = 17 // derived row 4 on a 3-row grid
	w.WriteByte('y')

	if got := surface.At(2, 0).Glyph; got != 'y' {
		t.Fatalf("cell (2,0) holds %q, expected 'y'", got)
	}
	if row, col := w.Position(); row != 2 || col != 1 {
		t.Fatalf("position (%d,%d), expected (2,1)", row, col)
	}
}

// TestPlaceholderSubstitution verifies that every byte outside printable
// ASCII is stored as the placeholder glyph, never verbatim, while the
// range boundaries and newline pass through.
func TestPlaceholderSubstitution(t *testing.T) {
	w, surface := newTestConsole(8, 3)

	w.WriteString(string([]byte{0x00, 0x07, 0x1B, 0x7F, 0xFF}))
	for col := 0; col < 5; col++ {
		if got := surface.At(0, col).Glyph; got != PLACEHOLDER_GLYPH {
			t.Fatalf("cell (0,%d) holds 0x%02X, expected placeholder 0x%02X", col, got, PLACEHOLDER_GLYPH)
		}
	}

	w.Clear()
	w.WriteString(string([]byte{0x20, 0x7E, '\n', 'z'}))
	if got := surface.At(0, 0).Glyph; got != 0x20 {
		t.Fatalf("cell (0,0) holds 0x%02X, expected space", got)
	}
	if got := surface.At(0, 1).Glyph; got != 0x7E {
		t.Fatalf("cell (0,1) holds 0x%02X, expected tilde", got)
	}
	if got := surface.At(1, 0).Glyph; got != 'z' {
		t.Fatalf("newline not honored: cell (1,0) holds %q, expected 'z'", got)
	}
}

// TestWriteByteBypassesFilter verifies the low-level byte path stores its
// input verbatim; the substitution policy belongs to the string paths.
func TestWriteByteBypassesFilter(t *testing.T) {
	w, surface := newTestConsole(4, 3)

	w.WriteByte(0x01)
	if got := surface.At(0, 0).Glyph; got != 0x01 {
		t.Fatalf("cell (0,0) holds 0x%02X, expected 0x01", got)
	}
}

// TestWriterNeverErrors verifies the io.Writer face accepts arbitrary
// bytes, reports the full length and never returns an error, so the
// formatting layer above can treat the console as infallible.
func TestWriterNeverErrors(t *testing.T) {
	w, _ := newTestConsole(8, 3)

	input := make([]byte, 256)
	for i := range input {
		input[i] = byte(i)
	}
	n, err := w.Write(input)
	if err != nil {
		t.Fatalf("Write returned %v, expected nil", err)
	}
	if n != len(input) {
		t.Fatalf("Write reported %d bytes, expected %d", n, len(input))
	}

	if _, err := fmt.Fprintf(w, "value=%d\n", 42); err != nil {
		t.Fatalf("Fprintf returned %v, expected nil", err)
	}
}

// TestClearRowIdempotent verifies that blanking a row twice leaves the
// same grid state as blanking it once and never moves the cursor.
func TestClearRowIdempotent(t *testing.T) {
	w, surface := newTestConsole(4, 3)

	w.WriteString("abcd")
	row, col := w.Position()

	w.ClearRow(0)
	var once [12]Cell
	surface.CopyInto(once[:])

	w.ClearRow(0)
	var twice [12]Cell
	surface.CopyInto(twice[:])

	if once != twice {
		t.Fatal("clearing a row twice diverged from clearing it once")
	}
	if got := surface.At(0, 0); got != BlankCell(DEFAULT_ATTR) {
		t.Fatalf("cell (0,0) is %+v, expected a default blank", got)
	}
	if r, c := w.Position(); r != row || c != col {
		t.Fatalf("position moved to (%d,%d), expected (%d,%d)", r, c, row, col)
	}

	// Out-of-range rows are ignored.
	w.ClearRow(-1)
	w.ClearRow(99)
}

// TestClearBlanksGridAndHomesCursor verifies Clear.
func TestClearBlanksGridAndHomesCursor(t *testing.T) {
	w, surface := newTestConsole(4, 3)

	w.WriteString("abc\ndef")
	w.Clear()

	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			if got := surface.At(row, col).Glyph; got != BLANK_GLYPH {
				t.Fatalf("cell (%d,%d) holds %q after clear, expected blank", row, col, got)
			}
		}
	}
	if row, col := w.Position(); row != 0 || col != 0 {
		t.Fatalf("position (%d,%d) after clear, expected (0,0)", row, col)
	}
}

// TestInterruptDeferredDuringWrite verifies that a handler raised while
// the writer holds its critical section is not delivered until the
// section ends. The handler prints, which would deadlock against the
// held lock if it ran immediately.
func TestInterruptDeferredDuringWrite(t *testing.T) {
	irq := NewInterruptController()
	surface := newTextSurface(8, 3, make([]Cell, 24))
	w := NewConsoleWriter(surface, irq)

	delivered := false
	w.section(func() {
		irq.Raise(func() {
			delivered = true
			w.WriteString("IRQ")
		})
		if delivered {
			t.Fatal("handler delivered inside the critical section")
		}
		if irq.PendingCount() != 1 {
			t.Fatalf("pending count %d inside section, expected 1", irq.PendingCount())
		}
	})

	if !delivered {
		t.Fatal("handler not delivered after the critical section")
	}
	if got := surface.At(0, 0).Glyph; got != 'I' {
		t.Fatalf("cell (0,0) holds %q, expected the handler's output", got)
	}
}

// TestSnapshotIsACopy verifies the display read path sees whole frames
// that do not alias the live grid.
func TestSnapshotIsACopy(t *testing.T) {
	w, surface := newTestConsole(4, 3)

	w.WriteString("abcd")
	frame := make([]Cell, 12)
	w.Snapshot(frame)

	if frame[0].Glyph != 'a' {
		t.Fatalf("snapshot cell 0 holds %q, expected 'a'", frame[0].Glyph)
	}

	frame[0].Glyph = 'Z'
	if got := surface.At(0, 0).Glyph; got != 'a' {
		t.Fatalf("mutating the snapshot changed the grid to %q", got)
	}
}

// TestScreenTextRendering verifies the host-side rendering: placeholders
// become dots, trailing blanks are trimmed.
func TestScreenTextRendering(t *testing.T) {
	w, _ := newTestConsole(8, 2)

	w.WriteString("Hi")
	w.WriteByte(0xFE)

	text := w.ScreenText()
	if want := "Hi."; len(text) < len(want) || text[:len(want)] != want {
		t.Fatalf("screen text %q, expected prefix %q", text, want)
	}
}

// TestConcurrentWritersAndReaders stresses the writer lock from several
// goroutines. There are no assertions; the race detector is the oracle.
func TestConcurrentWritersAndReaders(t *testing.T) {
	irq := NewInterruptController()
	surface := newTextSurface(80, 25, make([]Cell, 2000))
	w := NewConsoleWriter(surface, irq)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			fmt.Fprintf(w, "writer one line %d\n", i)
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			w.WriteString("second writer\n")
			w.SetAttr(MakeAttr(COLOR_LIGHT_CYAN, COLOR_BLACK))
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		frame := make([]Cell, 2000)
		for {
			select {
			case <-stop:
				return
			default:
			}
			w.Snapshot(frame)
			w.Position()
		}
	}()

	for i := 0; i < 1000; i++ {
		irq.Raise(func() { w.WriteByte('!') })
	}
	close(stop)
	wg.Wait()
}

func BenchmarkWriteString(b *testing.B) {
	w, _ := newTestConsole(TEXT_COLS, TEXT_ROWS)
	line := strings.Repeat("m", 64) + "\n"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.WriteString(line)
	}
}

func BenchmarkScroll(b *testing.B) {
	w, _ := newTestConsole(TEXT_COLS, TEXT_ROWS)
	w.WriteString(strings.Repeat("\n", TEXT_ROWS))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.WriteByte('\n')
	}
}

func BenchmarkSnapshot(b *testing.B) {
	w, _ := newTestConsole(TEXT_COLS, TEXT_ROWS)
	w.WriteString("benchmark frame")
	frame := make([]Cell, TEXT_PAGE_CELLS)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Snapshot(frame)
	}
}
