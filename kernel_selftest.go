// kernel_selftest.go - Built-in guest self-test program

package main

import (
	"fmt"
	"strings"
)

// selfTestCheck is one guest-visible behavior check. Checks observe the
// machine the way any guest would: cells read back through the bus,
// registers through guest reads, position through the facade.
type selfTestCheck struct {
	name string
	run  func(*Kernel) error
}

// SelfTestProgram drives the console through its edge cases and reports
// per-check results over the serial channel, exiting with the
// conventional pass or fail code.
func SelfTestProgram() func(*Kernel) {
	return func(k *Kernel) {
		checks := []selfTestCheck{
			{"write lands at cursor", checkSimpleWrite},
			{"wrap at last column", checkWrap},
			{"full page scrolls once", checkFullPageScroll},
			{"newline at last cell scrolls once", checkLastCellNewline},
			{"placeholder substitution", checkPlaceholder},
			{"blank row is idempotent", checkBlankRow},
			{"serial transmit ready", checkSerialStatus},
			{"geometry registers", checkGeometryRegisters},
		}

		k.SetColors(COLOR_LIGHT_GRAY, COLOR_BLACK)
		k.Clear()
		k.Println("phosphor self test")
		k.SerialPrintf("phosphor self test: %d checks\n", len(checks))

		failed := 0
		for _, check := range checks {
			if err := check.run(k); err != nil {
				failed++
				k.SerialPrintf("[failed] %s: %v\n", check.name, err)
			} else {
				k.SerialPrintf("[ok] %s\n", check.name)
			}
		}

		k.Clear()
		if failed > 0 {
			k.SetColors(COLOR_LIGHT_RED, COLOR_BLACK)
			k.Printf("self test: %d of %d checks failed\n", failed, len(checks))
			k.SerialPrintf("%d of %d checks failed\n", failed, len(checks))
			k.Exit(EXIT_CODE_FAILED)
		}
		k.SetColors(COLOR_LIGHT_GREEN, COLOR_BLACK)
		k.Printf("self test: all %d checks passed\n", len(checks))
		k.SerialPrintf("all %d checks passed\n", len(checks))
		k.Exit(EXIT_CODE_SUCCESS)
	}
}

func checkSimpleWrite(k *Kernel) error {
	k.Clear()
	k.Print("Hello")

	want := "Hello"
	for i := 0; i < len(want); i++ {
		cell := k.PeekCell(0, i)
		if cell.Glyph != want[i] {
			return fmt.Errorf("expected %q at (0,%d), got %q", want[i], i, cell.Glyph)
		}
	}
	if row, col := k.Position(); row != 0 || col != len(want) {
		return fmt.Errorf("expected position (0,%d), got (%d,%d)", len(want), row, col)
	}
	return nil
}

func checkWrap(k *Kernel) error {
	k.Clear()
	k.Print(strings.Repeat("a", k.Cols()))
	k.Print("b")

	if cell := k.PeekCell(0, k.Cols()-1); cell.Glyph != 'a' {
		return fmt.Errorf("expected 'a' at the last column, got %q", cell.Glyph)
	}
	if cell := k.PeekCell(1, 0); cell.Glyph != 'b' {
		return fmt.Errorf("expected 'b' at (1,0), got %q", cell.Glyph)
	}
	if row, col := k.Position(); row != 1 || col != 1 {
		return fmt.Errorf("expected position (1,1), got (%d,%d)", row, col)
	}
	return nil
}

// fillRows writes n bytes of per-row letters, row r getting 'A'+r, so a
// scroll is distinguishable from two.
func fillRows(k *Kernel, n int) {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(byte('A' + (i/k.Cols())%26))
	}
	k.Print(b.String())
}

func checkFullPageScroll(k *Kernel) error {
	k.Clear()
	fillRows(k, k.Rows()*k.Cols())
	k.Print("X")

	if cell := k.PeekCell(0, 0); cell.Glyph != 'B' {
		return fmt.Errorf("expected old row 1 at the top after one scroll, got %q", cell.Glyph)
	}
	if cell := k.PeekCell(k.Rows()-1, 0); cell.Glyph != 'X' {
		return fmt.Errorf("expected 'X' at the start of the last row, got %q", cell.Glyph)
	}
	if cell := k.PeekCell(k.Rows()-1, 1); cell.Glyph != BLANK_GLYPH {
		return fmt.Errorf("expected a blank after 'X', got %q", cell.Glyph)
	}
	return nil
}

func checkLastCellNewline(k *Kernel) error {
	k.Clear()
	fillRows(k, k.Rows()*k.Cols()-1)
	k.Print("\n")

	if row, col := k.Position(); row != k.Rows()-1 || col != 0 {
		return fmt.Errorf("expected position (%d,0), got (%d,%d)", k.Rows()-1, row, col)
	}
	// One scroll exactly: the top row now holds old row 1.
	if cell := k.PeekCell(0, 0); cell.Glyph != 'B' {
		return fmt.Errorf("expected old row 1 at the top, got %q", cell.Glyph)
	}
	if cell := k.PeekCell(k.Rows()-1, 0); cell.Glyph != BLANK_GLYPH {
		return fmt.Errorf("expected a blank last row, got %q", cell.Glyph)
	}
	return nil
}

func checkPlaceholder(k *Kernel) error {
	k.Clear()
	k.Print(string([]byte{0x07, 0x1B}))

	for col := 0; col < 2; col++ {
		if cell := k.PeekCell(0, col); cell.Glyph != PLACEHOLDER_GLYPH {
			return fmt.Errorf("expected the placeholder at (0,%d), got 0x%02X", col, cell.Glyph)
		}
	}
	if row, col := k.Position(); row != 0 || col != 2 {
		return fmt.Errorf("expected position (0,2), got (%d,%d)", row, col)
	}
	return nil
}

func checkBlankRow(k *Kernel) error {
	k.Clear()
	k.Print("residue")
	k.ClearRow(0)
	first := k.PeekCell(0, 0)
	k.ClearRow(0)
	second := k.PeekCell(0, 0)

	if first.Glyph != BLANK_GLYPH {
		return fmt.Errorf("expected a blank after clearing, got %q", first.Glyph)
	}
	if first != second {
		return fmt.Errorf("expected clearing twice to match clearing once")
	}
	return nil
}

func checkSerialStatus(k *Kernel) error {
	if k.ReadRegister(SERIAL_STATUS)&SERIAL_STATUS_TX_READY == 0 {
		return fmt.Errorf("expected transmit ready")
	}
	return nil
}

func checkGeometryRegisters(k *Kernel) error {
	if cols := k.ReadRegister(CON_COLS_REG); cols != TEXT_COLS {
		return fmt.Errorf("expected %d columns, got %d", TEXT_COLS, cols)
	}
	if rows := k.ReadRegister(CON_ROWS_REG); rows != TEXT_ROWS {
		return fmt.Errorf("expected %d rows, got %d", TEXT_ROWS, rows)
	}
	return nil
}
