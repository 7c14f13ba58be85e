// kernel_boot.go - Guest kernel facade and the default boot program

package main

import "fmt"

// Kernel is the facade handed to guest programs. Everything a guest can do
// to the machine goes through it: console output, serial diagnostics, the
// vblank interrupt, and stopping the machine.
type Kernel struct {
	machine *Machine
}

func NewKernel(m *Machine) *Kernel {
	return &Kernel{machine: m}
}

// Printf renders formatted text on the console.
func (k *Kernel) Printf(format string, args ...any) {
	fmt.Fprintf(k.machine.console, format, args...)
}

func (k *Kernel) Println(args ...any) {
	fmt.Fprintln(k.machine.console, args...)
}

func (k *Kernel) Print(args ...any) {
	fmt.Fprint(k.machine.console, args...)
}

// SerialPrintf sends formatted diagnostics over the serial channel. Bytes
// travel as individual register writes on the bus.
func (k *Kernel) SerialPrintf(format string, args ...any) {
	fmt.Fprintf(k.machine.serialWriter, format, args...)
}

// SetColors changes the attribute for subsequent console output.
func (k *Kernel) SetColors(fg, bg Color) {
	k.machine.console.SetAttr(MakeAttr(fg, bg))
}

// Clear blanks the screen and rewinds the cursor.
func (k *Kernel) Clear() {
	k.machine.console.Clear()
}

// ClearRow blanks a single row without moving the cursor.
func (k *Kernel) ClearRow(row int) {
	k.machine.console.ClearRow(row)
}

// Position reports the row and column the next glyph would occupy.
func (k *Kernel) Position() (row, col int) {
	return k.machine.console.Position()
}

func (k *Kernel) Cols() int { return k.machine.surface.Cols() }
func (k *Kernel) Rows() int { return k.machine.surface.Rows() }

// PeekCell reads a grid cell back through the bus, the way any guest-side
// observer would see it.
func (k *Kernel) PeekCell(row, col int) Cell {
	addr := uint32(TEXT_WINDOW + (row*TEXT_COLS+col)*CELL_SIZE)
	word := k.machine.bus.Read16(addr)
	return Cell{Glyph: byte(word), Attr: Attr(word >> 8)}
}

// ReadRegister performs a guest-side register read.
func (k *Kernel) ReadRegister(addr uint32) uint32 {
	return uint32(k.machine.bus.Read8(addr))
}

// OnVBlank installs a handler raised through the interrupt controller on
// every presented frame, and enables the vblank interrupt in CON_CTRL.
func (k *Kernel) OnVBlank(fn func()) {
	k.machine.display.SetVBlankHandler(fn)
	k.machine.bus.Write8(CON_CTRL, CON_CTRL_ENABLE|CON_CTRL_VBLANK_IRQ)
}

// Exit stops the machine through the debug exit device and unwinds the
// program. The conventional codes are EXIT_CODE_SUCCESS and
// EXIT_CODE_FAILED.
func (k *Kernel) Exit(code uint32) {
	k.machine.bus.Write8(DEBUG_EXIT_PORT, uint8(code))
	panic(machineHalt{})
}

// Halt stops the machine cleanly without a guest exit code and unwinds
// the program.
func (k *Kernel) Halt() {
	k.machine.Stop()
	panic(machineHalt{})
}

// Panic reports an unrecoverable guest condition on both output channels
// and stops the machine with the failure code.
func (k *Kernel) Panic(format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	k.SetColors(COLOR_WHITE, COLOR_RED)
	k.Printf("\nKERNEL PANIC: %s\n", message)
	k.SerialPrintf("PANIC: %s\n", message)
	k.Exit(EXIT_CODE_FAILED)
}

// reportPanic is the recover-path twin of Panic: it must not unwind again,
// so it writes the exit register directly instead of going through Exit.
func (k *Kernel) reportPanic(r any) {
	message := fmt.Sprint(r)
	k.SetColors(COLOR_WHITE, COLOR_RED)
	k.Printf("\nKERNEL PANIC: %s\n", message)
	k.SerialPrintf("PANIC: %s\n", message)
	k.machine.bus.Write8(DEBUG_EXIT_PORT, EXIT_CODE_FAILED)
}

// BootProgram is the default guest: it greets, demonstrates wrapping and
// substitution, and either exits cleanly or leaves the machine running
// for the display.
func BootProgram(autoexit bool) func(*Kernel) {
	return func(k *Kernel) {
		k.SetColors(COLOR_LIGHT_GRAY, COLOR_BLACK)
		k.Clear()

		k.SetColors(COLOR_LIGHT_GREEN, COLOR_BLACK)
		k.Println("Phosphor Engine")
		k.SetColors(COLOR_DARK_GRAY, COLOR_BLACK)
		k.Printf("text console %dx%d at 0x%05X\n\n", k.Cols(), k.Rows(), uint32(TEXT_WINDOW))

		k.SetColors(COLOR_LIGHT_GRAY, COLOR_BLACK)
		k.Println("Hello Wörld!")
		k.Println()

		k.SerialPrintf("phosphor: console ready, %dx%d\n", k.Cols(), k.Rows())

		if autoexit {
			k.Exit(EXIT_CODE_SUCCESS)
		}
	}
}
