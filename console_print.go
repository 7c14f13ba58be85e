// console_print.go - Package-level print facility over the active console

package main

import (
	"fmt"
	"sync/atomic"
)

// activeConsole is the process-wide console handle. Machine assembly stores
// it exactly once, before any guest program runs; there is no lazy
// initialization path. Callers reach the console only through the guarded
// writer the handle points at.
var activeConsole atomic.Pointer[ConsoleWriter]

// SetActiveConsole binds the console the package-level print functions
// write through. Called during machine assembly.
func SetActiveConsole(w *ConsoleWriter) {
	activeConsole.Store(w)
}

// ActiveConsole returns the bound console, or nil before assembly.
func ActiveConsole() *ConsoleWriter {
	return activeConsole.Load()
}

// Print formats its operands and renders them on the active console. With
// no console bound the output is dropped; the facility never fails.
func Print(args ...any) {
	if w := activeConsole.Load(); w != nil {
		fmt.Fprint(w, args...)
	}
}

func Printf(format string, args ...any) {
	if w := activeConsole.Load(); w != nil {
		fmt.Fprintf(w, format, args...)
	}
}

func Println(args ...any) {
	if w := activeConsole.Load(); w != nil {
		fmt.Fprintln(w, args...)
	}
}
