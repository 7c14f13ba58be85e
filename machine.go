// machine.go - Machine assembly, run loop and halt path for the Phosphor Engine

/*
(c) 2025 - 2026 Phosphor Engine contributors
https://github.com/phosphorvm/PhosphorEngine
License: GPLv3 or later
*/

/*
machine.go - Machine Assembly

Construction order is fixed and explicit:

    1. bus                  flat RAM, empty I/O map
    2. interrupt controller
    3. text surface         the one unsafe bind over the text window
    4. console writer       blanks the grid, becomes the active console
    5. serial port          mapped at SERIAL_REGION_BASE
    6. debug exit device    mapped at DEBUG_EXIT_PORT
    7. display backend      chosen by config
    8. display refresher    mapped at CONSOLE_REGION_BASE

Nothing reads or writes the grid before step 4 completes, so no guest or
host path can ever observe uninitialized cells. The bus seals its I/O map
when Run starts; mapping devices after that is a host programming error.

A machine halts exactly once: through the guest's debug exit write, through
the kernel facade's halt, through the operator closing the display, or
through a host-side stop such as a watchdog. The first cause wins and fixes
the exit value.
*/

package main

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

type MachineConfig struct {
	Backend     int // DISPLAY_BACKEND_*
	Scale       int
	RefreshRate int
	Title       string

	// Host sink for serial output. Nil keeps bytes in the port's capture
	// buffer only.
	SerialSink io.Writer
}

type Machine struct {
	bus     *MachineBus
	irq     *InterruptController
	surface *TextSurface
	console *ConsoleWriter
	serial  *SerialPort
	debug   *DebugExitDevice
	display *TextDisplay
	output  DisplayOutput

	serialWriter *SerialWriter

	haltChan  chan struct{}
	haltOnce  sync.Once
	exitValue atomic.Uint32
}

// machineHalt unwinds a guest program when the machine stops underneath
// it. Only the kernel facade panics with it; Run recovers it.
type machineHalt struct{}

func NewMachine(config MachineConfig) (*Machine, error) {
	bus := NewMachineBus()
	irq := NewInterruptController()
	surface := BindTextSurface(bus)
	console := NewConsoleWriter(surface, irq)
	SetActiveConsole(console)

	serial := NewSerialPort()
	if config.SerialSink != nil {
		sink := config.SerialSink
		serial.SetTransmitHandler(func(b byte) {
			sink.Write([]byte{b})
		})
	}
	bus.MapIO(SERIAL_REGION_BASE, SERIAL_REGION_END, serial.HandleRead, serial.HandleWrite)

	debug := NewDebugExitDevice()
	bus.MapIO(DEBUG_REGION_BASE, DEBUG_REGION_END, debug.HandleRead, debug.HandleWrite)

	output, err := NewDisplayOutput(config.Backend)
	if err != nil {
		return nil, err
	}
	displayConfig := output.GetDisplayConfig()
	if config.Scale > 0 {
		displayConfig.Scale = config.Scale
	}
	if config.RefreshRate > 0 {
		displayConfig.RefreshRate = config.RefreshRate
	}
	if config.Title != "" {
		displayConfig.Title = config.Title
	}
	if err := output.SetDisplayConfig(displayConfig); err != nil {
		return nil, err
	}

	display := NewTextDisplay(console, output, irq)
	bus.MapIO(CONSOLE_REGION_BASE, CONSOLE_REGION_END, display.HandleRead, display.HandleWrite)

	m := &Machine{
		bus:          bus,
		irq:          irq,
		surface:      surface,
		console:      console,
		serial:       serial,
		debug:        debug,
		display:      display,
		output:       output,
		serialWriter: NewSerialWriter(bus),
		haltChan:     make(chan struct{}),
	}

	debug.SetExitHandler(func(value uint32) {
		m.halt(value)
	})

	// The operator closing the display stops the machine cleanly.
	switch backend := output.(type) {
	case *EbitenOutput:
		backend.SetCloseHandler(m.Stop)
	case *TcellOutput:
		backend.SetCloseHandler(m.Stop)
	}

	return m, nil
}

// Run starts the display, executes the guest program on the calling
// goroutine, waits for the machine to halt and returns the exit value.
// A nil program leaves the machine idling until something halts it.
func (m *Machine) Run(program func(*Kernel)) (uint32, error) {
	m.bus.Seal()

	if err := m.display.Start(); err != nil {
		return MACHINE_EXIT_FAILED, err
	}

	if program != nil {
		m.runProgram(NewKernel(m), program)
	}

	<-m.haltChan

	// One last frame so the backend shows the final grid state.
	m.display.RefreshNow()
	m.display.Stop()

	return m.exitValue.Load(), nil
}

func (m *Machine) runProgram(k *Kernel, program func(*Kernel)) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if _, ok := r.(machineHalt); ok {
			return
		}
		// A guest panic reaches the console and the serial channel,
		// then stops the machine with the failure code.
		k.reportPanic(r)
	}()
	program(k)
}

// Halt stops the machine with an explicit observed exit value. The first
// halt wins; later calls are no-ops.
func (m *Machine) Halt(value uint32) {
	m.halt(value)
}

// Stop is the clean host-side stop: exit value zero, distinguishable from
// every guest-initiated exit, which is always odd.
func (m *Machine) Stop() {
	m.halt(0)
}

func (m *Machine) halt(value uint32) {
	m.haltOnce.Do(func() {
		m.exitValue.Store(value)
		close(m.haltChan)
	})
}

// Halted reports whether the machine has stopped.
func (m *Machine) Halted() bool {
	select {
	case <-m.haltChan:
		return true
	default:
		return false
	}
}

// ExitValue returns the observed exit value once the machine has halted,
// zero beforehand.
func (m *Machine) ExitValue() uint32 {
	return m.exitValue.Load()
}

// ScreenText renders the current grid for the monitor and tests.
func (m *Machine) ScreenText() string {
	return m.console.ScreenText()
}

// HostExitCode maps an observed machine exit value to a process exit code:
// success and clean host stops map to zero, everything else to one.
func HostExitCode(value uint32) int {
	switch value {
	case 0, MACHINE_EXIT_SUCCESS:
		return 0
	default:
		return 1
	}
}

// DumpSerial prints any captured serial output to the host's stdout. Used
// by the monitor after a headless run without a serial sink.
func (m *Machine) DumpSerial() {
	if out := m.serial.DrainOutput(); len(out) > 0 {
		fmt.Printf("%s", out)
	}
}
