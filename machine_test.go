// machine_test.go - Whole-machine integration tests on the headless backend

package main

import (
	"bytes"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newHeadlessMachine(t *testing.T, sink *bytes.Buffer) *Machine {
	t.Helper()
	config := MachineConfig{Backend: DISPLAY_BACKEND_HEADLESS}
	if sink != nil {
		config.SerialSink = sink
	}
	m, err := NewMachine(config)
	if err != nil {
		t.Fatalf("machine construction failed: %v", err)
	}
	return m
}

// TestMachineBootBanner verifies the default boot program reaches the grid,
// with the multibyte character of its greeting rendered as placeholders.
func TestMachineBootBanner(t *testing.T) {
	m := newHeadlessMachine(t, nil)

	value, err := m.Run(BootProgram(true))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if value != MACHINE_EXIT_SUCCESS {
		t.Fatalf("exit value 0x%02X, expected 0x%02X", value, MACHINE_EXIT_SUCCESS)
	}

	screen := m.ScreenText()
	if !strings.Contains(screen, "Phosphor Engine") {
		t.Fatalf("banner missing from screen:\n%s", screen)
	}
	// The ö arrives as two bytes outside printable ASCII; each one becomes
	// a placeholder cell.
	if !strings.Contains(screen, "Hello W..rld!") {
		t.Fatalf("substituted greeting missing from screen:\n%s", screen)
	}
}

// TestMachineSelfTest verifies the built-in self test passes end to end
// and reports over the serial channel.
func TestMachineSelfTest(t *testing.T) {
	var sink bytes.Buffer
	m := newHeadlessMachine(t, &sink)

	value, err := m.Run(SelfTestProgram())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if value != MACHINE_EXIT_SUCCESS {
		t.Fatalf("exit value 0x%02X, expected success; serial:\n%s", value, sink.String())
	}

	serial := sink.String()
	if strings.Contains(serial, "[failed]") {
		t.Fatalf("self test reported failures:\n%s", serial)
	}
	if !strings.Contains(serial, "[ok] wrap at last column") {
		t.Fatalf("expected per-check reporting, got:\n%s", serial)
	}
	if !strings.Contains(serial, "checks passed") {
		t.Fatalf("expected a final verdict, got:\n%s", serial)
	}
	if HostExitCode(value) != 0 {
		t.Fatalf("host exit code %d, expected 0", HostExitCode(value))
	}
}

// TestMachineExitUnwindsProgram verifies nothing after a guest exit runs.
func TestMachineExitUnwindsProgram(t *testing.T) {
	m := newHeadlessMachine(t, nil)

	value, err := m.Run(func(k *Kernel) {
		k.Println("before")
		k.Exit(EXIT_CODE_SUCCESS)
		k.Println("after")
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if value != MACHINE_EXIT_SUCCESS {
		t.Fatalf("exit value 0x%02X, expected success", value)
	}

	screen := m.ScreenText()
	if !strings.Contains(screen, "before") {
		t.Fatalf("pre-exit output missing:\n%s", screen)
	}
	if strings.Contains(screen, "after") {
		t.Fatalf("post-exit code ran:\n%s", screen)
	}
}

// TestMachineGuestPanicReports verifies a panicking program paints the
// panic on both channels and fails the machine.
func TestMachineGuestPanicReports(t *testing.T) {
	m := newHeadlessMachine(t, nil)

	value, err := m.Run(func(k *Kernel) {
		panic("kaboom")
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if value != MACHINE_EXIT_FAILED {
		t.Fatalf("exit value 0x%02X, expected failure", value)
	}
	if !strings.Contains(m.ScreenText(), "KERNEL PANIC: kaboom") {
		t.Fatalf("panic banner missing:\n%s", m.ScreenText())
	}
	if got := string(m.serial.DrainOutput()); !strings.Contains(got, "PANIC: kaboom") {
		t.Fatalf("serial panic report missing, got %q", got)
	}
	if HostExitCode(value) != 1 {
		t.Fatalf("host exit code %d, expected 1", HostExitCode(value))
	}
}

// TestMachineGuestHaltIsClean verifies the facade's halt reports the even
// host-stop value, distinguishable from every guest exit.
func TestMachineGuestHaltIsClean(t *testing.T) {
	m := newHeadlessMachine(t, nil)

	value, err := m.Run(func(k *Kernel) {
		k.Halt()
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if value != 0 {
		t.Fatalf("exit value 0x%02X, expected 0", value)
	}
	if !m.Halted() {
		t.Fatal("machine not halted after run")
	}
}

// TestMachineWatchdogStop verifies a host-side stop unblocks an idling
// machine.
func TestMachineWatchdogStop(t *testing.T) {
	m := newHeadlessMachine(t, nil)

	timer := time.AfterFunc(20*time.Millisecond, m.Stop)
	defer timer.Stop()

	value, err := m.Run(nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if value != 0 {
		t.Fatalf("exit value 0x%02X, expected 0", value)
	}
}

// TestMachinePeekCellCoherence verifies a guest-side bus read observes
// what the console wrote, including the attribute byte.
func TestMachinePeekCellCoherence(t *testing.T) {
	m := newHeadlessMachine(t, nil)

	if _, err := m.Run(func(k *Kernel) {
		k.SetColors(COLOR_YELLOW, COLOR_BLUE)
		k.Print("AB")

		cell := k.PeekCell(0, 0)
		if cell.Glyph != 'A' {
			t.Fatalf("peeked glyph %q, expected 'A'", cell.Glyph)
		}
		if cell.Attr != MakeAttr(COLOR_YELLOW, COLOR_BLUE) {
			t.Fatalf("peeked attr 0x%02X, expected 0x%02X", cell.Attr, MakeAttr(COLOR_YELLOW, COLOR_BLUE))
		}
		k.Exit(EXIT_CODE_SUCCESS)
	}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
}

// TestMachineVBlankInterrupt verifies a guest handler installed through
// the facade fires while the refresh loop runs.
func TestMachineVBlankInterrupt(t *testing.T) {
	m, err := NewMachine(MachineConfig{
		Backend:     DISPLAY_BACKEND_HEADLESS,
		RefreshRate: 200,
	})
	if err != nil {
		t.Fatalf("machine construction failed: %v", err)
	}

	var ticks atomic.Int32
	value, err := m.Run(func(k *Kernel) {
		k.OnVBlank(func() { ticks.Add(1) })

		deadline := time.Now().Add(2 * time.Second)
		for ticks.Load() < 2 {
			if time.Now().After(deadline) {
				t.Fatal("no vblank interrupts after two seconds")
			}
			time.Sleep(5 * time.Millisecond)
		}
		k.Exit(EXIT_CODE_SUCCESS)
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if value != MACHINE_EXIT_SUCCESS {
		t.Fatalf("exit value 0x%02X, expected success", value)
	}
}

// TestNewMachineRejectsUnknownBackend verifies the backend factory error
// path surfaces at construction.
func TestNewMachineRejectsUnknownBackend(t *testing.T) {
	if _, err := NewMachine(MachineConfig{Backend: 99}); err == nil {
		t.Fatal("unknown backend accepted")
	}
}
