// debug_exit.go - Guest-triggered machine stop device

package main

import "sync"

// Observed machine exit values for the conventional guest codes. The
// transform guarantees a guest-initiated exit is always odd, so it can
// never be confused with a clean host-side stop (which reports zero).
const (
	MACHINE_EXIT_SUCCESS = EXIT_CODE_SUCCESS<<1 | 1
	MACHINE_EXIT_FAILED  = EXIT_CODE_FAILED<<1 | 1
)

// DebugExitDevice lets a guest program stop the machine and report a
// pass/fail code out of band. The first write to DEBUG_EXIT_PORT latches
// (value << 1) | 1 as the machine's exit value and fires the stop
// callback; every later write is ignored.
type DebugExitDevice struct {
	mu        sync.Mutex
	triggered bool
	exitValue uint32
	onExit    func(uint32)
}

func NewDebugExitDevice() *DebugExitDevice {
	return &DebugExitDevice{}
}

// SetExitHandler installs the machine stop callback. It runs outside the
// device lock, once, on the goroutine that performed the triggering write.
func (d *DebugExitDevice) SetExitHandler(fn func(uint32)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onExit = fn
}

// HandleRead reports the latched exit value, zero before any trigger.
func (d *DebugExitDevice) HandleRead(addr uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if addr == DEBUG_EXIT_PORT && d.triggered {
		return d.exitValue
	}
	return 0
}

// HandleWrite latches the exit value on the first write and fires the
// stop callback.
func (d *DebugExitDevice) HandleWrite(addr uint32, value uint32) {
	if addr != DEBUG_EXIT_PORT {
		return
	}

	d.mu.Lock()
	if d.triggered {
		d.mu.Unlock()
		return
	}
	d.triggered = true
	d.exitValue = value<<1 | 1
	handler := d.onExit
	exitValue := d.exitValue
	d.mu.Unlock()

	if handler != nil {
		handler(exitValue)
	}
}

// Triggered reports whether a guest has stopped the machine.
func (d *DebugExitDevice) Triggered() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.triggered
}

// ExitValue returns the latched exit value, zero before any trigger.
func (d *DebugExitDevice) ExitValue() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.exitValue
}
