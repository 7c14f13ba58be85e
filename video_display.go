// video_display.go - Text display refresher and console registers

/*
(c) 2025 - 2026 Phosphor Engine contributors
https://github.com/phosphorvm/PhosphorEngine
License: GPLv3 or later
*/

/*
video_display.go - Text Display Refresher

The refresher is the machine's display hardware: at a fixed rate it
snapshots the text grid through the console writer's guarded read path,
hands the frame to the configured backend, and flags a vblank. Guests
observe vblanks through CON_STATUS (read clears the flag) or, when enabled
through CON_CTRL, as an asynchronous interrupt raised through the machine's
controller. The snapshot path sees only whole frames, never a half-written
cell, because it takes the same critical section every write does.
*/

package main

import (
	"fmt"
	"sync"
	"time"
)

// Console control register bits.
const (
	CON_CTRL_ENABLE     = 1 << 0
	CON_CTRL_VBLANK_IRQ = 1 << 1
)

// Console status register bits.
const (
	CON_STATUS_VBLANK = 1 << 0
)

type TextDisplay struct {
	mu      sync.Mutex
	console *ConsoleWriter
	output  DisplayOutput
	irq     *InterruptController

	enabled    bool
	vblankIRQ  bool
	vblankSeen bool

	vblankHandler func()

	frame       *TextFrame
	refreshRate int
	running     bool
	done        chan struct{}
}

func NewTextDisplay(console *ConsoleWriter, output DisplayOutput, irq *InterruptController) *TextDisplay {
	refreshRate := output.GetRefreshRate()
	if refreshRate <= 0 {
		refreshRate = 60
	}
	return &TextDisplay{
		console:     console,
		output:      output,
		irq:         irq,
		enabled:     true,
		frame:       NewTextFrame(TEXT_COLS, TEXT_ROWS),
		refreshRate: refreshRate,
	}
}

// SetVBlankHandler installs the guest handler raised through the interrupt
// controller on every presented frame while CON_CTRL bit 1 is set.
func (td *TextDisplay) SetVBlankHandler(fn func()) {
	td.mu.Lock()
	td.vblankHandler = fn
	td.mu.Unlock()
}

func (td *TextDisplay) Start() error {
	td.mu.Lock()
	if td.running {
		td.mu.Unlock()
		return nil
	}
	td.running = true
	td.done = make(chan struct{})
	done := td.done
	td.mu.Unlock()

	if err := td.output.Start(); err != nil {
		td.mu.Lock()
		td.running = false
		td.mu.Unlock()
		return err
	}

	go td.refreshLoop(done)
	return nil
}

func (td *TextDisplay) Stop() {
	td.mu.Lock()
	if !td.running {
		td.mu.Unlock()
		return
	}
	td.running = false
	close(td.done)
	td.mu.Unlock()

	if err := td.output.Stop(); err != nil {
		fmt.Printf("Error stopping display output: %v\n", err)
	}
}

func (td *TextDisplay) refreshLoop(done chan struct{}) {
	ticker := time.NewTicker(time.Second / time.Duration(td.refreshRate))
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			td.RefreshNow()
		}
	}
}

// RefreshNow performs one snapshot/present cycle. The machine also calls
// it once after a program halts so the final output reaches the backend.
func (td *TextDisplay) RefreshNow() {
	td.mu.Lock()
	if !td.enabled {
		td.mu.Unlock()
		return
	}
	frame := td.frame
	handler := td.vblankHandler
	raiseIRQ := td.vblankIRQ && handler != nil
	td.mu.Unlock()

	td.console.Snapshot(frame.Cells)
	frame.Timestamp = time.Now()
	if err := td.output.PresentFrame(frame); err != nil {
		fmt.Printf("Error presenting frame: %v\n", err)
		return
	}

	td.mu.Lock()
	td.vblankSeen = true
	td.mu.Unlock()

	if raiseIRQ {
		td.irq.Raise(handler)
	}
}

// HandleRead services bus reads of the console registers.
func (td *TextDisplay) HandleRead(addr uint32) uint32 {
	td.mu.Lock()
	defer td.mu.Unlock()

	switch addr {
	case CON_CTRL:
		var v uint32
		if td.enabled {
			v |= CON_CTRL_ENABLE
		}
		if td.vblankIRQ {
			v |= CON_CTRL_VBLANK_IRQ
		}
		return v
	case CON_STATUS:
		var v uint32
		if td.vblankSeen {
			v |= CON_STATUS_VBLANK
		}
		td.vblankSeen = false
		return v
	case CON_COLS_REG:
		return TEXT_COLS
	case CON_ROWS_REG:
		return TEXT_ROWS
	default:
		return 0
	}
}

// HandleWrite services bus writes of the console registers. The geometry
// registers are read-only and writes to them are ignored.
func (td *TextDisplay) HandleWrite(addr uint32, value uint32) {
	td.mu.Lock()
	defer td.mu.Unlock()

	switch addr {
	case CON_CTRL:
		td.enabled = value&CON_CTRL_ENABLE != 0
		td.vblankIRQ = value&CON_CTRL_VBLANK_IRQ != 0
	}
}

// FrameCount reports how many frames the backend has presented.
func (td *TextDisplay) FrameCount() uint64 {
	return td.output.GetFrameCount()
}
