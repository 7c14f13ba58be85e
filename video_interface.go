// video_interface.go - Display backend interface for the Phosphor Engine

/*
(c) 2025 - 2026 Phosphor Engine contributors
https://github.com/phosphorvm/PhosphorEngine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"time"
)

// DisplayError provides detailed error context for display operations
type DisplayError struct {
	Operation string // What operation was being attempted
	Details   string // Additional error context
	Err       error  // Underlying error if any
}

func (e *DisplayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("display %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("display %s failed: %s", e.Operation, e.Details)
}

func (e *DisplayError) Unwrap() error {
	return e.Err
}

// TextFrame is one complete snapshot of the text grid, as handed to a
// backend. Cells holds Rows*Cols entries in row-major order.
type TextFrame struct {
	Cols      int
	Rows      int
	Cells     []Cell
	Timestamp time.Time
}

// NewTextFrame allocates a frame matching the grid geometry.
func NewTextFrame(cols, rows int) *TextFrame {
	return &TextFrame{
		Cols:  cols,
		Rows:  rows,
		Cells: make([]Cell, cols*rows),
	}
}

// CellAt returns the cell at a frame position, blank when out of range.
func (f *TextFrame) CellAt(row, col int) Cell {
	if row < 0 || row >= f.Rows || col < 0 || col >= f.Cols {
		return BlankCell(DEFAULT_ATTR)
	}
	return f.Cells[row*f.Cols+col]
}

// DisplayConfig contains backend-independent presentation settings.
type DisplayConfig struct {
	Scale       int    // Integer scaling factor for the graphical window
	RefreshRate int    // Target refresh rate in Hz
	Title       string // Window or screen title where the backend has one
}

// DisplayOutput defines the minimal interface that backends must implement
type DisplayOutput interface {
	// Lifecycle management
	Start() error
	Stop() error
	Close() error
	IsStarted() bool

	// Core display operations - kept minimal
	SetDisplayConfig(config DisplayConfig) error
	GetDisplayConfig() DisplayConfig
	PresentFrame(frame *TextFrame) error

	// Timing
	GetFrameCount() uint64
	GetRefreshRate() int
}

// Predefined display backend types
const (
	DISPLAY_BACKEND_HEADLESS = iota // No presentation, frame counting only
	DISPLAY_BACKEND_WINDOW          // Graphical window via Ebiten
	DISPLAY_BACKEND_TERMINAL        // Host terminal cell grid via tcell
)

// glyphRune maps a stored glyph byte to the rune a backend presents.
// Storage always keeps the original byte; this mapping is display-only.
func glyphRune(g byte) rune {
	switch {
	case g >= PRINTABLE_MIN && g <= PRINTABLE_MAX:
		return rune(g)
	case g == PLACEHOLDER_GLYPH:
		return '■' // solid block
	case g == 0:
		return ' '
	default:
		return '?'
	}
}

// NewDisplayOutput creates a new display output instance using the
// specified backend
func NewDisplayOutput(backend int) (DisplayOutput, error) {
	switch backend {
	case DISPLAY_BACKEND_HEADLESS:
		return NewHeadlessOutput()
	case DISPLAY_BACKEND_WINDOW:
		return NewEbitenOutput()
	case DISPLAY_BACKEND_TERMINAL:
		return NewTcellOutput()
	}
	return nil, &DisplayError{
		Operation: "backend creation",
		Details:   fmt.Sprintf("unknown backend type: %d", backend),
	}
}
