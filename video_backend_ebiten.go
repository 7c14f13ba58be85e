// video_backend_ebiten.go - Ebiten graphical display backend for the Phosphor Engine

/*
(c) 2025 - 2026 Phosphor Engine contributors
https://github.com/phosphorvm/PhosphorEngine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

// Pixel geometry of one rendered cell, taken from basicfont.Face7x13.
const (
	EBITEN_CELL_W = 7
	EBITEN_CELL_H = 13
	EBITEN_ASCENT = 11
)

// textPaletteRGBA maps the 16 text-mode colors to display colors.
var textPaletteRGBA = [16]color.RGBA{
	{0x00, 0x00, 0x00, 0xFF}, // black
	{0x00, 0x00, 0xAA, 0xFF}, // blue
	{0x00, 0xAA, 0x00, 0xFF}, // green
	{0x00, 0xAA, 0xAA, 0xFF}, // cyan
	{0xAA, 0x00, 0x00, 0xFF}, // red
	{0xAA, 0x00, 0xAA, 0xFF}, // magenta
	{0xAA, 0x55, 0x00, 0xFF}, // brown
	{0xAA, 0xAA, 0xAA, 0xFF}, // light gray
	{0x55, 0x55, 0x55, 0xFF}, // dark gray
	{0x55, 0x55, 0xFF, 0xFF}, // light blue
	{0x55, 0xFF, 0x55, 0xFF}, // light green
	{0x55, 0xFF, 0xFF, 0xFF}, // light cyan
	{0xFF, 0x55, 0x55, 0xFF}, // light red
	{0xFF, 0x55, 0xFF, 0xFF}, // pink
	{0xFF, 0xFF, 0x55, 0xFF}, // yellow
	{0xFF, 0xFF, 0xFF, 0xFF}, // white
}

// EbitenOutput presents text frames in a graphical window, rasterizing
// glyphs with the basicfont face. The game loop runs on its own goroutine;
// the engine only ever touches the frame copy under the mutex.
type EbitenOutput struct {
	mu      sync.RWMutex
	running bool
	config  DisplayConfig
	frame   *TextFrame
	done    chan struct{}

	closeHandler func()

	frameCount atomic.Uint64
	vsyncChan  chan struct{}
}

func NewEbitenOutput() (DisplayOutput, error) {
	return &EbitenOutput{
		config: DisplayConfig{
			Scale:       2,
			RefreshRate: 60,
			Title:       "Phosphor Engine",
		},
		frame:     NewTextFrame(TEXT_COLS, TEXT_ROWS),
		vsyncChan: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}, nil
}

// SetCloseHandler installs the callback fired when the operator closes the
// window. The machine wires this to its stop path.
func (eo *EbitenOutput) SetCloseHandler(fn func()) {
	eo.mu.Lock()
	eo.closeHandler = fn
	eo.mu.Unlock()
}

func (eo *EbitenOutput) Start() error {
	eo.mu.Lock()
	if eo.running {
		eo.mu.Unlock()
		return nil
	}
	eo.running = true
	eo.done = make(chan struct{})
	config := eo.config
	cols, rows := eo.frame.Cols, eo.frame.Rows
	done := eo.done
	eo.mu.Unlock()

	scale := config.Scale
	if scale < 1 {
		scale = 1
	}
	ebiten.SetWindowSize(cols*EBITEN_CELL_W*scale, rows*EBITEN_CELL_H*scale)
	ebiten.SetWindowTitle(config.Title)
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)

	go func() {
		defer func() {
			eo.mu.Lock()
			eo.running = false
			eo.mu.Unlock()
			select {
			case <-done:
			default:
				close(done)
			}
		}()
		if err := ebiten.RunGame(eo); err != nil && err != ebiten.Termination {
			fmt.Printf("Ebiten error: %v\n", err)
		}
	}()

	// Wait for the first Draw so callers know the window is up.
	select {
	case <-eo.vsyncChan:
	case <-done:
	}
	return nil
}

func (eo *EbitenOutput) Stop() error {
	eo.mu.Lock()
	eo.running = false
	eo.mu.Unlock()
	return nil
}

func (eo *EbitenOutput) Close() error {
	return eo.Stop()
}

func (eo *EbitenOutput) IsStarted() bool {
	eo.mu.RLock()
	defer eo.mu.RUnlock()
	return eo.running
}

// Done is closed when the game loop exits.
func (eo *EbitenOutput) Done() <-chan struct{} {
	eo.mu.RLock()
	defer eo.mu.RUnlock()
	return eo.done
}

func (eo *EbitenOutput) SetDisplayConfig(config DisplayConfig) error {
	eo.mu.Lock()
	defer eo.mu.Unlock()
	if config.Scale < 1 {
		config.Scale = 1
	}
	if config.RefreshRate <= 0 {
		config.RefreshRate = 60
	}
	if config.Title == "" {
		config.Title = eo.config.Title
	}
	eo.config = config
	return nil
}

func (eo *EbitenOutput) GetDisplayConfig() DisplayConfig {
	eo.mu.RLock()
	defer eo.mu.RUnlock()
	return eo.config
}

// PresentFrame copies the frame for the next Draw.
func (eo *EbitenOutput) PresentFrame(frame *TextFrame) error {
	if frame == nil {
		return &DisplayError{Operation: "present", Details: "nil frame"}
	}

	eo.mu.Lock()
	if len(eo.frame.Cells) != len(frame.Cells) {
		eo.frame = NewTextFrame(frame.Cols, frame.Rows)
	}
	copy(eo.frame.Cells, frame.Cells)
	eo.mu.Unlock()
	return nil
}

func (eo *EbitenOutput) GetFrameCount() uint64 {
	return eo.frameCount.Load()
}

func (eo *EbitenOutput) GetRefreshRate() int {
	eo.mu.RLock()
	defer eo.mu.RUnlock()
	return eo.config.RefreshRate
}

func (eo *EbitenOutput) Update() error {
	if ebiten.IsWindowBeingClosed() {
		eo.mu.RLock()
		handler := eo.closeHandler
		eo.mu.RUnlock()
		if handler != nil {
			handler()
		}
		return ebiten.Termination
	}

	eo.mu.RLock()
	running := eo.running
	eo.mu.RUnlock()
	if !running {
		return ebiten.Termination
	}
	return nil
}

// Draw renders the latest frame. Cells are batched into runs of equal
// attribute per row so a full grid costs a few dozen draw calls, not two
// thousand.
func (eo *EbitenOutput) Draw(screen *ebiten.Image) {
	eo.mu.RLock()
	frame := eo.frame
	screen.Fill(textPaletteRGBA[COLOR_BLACK])
	for row := 0; row < frame.Rows; row++ {
		eo.drawRowRuns(screen, frame, row)
	}
	eo.mu.RUnlock()

	eo.frameCount.Add(1)
	select {
	case eo.vsyncChan <- struct{}{}:
	default:
	}
}

func (eo *EbitenOutput) drawRowRuns(screen *ebiten.Image, frame *TextFrame, row int) {
	y := row * EBITEN_CELL_H
	col := 0
	for col < frame.Cols {
		attr := frame.CellAt(row, col).Attr
		run := make([]rune, 0, frame.Cols-col)
		start := col
		for col < frame.Cols && frame.CellAt(row, col).Attr == attr {
			run = append(run, glyphRune(frame.CellAt(row, col).Glyph))
			col++
		}

		x := start * EBITEN_CELL_W
		bg := textPaletteRGBA[attr.Background()&0x0F]
		if attr.Background() != COLOR_BLACK {
			ebitenutil.DrawRect(screen,
				float64(x), float64(y),
				float64(len(run)*EBITEN_CELL_W), float64(EBITEN_CELL_H),
				bg)
		}

		fg := textPaletteRGBA[attr.Foreground()&0x0F]
		text.Draw(screen, string(run), basicfont.Face7x13, x, y+EBITEN_ASCENT, fg)
	}
}

func (eo *EbitenOutput) Layout(_, _ int) (int, int) {
	eo.mu.RLock()
	defer eo.mu.RUnlock()
	return eo.frame.Cols * EBITEN_CELL_W, eo.frame.Rows * EBITEN_CELL_H
}
