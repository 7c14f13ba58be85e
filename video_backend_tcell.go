// video_backend_tcell.go - Host terminal display backend via tcell

package main

import (
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
)

// tcellPalette maps the 16 text-mode colors onto the standard terminal
// palette.
var tcellPalette = [16]tcell.Color{
	tcell.ColorBlack,
	tcell.ColorNavy,
	tcell.ColorGreen,
	tcell.ColorTeal,
	tcell.ColorMaroon,
	tcell.ColorPurple,
	tcell.ColorOlive,
	tcell.ColorSilver,
	tcell.ColorGray,
	tcell.ColorBlue,
	tcell.ColorLime,
	tcell.ColorAqua,
	tcell.ColorRed,
	tcell.ColorFuchsia,
	tcell.ColorYellow,
	tcell.ColorWhite,
}

// TcellOutput presents text frames on the host terminal, one terminal cell
// per grid cell. The guest has no keyboard; the only keys the event loop
// reacts to are the operator's abort chords.
type TcellOutput struct {
	mu      sync.Mutex
	screen  tcell.Screen
	running bool
	config  DisplayConfig
	done    chan struct{}

	closeHandler func()

	frameCount atomic.Uint64
}

func NewTcellOutput() (DisplayOutput, error) {
	return &TcellOutput{
		config: DisplayConfig{
			Scale:       1,
			RefreshRate: 60,
			Title:       "Phosphor Engine",
		},
		done: make(chan struct{}),
	}, nil
}

// SetCloseHandler installs the callback fired when the operator aborts
// with Ctrl+C or Escape.
func (to *TcellOutput) SetCloseHandler(fn func()) {
	to.mu.Lock()
	to.closeHandler = fn
	to.mu.Unlock()
}

func (to *TcellOutput) Start() error {
	to.mu.Lock()
	if to.running {
		to.mu.Unlock()
		return nil
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		to.mu.Unlock()
		return &DisplayError{Operation: "terminal init", Details: "creating screen", Err: err}
	}
	if err := screen.Init(); err != nil {
		to.mu.Unlock()
		return &DisplayError{Operation: "terminal init", Details: "initializing screen", Err: err}
	}
	screen.HideCursor()
	screen.Clear()

	to.screen = screen
	to.running = true
	to.done = make(chan struct{})
	done := to.done
	to.mu.Unlock()

	go func() {
		defer close(done)
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			switch ev := ev.(type) {
			case *tcell.EventResize:
				screen.Sync()
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyCtrlC || ev.Key() == tcell.KeyEscape {
					to.mu.Lock()
					handler := to.closeHandler
					to.mu.Unlock()
					if handler != nil {
						handler()
					}
				}
			}
		}
	}()

	return nil
}

func (to *TcellOutput) Stop() error {
	to.mu.Lock()
	if !to.running {
		to.mu.Unlock()
		return nil
	}
	to.running = false
	screen := to.screen
	to.screen = nil
	done := to.done
	to.mu.Unlock()

	// Fini unblocks the event goroutine; wait for it to drain.
	screen.Fini()
	<-done
	return nil
}

func (to *TcellOutput) Close() error {
	return to.Stop()
}

func (to *TcellOutput) IsStarted() bool {
	to.mu.Lock()
	defer to.mu.Unlock()
	return to.running
}

func (to *TcellOutput) SetDisplayConfig(config DisplayConfig) error {
	to.mu.Lock()
	defer to.mu.Unlock()
	if config.RefreshRate <= 0 {
		config.RefreshRate = 60
	}
	to.config = config
	return nil
}

func (to *TcellOutput) GetDisplayConfig() DisplayConfig {
	to.mu.Lock()
	defer to.mu.Unlock()
	return to.config
}

// PresentFrame repaints the terminal from the frame. Presents after Stop
// are silently dropped so the refresher can race a shutdown safely.
func (to *TcellOutput) PresentFrame(frame *TextFrame) error {
	if frame == nil {
		return &DisplayError{Operation: "present", Details: "nil frame"}
	}

	to.mu.Lock()
	defer to.mu.Unlock()
	if !to.running || to.screen == nil {
		return nil
	}

	for row := 0; row < frame.Rows; row++ {
		for col := 0; col < frame.Cols; col++ {
			cell := frame.CellAt(row, col)
			style := tcell.StyleDefault.
				Foreground(tcellPalette[cell.Attr.Foreground()&0x0F]).
				Background(tcellPalette[cell.Attr.Background()&0x0F])
			to.screen.SetContent(col, row, glyphRune(cell.Glyph), nil, style)
		}
	}
	to.screen.Show()

	to.frameCount.Add(1)
	return nil
}

func (to *TcellOutput) GetFrameCount() uint64 {
	return to.frameCount.Load()
}

func (to *TcellOutput) GetRefreshRate() int {
	to.mu.Lock()
	defer to.mu.Unlock()
	return to.config.RefreshRate
}
