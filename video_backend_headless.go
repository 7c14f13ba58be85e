// video_backend_headless.go - Frame-counting display backend for automated runs

package main

import (
	"sync"
	"sync/atomic"
	"time"
)

// HeadlessOutput implements DisplayOutput without presenting anything. It
// counts frames and retains the most recent one so automated runs can
// assert on what would have been shown.
type HeadlessOutput struct {
	mu        sync.Mutex
	config    DisplayConfig
	lastFrame *TextFrame

	started    atomic.Bool
	frameCount atomic.Uint64
}

func NewHeadlessOutput() (DisplayOutput, error) {
	return &HeadlessOutput{
		config: DisplayConfig{
			Scale:       1,
			RefreshRate: 60,
		},
	}, nil
}

func (h *HeadlessOutput) Start() error {
	h.started.Store(true)
	return nil
}

func (h *HeadlessOutput) Stop() error {
	h.started.Store(false)
	return nil
}

func (h *HeadlessOutput) Close() error {
	h.started.Store(false)
	return nil
}

func (h *HeadlessOutput) IsStarted() bool {
	return h.started.Load()
}

func (h *HeadlessOutput) SetDisplayConfig(config DisplayConfig) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.config = config
	return nil
}

func (h *HeadlessOutput) GetDisplayConfig() DisplayConfig {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.config
}

// PresentFrame records a copy of the frame and bumps the frame counter.
func (h *HeadlessOutput) PresentFrame(frame *TextFrame) error {
	if frame == nil {
		return &DisplayError{Operation: "present", Details: "nil frame"}
	}

	h.mu.Lock()
	if h.lastFrame == nil || len(h.lastFrame.Cells) != len(frame.Cells) {
		h.lastFrame = NewTextFrame(frame.Cols, frame.Rows)
	}
	copy(h.lastFrame.Cells, frame.Cells)
	h.lastFrame.Timestamp = time.Now()
	h.mu.Unlock()

	h.frameCount.Add(1)
	return nil
}

// LastFrame returns a copy of the most recently presented frame, or nil
// before the first present.
func (h *HeadlessOutput) LastFrame() *TextFrame {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastFrame == nil {
		return nil
	}
	out := NewTextFrame(h.lastFrame.Cols, h.lastFrame.Rows)
	copy(out.Cells, h.lastFrame.Cells)
	out.Timestamp = h.lastFrame.Timestamp
	return out
}

func (h *HeadlessOutput) GetFrameCount() uint64 {
	return h.frameCount.Load()
}

func (h *HeadlessOutput) GetRefreshRate() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.config.RefreshRate
}
