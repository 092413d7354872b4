package gb

import (
	"image"
	"sync"
)

// FrameBuffer hands the latest completed frame from the emulation goroutine
// to the presenter.
type FrameBuffer struct {
	mu    sync.Mutex
	frame *image.RGBA
	seq   uint64
}

// NewFrameBuffer creates a frame buffer holding a blank frame.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{frame: image.NewRGBA(image.Rect(0, 0, Width, Height))}
}

// Put stores a copy of frame.
func (f *FrameBuffer) Put(frame *image.RGBA) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(f.frame.Pix, frame.Pix)
	f.seq++
}

// CopyTo copies the latest frame into dst and returns its sequence number,
// it is 0 until the first Put.
func (f *FrameBuffer) CopyTo(dst *image.RGBA) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(dst.Pix, f.frame.Pix)
	return f.seq
}
