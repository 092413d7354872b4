package gb

import (
	"fmt"
	"sync"
)

// AudioBuffer is a bounded ring of interleaved stereo samples between the
// emulation goroutine and the audio callback.
// When the buffer is full, new samples are dropped.
type AudioBuffer struct {
	mu     sync.Mutex
	buffer []float32
	// next index to write to
	head int
	// next index to read from
	tail int
	// number of stored samples, left and right counted separately
	used    int
	dropped int
}

// NewAudioBuffer creates a buffer holding size stereo frames.
func NewAudioBuffer(size int) (*AudioBuffer, error) {
	if size < 1 {
		return nil, fmt.Errorf("invalid audio buffer size: %d", size)
	}
	return &AudioBuffer{buffer: make([]float32, size*2)}, nil
}

// Write appends a stereo frame, it returns false if the frame was dropped.
func (b *AudioBuffer) Write(left, right float32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.used+2 > len(b.buffer) {
		b.dropped++
		return false
	}
	b.buffer[b.head] = left
	b.buffer[b.head+1] = right
	b.head = (b.head + 2) % len(b.buffer)
	b.used += 2
	return true
}

// ReadInto moves up to len(out) interleaved samples into out and returns
// how many were copied.
func (b *AudioBuffer) ReadInto(out []float32) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(out)
	if n > b.used {
		n = b.used
	}
	for i := 0; i < n; i++ {
		out[i] = b.buffer[b.tail]
		b.tail = (b.tail + 1) % len(b.buffer)
	}
	b.used -= n
	return n
}

// Len returns the number of buffered stereo frames.
func (b *AudioBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used / 2
}

// Dropped returns the number of frames dropped because the buffer was full.
func (b *AudioBuffer) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
