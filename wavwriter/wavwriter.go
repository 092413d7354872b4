// Package wavwriter records the audio output to a 16 bit PCM WAV file.
package wavwriter

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	bitDepth = 16
	channels = 2
	// WAVE_FORMAT_PCM
	pcmFormat = 1
)

// Writer encodes interleaved stereo float samples in [-1, 1].
type Writer struct {
	mu      sync.Mutex
	file    *os.File
	encoder *wav.Encoder
	buf     *audio.IntBuffer
	written int
}

// New creates the file at path.
func New(path string, sampleRate int) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return &Writer{
		file:    f,
		encoder: wav.NewEncoder(f, sampleRate, bitDepth, channels, pcmFormat),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
	}, nil
}

func toInt16(v float32) int {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int(v * 32767)
}

// Write appends samples, it is safe to call from the audio callback.
func (w *Writer) Write(samples []float32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.encoder == nil {
		return fmt.Errorf("wavwriter: write after close")
	}
	w.buf.Data = w.buf.Data[:0]
	for _, s := range samples {
		w.buf.Data = append(w.buf.Data, toInt16(s))
	}
	if err := w.encoder.Write(w.buf); err != nil {
		return fmt.Errorf("wavwriter: %w", err)
	}
	w.written += len(samples)
	return nil
}

// Samples returns how many samples (not frames) were written.
func (w *Writer) Samples() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Close finalizes the headers and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.encoder == nil {
		return nil
	}
	err := w.encoder.Close()
	w.encoder = nil
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	return err
}
