package ui

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/gordonklaus/portaudio"

	"github.com/jyane/jgb/gb"
)

// Recorder receives a copy of every interleaved stereo sample played.
type Recorder interface {
	Write(samples []float32) error
}

type audio struct {
	stream     *portaudio.Stream
	buffer     *gb.AudioBuffer
	sampleRate int
	volume     float32
	recorder   Recorder
}

func newAudio(buffer *gb.AudioBuffer, sampleRate int, recorder Recorder) *audio {
	return &audio{buffer: buffer, sampleRate: sampleRate, volume: 0.5, recorder: recorder}
}

func (a *audio) start() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("Failed to initialize portaudio: %w", err)
	}
	cb := func(out []float32) {
		n := a.buffer.ReadInto(out)
		for i := 0; i < n; i++ {
			out[i] *= a.volume
		}
		// Underrun, play silence.
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
		if a.recorder != nil && n > 0 {
			if err := a.recorder.Write(out[:n]); err != nil {
				glog.Warningf("Failed to record audio: %v", err)
				a.recorder = nil
			}
		}
	}
	stream, err := portaudio.OpenDefaultStream(0, 2, float64(a.sampleRate), 0, cb)
	if err != nil {
		return fmt.Errorf("Failed to open the audio stream: %w", err)
	}
	a.stream = stream
	if err := stream.Start(); err != nil {
		return fmt.Errorf("Failed to start the audio stream: %w", err)
	}
	return nil
}

func (a *audio) terminate() {
	if a.stream != nil {
		a.stream.Stop()
		a.stream.Close()
	}
	portaudio.Terminate()
}
