package gb

import (
	"fmt"
	"io"
	"time"
)

// config holds the settings given to NewConsole.
type config struct {
	sampleRate      int
	audioBufferSize int
	forceDMG        bool
	serial          io.Writer
	now             func() time.Time
}

// Option configures a console.
type Option func(*config) error

func defaultConfig() *config {
	return &config{
		sampleRate:      44100,
		audioBufferSize: 8192,
		now:             time.Now,
	}
}

func (c *config) setOptions(options ...Option) error {
	for i, option := range options {
		if err := option(c); err != nil {
			return fmt.Errorf("failed to set option index %d: %w", i, err)
		}
	}
	return nil
}

// SampleRate sets the audio output rate in Hz.
func SampleRate(rate int) Option {
	return func(c *config) error {
		if rate < 8000 || rate > 192000 {
			return fmt.Errorf("unsupported sample rate: %d", rate)
		}
		c.sampleRate = rate
		return nil
	}
}

// AudioBufferSize sets how many stereo frames are buffered for the host.
func AudioBufferSize(frames int) Option {
	return func(c *config) error {
		if frames < 1 {
			return fmt.Errorf("invalid audio buffer size: %d", frames)
		}
		c.audioBufferSize = frames
		return nil
	}
}

// ForceDMG runs color cartridges in monochrome mode.
func ForceDMG(force bool) Option {
	return func(c *config) error {
		c.forceDMG = force
		return nil
	}
}

// SerialOutput receives every byte sent through the link port.
func SerialOutput(w io.Writer) Option {
	return func(c *config) error {
		c.serial = w
		return nil
	}
}

// Clock sets the time source of cartridge real time clocks.
func Clock(now func() time.Time) Option {
	return func(c *config) error {
		if now == nil {
			return fmt.Errorf("nil clock")
		}
		c.now = now
		return nil
	}
}
