package ui

import (
	"errors"
	"image"
	"time"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/golang/glog"

	"github.com/jyane/jgb/gb"
)

// FrameDuration is the duration of a frame on hardware, about 59.73 frames
// per second.
const FrameDuration = time.Second * gb.DotsPerFrame / gb.ClockRate

// Config configures the window and the audio output.
type Config struct {
	Width      int
	Height     int
	SampleRate int
	// Recorder, if not nil, receives the played audio.
	Recorder Recorder
}

// emulate runs the console on its own goroutine, paced by a ticker.
func emulate(console gb.Console, frames *gb.FrameBuffer, keys *buttons, done <-chan struct{}) error {
	ticker := time.NewTicker(FrameDuration)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return nil
		case <-ticker.C:
		}
		console.SetButtons(keys.get())
		frame, err := console.RunFrame()
		if err != nil {
			return err
		}
		frames.Put(frame)
	}
}

func logStop(err error) {
	switch {
	case err == nil:
	case errors.Is(err, gb.ErrQuit):
		glog.Infoln("Quit from the debugger")
	default:
		glog.Errorf("Emulation stopped: %v", err)
	}
}

func mainLoop(window *glfw.Window, console gb.Console, s *screen) {
	frames := gb.NewFrameBuffer()
	keys := &buttons{}
	done := make(chan struct{})
	errc := make(chan error, 1)
	go func() {
		errc <- emulate(console, frames, keys, done)
	}()

	img := image.NewRGBA(image.Rect(0, 0, gb.Width, gb.Height))
	var last uint64
	for !window.ShouldClose() {
		glfw.PollEvents()
		keys.set(getKeys(window))
		if seq := frames.CopyTo(img); seq != last {
			last = seq
			s.draw(img)
			window.SwapBuffers()
		} else {
			time.Sleep(time.Millisecond)
		}
		select {
		case err := <-errc:
			logStop(err)
			return
		default:
		}
	}
	close(done)
	select {
	case err := <-errc:
		logStop(err)
	case <-time.After(time.Second):
		glog.Warningln("Emulation goroutine did not stop in time")
	}
}

// Start is the main entrypoint, it returns when the window is closed.
func Start(console gb.Console, cfg Config) {
	err := glfw.Init()
	if err != nil {
		glog.Fatalln(err)
	}
	defer glfw.Terminate()
	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, "JGB - "+console.Title(), nil, nil)
	if err != nil {
		glog.Fatalln(err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)
	if err := gl.Init(); err != nil {
		glog.Fatalln(err)
	}
	window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		gl.Viewport(0, 0, int32(width), int32(height))
	})
	s, err := newScreen()
	if err != nil {
		glog.Fatalln(err)
	}

	a := newAudio(console.Audio(), cfg.SampleRate, cfg.Recorder)
	if err := a.start(); err != nil {
		glog.Warningf("Audio is disabled: %v", err)
	} else {
		defer a.terminate()
	}
	mainLoop(window, console, s)
}
