package ui

import (
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/jyane/jgb/gb"
)

// getKeys gets the state of keyboard, WASD for directions, J for A, K for B,
// G for select and H for start. Arrow keys, Z and X work too.
func getKeys(window *glfw.Window) [8]bool {
	pressed := func(keys ...glfw.Key) bool {
		for _, k := range keys {
			if window.GetKey(k) == glfw.Press {
				return true
			}
		}
		return false
	}
	var keys [8]bool
	keys[gb.ButtonRight] = pressed(glfw.KeyD, glfw.KeyRight)
	keys[gb.ButtonLeft] = pressed(glfw.KeyA, glfw.KeyLeft)
	keys[gb.ButtonDown] = pressed(glfw.KeyS, glfw.KeyDown)
	keys[gb.ButtonUp] = pressed(glfw.KeyW, glfw.KeyUp)
	keys[gb.ButtonStart] = pressed(glfw.KeyH, glfw.KeyEnter)
	keys[gb.ButtonSelect] = pressed(glfw.KeyG, glfw.KeyBackspace)
	keys[gb.ButtonB] = pressed(glfw.KeyK, glfw.KeyZ)
	keys[gb.ButtonA] = pressed(glfw.KeyJ, glfw.KeyX)
	return keys
}

// buttons hands the keyboard state from the window thread to the emulation
// goroutine.
type buttons struct {
	mu    sync.Mutex
	state [8]bool
}

func (b *buttons) set(state [8]bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = state
}

func (b *buttons) get() [8]bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
