package input

import (
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// Action is a viewer command, decoupled from the key that triggers it.
type Action int

const (
	ActionOrbitLeft Action = iota
	ActionOrbitRight
	ActionZoomIn
	ActionZoomOut
	ActionPauseOrbit
	ActionToggleWireframe
	ActionToggleProfiling
	ActionToggleOverlay
	ActionDumpTrace
	ActionDetailUp
	ActionDetailDown
	ActionFewerLights
	ActionMoreLights
	ActionQuit
	ActionCount
)

// Bindings maps glfw keys to actions and tracks edges between frames. Key events may
// arrive on any goroutine; queries are made by the render loop.
type Bindings struct {
	mu sync.RWMutex

	keys map[glfw.Key][]Action

	down         [ActionCount]bool
	justPressed  [ActionCount]bool
	justReleased [ActionCount]bool
}

// NewBindings returns the default viewer bindings.
func NewBindings() *Bindings {
	b := &Bindings{keys: make(map[glfw.Key][]Action)}

	b.Bind(glfw.KeyA, ActionOrbitLeft)
	b.Bind(glfw.KeyLeft, ActionOrbitLeft)
	b.Bind(glfw.KeyD, ActionOrbitRight)
	b.Bind(glfw.KeyRight, ActionOrbitRight)
	b.Bind(glfw.KeyW, ActionZoomIn)
	b.Bind(glfw.KeyS, ActionZoomOut)
	b.Bind(glfw.KeySpace, ActionPauseOrbit)
	b.Bind(glfw.KeyF, ActionToggleWireframe)
	b.Bind(glfw.KeyP, ActionToggleProfiling)
	b.Bind(glfw.KeyH, ActionToggleOverlay)
	b.Bind(glfw.KeyT, ActionDumpTrace)
	b.Bind(glfw.KeyEqual, ActionDetailUp)
	b.Bind(glfw.KeyKPAdd, ActionDetailUp)
	b.Bind(glfw.KeyMinus, ActionDetailDown)
	b.Bind(glfw.KeyKPSubtract, ActionDetailDown)
	b.Bind(glfw.KeyLeftBracket, ActionFewerLights)
	b.Bind(glfw.KeyRightBracket, ActionMoreLights)
	b.Bind(glfw.KeyEscape, ActionQuit)
	return b
}

// Bind adds an action to a key. A key may drive several actions.
func (b *Bindings) Bind(key glfw.Key, action Action) {
	if action < 0 || action >= ActionCount {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys[key] = append(b.keys[key], action)
}

func (b *Bindings) Unbind(key glfw.Key) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.keys, key)
}

// HandleKey records a key event. Repeats count as held.
func (b *Bindings) HandleKey(key glfw.Key, action glfw.Action) {
	pressed := action == glfw.Press || action == glfw.Repeat

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.keys[key] {
		if pressed && !b.down[a] {
			b.justPressed[a] = true
		}
		if !pressed && b.down[a] {
			b.justReleased[a] = true
		}
		b.down[a] = pressed
	}
}

// Attach installs a key callback on window.
func (b *Bindings) Attach(window *glfw.Window) {
	window.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		b.HandleKey(key, action)
	})
}

// EndFrame clears the edge flags. Call it once all queries of a frame are done.
func (b *Bindings) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.justPressed = [ActionCount]bool{}
	b.justReleased = [ActionCount]bool{}
}

// Held reports whether the action's key is down.
func (b *Bindings) Held(action Action) bool {
	if action < 0 || action >= ActionCount {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.down[action]
}

// JustPressed reports whether the action went down since the last EndFrame.
func (b *Bindings) JustPressed(action Action) bool {
	if action < 0 || action >= ActionCount {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.justPressed[action]
}

func (b *Bindings) JustReleased(action Action) bool {
	if action < 0 || action >= ActionCount {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.justReleased[action]
}
