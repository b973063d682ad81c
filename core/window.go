package core

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

type Window struct {
	Handle *glfw.Window
	Width  int
	Height int
	Title  string

	scrollY    float64
	lastX      float64
	lastY      float64
	cursorInit bool
}

type WindowConfig struct {
	Width      int
	Height     int
	Title      string
	Resizable  bool
	VSync      bool
	Fullscreen bool
}

func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		Width:     1280,
		Height:    720,
		Title:     "PBR + IBL",
		Resizable: true,
		VSync:     true,
	}
}

// NewWindow creates a window with a current OpenGL 4.1 core context.
func NewWindow(config WindowConfig) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, boolToInt(config.Resizable))

	monitor := (*glfw.Monitor)(nil)
	if config.Fullscreen {
		monitor = glfw.GetPrimaryMonitor()
	}

	handle, err := glfw.CreateWindow(config.Width, config.Height, config.Title, monitor, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	handle.MakeContextCurrent()
	if config.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	window := &Window{
		Handle: handle,
		Width:  config.Width,
		Height: config.Height,
		Title:  config.Title,
	}

	handle.SetSizeCallback(func(w *glfw.Window, width, height int) {
		window.Width = width
		window.Height = height
	})
	handle.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		window.scrollY += yoff
	})

	return window, nil
}

func (w *Window) ShouldClose() bool {
	return w.Handle.ShouldClose()
}

func (w *Window) SetShouldClose(v bool) {
	w.Handle.SetShouldClose(v)
}

func (w *Window) PollEvents() {
	glfw.PollEvents()
}

func (w *Window) SwapBuffers() {
	w.Handle.SwapBuffers()
}

func (w *Window) GetFramebufferSize() (int, int) {
	return w.Handle.GetFramebufferSize()
}

func (w *Window) Destroy() {
	w.Handle.Destroy()
	glfw.Terminate()
}

func (w *Window) SetTitle(title string) {
	w.Handle.SetTitle(title)
	w.Title = title
}

// Time returns seconds since GLFW initialisation.
func (w *Window) Time() float64 {
	return glfw.GetTime()
}

// Snapshot captures the input state for one frame. Mouse and scroll
// deltas are relative to the previous snapshot.
func (w *Window) Snapshot() InputState {
	x, y := w.Handle.GetCursorPos()
	if !w.cursorInit {
		w.lastX, w.lastY = x, y
		w.cursorInit = true
	}
	fbw, fbh := w.GetFramebufferSize()
	in := InputState{
		keys:        make(map[int]bool, len(trackedKeys)),
		MouseDX:     x - w.lastX,
		MouseDY:     y - w.lastY,
		ScrollY:     w.scrollY,
		RightButton: w.Handle.GetMouseButton(glfw.MouseButtonRight) == glfw.Press,
		Width:       fbw,
		Height:      fbh,
	}
	for _, k := range trackedKeys {
		in.keys[k] = w.Handle.GetKey(glfw.Key(k)) == glfw.Press
	}
	w.lastX, w.lastY = x, y
	w.scrollY = 0
	return in
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const (
	KeySpace     = int(glfw.KeySpace)
	KeyA         = int(glfw.KeyA)
	KeyB         = int(glfw.KeyB)
	KeyD         = int(glfw.KeyD)
	KeyE         = int(glfw.KeyE)
	KeyM         = int(glfw.KeyM)
	KeyQ         = int(glfw.KeyQ)
	KeyR         = int(glfw.KeyR)
	KeyS         = int(glfw.KeyS)
	KeyT         = int(glfw.KeyT)
	KeyW         = int(glfw.KeyW)
	KeyEscape    = int(glfw.KeyEscape)
	KeyLeftShift = int(glfw.KeyLeftShift)
	KeyMinus     = int(glfw.KeyMinus)
	KeyEqual     = int(glfw.KeyEqual)
)

var trackedKeys = []int{
	KeySpace, KeyA, KeyB, KeyD, KeyE, KeyM, KeyQ, KeyR, KeyS, KeyT, KeyW,
	KeyEscape, KeyLeftShift, KeyMinus, KeyEqual,
}
