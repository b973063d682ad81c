package core

// InputState is a per-frame snapshot of window input.
type InputState struct {
	keys        map[int]bool
	prev        map[int]bool
	MouseDX     float64
	MouseDY     float64
	ScrollY     float64
	RightButton bool
	Width       int
	Height      int
}

// NewInputState builds a snapshot from explicit key states. Used by tests
// and by callers that synthesise input.
func NewInputState(pressed ...int) InputState {
	in := InputState{keys: make(map[int]bool, len(pressed))}
	for _, k := range pressed {
		in.keys[k] = true
	}
	return in
}

// Down reports whether key is held this frame.
func (in InputState) Down(key int) bool { return in.keys[key] }

// Pressed reports whether key went down this frame. It requires
// WithPrevious to have been called; otherwise it behaves like Down.
func (in InputState) Pressed(key int) bool {
	return in.keys[key] && !in.prev[key]
}

// WithPrevious attaches the prior frame's key state for edge detection.
func (in InputState) WithPrevious(prev InputState) InputState {
	in.prev = prev.keys
	return in
}
