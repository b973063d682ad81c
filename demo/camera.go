package demo

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"pbr-engine/core"
)

// Camera is a free-fly camera: right-drag to look, WASD to move,
// Space/LeftShift to rise and sink.
type Camera struct {
	Position mgl32.Vec3
	Yaw      float32 // degrees, -90 looks down -Z
	Pitch    float32 // degrees, clamped to ±89

	FOV  float32 // vertical, degrees
	Near float32
	Far  float32

	MoveSpeed   float32
	LookSpeed   float32 // degrees per pixel
	ZoomStep    float32 // FOV degrees per scroll notch
	MaxDeltaSec float32
}

// NewCamera returns the demo camera: 60° FOV, 0.1–100 clip range,
// at the origin looking down -Z.
func NewCamera() *Camera {
	return &Camera{
		Yaw:         -90,
		FOV:         60,
		Near:        0.1,
		Far:         100,
		MoveSpeed:   6,
		LookSpeed:   0.15,
		ZoomStep:    2,
		MaxDeltaSec: 0.05,
	}
}

// Forward is the unit view direction.
func (c *Camera) Forward() mgl32.Vec3 {
	yaw, pitch := mgl32.DegToRad(c.Yaw), mgl32.DegToRad(c.Pitch)
	return mgl32.Vec3{
		math32.Cos(yaw) * math32.Cos(pitch),
		math32.Sin(pitch),
		math32.Sin(yaw) * math32.Cos(pitch),
	}.Normalize()
}

// Right is the unit vector to the right of the view, always horizontal.
func (c *Camera) Right() mgl32.Vec3 {
	return c.Forward().Cross(mgl32.Vec3{0, 1, 0}).Normalize()
}

// Update applies one frame of input. dt is clamped to MaxDeltaSec so a
// hitch does not teleport the camera.
func (c *Camera) Update(in core.InputState, dt float32) {
	dt = min(dt, c.MaxDeltaSec)

	if in.RightButton {
		c.Yaw += float32(in.MouseDX) * c.LookSpeed
		c.Pitch = mgl32.Clamp(c.Pitch-float32(in.MouseDY)*c.LookSpeed, -89, 89)
	}
	if in.ScrollY != 0 {
		c.FOV = mgl32.Clamp(c.FOV-float32(in.ScrollY)*c.ZoomStep, 10, 90)
	}

	step := c.MoveSpeed * dt
	forward, right := c.Forward(), c.Right()
	move := mgl32.Vec3{}
	if in.Down(core.KeyW) {
		move = move.Add(forward)
	}
	if in.Down(core.KeyS) {
		move = move.Sub(forward)
	}
	if in.Down(core.KeyD) {
		move = move.Add(right)
	}
	if in.Down(core.KeyA) {
		move = move.Sub(right)
	}
	if in.Down(core.KeySpace) {
		move = move.Add(mgl32.Vec3{0, 1, 0})
	}
	if in.Down(core.KeyLeftShift) {
		move = move.Sub(mgl32.Vec3{0, 1, 0})
	}
	if move.LenSqr() > 0 {
		c.Position = c.Position.Add(move.Normalize().Mul(step))
	}
}

// View is the world-to-camera matrix.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Forward()), mgl32.Vec3{0, 1, 0})
}

// Projection is the perspective matrix for the given aspect ratio.
func (c *Camera) Projection(aspect float32) mgl32.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, c.Near, c.Far)
}
