package demo

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pbr-engine/config"
	"pbr-engine/core"
	"pbr-engine/ibl"
)

func TestGridLayout(t *testing.T) {
	g := Grid{Count: 7, Margin: 3, OffsetZ: -20}
	assert.InDelta(t, -9, g.Origin(), 1e-6)

	spheres := g.Instances()
	require.Len(t, spheres, 49)

	first, last := spheres[0], spheres[48]
	assert.Equal(t, mgl32.Vec3{-9, -9, -20}, first.Position)
	assert.Equal(t, mgl32.Vec3{9, 9, -20}, last.Position)
	assert.Zero(t, first.Roughness)
	assert.Zero(t, first.Metallic)
	assert.InDelta(t, 6.0/7, last.Roughness, 1e-6)
	assert.InDelta(t, 6.0/7, last.Metallic, 1e-6)

	// Roughness follows the column, metalness the row.
	assert.Equal(t, spheres[1].Roughness, first.Roughness)
	assert.Greater(t, spheres[1].Metallic, first.Metallic)
	assert.Greater(t, spheres[7].Roughness, first.Roughness)

	m := spheres[8].Model()
	assert.Equal(t, spheres[8].Position, m.Col(3).Vec3())
}

func TestGridCentredOnAxis(t *testing.T) {
	for _, n := range []int{1, 2, 5, 7} {
		var sum mgl32.Vec3
		spheres := Grid{Count: n, Margin: 2.5}.Instances()
		for _, s := range spheres {
			sum = sum.Add(s.Position)
		}
		mean := sum.Mul(1 / float32(len(spheres)))
		assert.InDelta(t, 0, mean[0], 1e-5, "count %d", n)
		assert.InDelta(t, 0, mean[1], 1e-5, "count %d", n)
	}
}

func TestControlsToggles(t *testing.T) {
	c := NewControls(config.Default().Scene)
	assert.True(t, c.MultiSphere)
	assert.Len(t, c.Spheres(), 49)

	press := func(keys ...int) Action {
		return c.Apply(core.NewInputState(keys...).WithPrevious(core.NewInputState()))
	}

	assert.Equal(t, ActionNone, press(core.KeyM, core.KeyT))
	assert.False(t, c.MultiSphere)
	assert.True(t, c.Textured)
	single := c.Spheres()
	require.Len(t, single, 1)
	assert.Equal(t, mgl32.Vec3{0, 0, -5}, single[0].Position)
	assert.Equal(t, c.Roughness, single[0].Roughness)

	assert.Equal(t, SkyEnvironment, c.SkySource)
	press(core.KeyE)
	press(core.KeyE)
	assert.Equal(t, SkyPrefilter, c.SkySource)
	press(core.KeyE)
	assert.Equal(t, SkyEnvironment, c.SkySource)

	exposure := c.Exposure
	press(core.KeyEqual)
	assert.Greater(t, c.Exposure, exposure)

	assert.Equal(t, ActionRebake, press(core.KeyR))
	assert.Equal(t, ActionQuit, press(core.KeyEscape, core.KeyR))
}

func TestControlsDefaults(t *testing.T) {
	c := NewControls(config.Default().Scene)
	assert.Equal(t, float32(1), c.AO)
	assert.False(t, c.Textured)
}

func TestLightsDefaultToInverseSquare(t *testing.T) {
	lights := Lights([]config.LightConfig{
		{Position: [3]float32{0, 5, 0}, Color: [3]float32{10, 10, 10}},
		{Color: [3]float32{1, 1, 1}, Attenuation: [3]float32{1, 0.5, 0}},
	})
	require.Len(t, lights, 2)
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, lights[0].Attenuation)
	assert.InDelta(t, 0.25, lights[0].Falloff(2), 1e-6)

	assert.Equal(t, mgl32.Vec3{1, 0.5, 0}, lights[1].Attenuation)
	assert.InDelta(t, 0.5, lights[1].Falloff(2), 1e-6)

	for _, l := range Lights(config.Default().Scene.Lights) {
		assert.Equal(t, mgl32.Vec3{0, 0, 1}, l.Attenuation)
	}
}

func TestControlsIgnoreHeldKeys(t *testing.T) {
	c := NewControls(config.Default().Scene)
	held := core.NewInputState(core.KeyM)
	c.Apply(held.WithPrevious(held))
	assert.True(t, c.MultiSphere)
}

func TestCameraLooksDownNegativeZ(t *testing.T) {
	c := NewCamera()
	f := c.Forward()
	assert.InDelta(t, -1, f[2], 1e-5)
	assert.InDelta(t, 1, c.Right()[0], 1e-5)

	v := c.View()
	p := v.Mul4x1(mgl32.Vec4{0, 0, -5, 1})
	assert.InDelta(t, -5, p[2], 1e-5)
}

func TestCameraMoves(t *testing.T) {
	c := NewCamera()
	c.Update(core.NewInputState(core.KeyW), 0.01)
	assert.InDelta(t, -0.06, c.Position[2], 1e-5)

	c.Position = mgl32.Vec3{}
	c.Update(core.NewInputState(core.KeyW), 10)
	assert.InDelta(t, -c.MoveSpeed*c.MaxDeltaSec, c.Position[2], 1e-5, "dt is clamped")

	c.Position = mgl32.Vec3{}
	c.Update(core.NewInputState(core.KeyW, core.KeyD), 0.05)
	assert.InDelta(t, c.MoveSpeed*0.05, c.Position.Len(), 1e-5, "diagonal is not faster")
}

func TestCameraLook(t *testing.T) {
	c := NewCamera()
	in := core.NewInputState()
	in.MouseDX, in.MouseDY = 100, 0
	c.Update(in, 0.01)
	assert.Equal(t, float32(-90), c.Yaw, "no look without the right button")

	in.RightButton = true
	in.MouseDY = -10000
	c.Update(in, 0.01)
	assert.InDelta(t, -75, c.Yaw, 1e-4)
	assert.Equal(t, float32(89), c.Pitch)

	in = core.NewInputState()
	in.ScrollY = 100
	c.Update(in, 0.01)
	assert.Equal(t, float32(10), c.FOV)
}

func TestCameraProjection(t *testing.T) {
	c := NewCamera()
	p := c.Projection(16.0 / 9)
	want := mgl32.Perspective(mgl32.DegToRad(60), 16.0/9, 0.1, 100)
	assert.True(t, p.ApproxEqual(want))
	assert.True(t, c.Projection(0).ApproxEqual(mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 100)))
}

func TestPanelFill(t *testing.T) {
	var p Panel
	assert.Empty(t, p.Text())

	controls := NewControls(config.Default().Scene)
	p.Fill(Stats{
		FPS:      59.6,
		Camera:   NewCamera(),
		Controls: &controls,
		Lights:   Lights(config.Default().Scene.Lights),
		State:    ibl.StateReady,
		Timings: []ibl.PassTiming{
			{Pass: ibl.StateCapturingProjector, Duration: 2 * time.Millisecond},
			{Pass: ibl.StateCapturingBRDF, Duration: 3 * time.Millisecond},
		},
	})
	assert.Contains(t, p.Title(), "60 fps")
	assert.Contains(t, p.Title(), ibl.StateReady.String())

	text := p.Text()
	assert.Contains(t, text, "light[3] pos (10.0, -10.0, 5.0) radiance (50, 50, 50) att (0, 0, 1)")
	assert.Contains(t, text, "7x7 grid")
	assert.Contains(t, text, "5ms")
	assert.Equal(t, 1+1+4+2+3, strings.Count(text, "\n"))

	p.Fill(Stats{State: ibl.StateFailed, Err: errors.New("boom")})
	assert.Equal(t, "PBR + IBL | 0 fps | bake: failed: boom", p.Title())
}
