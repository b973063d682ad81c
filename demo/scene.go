package demo

import (
	"github.com/go-gl/mathgl/mgl32"

	"pbr-engine/config"
	"pbr-engine/core"
	"pbr-engine/internal/opengl"
)

// singleSphereZ is where the sphere sits when the grid is off.
const singleSphereZ = -5

// Grid lays spheres out on a Count×Count square in the XY plane, roughness
// increasing along X and metalness along Y.
type Grid struct {
	Count   int
	Margin  float32
	OffsetZ float32
}

// SphereInstance is one sphere to draw.
type SphereInstance struct {
	Position  mgl32.Vec3
	Roughness float32
	Metallic  float32
}

// Model is the instance's model matrix.
func (s SphereInstance) Model() mgl32.Mat4 {
	return mgl32.Translate3D(s.Position[0], s.Position[1], s.Position[2])
}

// Origin is the coordinate of the first row and column, chosen so the
// grid is centred on the Z axis.
func (g Grid) Origin() float32 {
	return -g.Margin*float32(g.Count)/2 + g.Margin/2
}

// Instances returns Count² spheres in column-major order.
func (g Grid) Instances() []SphereInstance {
	n := max(g.Count, 1)
	origin := g.Origin()
	out := make([]SphereInstance, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out = append(out, SphereInstance{
				Position:  mgl32.Vec3{origin + g.Margin*float32(i), origin + g.Margin*float32(j), g.OffsetZ},
				Roughness: float32(i) / float32(n),
				Metallic:  float32(j) / float32(n),
			})
		}
	}
	return out
}

// SkyboxSource picks which cubemap the background shows.
type SkyboxSource int

const (
	SkyEnvironment SkyboxSource = iota
	SkyIrradiance
	SkyPrefilter
	skySourceCount
)

func (s SkyboxSource) String() string {
	switch s {
	case SkyIrradiance:
		return "irradiance"
	case SkyPrefilter:
		return "prefilter"
	}
	return "environment"
}

// Controls is the toggleable demo state the keyboard edits.
type Controls struct {
	MultiSphere bool
	Textured    bool
	HasNormal   bool
	Skybox      bool
	Bloom       bool
	SkySource   SkyboxSource
	Exposure    float32

	// Single-sphere material.
	Albedo    mgl32.Vec3
	Metallic  float32
	Roughness float32
	AO        float32

	Grid Grid
}

// NewControls seeds the controls from configuration.
func NewControls(sc config.SceneConfig) Controls {
	return Controls{
		MultiSphere: sc.MultiSphere,
		Textured:    sc.Textured,
		HasNormal:   true,
		Skybox:      sc.Skybox,
		Bloom:       sc.Bloom,
		Exposure:    sc.Exposure,
		Albedo:      mgl32.Vec3{1, 0, 0},
		Metallic:    1,
		Roughness:   0.1,
		AO:          1,
		Grid:        Grid{Count: sc.SphereCount, Margin: sc.Margin, OffsetZ: sc.OffsetZ},
	}
}

// Action is a one-shot request produced by input.
type Action int

const (
	ActionNone Action = iota
	ActionRebake
	ActionQuit
)

// Apply handles the key presses of one frame.
func (c *Controls) Apply(in core.InputState) Action {
	if in.Pressed(core.KeyM) {
		c.MultiSphere = !c.MultiSphere
	}
	if in.Pressed(core.KeyT) {
		c.Textured = !c.Textured
	}
	if in.Pressed(core.KeyQ) {
		c.HasNormal = !c.HasNormal
	}
	if in.Pressed(core.KeyB) {
		c.Bloom = !c.Bloom
	}
	if in.Pressed(core.KeyE) {
		c.SkySource = (c.SkySource + 1) % skySourceCount
	}
	if in.Pressed(core.KeyEqual) {
		c.Exposure *= 1.25
	}
	if in.Pressed(core.KeyMinus) {
		c.Exposure = max(c.Exposure/1.25, 0.01)
	}

	switch {
	case in.Pressed(core.KeyEscape):
		return ActionQuit
	case in.Pressed(core.KeyR):
		return ActionRebake
	}
	return ActionNone
}

// Spheres returns what to draw this frame.
func (c *Controls) Spheres() []SphereInstance {
	if c.MultiSphere {
		return c.Grid.Instances()
	}
	return []SphereInstance{{
		Position:  mgl32.Vec3{0, 0, singleSphereZ},
		Roughness: c.Roughness,
		Metallic:  c.Metallic,
	}}
}

// Lights converts configured lights. A light without attenuation terms
// falls off with the inverse square of distance.
func Lights(cfg []config.LightConfig) []opengl.PointLight {
	out := make([]opengl.PointLight, len(cfg))
	for i, l := range cfg {
		att := mgl32.Vec3(l.Attenuation)
		if att == (mgl32.Vec3{}) {
			att = opengl.DefaultAttenuation
		}
		out[i] = opengl.PointLight{Position: l.Position, Color: l.Color, Attenuation: att}
	}
	return out
}
