package ibl_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pbr-engine/core"
	"pbr-engine/ibl"
	"pbr-engine/internal/software"
)

func testSettings() ibl.Settings {
	return ibl.Settings{
		EnvironmentSize:       16,
		EnvironmentMipmaps:    true,
		IrradianceSize:        4,
		PrefilterSize:         8,
		PrefilterLevels:       4,
		BRDFLUTSize:           8,
		IrradianceSampleDelta: 0.1,
		PrefilterSamples:      64,
		BRDFSamples:           64,
	}
}

// directionPanorama encodes 0.5+0.5·dir in every texel.
func directionPanorama(w, h int) *ibl.Panorama {
	p := ibl.SolidPanorama(w, h, mgl32.Vec3{})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			uv := mgl32.Vec2{(float32(x) + 0.5) / float32(w), (float32(y) + 0.5) / float32(h)}
			d := ibl.EquirectDirection(uv)
			p.Set(x, y, d.Mul(0.5).Add(mgl32.Vec3{0.5, 0.5, 0.5}))
		}
	}
	return p
}

// countingDevice counts attachment retargets and can fail a chosen call.
type countingDevice struct {
	*software.Device
	attaches  int
	draws     int
	failDraw  int // 1-based draw index to fail, 0 = never
	failBuild ibl.ProgramKind
	failKind  bool
}

func (d *countingDevice) Attach(h ibl.Handle, att ibl.Attachment) error {
	d.attaches++
	return d.Device.Attach(h, att)
}

func (d *countingDevice) Draw(h ibl.Handle, call ibl.DrawCall) error {
	d.draws++
	if d.failDraw != 0 && d.draws == d.failDraw {
		return errors.New("device lost")
	}
	return d.Device.Draw(h, call)
}

func (d *countingDevice) BuildProgram(src ibl.ProgramSource) (ibl.Handle, error) {
	if d.failKind && src.Kind == d.failBuild {
		return 0, &ibl.ProgramError{Program: src.Kind, Stage: "fragment", Log: "0:12: syntax error"}
	}
	return d.Device.BuildProgram(src)
}

// cullRecorder notes the cull mode in effect for every draw, by geometry.
type cullRecorder struct {
	*software.Device
	cull map[ibl.Geometry][]bool
}

func (d *cullRecorder) Draw(h ibl.Handle, call ibl.DrawCall) error {
	err := d.Device.Draw(h, call)
	d.cull[call.Geometry] = append(d.cull[call.Geometry], d.State().CullFront)
	return err
}

func newBaker(t *testing.T, dev ibl.Device, pano *ibl.Panorama, s ibl.Settings, opts ...ibl.Option) *ibl.Baker {
	t.Helper()
	h, err := dev.UploadPanorama(pano)
	require.NoError(t, err)
	b, err := ibl.NewBaker(dev, s, append([]ibl.Option{ibl.WithPanorama(h)}, opts...)...)
	require.NoError(t, err)
	return b
}

func attachesPerBake(s ibl.Settings) int {
	return ibl.FaceCount*(2+s.PrefilterLevels) + 1
}

func TestBakerRunsPassesInOrderOnce(t *testing.T) {
	dev := &countingDevice{Device: software.New(64)}
	var states []ibl.State
	b := newBaker(t, dev, ibl.SolidPanorama(4, 2, mgl32.Vec3{1, 1, 1}), testSettings(),
		ibl.OnTransition(func(_, to ibl.State) { states = append(states, to) }))

	assert.Equal(t, ibl.StateUninitialized, b.State())
	assert.Zero(t, dev.attaches, "construction must not capture")

	_, err := b.Products()
	assert.ErrorIs(t, err, ibl.ErrNotReady)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Update())
	}

	assert.Equal(t, ibl.StateReady, b.State())
	assert.Equal(t, attachesPerBake(testSettings()), dev.attaches)
	assert.Equal(t, []ibl.State{
		ibl.StateCapturingProjector,
		ibl.StateCapturingIrradiance,
		ibl.StateCapturingPrefilter,
		ibl.StateCapturingBRDF,
		ibl.StateReady,
	}, states)
	assert.Len(t, b.Timings(), 4)
}

func TestBakerRestoresDeviceState(t *testing.T) {
	dev := software.New(64)
	b := newBaker(t, dev, ibl.SolidPanorama(4, 2, mgl32.Vec3{1, 1, 1}), testSettings())
	require.NoError(t, b.Update())

	st := dev.State()
	assert.False(t, st.Seamless)
	assert.False(t, st.CullFront)
	assert.Equal(t, ibl.Handle(0), st.BoundTarget)
	assert.Equal(t, 64, st.Viewport)
}

func TestBakerResetRebakesIdentically(t *testing.T) {
	dev := &countingDevice{Device: software.New(64)}
	b := newBaker(t, dev, directionPanorama(32, 16), testSettings())
	require.NoError(t, b.Update())

	p, err := b.Products()
	require.NoError(t, err)
	irr, err := dev.Cubemap(p.Irradiance)
	require.NoError(t, err)
	pre, err := dev.Cubemap(p.Prefilter)
	require.NoError(t, err)
	lut, err := dev.Image(p.BRDFLUT, 0)
	require.NoError(t, err)

	irrBefore := snapshotCube(irr)
	preBefore := snapshotCube(pre)
	lutBefore := append([]float32(nil), lut.Pix...)

	b.Reset()
	assert.Equal(t, ibl.StateUninitialized, b.State())
	require.NoError(t, b.Update())
	assert.Equal(t, 2*attachesPerBake(testSettings()), dev.attaches)

	assert.Equal(t, irrBefore, snapshotCube(irr))
	assert.Equal(t, preBefore, snapshotCube(pre))
	assert.Equal(t, lutBefore, lut.Pix)
}

func snapshotCube(c *ibl.Cubemap) [][]float32 {
	var out [][]float32
	for l := range c.Faces {
		for _, f := range c.Faces[l] {
			out = append(out, append([]float32(nil), f.Pix...))
		}
	}
	return out
}

func TestBakerFailureIsSurfacedOnce(t *testing.T) {
	dev := &countingDevice{Device: software.New(64), failDraw: 9}
	b := newBaker(t, dev, ibl.SolidPanorama(4, 2, mgl32.Vec3{1, 1, 1}), testSettings())

	err := b.Update()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capturing/irradiance")
	assert.Equal(t, ibl.StateFailed, b.State())
	assert.Equal(t, err, b.Err())

	assert.NoError(t, b.Update(), "failure must not repeat every frame")
	assert.Equal(t, 9, dev.draws, "no retry after failure")

	_, perr := b.Products()
	assert.ErrorIs(t, perr, ibl.ErrNotReady)

	st := dev.State()
	assert.False(t, st.CullFront)
	assert.Equal(t, ibl.Handle(0), st.BoundTarget)
}

func TestBakerMissingPanorama(t *testing.T) {
	dev := software.New(64)
	b, err := ibl.NewBaker(dev, testSettings())
	require.NoError(t, err)

	err = b.Update()
	assert.ErrorIs(t, err, ibl.ErrPanorama)
	assert.Equal(t, ibl.StateFailed, b.State())

	h, err := dev.UploadPanorama(ibl.SolidPanorama(4, 2, mgl32.Vec3{1, 0, 0}))
	require.NoError(t, err)
	b.SetPanorama(h)
	require.NoError(t, b.Update())
	assert.True(t, b.Ready())
	assert.NoError(t, b.Err())
}

func TestBakerProgramBuildFailureIsFatal(t *testing.T) {
	dev := &countingDevice{Device: software.New(64), failKind: true, failBuild: ibl.ProgramPrefilter}
	_, err := ibl.NewBaker(dev, testSettings())
	require.Error(t, err)
	assert.ErrorIs(t, err, ibl.ErrProgramBuild)

	var perr *ibl.ProgramError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ibl.ProgramPrefilter, perr.Program)
	assert.Equal(t, "fragment", perr.Stage)
	assert.Zero(t, dev.Live(), "partial allocations must be released")
}

func TestBakerRejectsInvalidSettings(t *testing.T) {
	s := testSettings()
	s.PrefilterSize = 12
	_, err := ibl.NewBaker(software.New(64), s)
	assert.ErrorIs(t, err, ibl.ErrInvalidSettings)
}

func TestProjectorMatchesPanoramaAlongFaceAxes(t *testing.T) {
	dev := software.New(64)
	pano := directionPanorama(64, 32)
	b := newBaker(t, dev, pano, testSettings())
	require.NoError(t, b.Update())

	env, err := dev.Cubemap(b.Environment())
	require.NoError(t, err)

	dirs := []mgl32.Vec3{{0.9, 0.3, -0.2}, {-0.2, 0.8, 0.4}, {0.1, -0.3, -0.9}}
	for _, f := range ibl.Faces {
		dirs = append(dirs, f.Axis())
	}
	for _, d := range dirs {
		want := pano.Sample(d)
		got := env.Sample(d, 0)
		for i := 0; i < 3; i++ {
			assert.InDelta(t, want[i], got[i], 0.06, "dir %v channel %d", d, i)
		}
	}
}

func TestPrefilterLevelsSharpenToBlur(t *testing.T) {
	dev := software.New(64)
	s := testSettings()
	s.PrefilterSamples = 256
	b := newBaker(t, dev, directionPanorama(64, 32), s)
	require.NoError(t, b.Update())

	p, err := b.Products()
	require.NoError(t, err)
	env, err := dev.Cubemap(p.Environment)
	require.NoError(t, err)
	pre, err := dev.Cubemap(p.Prefilter)
	require.NoError(t, err)

	// mip 0 mirrors the environment texel for texel
	for _, f := range ibl.Faces {
		face := pre.Face(0, f)
		for y := 0; y < face.Height; y++ {
			for x := 0; x < face.Width; x++ {
				d := ibl.FaceTexelDirection(f, (float32(x)+0.5)/float32(face.Width), (float32(y)+0.5)/float32(face.Height))
				want := env.Sample(d, 0)
				got := face.At(x, y)
				assert.InDelta(t, want[1], got[1], 2e-3, "face %s texel %d,%d", f, x, y)
			}
		}
	}

	// the roughest level is nearly uniform over directions
	last := pre.Levels() - 1
	lo, hi := float32(1), float32(0)
	for _, f := range ibl.Faces {
		v := pre.Face(last, f).At(0, 0)[1]
		lo = min(lo, v)
		hi = max(hi, v)
	}
	assert.Less(t, hi-lo, float32(0.8))
}

func TestEndToEndSolidPanorama(t *testing.T) {
	dev := software.New(64)
	s := testSettings()
	s.BRDFLUTSize = 32
	s.BRDFSamples = 256
	c := mgl32.Vec3{0.25, 0.5, 1}
	b := newBaker(t, dev, ibl.SolidPanorama(4, 2, c), s)
	require.NoError(t, b.Update())

	p, err := b.Products()
	require.NoError(t, err)
	assert.Equal(t, s.PrefilterLevels, p.PrefilterLevels)
	assert.Equal(t, 32, p.BRDFLUTSize)

	irr, err := dev.Cubemap(p.Irradiance)
	require.NoError(t, err)
	for _, f := range ibl.Faces {
		got := irr.Face(0, f).At(1, 2)
		assert.InDelta(t, c[2], got[2], 0.03, "irradiance face %s", f)
	}

	pre, err := dev.Cubemap(p.Prefilter)
	require.NoError(t, err)
	for l := 0; l < pre.Levels(); l++ {
		got := pre.Face(l, ibl.FaceNegativeZ).At(0, 0)
		assert.InDelta(t, c[1], got[1], 1e-3, "prefilter level %d", l)
	}

	lut, err := dev.Image(p.BRDFLUT, 0)
	require.NoError(t, err)
	require.Equal(t, 2, lut.Channels)

	corner := lut.At(31, 31)
	wantA, wantB := ibl.IntegrateBRDF(1-0.5/32, 1-0.5/32, 256)
	assert.InDelta(t, wantA, corner[0], 1e-5)
	assert.InDelta(t, wantB, corner[1], 1e-5)
	// split-sum limit at N·V = 1, roughness = 1
	assert.InDelta(t, 0.3068, corner[0], 0.025)
	assert.InDelta(t, 0, corner[1], 1e-3)

	mirror := lut.At(31, 0)
	assert.InDelta(t, 1, mirror[0], 0.01)
	assert.InDelta(t, 0, mirror[1], 0.01)
}

func TestBakerCullsOnlyCubeDraws(t *testing.T) {
	dev := &cullRecorder{Device: software.New(64), cull: make(map[ibl.Geometry][]bool)}
	s := testSettings()
	b := newBaker(t, dev, ibl.SolidPanorama(4, 2, mgl32.Vec3{1, 1, 1}), s)
	require.NoError(t, b.Update())

	cube := dev.cull[ibl.GeometryCube]
	assert.Len(t, cube, ibl.FaceCount*(2+s.PrefilterLevels))
	assert.NotContains(t, cube, false)
	assert.Equal(t, []bool{false}, dev.cull[ibl.GeometryQuad], "the brdf quad is drawn without culling")
	assert.False(t, dev.State().CullFront)

	p, err := b.Products()
	require.NoError(t, err)
	lut, err := dev.Image(p.BRDFLUT, 0)
	require.NoError(t, err)
	smooth, rough := lut.At(s.BRDFLUTSize-1, 0), lut.At(0, s.BRDFLUTSize-1)
	assert.Greater(t, smooth[0], float32(0.8))
	assert.NotEqual(t, smooth, rough, "lut varies with N·V and roughness")
}

func TestCaptureAttributeLocationsMatchMeshLayout(t *testing.T) {
	assert.Equal(t, core.AttribPosition, ibl.AttribPosition)
	assert.Equal(t, core.AttribUV, ibl.AttribUV)

	brdf := ibl.ProgramSources(ibl.DefaultSettings())[ibl.ProgramBRDF]
	assert.Contains(t, brdf.Vertex, "layout(location = ATTRIB_UV) in vec2 inUV;")
	assert.Contains(t, brdf.VertexDefines(), fmt.Sprintf("#define ATTRIB_UV %d\n", core.AttribUV))

	for _, src := range ibl.ProgramSources(ibl.DefaultSettings()) {
		assert.Contains(t, src.Vertex, "layout(location = ATTRIB_POSITION) in vec3 inPosition;", "%s", src.Kind)
		assert.NotRegexp(t, `location\s*=\s*\d`, src.Vertex, "%s uses a literal location", src.Kind)
	}
}

func TestTimingsAreNotShared(t *testing.T) {
	b := newBaker(t, software.New(64), ibl.SolidPanorama(4, 2, mgl32.Vec3{1, 1, 1}), testSettings())
	require.NoError(t, b.Update())

	held := b.Timings()
	require.Len(t, held, 4)
	held[0].Duration = -1
	assert.NotEqual(t, time.Duration(-1), b.Timings()[0].Duration)

	b.Reset()
	require.NoError(t, b.Update())
	assert.Equal(t, time.Duration(-1), held[0].Duration, "a rebake must not rewrite a returned slice")
	assert.Equal(t, ibl.StateCapturingProjector, held[0].Pass)
}
