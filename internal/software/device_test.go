package software

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pbr-engine/ibl"
)

func setup(t *testing.T, size int) (*Device, ibl.Handle, ibl.Handle, ibl.Handle, ibl.Handle) {
	t.Helper()
	d := New(100)
	pano, err := d.UploadPanorama(ibl.SolidPanorama(8, 4, mgl32.Vec3{0.2, 0.4, 0.6}))
	require.NoError(t, err)
	prog, err := d.BuildProgram(ibl.ProgramSources(ibl.DefaultSettings())[ibl.ProgramEquirect])
	require.NoError(t, err)
	env, err := d.CreateTexture(ibl.TextureDesc{Label: "env", Kind: ibl.TextureCube, Size: size, Levels: ibl.MipCount(size)})
	require.NoError(t, err)
	target, err := d.CreateCaptureTarget()
	require.NoError(t, err)
	return d, pano, prog, env, target
}

func TestDrawRequiresMatchingCaptureSize(t *testing.T) {
	d, pano, prog, env, target := setup(t, 8)

	require.NoError(t, d.ResizeCapture(target, 16))
	require.NoError(t, d.Attach(target, ibl.Attachment{Texture: env}))
	err := d.Draw(target, ibl.DrawCall{Program: prog, Source: pano, Uniforms: ibl.Uniforms{
		View: ibl.CaptureView(ibl.FacePositiveX), Projection: ibl.CaptureProjection(),
	}})
	assert.ErrorIs(t, err, ErrSizeMismatch)

	require.NoError(t, d.ResizeCapture(target, 8))
	require.NoError(t, d.Draw(target, ibl.DrawCall{Program: prog, Source: pano, Uniforms: ibl.Uniforms{
		View: ibl.CaptureView(ibl.FacePositiveX), Projection: ibl.CaptureProjection(),
	}}))

	cube, err := d.Cubemap(env)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, cube.Face(0, ibl.FacePositiveX).At(3, 5)[1], 1e-6)
	assert.Zero(t, cube.Face(0, ibl.FaceNegativeX).At(3, 5)[1], "other faces untouched")
}

func TestDrawAfterRestoreIsRejected(t *testing.T) {
	d, pano, prog, env, target := setup(t, 4)
	require.NoError(t, d.ResizeCapture(target, 4))
	require.NoError(t, d.Attach(target, ibl.Attachment{Texture: env}))
	d.RestoreDefaultTarget()

	err := d.Draw(target, ibl.DrawCall{Program: prog, Source: pano})
	assert.Error(t, err)
	assert.Equal(t, 100, d.State().Viewport)
}

func TestAttachRejectsMissingLevel(t *testing.T) {
	d, _, _, env, target := setup(t, 4)
	assert.Error(t, d.Attach(target, ibl.Attachment{Texture: env, Level: 3}))
	assert.ErrorIs(t, d.Attach(target, ibl.Attachment{Texture: 999}), ErrUnknownHandle)
}

func TestCaptureStateIsScoped(t *testing.T) {
	d, pano, prog, env, target := setup(t, 4)
	restore := d.PushCaptureState()
	assert.True(t, d.State().Seamless)
	assert.False(t, d.State().CullFront)

	require.NoError(t, d.ResizeCapture(target, 4))
	require.NoError(t, d.Attach(target, ibl.Attachment{Texture: env}))
	require.NoError(t, d.Draw(target, ibl.DrawCall{Program: prog, Geometry: ibl.GeometryCube, Source: pano, Uniforms: ibl.Uniforms{
		View: ibl.CaptureView(ibl.FacePositiveX), Projection: ibl.CaptureProjection(),
	}}))
	assert.True(t, d.State().CullFront, "cube draws cull front faces")

	restore()
	assert.False(t, d.State().Seamless)
	assert.False(t, d.State().CullFront)
}

func TestQuadFacesTheCamera(t *testing.T) {
	quad := captureMeshes[ibl.GeometryQuad]
	tris := quad.setup(mgl32.Ident4(), false)
	require.Len(t, tris, 2)
	for _, tri := range tris {
		assert.Positive(t, tri.area, "strip triangles wind counter-clockwise")
	}
	assert.Empty(t, quad.setup(mgl32.Ident4(), true), "front-face culling removes the quad")
}

func TestCubeFacesSurviveFrontCulling(t *testing.T) {
	cube := captureMeshes[ibl.GeometryCube]
	for _, face := range ibl.Faces {
		mvp := ibl.CaptureProjection().Mul4(ibl.CaptureView(face))
		tris := cube.setup(mvp, true)
		require.NotEmpty(t, tris, "face %s", face)
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				ndc := mgl32.Vec2{(float32(x)+0.5)/4 - 1, (float32(y)+0.5)/4 - 1}
				_, _, ok := cover(tris, ndc)
				assert.True(t, ok, "face %s texel (%d,%d) uncovered", face, x, y)
			}
		}
	}
}

func TestBRDFQuadInterpolatesUV(t *testing.T) {
	d := New(8)
	prog, err := d.BuildProgram(ibl.ProgramSources(ibl.DefaultSettings())[ibl.ProgramBRDF])
	require.NoError(t, err)
	lut, err := d.CreateTexture(ibl.TextureDesc{Label: "lut", Kind: ibl.Texture2D, Size: 8, Levels: 1, Format: ibl.FormatRG16F})
	require.NoError(t, err)
	target, err := d.CreateCaptureTarget()
	require.NoError(t, err)

	require.NoError(t, ibl.IntegrateBRDFLUT(d, target, prog, lut, 8))
	assert.False(t, d.State().CullFront)

	img, err := d.Image(lut, 0)
	require.NoError(t, err)
	// Smooth and head-on: scale near 1. Rough and grazing: far smaller.
	smooth := img.At(7, 0)
	rough := img.At(0, 7)
	assert.Greater(t, smooth[0], float32(0.8))
	assert.Less(t, rough[0]+rough[1], smooth[0]+smooth[1])
}

func TestVertexInputs(t *testing.T) {
	srcs := ibl.ProgramSources(ibl.DefaultSettings())
	inputs, err := vertexInputs(srcs[ibl.ProgramBRDF])
	require.NoError(t, err)
	assert.Equal(t, []vertexInput{
		{Name: "inPosition", Location: ibl.AttribPosition, Components: 3},
		{Name: "inUV", Location: ibl.AttribUV, Components: 2},
	}, inputs)

	inputs, err = vertexInputs(srcs[ibl.ProgramIrradiance])
	require.NoError(t, err)
	assert.Len(t, inputs, 1)
}

func TestDrawRejectsUnfedVertexInput(t *testing.T) {
	d := New(8)
	src := ibl.ProgramSources(ibl.DefaultSettings())[ibl.ProgramBRDF]
	src.Vertex = strings.Replace(src.Vertex, "location = ATTRIB_UV", "location = 1", 1)
	prog, err := d.BuildProgram(src)
	require.NoError(t, err)
	lut, err := d.CreateTexture(ibl.TextureDesc{Label: "lut", Kind: ibl.Texture2D, Size: 4, Levels: 1, Format: ibl.FormatRG16F})
	require.NoError(t, err)
	target, err := d.CreateCaptureTarget()
	require.NoError(t, err)

	err = ibl.IntegrateBRDFLUT(d, target, prog, lut, 4)
	assert.ErrorIs(t, err, ErrVertexLayout)
}

func TestBuildProgramRejectsMissingInputs(t *testing.T) {
	d := New(8)
	src := ibl.ProgramSources(ibl.DefaultSettings())[ibl.ProgramEquirect]
	src.Vertex = "void main() {}"
	_, err := d.BuildProgram(src)
	var pe *ibl.ProgramError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "vertex", pe.Stage)
}

func TestGenerateMipmapsAverages(t *testing.T) {
	d, _, _, env, _ := setup(t, 4)
	cube, err := d.Cubemap(env)
	require.NoError(t, err)
	face := cube.Face(0, ibl.FacePositiveZ)
	face.Set(0, 0, mgl32.Vec3{4, 0, 0})
	require.NoError(t, d.GenerateMipmaps(env))

	assert.InDelta(t, 1, cube.Face(1, ibl.FacePositiveZ).At(0, 0)[0], 1e-6)
	assert.InDelta(t, 0.25, cube.Face(2, ibl.FacePositiveZ).At(0, 0)[0], 1e-6)
}

func TestBuildProgramValidatesSamples(t *testing.T) {
	d := New(10)
	src := ibl.ProgramSources(ibl.DefaultSettings())[ibl.ProgramBRDF]
	src.SampleCount = 0
	_, err := d.BuildProgram(src)
	assert.ErrorIs(t, err, ibl.ErrProgramBuild)
}

func TestReleaseForgetsHandles(t *testing.T) {
	d, pano, prog, env, target := setup(t, 4)
	assert.Equal(t, 4, d.Live())
	for _, h := range []ibl.Handle{pano, prog, env, target} {
		d.Release(h)
	}
	assert.Zero(t, d.Live())
}
