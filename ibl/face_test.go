package ibl

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertDirection(t *testing.T, want, got mgl32.Vec3, tol float32, msgAndArgs ...interface{}) {
	t.Helper()
	want = want.Normalize()
	got = got.Normalize()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want[i], got[i], float64(tol), msgAndArgs...)
	}
}

// The rendered image of each face must address texels the way GL samples
// them: framebuffer (x, y) at ndc (2s-1, 2t-1) shows direction (s, t).
func TestCaptureViewsMatchFaceAddressing(t *testing.T) {
	proj := CaptureProjection()
	for _, face := range Faces {
		inv := proj.Mul4(CaptureView(face)).Inv()
		for _, st := range [][2]float32{{0.5, 0.5}, {0.1, 0.2}, {0.9, 0.3}, {0.25, 0.85}} {
			s, tc := st[0], st[1]
			p := inv.Mul4x1(mgl32.Vec4{2*s - 1, 2*tc - 1, 1, 1})
			got := p.Vec3().Mul(1 / p.W())
			assertDirection(t, FaceTexelDirection(face, s, tc), got, 1e-4, "face %s at (%g,%g)", face, s, tc)
		}
	}
}

func TestFaceCentreIsAxis(t *testing.T) {
	for _, face := range Faces {
		assertDirection(t, face.Axis(), FaceTexelDirection(face, 0.5, 0.5), 1e-6, "face %s", face)
	}
}

func TestDirectionToFaceRoundTrip(t *testing.T) {
	for _, face := range Faces {
		for _, st := range [][2]float32{{0.5, 0.5}, {0.05, 0.95}, {0.7, 0.2}} {
			dir := FaceTexelDirection(face, st[0], st[1])
			gotFace, s, tc := DirectionToFace(dir.Mul(3))
			require.Equal(t, face, gotFace)
			assert.InDelta(t, st[0], s, 1e-5)
			assert.InDelta(t, st[1], tc, 1e-5)
		}
	}
}

func TestCubeFaceString(t *testing.T) {
	assert.Equal(t, "+X", FacePositiveX.String())
	assert.Equal(t, "-Z", FaceNegativeZ.String())
	assert.Equal(t, "invalid", CubeFace(9).String())
}

func TestCanonicalUpVectors(t *testing.T) {
	for _, face := range Faces {
		v := face.View()
		assert.InDelta(t, 0, v.Direction.Dot(v.Up), 1e-6, "face %s up must be orthogonal", face)
	}
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, FacePositiveY.View().Up)
	assert.Equal(t, mgl32.Vec3{0, 0, -1}, FaceNegativeY.View().Up)
}
