package ibl

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestRadicalInverse(t *testing.T) {
	assert.Equal(t, float32(0), RadicalInverse(0))
	assert.InDelta(t, 0.5, RadicalInverse(1), 1e-7)
	assert.InDelta(t, 0.25, RadicalInverse(2), 1e-7)
	assert.InDelta(t, 0.75, RadicalInverse(3), 1e-7)
}

func TestHammersley(t *testing.T) {
	p := Hammersley(3, 4)
	assert.InDelta(t, 0.75, p[0], 1e-7)
	assert.InDelta(t, 0.75, p[1], 1e-7)
}

func TestTangentFrameIsOrthonormal(t *testing.T) {
	normals := []mgl32.Vec3{
		{0, 1, 0}, {0, -1, 0}, {1, 0, 0}, {0, 0, -1},
		mgl32.Vec3{0.3, 0.9, -0.2}.Normalize(),
	}
	for _, n := range normals {
		tg, bt := TangentFrame(n)
		assert.InDelta(t, 1, tg.Len(), 1e-5, "n=%v", n)
		assert.InDelta(t, 1, bt.Len(), 1e-5, "n=%v", n)
		assert.InDelta(t, 0, tg.Dot(n), 1e-5, "n=%v", n)
		assert.InDelta(t, 0, bt.Dot(n), 1e-5, "n=%v", n)
		assert.InDelta(t, 0, tg.Dot(bt), 1e-5, "n=%v", n)
	}
}

func TestImportanceSampleGGXZeroRoughnessIsNormal(t *testing.T) {
	n := mgl32.Vec3{0.2, -0.5, 0.8}.Normalize()
	for i := uint32(0); i < 16; i++ {
		h := ImportanceSampleGGX(Hammersley(i, 16), n, 0)
		assert.InDelta(t, 1, h.Dot(n), 1e-5)
	}
}

func TestImportanceSampleGGXStaysInHemisphere(t *testing.T) {
	n := mgl32.Vec3{0, 0, 1}
	for i := uint32(0); i < 256; i++ {
		h := ImportanceSampleGGX(Hammersley(i, 256), n, 1)
		assert.GreaterOrEqual(t, h.Dot(n), float32(0))
		assert.InDelta(t, 1, h.Len(), 1e-5)
	}
}

func TestEquirectUV(t *testing.T) {
	uv := EquirectUV(mgl32.Vec3{1, 0, 0})
	assert.InDelta(t, 0.5, uv[0], 1e-6)
	assert.InDelta(t, 0.5, uv[1], 1e-6)

	up := EquirectUV(mgl32.Vec3{0, 1, 0})
	assert.InDelta(t, 1, up[1], 1e-3)

	down := EquirectUV(mgl32.Vec3{0, -1, 0})
	assert.InDelta(t, 0, down[1], 1e-3)

	dir := mgl32.Vec3{-0.3, 0.4, 0.6}.Normalize()
	back := EquirectDirection(EquirectUV(dir))
	assert.InDelta(t, 1, back.Dot(dir), 1e-4)
}

func TestGeometrySchlickGGX(t *testing.T) {
	assert.InDelta(t, 1, GeometrySchlickGGX(1, 0.7), 1e-6)
	assert.InDelta(t, 1, GeometrySchlickGGX(0.3, 0), 1e-6)
	assert.Less(t, GeometrySmith(0.2, 0.2, 1), float32(1))
}
