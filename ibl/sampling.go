package ibl

import (
	"math/bits"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// RadicalInverse mirrors the bits of i around the binary point (Van der Corput).
func RadicalInverse(i uint32) float32 {
	return float32(float64(bits.Reverse32(i)) * 2.3283064365386963e-10)
}

// Hammersley returns point i of an n-point Hammersley set in [0,1)².
func Hammersley(i, n uint32) mgl32.Vec2 {
	return mgl32.Vec2{float32(i) / float32(n), RadicalInverse(i)}
}

// TangentFrame builds an orthonormal basis around n. The reference up
// vector switches away from +Y near the poles so the cross product never
// degenerates.
func TangentFrame(n mgl32.Vec3) (tangent, bitangent mgl32.Vec3) {
	up := mgl32.Vec3{0, 1, 0}
	if math32.Abs(n[1]) > 0.999 {
		up = mgl32.Vec3{0, 0, 1}
	}
	tangent = up.Cross(n).Normalize()
	bitangent = n.Cross(tangent)
	return tangent, bitangent
}

// ImportanceSampleGGX maps xi to a half vector around n distributed by the
// GGX lobe for the given perceptual roughness.
func ImportanceSampleGGX(xi mgl32.Vec2, n mgl32.Vec3, roughness float32) mgl32.Vec3 {
	a := roughness * roughness

	phi := 2 * math32.Pi * xi[0]
	cosTheta := math32.Sqrt((1 - xi[1]) / (1 + (a*a-1)*xi[1]))
	sinTheta := math32.Sqrt(math32.Max(0, 1-cosTheta*cosTheta))

	h := mgl32.Vec3{math32.Cos(phi) * sinTheta, math32.Sin(phi) * sinTheta, cosTheta}

	up := mgl32.Vec3{0, 0, 1}
	if math32.Abs(n[2]) >= 0.999 {
		up = mgl32.Vec3{1, 0, 0}
	}
	tangent := up.Cross(n).Normalize()
	bitangent := n.Cross(tangent)

	return tangent.Mul(h[0]).Add(bitangent.Mul(h[1])).Add(n.Mul(h[2])).Normalize()
}

// DistributionGGX is the Trowbridge-Reitz normal distribution.
func DistributionGGX(nDotH, roughness float32) float32 {
	a := roughness * roughness
	a2 := a * a
	d := nDotH*nDotH*(a2-1) + 1
	return a2 / (math32.Pi * d * d)
}

// GeometrySchlickGGX uses the IBL remapping k = α²/2.
func GeometrySchlickGGX(nDotV, roughness float32) float32 {
	k := roughness * roughness / 2
	return nDotV / (nDotV*(1-k) + k)
}

// GeometrySmith combines view and light masking for the IBL remapping.
func GeometrySmith(nDotV, nDotL, roughness float32) float32 {
	return GeometrySchlickGGX(nDotV, roughness) * GeometrySchlickGGX(nDotL, roughness)
}

// EquirectUV maps a unit direction to latitude/longitude texture coordinates.
func EquirectUV(dir mgl32.Vec3) mgl32.Vec2 {
	return mgl32.Vec2{
		math32.Atan2(dir[2], dir[0])*0.1591 + 0.5,
		math32.Asin(mgl32.Clamp(dir[1], -1, 1))*0.3183 + 0.5,
	}
}

// EquirectDirection is the inverse of EquirectUV.
func EquirectDirection(uv mgl32.Vec2) mgl32.Vec3 {
	phi := (uv[0] - 0.5) / 0.1591
	theta := (uv[1] - 0.5) / 0.3183
	c := math32.Cos(theta)
	return mgl32.Vec3{c * math32.Cos(phi), math32.Sin(theta), c * math32.Sin(phi)}
}
