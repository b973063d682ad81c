package assets

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ComputeTangents fills per-vertex tangents for normal mapping. Triangles
// with a degenerate UV area are skipped; vertices left without a tangent get
// an arbitrary one perpendicular to the normal.
func ComputeTangents(vertices []Vertex, indices []uint32) {
	for i := range vertices {
		vertices[i].Tangent = mgl32.Vec3{}
	}

	accum := func(i0, i1, i2 uint32) {
		v0, v1, v2 := vertices[i0], vertices[i1], vertices[i2]

		e1 := v1.Position.Sub(v0.Position)
		e2 := v2.Position.Sub(v0.Position)
		duv1 := v1.UV.Sub(v0.UV)
		duv2 := v2.UV.Sub(v0.UV)

		denom := duv1[0]*duv2[1] - duv2[0]*duv1[1]
		if denom == 0 {
			return
		}
		r := 1 / denom
		t := e1.Mul(duv2[1] * r).Sub(e2.Mul(duv1[1] * r))

		vertices[i0].Tangent = vertices[i0].Tangent.Add(t)
		vertices[i1].Tangent = vertices[i1].Tangent.Add(t)
		vertices[i2].Tangent = vertices[i2].Tangent.Add(t)
	}

	if len(indices) > 0 {
		for i := 0; i+2 < len(indices); i += 3 {
			accum(indices[i], indices[i+1], indices[i+2])
		}
	} else {
		for i := 0; i+2 < len(vertices); i += 3 {
			accum(uint32(i), uint32(i+1), uint32(i+2))
		}
	}

	// Gram-Schmidt against the normal.
	for i := range vertices {
		n := vertices[i].Normal
		t := vertices[i].Tangent
		t = t.Sub(n.Mul(n.Dot(t)))
		if t.LenSqr() < 1e-8 {
			if math32.Abs(n[0]) < 0.9 {
				t = mgl32.Vec3{1, 0, 0}.Sub(n.Mul(n[0]))
			} else {
				t = mgl32.Vec3{0, 1, 0}.Sub(n.Mul(n[1]))
			}
		}
		vertices[i].Tangent = t.Normalize()
	}
}

// generateNormals writes area-weighted smooth normals.
func generateNormals(vertices []Vertex, indices []uint32) {
	accum := make([]mgl32.Vec3, len(vertices))
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		p0 := vertices[i0].Position
		n := vertices[i1].Position.Sub(p0).Cross(vertices[i2].Position.Sub(p0))
		accum[i0] = accum[i0].Add(n)
		accum[i1] = accum[i1].Add(n)
		accum[i2] = accum[i2].Add(n)
	}
	for i := range vertices {
		if accum[i].LenSqr() > 0 {
			vertices[i].Normal = accum[i].Normalize()
		}
	}
}
