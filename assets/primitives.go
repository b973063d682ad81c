package assets

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"pbr-engine/core"
)

// UnitCube returns the 36-vertex cube spanning [-1,1]^3 used by the capture
// passes and the skybox. Triangles wind counter-clockwise seen from outside,
// so drawing from the centre needs front-face culling.
func UnitCube() *core.MeshData {
	corners := [8]mgl32.Vec3{
		{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
		{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
	}
	quads := [6][4]int{
		{1, 2, 6, 5}, // +X
		{0, 4, 7, 3}, // -X
		{3, 7, 6, 2}, // +Y
		{0, 1, 5, 4}, // -Y
		{4, 5, 6, 7}, // +Z
		{0, 3, 2, 1}, // -Z
	}
	verts := make([]float32, 0, 36*3)
	for _, q := range quads {
		for _, c := range [6]int{q[0], q[1], q[2], q[0], q[2], q[3]} {
			p := corners[c]
			verts = append(verts, p[0], p[1], p[2])
		}
	}
	return &core.MeshData{Name: "UnitCube", Layout: core.LayoutPosition, Vertices: verts}
}

// ScreenQuad returns a 4-vertex triangle strip covering clip space with
// texture coordinates in [0,1].
func ScreenQuad() *core.MeshData {
	return &core.MeshData{
		Name:   "ScreenQuad",
		Layout: core.LayoutPositionUV,
		Vertices: []float32{
			-1, 1, 0, 0, 1,
			-1, -1, 0, 0, 0,
			1, 1, 0, 1, 1,
			1, -1, 0, 1, 0,
		},
	}
}

// Sphere generates a UV sphere with tangents. The index buffer is a
// triangle list wound counter-clockwise from outside.
func Sphere(radius float32, segments, rings int) *core.MeshData {
	if segments < 3 {
		segments = 3
	}
	if rings < 2 {
		rings = 2
	}

	vertices := make([]Vertex, 0, (rings+1)*(segments+1))
	indices := make([]uint32, 0, rings*segments*6)

	for ring := 0; ring <= rings; ring++ {
		phi := float32(ring) * math32.Pi / float32(rings)
		sinPhi, cosPhi := math32.Sincos(phi)

		for seg := 0; seg <= segments; seg++ {
			theta := float32(seg) * 2 * math32.Pi / float32(segments)
			sinTheta, cosTheta := math32.Sincos(theta)

			normal := mgl32.Vec3{sinPhi * cosTheta, cosPhi, sinPhi * sinTheta}
			vertices = append(vertices, Vertex{
				Position: normal.Mul(radius),
				Normal:   normal,
				UV:       mgl32.Vec2{float32(seg) / float32(segments), 1 - float32(ring)/float32(rings)},
			})
		}
	}

	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			current := uint32(ring*(segments+1) + seg)
			next := current + uint32(segments+1)

			indices = append(indices, current, current+1, next)
			indices = append(indices, current+1, next+1, next)
		}
	}

	ComputeTangents(vertices, indices)
	return PackMesh("Sphere", vertices, indices)
}
