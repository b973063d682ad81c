package assets

import (
	"github.com/go-gl/mathgl/mgl32"

	"pbr-engine/core"
)

// Vertex is the unpacked form of a core.LayoutMesh vertex.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
	Tangent  mgl32.Vec3
}

// PackMesh interleaves vertices into core.LayoutMesh.
func PackMesh(name string, vertices []Vertex, indices []uint32) *core.MeshData {
	data := make([]float32, 0, len(vertices)*core.LayoutMesh.Floats())
	for _, v := range vertices {
		data = append(data,
			v.Position[0], v.Position[1], v.Position[2],
			v.Normal[0], v.Normal[1], v.Normal[2],
			v.UV[0], v.UV[1],
			v.Tangent[0], v.Tangent[1], v.Tangent[2],
		)
	}
	return &core.MeshData{
		Name:     name,
		Layout:   core.LayoutMesh,
		Vertices: data,
		Indices:  indices,
	}
}

// UnpackMesh is the inverse of PackMesh. It returns nil for other layouts.
func UnpackMesh(m *core.MeshData) []Vertex {
	if m.Layout.Stride != core.LayoutMesh.Stride {
		return nil
	}
	n := core.LayoutMesh.Floats()
	out := make([]Vertex, 0, m.VertexCount())
	for i := 0; i+n <= len(m.Vertices); i += n {
		f := m.Vertices[i : i+n]
		out = append(out, Vertex{
			Position: mgl32.Vec3{f[0], f[1], f[2]},
			Normal:   mgl32.Vec3{f[3], f[4], f[5]},
			UV:       mgl32.Vec2{f[6], f[7]},
			Tangent:  mgl32.Vec3{f[8], f[9], f[10]},
		})
	}
	return out
}
