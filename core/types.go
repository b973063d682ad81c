package core

import (
	"fmt"
)

type Color struct {
	R, G, B, A float32
}

var (
	ColorWhite = Color{1, 1, 1, 1}
	ColorBlack = Color{0, 0, 0, 1}
)

// VertexAttribute is one interleaved attribute: shader location, float
// component count and byte offset inside a vertex.
type VertexAttribute struct {
	Location   uint32
	Components int32
	Offset     int
}

// VertexLayout describes interleaved float32 vertex data.
type VertexLayout struct {
	Stride     int32
	Attributes []VertexAttribute
}

// Standard attribute locations shared by every shader in the engine.
const (
	AttribPosition uint32 = 0
	AttribNormal   uint32 = 1
	AttribUV       uint32 = 2
	AttribTangent  uint32 = 3
)

var (
	// LayoutPosition is positions only (capture cube, skybox).
	LayoutPosition = VertexLayout{
		Stride:     3 * 4,
		Attributes: []VertexAttribute{{Location: AttribPosition, Components: 3, Offset: 0}},
	}
	// LayoutPositionUV is position + texture coordinate (screen quad).
	LayoutPositionUV = VertexLayout{
		Stride: 5 * 4,
		Attributes: []VertexAttribute{
			{Location: AttribPosition, Components: 3, Offset: 0},
			{Location: AttribUV, Components: 2, Offset: 3 * 4},
		},
	}
	// LayoutMesh is position, normal, uv, tangent (lit meshes).
	LayoutMesh = VertexLayout{
		Stride: 11 * 4,
		Attributes: []VertexAttribute{
			{Location: AttribPosition, Components: 3, Offset: 0},
			{Location: AttribNormal, Components: 3, Offset: 3 * 4},
			{Location: AttribUV, Components: 2, Offset: 6 * 4},
			{Location: AttribTangent, Components: 3, Offset: 8 * 4},
		},
	}
)

// Floats is the number of float32 values per vertex.
func (l VertexLayout) Floats() int { return int(l.Stride) / 4 }

// MeshData is CPU-side interleaved geometry.
type MeshData struct {
	Name     string
	Layout   VertexLayout
	Vertices []float32
	Indices  []uint32
}

// VertexCount is the number of vertices in Vertices.
func (m *MeshData) VertexCount() int {
	if m.Layout.Stride == 0 {
		return 0
	}
	return len(m.Vertices) / m.Layout.Floats()
}

// DrawCount is the number of elements a draw call submits.
func (m *MeshData) DrawCount() int {
	if len(m.Indices) > 0 {
		return len(m.Indices)
	}
	return m.VertexCount()
}

// Validate checks that the buffers agree with the layout.
func (m *MeshData) Validate() error {
	n := m.Layout.Floats()
	if n == 0 {
		return fmt.Errorf("mesh %q: empty vertex layout", m.Name)
	}
	if len(m.Vertices)%n != 0 {
		return fmt.Errorf("mesh %q: %d floats is not a multiple of stride %d", m.Name, len(m.Vertices), n)
	}
	count := uint32(m.VertexCount())
	for _, idx := range m.Indices {
		if idx >= count {
			return fmt.Errorf("mesh %q: index %d out of range (%d vertices)", m.Name, idx, count)
		}
	}
	return nil
}
