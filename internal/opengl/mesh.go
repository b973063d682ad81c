package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"pbr-engine/core"
)

// GPUMesh holds the OpenGL buffer objects for an uploaded mesh.
type GPUMesh struct {
	VAO     uint32
	VBO     uint32
	EBO     uint32
	Count   int32
	Indexed bool
	Mode    uint32
}

// UploadMesh creates a VAO from interleaved mesh data. mode is the
// primitive type (gl.TRIANGLES, gl.TRIANGLE_STRIP, ...).
func UploadMesh(m *core.MeshData, mode uint32) (*GPUMesh, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if len(m.Vertices) == 0 {
		return nil, fmt.Errorf("mesh %q has no vertices", m.Name)
	}

	gpu := &GPUMesh{
		Count:   int32(m.DrawCount()),
		Indexed: len(m.Indices) > 0,
		Mode:    mode,
	}

	gl.GenVertexArrays(1, &gpu.VAO)
	gl.GenBuffers(1, &gpu.VBO)
	gl.BindVertexArray(gpu.VAO)

	gl.BindBuffer(gl.ARRAY_BUFFER, gpu.VBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(m.Vertices)*4, gl.Ptr(m.Vertices), gl.STATIC_DRAW)

	for _, a := range m.Layout.Attributes {
		gl.EnableVertexAttribArray(a.Location)
		gl.VertexAttribPointer(a.Location, a.Components, gl.FLOAT, false, m.Layout.Stride, gl.PtrOffset(a.Offset))
	}

	if gpu.Indexed {
		gl.GenBuffers(1, &gpu.EBO)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gpu.EBO)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(m.Indices)*4, gl.Ptr(m.Indices), gl.STATIC_DRAW)
	}

	gl.BindVertexArray(0)
	return gpu, nil
}

// Draw issues one draw call for the whole mesh.
func (g *GPUMesh) Draw() {
	gl.BindVertexArray(g.VAO)
	if g.Indexed {
		gl.DrawElements(g.Mode, g.Count, gl.UNSIGNED_INT, nil)
	} else {
		gl.DrawArrays(g.Mode, 0, g.Count)
	}
	gl.BindVertexArray(0)
}

// Destroy frees the buffers.
func (g *GPUMesh) Destroy() {
	if g.VAO != 0 {
		gl.DeleteVertexArrays(1, &g.VAO)
		gl.DeleteBuffers(1, &g.VBO)
		if g.Indexed {
			gl.DeleteBuffers(1, &g.EBO)
		}
		g.VAO = 0
	}
}
