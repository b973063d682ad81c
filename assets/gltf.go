package assets

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"pbr-engine/core"
)

// LoadGLTFMesh reads the first mesh primitive of a .gltf or .glb file
// into a LayoutMesh, scaling positions by scale.
func LoadGLTFMesh(path string, scale float32) (*core.MeshData, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}
	for _, m := range doc.Meshes {
		if len(m.Primitives) == 0 {
			continue
		}
		name := m.Name
		if name == "" {
			name = path
		}
		return loadGLTFPrimitive(doc, name, m.Primitives[0], scale)
	}
	return nil, fmt.Errorf("no mesh primitives in %q", path)
}

func loadGLTFPrimitive(doc *gltf.Document, name string, prim *gltf.Primitive, scale float32) (*core.MeshData, error) {
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("%s: no POSITION attribute", name)
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("%s: positions: %w", name, err)
	}

	var normals [][3]float32
	var uvs [][2]float32
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		if normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
			return nil, fmt.Errorf("%s: normals: %w", name, err)
		}
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
			return nil, fmt.Errorf("%s: uvs: %w", name, err)
		}
	}

	vertices := make([]Vertex, len(positions))
	for i, p := range positions {
		v := Vertex{
			Position: mgl32.Vec3{p[0], p[1], p[2]}.Mul(scale),
			Normal:   mgl32.Vec3{0, 1, 0},
		}
		if i < len(normals) {
			v.Normal = mgl32.Vec3(normals[i])
		}
		if i < len(uvs) {
			// glTF puts the uv origin top-left.
			v.UV = mgl32.Vec2{uvs[i][0], 1 - uvs[i][1]}
		}
		vertices[i] = v
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil); err != nil {
			return nil, fmt.Errorf("%s: indices: %w", name, err)
		}
	} else {
		indices = make([]uint32, len(vertices))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	if len(normals) == 0 {
		generateNormals(vertices, indices)
	}
	ComputeTangents(vertices, indices)
	return PackMesh(name, vertices, indices), nil
}
