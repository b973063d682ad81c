package software

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"pbr-engine/assets"
	"pbr-engine/core"
	"pbr-engine/ibl"
)

var (
	inputPattern  = regexp.MustCompile(`layout\s*\(\s*location\s*=\s*(\w+)\s*\)\s*in\s+(float|vec[234])\s+(\w+)\s*;`)
	definePattern = regexp.MustCompile(`(?m)^\s*#define\s+(\w+)\s+(\S+)`)
)

// vertexInput is one attribute declared by a vertex stage.
type vertexInput struct {
	Name       string
	Location   uint32
	Components int32
}

// vertexInputs lists the attributes the vertex stage of src reads, with
// its vertex defines expanded.
func vertexInputs(src ibl.ProgramSource) ([]vertexInput, error) {
	macros := make(map[string]string)
	for _, m := range definePattern.FindAllStringSubmatch(strings.Join(src.VertexDefines(), ""), -1) {
		macros[m[1]] = m[2]
	}

	var inputs []vertexInput
	for _, m := range inputPattern.FindAllStringSubmatch(src.Vertex, -1) {
		token := m[1]
		if v, ok := macros[token]; ok {
			token = v
		}
		loc, err := strconv.ParseUint(token, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("input %s: location %q is not a constant", m[3], m[1])
		}
		components := int32(1)
		if m[2] != "float" {
			components = int32(m[2][3] - '0')
		}
		inputs = append(inputs, vertexInput{Name: m[3], Location: uint32(loc), Components: components})
	}
	if len(inputs) == 0 {
		return nil, errors.New("vertex stage declares no inputs")
	}
	return inputs, nil
}

// mesh is capture geometry exactly as the GL device uploads it.
type mesh struct {
	data  *core.MeshData
	strip bool
}

var captureMeshes = map[ibl.Geometry]mesh{
	ibl.GeometryCube: {data: assets.UnitCube()},
	ibl.GeometryQuad: {data: assets.ScreenQuad(), strip: true},
}

func (m mesh) attribute(location uint32) (core.VertexAttribute, bool) {
	for _, a := range m.data.Layout.Attributes {
		if a.Location == location {
			return a, true
		}
	}
	return core.VertexAttribute{}, false
}

func (m mesh) fetch(vertex int, a core.VertexAttribute) mgl32.Vec4 {
	base := vertex*m.data.Layout.Floats() + a.Offset/4
	var v mgl32.Vec4
	copy(v[:a.Components], m.data.Vertices[base:base+int(a.Components)])
	return v
}

// checkInputs fails when a declared input has no matching vertex array.
func (m mesh) checkInputs(inputs []vertexInput) error {
	for _, in := range inputs {
		a, ok := m.attribute(in.Location)
		if !ok {
			return fmt.Errorf("%w: %s reads location %d, %s has none", ErrVertexLayout, in.Name, in.Location, m.data.Name)
		}
		if a.Components != in.Components {
			return fmt.Errorf("%w: %s is vec%d, %s feeds %d components at location %d",
				ErrVertexLayout, in.Name, in.Components, m.data.Name, a.Components, in.Location)
		}
	}
	return nil
}

// triangles returns vertex triples in submission order. Odd strip
// triangles swap their first two vertices so the strip keeps one winding.
func (m mesh) triangles() [][3]int {
	idx := m.data.Indices
	n := m.data.VertexCount()
	at := func(i int) int {
		if len(idx) > 0 {
			return int(idx[i])
		}
		return i
	}
	count := n
	if len(idx) > 0 {
		count = len(idx)
	}

	var tris [][3]int
	if m.strip {
		for i := 0; i+2 < count; i++ {
			if i%2 == 0 {
				tris = append(tris, [3]int{at(i), at(i + 1), at(i + 2)})
			} else {
				tris = append(tris, [3]int{at(i + 1), at(i), at(i + 2)})
			}
		}
		return tris
	}
	for i := 0; i+2 < count; i += 3 {
		tris = append(tris, [3]int{at(i), at(i + 1), at(i + 2)})
	}
	return tris
}

// screenTri is a projected triangle that survived culling. area is twice
// the signed NDC area, positive for counter-clockwise (front facing).
type screenTri struct {
	v    [3]int
	p    [3]mgl32.Vec2
	area float32
}

// setup projects the mesh with mvp and keeps what a rasteriser would draw:
// triangles wholly in front of the eye that the cull mode lets through.
func (m mesh) setup(mvp mgl32.Mat4, cullFront bool) []screenTri {
	pos, ok := m.attribute(ibl.AttribPosition)
	if !ok {
		return nil
	}
	var out []screenTri
	for _, tri := range m.triangles() {
		t := screenTri{v: tri}
		behind := false
		for i, vi := range tri {
			p := m.fetch(vi, pos)
			p[3] = 1
			c := mvp.Mul4x1(p)
			if c[3] <= 0 {
				behind = true
				break
			}
			t.p[i] = mgl32.Vec2{c[0] / c[3], c[1] / c[3]}
		}
		if behind {
			continue
		}
		t.area = edge(t.p[0], t.p[1], t.p[2])
		if t.area == 0 || (cullFront && t.area > 0) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// cover finds the triangle containing p and the barycentric weights of p.
func cover(tris []screenTri, p mgl32.Vec2) (screenTri, mgl32.Vec3, bool) {
	const eps = 1e-6
	for _, t := range tris {
		w := mgl32.Vec3{
			edge(t.p[1], t.p[2], p) / t.area,
			edge(t.p[2], t.p[0], p) / t.area,
			edge(t.p[0], t.p[1], p) / t.area,
		}
		if w[0] >= -eps && w[1] >= -eps && w[2] >= -eps {
			return t, w, true
		}
	}
	return screenTri{}, mgl32.Vec3{}, false
}

func edge(a, b, p mgl32.Vec2) float32 {
	return (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
}

// interpolate blends attribute a of t's vertices with weights w.
func (m mesh) interpolate(t screenTri, w mgl32.Vec3, a core.VertexAttribute) mgl32.Vec4 {
	var out mgl32.Vec4
	for i, vi := range t.v {
		out = out.Add(m.fetch(vi, a).Mul(w[i]))
	}
	return out
}
