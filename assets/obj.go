package assets

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"pbr-engine/core"
)

// objCorner references one face corner: 0-based position, uv and normal
// indices, -1 when absent.
type objCorner struct{ v, vt, vn int }

// DecodeOBJ reads a Wavefront OBJ stream into a single LayoutMesh. Every
// object and group is merged; polygons are fan-triangulated and positions
// multiplied by scale. Missing normals are generated, tangents always are.
func DecodeOBJ(name string, r io.Reader, scale float32) (*core.MeshData, error) {
	var positions, normals []mgl32.Vec3
	var uvs []mgl32.Vec2
	var tris [][3]objCorner

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "v", "vn":
			vec, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", name, lineNo, err)
			}
			v := mgl32.Vec3{vec[0], vec[1], vec[2]}
			if fields[0] == "v" {
				positions = append(positions, v.Mul(scale))
			} else {
				normals = append(normals, v)
			}

		case "vt":
			vec, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", name, lineNo, err)
			}
			uvs = append(uvs, mgl32.Vec2{vec[0], vec[1]})

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%s:%d: face needs at least 3 vertices", name, lineNo)
			}
			corners := make([]objCorner, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				c, err := parseCorner(tok, len(positions), len(uvs), len(normals))
				if err != nil {
					return nil, fmt.Errorf("%s:%d: %w", name, lineNo, err)
				}
				corners = append(corners, c)
			}
			for i := 1; i+1 < len(corners); i++ {
				tris = append(tris, [3]objCorner{corners[0], corners[i], corners[i+1]})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan obj %s: %w", name, err)
	}
	if len(tris) == 0 {
		return nil, fmt.Errorf("no geometry found in %q", name)
	}

	vertMap := make(map[objCorner]uint32)
	var vertices []Vertex
	indices := make([]uint32, 0, len(tris)*3)
	for _, tri := range tris {
		for _, c := range tri {
			idx, ok := vertMap[c]
			if !ok {
				v := Vertex{Position: positions[c.v], Normal: mgl32.Vec3{0, 1, 0}}
				if c.vn >= 0 {
					v.Normal = normals[c.vn]
				}
				if c.vt >= 0 {
					v.UV = uvs[c.vt]
				}
				idx = uint32(len(vertices))
				vertices = append(vertices, v)
				vertMap[c] = idx
			}
			indices = append(indices, idx)
		}
	}

	if len(normals) == 0 {
		generateNormals(vertices, indices)
	}
	ComputeTangents(vertices, indices)
	return PackMesh(name, vertices, indices), nil
}

// LoadOBJ reads an OBJ file from disk.
func LoadOBJ(path string, scale float32) (*core.MeshData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj %q: %w", path, err)
	}
	defer f.Close()
	return DecodeOBJ(path, f, scale)
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("expected %d components, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := range out {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", fields[i], err)
		}
		out[i] = float32(f)
	}
	return out, nil
}

// parseCorner parses "v", "v/vt", "v//vn" or "v/vt/vn". Negative OBJ
// indices are relative to the current end of each pool.
func parseCorner(tok string, nv, nvt, nvn int) (objCorner, error) {
	c := objCorner{v: -1, vt: -1, vn: -1}
	parts := strings.Split(tok, "/")
	targets := []*int{&c.v, &c.vt, &c.vn}
	sizes := []int{nv, nvt, nvn}
	for i, p := range parts {
		if i >= len(targets) {
			break
		}
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return c, fmt.Errorf("bad face index %q", tok)
		}
		switch {
		case n > 0:
			n--
		case n < 0:
			n += sizes[i]
		default:
			return c, fmt.Errorf("bad face index %q", tok)
		}
		if n < 0 || n >= sizes[i] {
			return c, fmt.Errorf("face index %q out of range", tok)
		}
		*targets[i] = n
	}
	if c.v < 0 {
		return c, fmt.Errorf("face corner %q has no position", tok)
	}
	return c, nil
}
