// Package assets loads textures, meshes and HDR panoramas from disk and
// builds the procedural primitives used by the IBL passes.
package assets

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"pbr-engine/core"
)

type textureKey struct {
	path  string
	flags TextureFlags
}

type meshKey struct {
	path  string
	scale float32
}

// Cache memoizes decoded textures and meshes. It is safe for concurrent use.
type Cache struct {
	textures map[textureKey]*Texture
	meshes   map[meshKey]*core.MeshData
	mu       sync.RWMutex
	log      zerolog.Logger
}

// NewCache creates an empty cache.
func NewCache(log zerolog.Logger) *Cache {
	return &Cache{
		textures: make(map[textureKey]*Texture),
		meshes:   make(map[meshKey]*core.MeshData),
		log:      log.With().Str("component", "assets").Logger(),
	}
}

// LoadTexture decodes path, returning the cached copy if the same path was
// already loaded with the same flags.
func (c *Cache) LoadTexture(path string, flags TextureFlags) (*Texture, error) {
	key := textureKey{path: path, flags: flags}
	c.mu.RLock()
	if tex, ok := c.textures[key]; ok {
		c.mu.RUnlock()
		return tex, nil
	}
	c.mu.RUnlock()

	tex, err := DecodeTexture(path, flags)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "texture", Err: err}
	}
	c.log.Debug().Str("path", path).Int("width", tex.Width).Int("height", tex.Height).Msg("texture loaded")

	c.mu.Lock()
	if existing, ok := c.textures[key]; ok {
		tex = existing
	} else {
		c.textures[key] = tex
	}
	c.mu.Unlock()
	return tex, nil
}

// TextureOrDefault loads path, falling back to a 1x1 texture of the given
// color when the file is missing or cannot be decoded.
func (c *Cache) TextureOrDefault(path string, flags TextureFlags, r, g, b uint8) *Texture {
	if path != "" {
		tex, err := c.LoadTexture(path, flags)
		if err == nil {
			return tex
		}
		c.log.Warn().Err(err).Msg("using fallback texture")
	}

	key := textureKey{path: fmt.Sprintf("__solid_%02x%02x%02x__", r, g, b)}
	c.mu.Lock()
	defer c.mu.Unlock()
	if tex, ok := c.textures[key]; ok {
		return tex
	}
	tex := NewSolidTexture(key.path, r, g, b, 255)
	c.textures[key] = tex
	return tex
}

// LoadObj loads a mesh (OBJ, or glTF by extension) with positions scaled
// by scale, and returns it with its vertex count.
func (c *Cache) LoadObj(path string, scale float32) (*core.MeshData, int, error) {
	key := meshKey{path: path, scale: scale}
	c.mu.RLock()
	if m, ok := c.meshes[key]; ok {
		c.mu.RUnlock()
		return m, m.VertexCount(), nil
	}
	c.mu.RUnlock()

	var (
		mesh *core.MeshData
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
		mesh, err = LoadGLTFMesh(path, scale)
	default:
		mesh, err = LoadOBJ(path, scale)
	}
	if err != nil {
		return nil, 0, &LoadError{Path: path, Reason: "mesh", Err: err}
	}
	c.log.Debug().Str("path", path).Int("vertices", mesh.VertexCount()).Int("indices", len(mesh.Indices)).Msg("mesh loaded")

	c.mu.Lock()
	c.meshes[key] = mesh
	c.mu.Unlock()
	return mesh, mesh.VertexCount(), nil
}

// Len reports the number of cached textures and meshes.
func (c *Cache) Len() (textures, meshes int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.textures), len(c.meshes)
}

// Clear drops every cached entry. GPU copies are owned by the renderer.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.textures = make(map[textureKey]*Texture)
	c.meshes = make(map[meshKey]*core.MeshData)
}
