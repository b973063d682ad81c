package ibl

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Surface is a float image with 2 or 3 channels per texel. Row 0 is the
// bottom row, so (x, y) addressing matches texture coordinates.
type Surface struct {
	Width    int
	Height   int
	Channels int
	Pix      []float32
}

// NewSurface allocates a zeroed surface.
func NewSurface(width, height, channels int) *Surface {
	return &Surface{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]float32, width*height*channels),
	}
}

func (s *Surface) offset(x, y int) int { return (y*s.Width + x) * s.Channels }

// At returns the texel at (x, y) widened to three channels.
func (s *Surface) At(x, y int) mgl32.Vec3 {
	o := s.offset(x, y)
	var c mgl32.Vec3
	copy(c[:], s.Pix[o:o+s.Channels])
	return c
}

// Set writes the first Channels components of c to (x, y).
func (s *Surface) Set(x, y int, c mgl32.Vec3) {
	o := s.offset(x, y)
	copy(s.Pix[o:o+s.Channels], c[:s.Channels])
}

// Fill sets every texel to c.
func (s *Surface) Fill(c mgl32.Vec3) {
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			s.Set(x, y, c)
		}
	}
}

// Bilinear samples the surface at texture coordinates (u, v) with
// clamp-to-edge addressing and texel-centre alignment.
func (s *Surface) Bilinear(u, v float32) mgl32.Vec3 {
	fx := u*float32(s.Width) - 0.5
	fy := v*float32(s.Height) - 0.5
	x0 := int(math32.Floor(fx))
	y0 := int(math32.Floor(fy))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	c00 := s.At(s.clampX(x0), s.clampY(y0))
	c10 := s.At(s.clampX(x0+1), s.clampY(y0))
	c01 := s.At(s.clampX(x0), s.clampY(y0+1))
	c11 := s.At(s.clampX(x0+1), s.clampY(y0+1))

	bottom := c00.Mul(1 - tx).Add(c10.Mul(tx))
	top := c01.Mul(1 - tx).Add(c11.Mul(tx))
	return bottom.Mul(1 - ty).Add(top.Mul(ty))
}

func (s *Surface) clampX(x int) int { return clampInt(x, 0, s.Width-1) }
func (s *Surface) clampY(y int) int { return clampInt(y, 0, s.Height-1) }

// Downsample returns a half-size box-filtered copy, never smaller than 1×1.
func (s *Surface) Downsample() *Surface {
	w := max(s.Width/2, 1)
	h := max(s.Height/2, 1)
	out := NewSurface(w, h, s.Channels)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum mgl32.Vec3
			var n float32
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					sx, sy := 2*x+dx, 2*y+dy
					if sx < s.Width && sy < s.Height {
						sum = sum.Add(s.At(sx, sy))
						n++
					}
				}
			}
			out.Set(x, y, sum.Mul(1/n))
		}
	}
	return out
}

// Panorama is an equirectangular radiance image with RGB float texels,
// stored bottom row first.
type Panorama struct {
	*Surface
}

// NewPanorama wraps an RGB pixel buffer. pix must hold width*height*3 values.
func NewPanorama(width, height int, pix []float32) (*Panorama, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: panorama size %dx%d", ErrPanorama, width, height)
	}
	if len(pix) != width*height*3 {
		return nil, fmt.Errorf("%w: got %d floats for %dx%d RGB", ErrPanorama, len(pix), width, height)
	}
	return &Panorama{Surface: &Surface{Width: width, Height: height, Channels: 3, Pix: pix}}, nil
}

// SolidPanorama returns a panorama of uniform radiance c.
func SolidPanorama(width, height int, c mgl32.Vec3) *Panorama {
	s := NewSurface(width, height, 3)
	s.Fill(c)
	return &Panorama{Surface: s}
}

// Sample returns the radiance seen along dir.
func (p *Panorama) Sample(dir mgl32.Vec3) mgl32.Vec3 {
	uv := EquirectUV(dir.Normalize())
	return p.Bilinear(uv[0], uv[1])
}

// Cubemap is a CPU cubemap with a mip chain. Faces[level][face].
type Cubemap struct {
	Size     int
	Channels int
	Faces    [][FaceCount]*Surface
}

// NewCubemap allocates a cubemap with the given base size and level count.
func NewCubemap(size, levels, channels int) *Cubemap {
	c := &Cubemap{Size: size, Channels: channels, Faces: make([][FaceCount]*Surface, levels)}
	for l := range c.Faces {
		ls := LevelSize(size, l)
		for f := range c.Faces[l] {
			c.Faces[l][f] = NewSurface(ls, ls, channels)
		}
	}
	return c
}

// Levels reports the number of mip levels.
func (c *Cubemap) Levels() int { return len(c.Faces) }

// Face returns one face of one level.
func (c *Cubemap) Face(level int, f CubeFace) *Surface { return c.Faces[level][f] }

// Sample bilinearly samples a single level along dir.
func (c *Cubemap) Sample(dir mgl32.Vec3, level int) mgl32.Vec3 {
	level = clampInt(level, 0, len(c.Faces)-1)
	f, s, t := DirectionToFace(dir)
	return c.Faces[level][f].Bilinear(s, t)
}

// SampleLod blends the two levels around lod (trilinear filtering).
func (c *Cubemap) SampleLod(dir mgl32.Vec3, lod float32) mgl32.Vec3 {
	maxLevel := float32(len(c.Faces) - 1)
	lod = mgl32.Clamp(lod, 0, maxLevel)
	l0 := int(math32.Floor(lod))
	frac := lod - float32(l0)
	if frac == 0 || l0 >= len(c.Faces)-1 {
		return c.Sample(dir, l0)
	}
	a := c.Sample(dir, l0)
	b := c.Sample(dir, l0+1)
	return a.Mul(1 - frac).Add(b.Mul(frac))
}

// GenerateMipmaps rebuilds levels 1..n-1 from level 0 with a box filter.
func (c *Cubemap) GenerateMipmaps() {
	for l := 1; l < len(c.Faces); l++ {
		for f := range c.Faces[l] {
			c.Faces[l][f] = c.Faces[l-1][f].Downsample()
		}
	}
}

// LevelSize is the edge length of mip level l for a base size.
func LevelSize(base, level int) int {
	return max(base>>level, 1)
}

// MipCount is the full mip chain length for a base size.
func MipCount(size int) int {
	n := 1
	for size > 1 {
		size >>= 1
		n++
	}
	return n
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
