package assets

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// TextureFlags select load-time conversions.
type TextureFlags uint32

const (
	// FlagFlipY stores the image bottom row first, matching GL texture
	// coordinates for top-down image formats.
	FlagFlipY TextureFlags = 1 << iota
	// FlagMipmaps requests a full mip chain on upload.
	FlagMipmaps
)

func (f TextureFlags) Has(flag TextureFlags) bool { return f&flag != 0 }

// Texture holds CPU-side RGBA8 pixel data for a 2D texture.
// GLID is set by the OpenGL backend after upload.
type Texture struct {
	Name   string
	Width  int
	Height int
	Flags  TextureFlags
	// Pixels in RGBA8 format, row-major.
	Pixels []byte
	GLID   uint32
}

// DecodeTexture reads a PNG or JPEG file into an RGBA8 texture.
func DecodeTexture(path string, flags TextureFlags) (*Texture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open texture %q: %w", path, err)
	}
	return decodeImageBytes(path, data, flags)
}

func decodeImageBytes(name string, data []byte, flags TextureFlags) (*Texture, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode texture %q: %w", name, err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	if flags.Has(FlagFlipY) {
		flipRows(rgba.Pix, rgba.Stride, bounds.Dy())
	}

	return &Texture{
		Name:   name,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Flags:  flags,
		Pixels: rgba.Pix,
	}, nil
}

// NewSolidTexture creates a 1x1 texture with the given RGBA color values (0–255).
func NewSolidTexture(name string, r, g, b, a uint8) *Texture {
	return &Texture{
		Name:   name,
		Width:  1,
		Height: 1,
		Pixels: []byte{r, g, b, a},
	}
}

func flipRows(pix []byte, stride, rows int) {
	tmp := make([]byte, stride)
	for top, bottom := 0, rows-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := pix[top*stride : (top+1)*stride]
		b := pix[bottom*stride : (bottom+1)*stride]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}
