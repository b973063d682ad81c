package assets

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/mdouchement/hdr"
	_ "github.com/mdouchement/hdr/codec/rgbe"

	"pbr-engine/ibl"
)

// LoadError reports why an asset could not be loaded.
type LoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("load %s: %s", e.Path, e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadPanorama decodes an equirectangular panorama into linear float RGB,
// bottom row first. Radiance .hdr files keep their full range; 8-bit
// formats are read as-is in [0,1].
func LoadPanorama(path string) (*ibl.Panorama, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "open", Err: err}
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "decode", Err: err}
	}
	p, err := PanoramaFromImage(img)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: format, Err: err}
	}
	return p, nil
}

// PanoramaFromImage converts a decoded image, flipping rows so that row 0
// is the bottom of the panorama.
func PanoramaFromImage(img image.Image) (*ibl.Panorama, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]float32, 0, w*h*3)

	hdrImg, isHDR := img.(hdr.Image)
	for row := h - 1; row >= 0; row-- {
		y := b.Min.Y + row
		for x := b.Min.X; x < b.Max.X; x++ {
			if isHDR {
				r, g, bl, _ := hdrImg.HDRAt(x, y).HDRRGBA()
				pix = append(pix, float32(r), float32(g), float32(bl))
				continue
			}
			r, g, bl, _ := img.At(x, y).RGBA()
			pix = append(pix, float32(r)/0xffff, float32(g)/0xffff, float32(bl)/0xffff)
		}
	}
	return ibl.NewPanorama(w, h, pix)
}
