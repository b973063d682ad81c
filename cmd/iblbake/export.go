package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"pbr-engine/config"
	"pbr-engine/ibl"
)

// sheetTile is the edge length of one face in the contact sheet.
const sheetTile = 128

const displayGamma = 1 / 2.2

var faceFiles = [ibl.FaceCount]string{"posx", "negx", "posy", "negy", "posz", "negz"}

type imageJob struct {
	path string
	img  image.Image
}

// toneMap applies exposure tone mapping and display gamma to an HDR
// radiance value.
func toneMap(c mgl32.Vec3, exposure float32) color.NRGBA {
	var out [3]uint8
	for i := range out {
		v := 1 - math32.Exp(-math32.Max(c[i], 0)*exposure)
		out[i] = unorm8(math32.Pow(v, displayGamma))
	}
	return color.NRGBA{R: out[0], G: out[1], B: out[2], A: 255}
}

func unorm8(v float32) uint8 {
	return uint8(mgl32.Clamp(v, 0, 1)*255 + 0.5)
}

// surfaceImage converts a surface to an 8-bit image, top row first. Linear
// surfaces such as the BRDF LUT are stored as is; radiance is tone mapped.
func surfaceImage(s *ibl.Surface, exposure float32, linear bool) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, s.Width, s.Height))
	for y := 0; y < s.Height; y++ {
		row := s.Height - 1 - y
		for x := 0; x < s.Width; x++ {
			c := s.At(x, row)
			if linear {
				img.SetNRGBA(x, y, color.NRGBA{R: unorm8(c[0]), G: unorm8(c[1]), B: unorm8(c[2]), A: 255})
				continue
			}
			img.SetNRGBA(x, y, toneMap(c, exposure))
		}
	}
	return img
}

// cubeJobs emits one image per face for levels [0, levels).
func cubeJobs(dir string, cube *ibl.Cubemap, levels int, exposure float32) []imageJob {
	var jobs []imageJob
	for level := 0; level < min(levels, cube.Levels()); level++ {
		for _, f := range ibl.Faces {
			jobs = append(jobs, imageJob{
				path: filepath.Join(dir, fmt.Sprintf("level%d_%s.png", level, faceFiles[f])),
				img:  surfaceImage(cube.Face(level, f), exposure, false),
			})
		}
	}
	return jobs
}

// contactSheet lays out one row of six faces per cube level, followed by
// the BRDF LUT.
func contactSheet(rows [][]image.Image) *image.NRGBA {
	sheet := image.NewNRGBA(image.Rect(0, 0, ibl.FaceCount*sheetTile, len(rows)*sheetTile))
	xdraw.Draw(sheet, sheet.Bounds(), image.NewUniform(color.NRGBA{A: 255}), image.Point{}, xdraw.Src)
	for r, row := range rows {
		for c, img := range row {
			dst := image.Rect(c*sheetTile, r*sheetTile, (c+1)*sheetTile, (r+1)*sheetTile)
			xdraw.BiLinear.Scale(sheet, dst, img, img.Bounds(), xdraw.Src, nil)
		}
	}
	return sheet
}

func export(ctx context.Context, res *bakeResult, cfg *config.Config, log zerolog.Logger) error {
	out := cfg.Output.Dir
	exposure := cfg.Output.Exposure
	p := res.products

	env, err := res.dev.Cubemap(p.Environment)
	if err != nil {
		return err
	}
	irr, err := res.dev.Cubemap(p.Irradiance)
	if err != nil {
		return err
	}
	pre, err := res.dev.Cubemap(p.Prefilter)
	if err != nil {
		return err
	}
	lut, err := res.dev.Image(p.BRDFLUT, 0)
	if err != nil {
		return err
	}

	envJobs := cubeJobs(filepath.Join(out, "environment"), env, 1, exposure)
	irrJobs := cubeJobs(filepath.Join(out, "irradiance"), irr, 1, exposure)
	preJobs := cubeJobs(filepath.Join(out, "prefilter"), pre, p.PrefilterLevels, exposure)
	lutImg := surfaceImage(lut, 1, true)

	jobs := append(append(append([]imageJob{}, envJobs...), irrJobs...), preJobs...)
	jobs = append(jobs, imageJob{path: filepath.Join(out, "brdf_lut.png"), img: lutImg})

	if cfg.Output.ContactSheet {
		var rows [][]image.Image
		for _, group := range [][]imageJob{envJobs, irrJobs, preJobs} {
			for i := 0; i < len(group); i += ibl.FaceCount {
				row := make([]image.Image, 0, ibl.FaceCount)
				for _, j := range group[i : i+ibl.FaceCount] {
					row = append(row, j.img)
				}
				rows = append(rows, row)
			}
		}
		rows = append(rows, []image.Image{lutImg})
		jobs = append(jobs, imageJob{path: filepath.Join(out, "contact_sheet.png"), img: contactSheet(rows)})
	}

	if err := writeImages(ctx, jobs); err != nil {
		return err
	}
	if err := cfg.SaveToFile(filepath.Join(out, "bake.yaml")); err != nil {
		return err
	}
	log.Info().Int("images", len(jobs)).Str("dir", out).Msg("bake written")
	return nil
}

// writeImages encodes every job concurrently, stopping at the first error.
func writeImages(ctx context.Context, jobs []imageJob) error {
	dirs := make(map[string]struct{})
	for _, j := range jobs {
		dirs[filepath.Dir(j.path)] = struct{}{}
	}
	for dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return writePNG(j.path, j.img)
		})
	}
	return g.Wait()
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
