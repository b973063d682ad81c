package main

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pbr-engine/assets"
	"pbr-engine/config"
	"pbr-engine/ibl"
)

func smallConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.IBL = config.IBLConfig{
		EnvironmentSize:       16,
		EnvironmentMipmaps:    true,
		IrradianceSize:        4,
		PrefilterSize:         8,
		PrefilterLevels:       2,
		BRDFLUTSize:           8,
		IrradianceSampleDelta: 0.2,
		PrefilterSamples:      16,
		BRDFSamples:           16,
	}
	cfg.Output.Dir = t.TempDir()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestToneMap(t *testing.T) {
	assert.Equal(t, uint8(0), toneMap(mgl32.Vec3{}, 1).R)
	assert.Equal(t, uint8(255), toneMap(mgl32.Vec3{1e4, 0, 0}, 1).R)
	assert.Equal(t, uint8(0), toneMap(mgl32.Vec3{-3, 0, 0}, 1).R)

	lo, hi := toneMap(mgl32.Vec3{0.5, 0.5, 0.5}, 1), toneMap(mgl32.Vec3{0.5, 0.5, 0.5}, 4)
	assert.Greater(t, hi.G, lo.G)
	assert.Equal(t, uint8(255), lo.A)
}

func TestSurfaceImageFlipsRows(t *testing.T) {
	s := ibl.NewSurface(1, 2, 2)
	s.Set(0, 0, mgl32.Vec3{1, 0.5, 0})

	img := surfaceImage(s, 1, true)
	assert.Equal(t, uint8(255), img.NRGBAAt(0, 1).R, "bottom row is written last")
	assert.Equal(t, uint8(128), img.NRGBAAt(0, 1).G)
	assert.Zero(t, img.NRGBAAt(0, 0).R)
}

func TestSyntheticSky(t *testing.T) {
	assert.Greater(t, skyRadiance(sunDirection)[0], float32(10))
	up, down := skyRadiance(mgl32.Vec3{0, 1, 0}), skyRadiance(mgl32.Vec3{0, -1, 0})
	assert.Greater(t, up.Len(), down.Len())

	pano := syntheticSky(64, 32)
	assert.Equal(t, 64, pano.Width)
	assert.Equal(t, 32, pano.Height)
	assert.Greater(t, pano.Sample(mgl32.Vec3{0, 1, 0}).Len(), pano.Sample(mgl32.Vec3{0, -1, 0}).Len())
}

func TestBakeAndExport(t *testing.T) {
	cfg := smallConfig(t)
	res, err := bake(cfg, true, zerolog.Nop())
	require.NoError(t, err)
	defer res.Close()

	require.NoError(t, export(context.Background(), res, cfg, zerolog.Nop()))

	out := cfg.Output.Dir
	for _, name := range []string{
		"environment/level0_posx.png",
		"irradiance/level0_negy.png",
		"prefilter/level0_posz.png",
		"prefilter/level1_negz.png",
		"brdf_lut.png",
		"bake.yaml",
	} {
		assert.FileExists(t, filepath.Join(out, name))
	}
	assert.NoFileExists(t, filepath.Join(out, "prefilter", "level2_posx.png"))

	f, err := os.Open(filepath.Join(out, "contact_sheet.png"))
	require.NoError(t, err)
	defer f.Close()
	sheet, err := png.Decode(f)
	require.NoError(t, err)
	// environment, irradiance, two prefilter levels, brdf lut
	assert.Equal(t, 6*sheetTile, sheet.Bounds().Dx())
	assert.Equal(t, 5*sheetTile, sheet.Bounds().Dy())

	saved, err := config.Load(filepath.Join(out, "bake.yaml"))
	require.NoError(t, err)
	assert.Equal(t, cfg.Settings(), saved.Settings())
}

func TestBakeMissingPanorama(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Scene.Panorama = filepath.Join(t.TempDir(), "missing.hdr")
	_, err := bake(cfg, false, zerolog.Nop())

	var loadErr *assets.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "open", loadErr.Reason)
}
