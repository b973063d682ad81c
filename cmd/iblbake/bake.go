package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"pbr-engine/assets"
	"pbr-engine/config"
	"pbr-engine/ibl"
	"pbr-engine/internal/software"
)

// Size of the generated panorama used by --synthetic.
const (
	syntheticWidth  = 1024
	syntheticHeight = 512
)

// bakeResult holds a finished bake and the device that stores it.
type bakeResult struct {
	dev      *software.Device
	baker    *ibl.Baker
	panorama ibl.Handle
	products ibl.Products
}

// Close releases the bake products and the panorama.
func (r *bakeResult) Close() {
	r.baker.Destroy()
	r.dev.Release(r.panorama)
}

func bake(cfg *config.Config, synthetic bool, log zerolog.Logger) (*bakeResult, error) {
	var (
		pano *ibl.Panorama
		err  error
	)
	if synthetic {
		pano = syntheticSky(syntheticWidth, syntheticHeight)
		log.Info().Int("width", syntheticWidth).Int("height", syntheticHeight).Msg("using synthetic sky")
	} else {
		pano, err = assets.LoadPanorama(cfg.Scene.Panorama)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.Scene.Panorama).Int("width", pano.Width).Int("height", pano.Height).Msg("panorama loaded")
	}

	dev := software.New(cfg.Window.Width)
	handle, err := dev.UploadPanorama(pano)
	if err != nil {
		return nil, err
	}

	baker, err := ibl.NewBaker(dev, cfg.Settings(),
		ibl.WithLogger(log),
		ibl.WithPanorama(handle),
		ibl.OnTransition(func(from, to ibl.State) {
			log.Debug().Stringer("from", from).Stringer("to", to).Msg("bake state")
		}),
	)
	if err != nil {
		dev.Release(handle)
		return nil, err
	}
	res := &bakeResult{dev: dev, baker: baker, panorama: handle}

	if err := baker.Update(); err != nil {
		res.Close()
		return nil, err
	}
	res.products, err = baker.Products()
	if err != nil {
		res.Close()
		return nil, fmt.Errorf("bake finished in state %s: %w", baker.State(), err)
	}
	for _, t := range baker.Timings() {
		log.Info().Stringer("pass", t.Pass).Dur("took", t.Duration).Msg("pass timing")
	}
	return res, nil
}
