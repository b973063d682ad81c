// Command pbrdemo opens a window showing spheres lit by image-based lighting
// baked on the GPU from an HDR panorama.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pbr-engine/config"
	"pbr-engine/core"
	"pbr-engine/demo"
)

// titleInterval is how often the debug panel is copied to the window title.
const titleInterval = 0.5

func main() {
	var configPath, panorama string

	rootCmd := &cobra.Command{
		Use:   "pbrdemo",
		Short: "Interactive PBR scene with image-based lighting",
		Long: `Renders a grid of spheres lit by four point lights and by irradiance,
prefiltered specular and BRDF maps baked lazily from an HDR panorama.

Keys: WASD/Space/Shift move, right-drag looks, scroll zooms, M grid,
T textures, Q normal map, B bloom, E skybox source, +/- exposure,
R rebake, Esc quit.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if panorama != "" {
				cfg.Scene.Panorama = panorama
			}
			return run(cfg)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default ./pbr.yaml)")
	rootCmd.Flags().StringVarP(&panorama, "panorama", "p", "", "equirectangular .hdr panorama, overrides scene.panorama")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	log := core.NewLogger(cfg.Logging.Level, cfg.Logging.Pretty, os.Stderr)

	winCfg := core.DefaultWindowConfig()
	winCfg.Width = cfg.Window.Width
	winCfg.Height = cfg.Window.Height
	winCfg.Title = cfg.Window.Title
	winCfg.VSync = cfg.Window.VSync
	winCfg.Fullscreen = cfg.Window.Fullscreen

	window, err := core.NewWindow(winCfg)
	if err != nil {
		return err
	}
	defer window.Destroy()

	scene, err := demo.Setup(window, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to set up scene: %w", err)
	}
	defer scene.Destroy()

	log.Info().
		Int("width", winCfg.Width).
		Int("height", winCfg.Height).
		Str("panorama", cfg.Scene.Panorama).
		Msg("demo started")

	last := window.Time()
	lastTitle := last
	for !window.ShouldClose() {
		now := window.Time()
		dt := float32(now - last)
		last = now

		if !scene.Update(window.Snapshot(), now, dt) {
			window.SetShouldClose(true)
		}
		if now-lastTitle >= titleInterval {
			window.SetTitle(scene.Panel().Title())
			log.Trace().Msg(scene.Panel().Text())
			lastTitle = now
		}

		window.SwapBuffers()
		window.PollEvents()
	}

	log.Info().Msg("demo stopped")
	return nil
}
