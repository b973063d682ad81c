// Command iblbake runs the image-based lighting bake on the CPU and writes
// every product as tone-mapped PNG images.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pbr-engine/config"
	"pbr-engine/core"
)

var version = "dev"

func main() {
	var (
		configPath string
		panorama   string
		outDir     string
		synthetic  bool
	)

	rootCmd := &cobra.Command{
		Use:   "iblbake",
		Short: "Bake irradiance, prefiltered specular and BRDF maps offline",
		Long: `Projects an equirectangular HDR panorama onto a cubemap, convolves the
diffuse irradiance map, prefilters the specular mip chain and integrates the
BRDF lookup table on the CPU. Every face of every level is written as a
tone-mapped PNG, together with an optional contact sheet.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if panorama != "" {
				cfg.Scene.Panorama = panorama
			}
			if outDir != "" {
				cfg.Output.Dir = outDir
			}
			log := core.NewLogger(cfg.Logging.Level, cfg.Logging.Pretty, os.Stderr)

			res, err := bake(cfg, synthetic, log)
			if err != nil {
				return err
			}
			defer res.Close()
			return export(cmd.Context(), res, cfg, log)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default ./pbr.yaml)")
	rootCmd.Flags().StringVarP(&panorama, "panorama", "p", "", "equirectangular .hdr panorama, overrides scene.panorama")
	rootCmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory, overrides output.dir")
	rootCmd.Flags().BoolVar(&synthetic, "synthetic", false, "bake a generated sky instead of loading a panorama")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
