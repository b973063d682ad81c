// Package config loads the YAML configuration shared by the demo and the
// offline bake tool.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pbr-engine/ibl"
)

// Config is the root configuration.
type Config struct {
	Window  WindowConfig  `mapstructure:"window" yaml:"window"`
	IBL     IBLConfig     `mapstructure:"ibl" yaml:"ibl"`
	Scene   SceneConfig   `mapstructure:"scene" yaml:"scene"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
}

// WindowConfig sizes the demo window.
type WindowConfig struct {
	Width      int    `mapstructure:"width" yaml:"width"`
	Height     int    `mapstructure:"height" yaml:"height"`
	Title      string `mapstructure:"title" yaml:"title"`
	VSync      bool   `mapstructure:"vsync" yaml:"vsync"`
	Fullscreen bool   `mapstructure:"fullscreen" yaml:"fullscreen"`
}

// IBLConfig mirrors ibl.Settings.
type IBLConfig struct {
	EnvironmentSize       int     `mapstructure:"environment_size" yaml:"environment_size"`
	EnvironmentMipmaps    bool    `mapstructure:"environment_mipmaps" yaml:"environment_mipmaps"`
	IrradianceSize        int     `mapstructure:"irradiance_size" yaml:"irradiance_size"`
	PrefilterSize         int     `mapstructure:"prefilter_size" yaml:"prefilter_size"`
	PrefilterLevels       int     `mapstructure:"prefilter_levels" yaml:"prefilter_levels"`
	BRDFLUTSize           int     `mapstructure:"brdf_lut_size" yaml:"brdf_lut_size"`
	IrradianceSampleDelta float32 `mapstructure:"irradiance_sample_delta" yaml:"irradiance_sample_delta"`
	PrefilterSamples      int     `mapstructure:"prefilter_samples" yaml:"prefilter_samples"`
	BRDFSamples           int     `mapstructure:"brdf_samples" yaml:"brdf_samples"`
}

// SceneConfig drives the PBR demo scene.
type SceneConfig struct {
	Panorama    string        `mapstructure:"panorama" yaml:"panorama"`
	SphereModel string        `mapstructure:"sphere_model" yaml:"sphere_model"`
	TextureDir  string        `mapstructure:"texture_dir" yaml:"texture_dir"`
	Textured    bool          `mapstructure:"textured" yaml:"textured"`
	MultiSphere bool          `mapstructure:"multi_sphere" yaml:"multi_sphere"`
	SphereCount int           `mapstructure:"sphere_count" yaml:"sphere_count"`
	Margin      float32       `mapstructure:"margin" yaml:"margin"`
	OffsetZ     float32       `mapstructure:"offset_z" yaml:"offset_z"`
	Exposure    float32       `mapstructure:"exposure" yaml:"exposure"`
	Skybox      bool          `mapstructure:"skybox" yaml:"skybox"`
	Bloom       bool          `mapstructure:"bloom" yaml:"bloom"`
	Lights      []LightConfig `mapstructure:"lights" yaml:"lights"`
}

// LightConfig is one point light. Attenuation holds the constant, linear
// and quadratic falloff terms; all zero means inverse square.
type LightConfig struct {
	Position    [3]float32 `mapstructure:"position" yaml:"position"`
	Color       [3]float32 `mapstructure:"color" yaml:"color"`
	Attenuation [3]float32 `mapstructure:"attenuation" yaml:"attenuation,omitempty"`
}

// LoggingConfig selects the log level and format.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"`
}

// OutputConfig controls what the offline baker writes.
type OutputConfig struct {
	Dir          string  `mapstructure:"dir" yaml:"dir"`
	ContactSheet bool    `mapstructure:"contact_sheet" yaml:"contact_sheet"`
	Exposure     float32 `mapstructure:"exposure" yaml:"exposure"`
}

// Default returns the built-in configuration.
func Default() *Config {
	s := ibl.DefaultSettings()
	return &Config{
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			Title:  "PBR + IBL",
			VSync:  true,
		},
		IBL: IBLConfig{
			EnvironmentSize:       s.EnvironmentSize,
			EnvironmentMipmaps:    s.EnvironmentMipmaps,
			IrradianceSize:        s.IrradianceSize,
			PrefilterSize:         s.PrefilterSize,
			PrefilterLevels:       s.PrefilterLevels,
			BRDFLUTSize:           s.BRDFLUTSize,
			IrradianceSampleDelta: s.IrradianceSampleDelta,
			PrefilterSamples:      s.PrefilterSamples,
			BRDFSamples:           s.BRDFSamples,
		},
		Scene: SceneConfig{
			Panorama:    "assets/hdr/newport_loft.hdr",
			SphereModel: "assets/models/sphere.obj",
			TextureDir:  "assets/textures/rustediron",
			Textured:    false,
			MultiSphere: true,
			SphereCount: 7,
			Margin:      3,
			OffsetZ:     -20,
			Exposure:    1,
			Skybox:      true,
			Lights: []LightConfig{
				{Position: [3]float32{-10, 10, 5}, Color: [3]float32{50, 50, 50}, Attenuation: [3]float32{0, 0, 1}},
				{Position: [3]float32{10, 10, 5}, Color: [3]float32{50, 50, 50}, Attenuation: [3]float32{0, 0, 1}},
				{Position: [3]float32{-10, -10, 5}, Color: [3]float32{50, 50, 50}, Attenuation: [3]float32{0, 0, 1}},
				{Position: [3]float32{10, -10, 5}, Color: [3]float32{50, 50, 50}, Attenuation: [3]float32{0, 0, 1}},
			},
		},
		Logging: LoggingConfig{Level: "info", Pretty: true},
		Output:  OutputConfig{Dir: "out", ContactSheet: true, Exposure: 1},
	}
}

// Load reads configuration from path (or ./pbr.yaml when empty), with
// PBR_-prefixed environment variables taking precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PBR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pbr")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveToFile writes the configuration as YAML, creating parent directories.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("invalid window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if err := c.Settings().Validate(); err != nil {
		return err
	}
	if c.Scene.SphereCount <= 0 {
		return fmt.Errorf("sphere_count must be positive, got %d", c.Scene.SphereCount)
	}
	if c.Scene.Exposure <= 0 || c.Output.Exposure <= 0 {
		return fmt.Errorf("exposure must be positive")
	}
	for i, l := range c.Scene.Lights {
		if l.Attenuation[0] < 0 || l.Attenuation[1] < 0 || l.Attenuation[2] < 0 {
			return fmt.Errorf("light %d: attenuation terms must be non-negative, got %v", i, l.Attenuation)
		}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be trace, debug, info, warn or error)", c.Logging.Level)
	}
	return nil
}

// Settings converts the ibl section into bake settings.
func (c *Config) Settings() ibl.Settings {
	return ibl.Settings{
		EnvironmentSize:       c.IBL.EnvironmentSize,
		EnvironmentMipmaps:    c.IBL.EnvironmentMipmaps,
		IrradianceSize:        c.IBL.IrradianceSize,
		PrefilterSize:         c.IBL.PrefilterSize,
		PrefilterLevels:       c.IBL.PrefilterLevels,
		BRDFLUTSize:           c.IBL.BRDFLUTSize,
		IrradianceSampleDelta: c.IBL.IrradianceSampleDelta,
		PrefilterSamples:      c.IBL.PrefilterSamples,
		BRDFSamples:           c.IBL.BRDFSamples,
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("window.width", d.Window.Width)
	v.SetDefault("window.height", d.Window.Height)
	v.SetDefault("window.title", d.Window.Title)
	v.SetDefault("window.vsync", d.Window.VSync)
	v.SetDefault("window.fullscreen", d.Window.Fullscreen)

	v.SetDefault("ibl.environment_size", d.IBL.EnvironmentSize)
	v.SetDefault("ibl.environment_mipmaps", d.IBL.EnvironmentMipmaps)
	v.SetDefault("ibl.irradiance_size", d.IBL.IrradianceSize)
	v.SetDefault("ibl.prefilter_size", d.IBL.PrefilterSize)
	v.SetDefault("ibl.prefilter_levels", d.IBL.PrefilterLevels)
	v.SetDefault("ibl.brdf_lut_size", d.IBL.BRDFLUTSize)
	v.SetDefault("ibl.irradiance_sample_delta", d.IBL.IrradianceSampleDelta)
	v.SetDefault("ibl.prefilter_samples", d.IBL.PrefilterSamples)
	v.SetDefault("ibl.brdf_samples", d.IBL.BRDFSamples)

	v.SetDefault("scene.panorama", d.Scene.Panorama)
	v.SetDefault("scene.sphere_model", d.Scene.SphereModel)
	v.SetDefault("scene.texture_dir", d.Scene.TextureDir)
	v.SetDefault("scene.textured", d.Scene.Textured)
	v.SetDefault("scene.multi_sphere", d.Scene.MultiSphere)
	v.SetDefault("scene.sphere_count", d.Scene.SphereCount)
	v.SetDefault("scene.margin", d.Scene.Margin)
	v.SetDefault("scene.offset_z", d.Scene.OffsetZ)
	v.SetDefault("scene.exposure", d.Scene.Exposure)
	v.SetDefault("scene.skybox", d.Scene.Skybox)
	v.SetDefault("scene.bloom", d.Scene.Bloom)
	v.SetDefault("scene.lights", d.Scene.Lights)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.pretty", d.Logging.Pretty)

	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.contact_sheet", d.Output.ContactSheet)
	v.SetDefault("output.exposure", d.Output.Exposure)
}
