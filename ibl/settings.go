package ibl

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Settings sizes every bake product and tunes the convolution kernels.
//
// PrefilterSamples and BRDFSamples trade startup time for noise: 1024 GGX
// samples keep fireflies out of the rough levels of a 128² prefilter map,
// 256 are visibly noisy on high-contrast panoramas. IrradianceSampleDelta is
// the angular grid step in radians; 0.025 gives ~15k taps per texel and
// halving it quadruples the cost with no visible change at 32².
type Settings struct {
	EnvironmentSize    int
	EnvironmentMipmaps bool
	IrradianceSize     int
	PrefilterSize      int
	PrefilterLevels    int
	BRDFLUTSize        int

	IrradianceSampleDelta float32
	PrefilterSamples      int
	BRDFSamples           int
}

// DefaultSettings returns the production bake configuration.
func DefaultSettings() Settings {
	return Settings{
		EnvironmentSize:       512,
		EnvironmentMipmaps:    true,
		IrradianceSize:        32,
		PrefilterSize:         128,
		PrefilterLevels:       5,
		BRDFLUTSize:           512,
		IrradianceSampleDelta: 0.025,
		PrefilterSamples:      1024,
		BRDFSamples:           1024,
	}
}

// EnvironmentLevels is the mip count allocated for the environment cubemap.
func (s Settings) EnvironmentLevels() int {
	if !s.EnvironmentMipmaps {
		return 1
	}
	return MipCount(s.EnvironmentSize)
}

// PrefilterRoughness is the roughness encoded by prefilter level m.
func (s Settings) PrefilterRoughness(level int) float32 {
	if s.PrefilterLevels <= 1 {
		return 0
	}
	r := float32(level) / float32(s.PrefilterLevels-1)
	return math32.Min(math32.Max(r, 0), 1)
}

// Validate checks sizes and sample parameters.
func (s Settings) Validate() error {
	for name, size := range map[string]int{
		"environment size": s.EnvironmentSize,
		"irradiance size":  s.IrradianceSize,
		"prefilter size":   s.PrefilterSize,
		"brdf lut size":    s.BRDFLUTSize,
	} {
		if size <= 0 || size&(size-1) != 0 {
			return fmt.Errorf("%w: %s %d is not a power of two", ErrInvalidSettings, name, size)
		}
	}
	if s.PrefilterLevels < 1 || s.PrefilterLevels > MipCount(s.PrefilterSize) {
		return fmt.Errorf("%w: %d prefilter levels for base size %d", ErrInvalidSettings, s.PrefilterLevels, s.PrefilterSize)
	}
	if s.IrradianceSampleDelta <= 0 || s.IrradianceSampleDelta >= math32.Pi/2 {
		return fmt.Errorf("%w: irradiance sample delta %g", ErrInvalidSettings, s.IrradianceSampleDelta)
	}
	if s.PrefilterSamples <= 0 || s.BRDFSamples <= 0 {
		return fmt.Errorf("%w: sample counts must be positive", ErrInvalidSettings)
	}
	return nil
}
