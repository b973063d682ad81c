package ibl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())
	assert.Equal(t, 512, s.EnvironmentSize)
	assert.Equal(t, 32, s.IrradianceSize)
	assert.Equal(t, 128, s.PrefilterSize)
	assert.Equal(t, 5, s.PrefilterLevels)
	assert.Equal(t, 10, s.EnvironmentLevels())
}

func TestPrefilterRoughness(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, float32(0), s.PrefilterRoughness(0))
	assert.Equal(t, float32(0.25), s.PrefilterRoughness(1))
	assert.Equal(t, float32(1), s.PrefilterRoughness(4))
	assert.Equal(t, float32(1), s.PrefilterRoughness(7))
}

func TestSettingsValidate(t *testing.T) {
	cases := map[string]func(*Settings){
		"non power of two": func(s *Settings) { s.IrradianceSize = 30 },
		"too many levels":  func(s *Settings) { s.PrefilterLevels = 9 },
		"zero levels":      func(s *Settings) { s.PrefilterLevels = 0 },
		"zero delta":       func(s *Settings) { s.IrradianceSampleDelta = 0 },
		"zero samples":     func(s *Settings) { s.BRDFSamples = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := DefaultSettings()
			mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidSettings)
		})
	}
}

func TestTextureUnits(t *testing.T) {
	units := TextureUnits()
	require.Len(t, units, 8)
	seen := map[string]bool{}
	for i, u := range units {
		assert.Equal(t, TextureUnit(i), u)
		assert.NotEmpty(t, u.Sampler())
		assert.False(t, seen[u.Sampler()], "duplicate sampler %s", u.Sampler())
		seen[u.Sampler()] = true
	}
	assert.Equal(t, TextureUnit(0), UnitAlbedo)
	assert.True(t, UnitAO.IsMaterial())
	assert.False(t, UnitIrradiance.IsMaterial())
	assert.Equal(t, UnitIrradiance+1, UnitPrefilter)
	assert.Equal(t, UnitPrefilter+1, UnitBRDFLUT)
}

func TestProgramSourceDefines(t *testing.T) {
	srcs := ProgramSources(DefaultSettings())
	assert.Empty(t, srcs[ProgramEquirect].Defines())
	assert.Equal(t, []string{"#define SAMPLE_DELTA 0.025000\n"}, srcs[ProgramIrradiance].Defines())
	assert.Equal(t, []string{"#define SAMPLE_COUNT 1024u\n"}, srcs[ProgramPrefilter].Defines())
	assert.Contains(t, srcs[ProgramBRDF].Fragment, "integrateBRDF")
}
