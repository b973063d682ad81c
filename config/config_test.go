package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pbr-engine/ibl"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ibl.DefaultSettings(), cfg.Settings())
	assert.Len(t, cfg.Scene.Lights, 4)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.IBL.EnvironmentSize)
	assert.Equal(t, 7, cfg.Scene.SphereCount)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pbr.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ibl:
  prefilter_samples: 256
  irradiance_size: 16
scene:
  exposure: 2.5
  lights:
    - position: [0, 5, 0]
      color: [10, 10, 10]
    - position: [1, 1, 1]
      color: [5, 5, 5]
      attenuation: [1, 0.09, 0.032]
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.IBL.PrefilterSamples)
	assert.Equal(t, 16, cfg.Settings().IrradianceSize)
	assert.Equal(t, 128, cfg.IBL.PrefilterSize)
	assert.Equal(t, float32(2.5), cfg.Scene.Exposure)
	require.Len(t, cfg.Scene.Lights, 2)
	assert.Equal(t, [3]float32{0, 5, 0}, cfg.Scene.Lights[0].Position)
	assert.Zero(t, cfg.Scene.Lights[0].Attenuation)
	assert.Equal(t, [3]float32{1, 0.09, 0.032}, cfg.Scene.Lights[1].Attenuation)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("PBR_IBL_BRDF_LUT_SIZE", "256")
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.IBL.BRDFLUTSize)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ibl:\n  prefilter_size: 100\n"), 0o644))
	_, err := Load(path)
	assert.ErrorIs(t, err, ibl.ErrInvalidSettings)

	cfg := Default()
	cfg.Logging.Level = "loud"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Scene.Lights[2].Attenuation = [3]float32{0, -1, 1}
	assert.ErrorContains(t, cfg.Validate(), "light 2")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pbr.yaml")
	cfg := Default()
	cfg.IBL.PrefilterLevels = 4
	cfg.Output.Dir = "bakes"
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.IBL.PrefilterLevels)
	assert.Equal(t, "bakes", loaded.Output.Dir)
	assert.Equal(t, cfg.Scene.Lights, loaded.Scene.Lights)
}
