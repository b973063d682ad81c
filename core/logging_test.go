package core

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("warn", false, &buf)
	log.Info().Msg("hidden")
	log.Warn().Str("pass", "irradiance").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "irradiance", entry["pass"])
}

func TestNewLoggerDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("bogus", false, &buf)
	log.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
	log.Info().Msg("shown")
	assert.NotZero(t, buf.Len())
}

func TestMeshDataValidate(t *testing.T) {
	m := &MeshData{Name: "tri", Layout: LayoutPosition, Vertices: make([]float32, 9), Indices: []uint32{0, 1, 2}}
	require.NoError(t, m.Validate())
	assert.Equal(t, 3, m.VertexCount())
	assert.Equal(t, 3, m.DrawCount())

	m.Indices = append(m.Indices, 3)
	assert.Error(t, m.Validate())

	m.Vertices = m.Vertices[:8]
	assert.Error(t, m.Validate())
}
