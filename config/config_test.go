package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[window]
width = 640
title = "demo"

[renderer]
clear_color = [0.1, 0.2, 0.3, 1.0]
pick_region = false
max_texture_units = 8

[log]
level = "debug"
`))
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height, "unset keys keep defaults")
	assert.Equal(t, "demo", cfg.Window.Title)
	assert.Equal(t, mgl32.Vec4{0.1, 0.2, 0.3, 1}, cfg.Renderer.ClearColor)
	assert.False(t, cfg.Renderer.PickRegion)
	assert.True(t, cfg.Renderer.ValidatePrograms)
	assert.Equal(t, 8, cfg.Renderer.MaxTextureUnits)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("[renderer]\nshadows = true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shadows")
}

func TestParseValidates(t *testing.T) {
	_, err := Parse([]byte("[window]\nwidth = 0\n"))
	assert.ErrorContains(t, err, "window size")
}

func TestLoad(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "xeogl.toml")
	require.NoError(t, os.WriteFile(path, []byte("[renderer]\nclear_each_pass = true\n"), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Renderer.ClearEachPass)

	require.NoError(t, os.WriteFile(path, []byte("not toml ="), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, path)
}
