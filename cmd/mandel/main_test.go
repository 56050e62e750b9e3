package main

import (
	"bytes"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "mandel "+version+"\n", out)
}

func TestRender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "field.png")
	out, err := execute(t, "render", "10", "50", "--backend", "reference", "--out", path, "--profile")
	require.NoError(t, err)
	assert.Contains(t, out, "on reference")
	assert.Contains(t, out, "kernel:")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Width)
	assert.Equal(t, 20, cfg.Height)
}

func TestRender_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	settings := filepath.Join(dir, "mandel.yaml")
	require.NoError(t, os.WriteFile(settings, []byte("resolution: 4\nmax_iterations: 20\nbackend: cpu\nwrites: async\n"), 0o600))

	path := filepath.Join(dir, "field.bmp")
	out, err := execute(t, "render", "--config", settings, "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "12x8")
	assert.Contains(t, out, "on cpu")
	assert.FileExists(t, path)
}

func TestRender_Invalid(t *testing.T) {
	_, err := execute(t, "render", "ten")
	assert.Error(t, err)

	_, err = execute(t, "render", "10", "50", "--writes", "later")
	assert.Error(t, err)

	_, err = execute(t, "render", "10", "50", "--backend", "opencl", "--out", filepath.Join(t.TempDir(), "x.png"))
	assert.Error(t, err)
}

func TestDevices(t *testing.T) {
	out, err := execute(t, "devices")
	require.NoError(t, err)
	assert.Contains(t, out, "reference")
	assert.Contains(t, out, "host (sequential)")
	assert.Contains(t, out, "cpu")
}
