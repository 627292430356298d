package main

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func TestCheckerboard(t *testing.T) {
	img := checkerboard(16, 4)
	assert.Equal(t, image.Rect(0, 0, 16, 16), img.Bounds())
	assert.Equal(t, uint8(255), img.NRGBAAt(0, 0).A)
	assert.Equal(t, uint8(128), img.NRGBAAt(4, 0).A)
	assert.Equal(t, uint8(128), img.NRGBAAt(0, 4).A)
	assert.Equal(t, uint8(255), img.NRGBAAt(4, 4).A)
}

func TestFitQuad(t *testing.T) {
	testCases := []struct {
		name          string
		width, height int
		extent        core1_0.Extent2D
		quadW, quadH  float32
	}{
		{"square in square", 64, 64, core1_0.Extent2D{Width: 600, Height: 600}, 1.8, 1.8},
		{"wide image", 200, 100, core1_0.Extent2D{Width: 800, Height: 800}, 1.8, 0.9},
		{"tall image", 100, 200, core1_0.Extent2D{Width: 800, Height: 800}, 0.9, 1.8},
		{"square in wide window", 64, 64, core1_0.Extent2D{Width: 800, Height: 400}, 0.9, 1.8},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			vertices := fitQuad(tc.width, tc.height, tc.extent)
			topLeft, bottomRight := vertices[0].Position, vertices[3].Position
			assert.InDelta(t, tc.quadW, bottomRight.X()-topLeft.X(), 1e-5)
			assert.InDelta(t, tc.quadH, bottomRight.Y()-topLeft.Y(), 1e-5)
			assert.InDelta(t, 0, bottomRight.X()+topLeft.X(), 1e-5)
			assert.InDelta(t, 0, bottomRight.Y()+topLeft.Y(), 1e-5)
		})
	}
}

func TestLoadAssets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quad.vert.spv"), []byte{3, 2, 0x23, 7}, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quad.frag.spv"), []byte{3, 2, 0x23, 7, 0, 0, 1, 0}, 0644))

	imagePath := filepath.Join(dir, "image.png")
	file, err := os.Create(imagePath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(file, checkerboard(8, 2)))
	require.NoError(t, file.Close())

	config := DefaultConfig()
	config.ShaderDir = dir
	config.Image = imagePath

	loaded, err := loadAssets(config)
	require.NoError(t, err)
	assert.Len(t, loaded.vertexSPIRV, 4)
	assert.Len(t, loaded.fragmentSPIRV, 8)
	assert.Equal(t, image.Rect(0, 0, 8, 8), loaded.image.Bounds())

	config.Image = ""
	loaded, err = loadAssets(config)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 256, 256), loaded.image.Bounds())

	config.ShaderDir = filepath.Join(dir, "missing")
	_, err = loadAssets(config)
	assert.ErrorContains(t, err, "shader")
}
