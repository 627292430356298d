package main

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/quad/quad"
	"golang.org/x/sync/errgroup"
)

type assets struct {
	vertexSPIRV   []byte
	fragmentSPIRV []byte
	image         image.Image
}

// loadAssets reads both shaders and decodes the image in parallel.
func loadAssets(config Config) (*assets, error) {
	var a assets
	var g errgroup.Group

	g.Go(func() error {
		var err error
		a.vertexSPIRV, err = os.ReadFile(filepath.Join(config.ShaderDir, "quad.vert.spv"))
		return errors.Wrap(err, "read vertex shader")
	})
	g.Go(func() error {
		var err error
		a.fragmentSPIRV, err = os.ReadFile(filepath.Join(config.ShaderDir, "quad.frag.spv"))
		return errors.Wrap(err, "read fragment shader")
	})
	g.Go(func() error {
		if config.Image == "" {
			a.image = checkerboard(256, 8)
			return nil
		}

		var err error
		a.image, err = decodePNG(config.Image)
		return err
	})

	err := g.Wait()
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func decodePNG(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open image")
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return img, nil
}

// checkerboard alternates opaque and half-transparent cells so the blend
// mode is visible against the clear color.
func checkerboard(size, cells int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	cellSize := size / cells

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if ((x/cellSize)+(y/cellSize))%2 == 0 {
				img.SetNRGBA(x, y, color.NRGBA{R: 230, G: 120, B: 40, A: 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{R: 40, G: 120, B: 230, A: 128})
			}
		}
	}
	return img
}

// fitQuad returns the largest quad with the image's aspect ratio that fits
// within 90% of the viewport, centered.
func fitQuad(imageWidth, imageHeight int, extent core1_0.Extent2D) [quad.VertexCount]quad.Vertex {
	imageAspect := float32(imageWidth) / float32(imageHeight)
	viewAspect := float32(extent.Width) / float32(extent.Height)

	width, height := float32(1.8), float32(1.8)
	if imageAspect > viewAspect {
		height = width * viewAspect / imageAspect
	} else {
		width = height * imageAspect / viewAspect
	}
	return quad.NewQuad(-width/2, -height/2, width, height)
}
