package raster

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/convolution"

	"github.com/cwbudde/impasto/internal/kernel"
)

// Blurrer produces the blurred reference for a layer.
type Blurrer interface {
	Blur(src *RGB, kernelLen int, sigma float64) *RGB
}

// GaussianBlurrer is the default Blurrer backed by GaussianBlur.
type GaussianBlurrer struct{}

// Blur implements Blurrer.
func (GaussianBlurrer) Blur(src *RGB, kernelLen int, sigma float64) *RGB {
	return GaussianBlur(src, kernelLen, sigma)
}

// GaussianBlur convolves src with a kernelLen-tap gaussian in two separable
// passes. Edges are extended. The 0.5 bias makes bild's 8-bit store round
// rather than truncate, so flat regions stay flat.
func GaussianBlur(src *RGB, kernelLen int, sigma float64) *RGB {
	if sigma <= 0 || kernelLen <= 1 {
		return src.Clone()
	}

	k := kernel.GaussianRow(kernelLen, sigma).Normalized()
	opts := convolution.Options{Bias: 0.5, Wrap: false, KeepAlpha: true}

	img := convolution.Convolve(src.rgba(), k, &opts)
	img = convolution.Convolve(img, k.Transposed(), &opts)
	return FromImage(img)
}

func (r *RGB) rgba() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			c := r.At(x, y)
			img.SetRGBA(x, y, color.RGBA{toByte(c[0]), toByte(c[1]), toByte(c[2]), 255})
		}
	}
	return img
}
