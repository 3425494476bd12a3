// Package kernel holds the fixed weight tables used by the painter: the
// anti-aliased brush mask, the gaussian blur kernel and the Sobel pair used
// for gradient and normal estimation.
package kernel

import (
	"fmt"
	"math"

	"github.com/anthonynsimon/bild/convolution"
)

// Kernel is a rectangular grid of weights. The centre is stored explicitly
// because the window does not have to be odd-sized.
type Kernel struct {
	Width   int
	Height  int
	CentreX int
	CentreY int
	values  []float64
}

func newKernel(width, height int) *Kernel {
	return &Kernel{
		Width:   width,
		Height:  height,
		CentreX: (width - 1) / 2,
		CentreY: (height - 1) / 2,
		values:  make([]float64, width*height),
	}
}

// At returns the weight at window coordinates (x, y).
// Out-of-range lookups indicate an indexing bug and panic.
func (k *Kernel) At(x, y int) float64 {
	if x < 0 || x >= k.Width || y < 0 || y >= k.Height {
		panic(fmt.Sprintf("kernel: lookup (%d,%d) outside %dx%d window", x, y, k.Width, k.Height))
	}
	return k.values[y*k.Width+x]
}

// Sum returns the sum of all weights.
func (k *Kernel) Sum() float64 {
	var s float64
	for _, v := range k.values {
		s += v
	}
	return s
}

// Max returns the largest weight.
func (k *Kernel) Max() float64 {
	m := math.Inf(-1)
	for _, v := range k.values {
		m = math.Max(m, v)
	}
	return m
}

// NewGaussian builds a normalised length x length gaussian table.
func NewGaussian(length int, sigma float64) *Kernel {
	if length < 1 {
		length = 1
	}
	k := newKernel(length, length)
	if sigma <= 0 {
		k.values[k.CentreY*length+k.CentreX] = 1
		return k
	}

	var sum float64
	for j := 0; j < length; j++ {
		for i := 0; i < length; i++ {
			dx := float64(i - k.CentreX)
			dy := float64(j - k.CentreY)
			v := math.Exp(-(dx*dx + dy*dy) / (2 * sigma * sigma))
			k.values[j*length+i] = v
			sum += v
		}
	}
	for i := range k.values {
		k.values[i] /= sum
	}
	return k
}

// GaussianRow builds the 1 x length gaussian used for separable blurring.
// The result is not normalised; callers use Normalized() as bild expects.
func GaussianRow(length int, sigma float64) *convolution.Kernel {
	if length < 1 {
		length = 1
	}
	row := convolution.NewKernel(length, 1)
	centre := float64(length-1) / 2
	for i := 0; i < length; i++ {
		if sigma <= 0 {
			if float64(i) == centre {
				row.Matrix[i] = 1
			}
			continue
		}
		x := float64(i) - centre
		row.Matrix[i] = math.Exp(-x * x / (2 * sigma * sigma))
	}
	return row
}

// BlurKernelLength returns max(8*sigma, 3), rounded up to an odd length so
// the gaussian stays centred on the pixel.
func BlurKernelLength(sigma float64) int {
	n := int(math.Max(8*sigma, 3))
	if n%2 == 0 {
		n++
	}
	return n
}
