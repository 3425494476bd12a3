package raster

import (
	"image"
	"image/color"
	"math"
)

// Gray is a single-channel float raster.
type Gray struct {
	Width  int
	Height int
	Pix    []float64
}

// NewGray allocates a zeroed raster.
func NewGray(width, height int) *Gray {
	return &Gray{
		Width:  width,
		Height: height,
		Pix:    make([]float64, width*height),
	}
}

// In reports whether (x, y) is a valid pixel.
func (g *Gray) In(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// At returns the value at (x, y).
func (g *Gray) At(x, y int) float64 {
	return g.Pix[y*g.Width+x]
}

// Set writes the value at (x, y).
func (g *Gray) Set(x, y int, v float64) {
	g.Pix[y*g.Width+x] = v
}

// Clamped returns the value at (x, y) with coordinates clamped to the edge.
func (g *Gray) Clamped(x, y int) float64 {
	x = max(0, min(g.Width-1, x))
	y = max(0, min(g.Height-1, y))
	return g.Pix[y*g.Width+x]
}

// Fill sets every pixel to v.
func (g *Gray) Fill(v float64) {
	for i := range g.Pix {
		g.Pix[i] = v
	}
}

// Clone returns a deep copy.
func (g *Gray) Clone() *Gray {
	out := &Gray{Width: g.Width, Height: g.Height, Pix: make([]float64, len(g.Pix))}
	copy(out.Pix, g.Pix)
	return out
}

// Range returns the smallest and largest values.
func (g *Gray) Range() (lo, hi float64) {
	if len(g.Pix) == 0 {
		return 0, 0
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range g.Pix {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// Image maps the raster onto an 8-bit gray image, stretching [lo,hi] to
// [0,255]. A constant raster maps to mid gray.
func (g *Gray) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	lo, hi := g.Range()
	span := hi - lo
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			v := 128.0
			if span > 0 {
				v = (g.At(x, y) - lo) / span * 255
			}
			img.SetGray(x, y, color.Gray{Y: toByte(v)})
		}
	}
	return img
}

// GrayFromImage converts an image into a raster of luminance in [0,1].
func GrayFromImage(img image.Image) *Gray {
	rgb := FromImage(img)
	out := Luminance(rgb)
	for i := range out.Pix {
		out.Pix[i] /= 255
	}
	return out
}
