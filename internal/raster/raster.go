// Package raster provides the float pixel buffers the painter works on.
//
// Coordinates follow one convention everywhere: (x, y) is inside a raster iff
// 0 <= x < Width and 0 <= y < Height. Fractional points map to the pixel that
// contains them by flooring.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/clone"
	"golang.org/x/image/math/f64"
)

// ErrDimensionMismatch is returned when two rasters must share a size but do not.
var ErrDimensionMismatch = errors.New("raster dimensions do not match")

// RGB is a colour raster with channels in display range [0,255].
type RGB struct {
	Width  int
	Height int
	Pix    []float64 // 3 values per pixel, row-major
}

// NewRGB allocates a black raster.
func NewRGB(width, height int) *RGB {
	return &RGB{
		Width:  width,
		Height: height,
		Pix:    make([]float64, width*height*3),
	}
}

// In reports whether (x, y) is a valid pixel.
func (r *RGB) In(x, y int) bool {
	return x >= 0 && x < r.Width && y >= 0 && y < r.Height
}

// Offset returns the index of the first channel of pixel (x, y).
func (r *RGB) Offset(x, y int) int {
	return (y*r.Width + x) * 3
}

// At returns the colour at (x, y).
func (r *RGB) At(x, y int) f64.Vec3 {
	i := r.Offset(x, y)
	return f64.Vec3{r.Pix[i], r.Pix[i+1], r.Pix[i+2]}
}

// Set writes the colour at (x, y).
func (r *RGB) Set(x, y int, c f64.Vec3) {
	i := r.Offset(x, y)
	r.Pix[i], r.Pix[i+1], r.Pix[i+2] = c[0], c[1], c[2]
}

// Fill sets every pixel to c.
func (r *RGB) Fill(c f64.Vec3) {
	for i := 0; i < len(r.Pix); i += 3 {
		r.Pix[i], r.Pix[i+1], r.Pix[i+2] = c[0], c[1], c[2]
	}
}

// Clone returns a deep copy.
func (r *RGB) Clone() *RGB {
	out := &RGB{Width: r.Width, Height: r.Height, Pix: make([]float64, len(r.Pix))}
	copy(out.Pix, r.Pix)
	return out
}

// SameSize reports whether both rasters have identical dimensions.
func (r *RGB) SameSize(o *RGB) bool {
	return r.Width == o.Width && r.Height == o.Height
}

// Average returns the mean colour of the raster.
func (r *RGB) Average() f64.Vec3 {
	var sum f64.Vec3
	n := r.Width * r.Height
	if n == 0 {
		return sum
	}
	for i := 0; i < len(r.Pix); i += 3 {
		sum[0] += r.Pix[i]
		sum[1] += r.Pix[i+1]
		sum[2] += r.Pix[i+2]
	}
	return f64.Vec3{sum[0] / float64(n), sum[1] / float64(n), sum[2] / float64(n)}
}

// FromImage converts any image into an RGB raster, dropping alpha.
func FromImage(img image.Image) *RGB {
	src := clone.AsRGBA(img)
	b := src.Bounds()
	out := NewRGB(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := src.PixOffset(b.Min.X+x, b.Min.Y+y)
			j := out.Offset(x, y)
			out.Pix[j] = float64(src.Pix[i])
			out.Pix[j+1] = float64(src.Pix[i+1])
			out.Pix[j+2] = float64(src.Pix[i+2])
		}
	}
	return out
}

// NRGBA converts the raster to an opaque 8-bit image.
func (r *RGB) NRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			c := r.At(x, y)
			img.SetNRGBA(x, y, color.NRGBA{toByte(c[0]), toByte(c[1]), toByte(c[2]), 255})
		}
	}
	return img
}

func toByte(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(255, v))))
}

// Distance is the euclidean distance between two colours.
func Distance(a, b f64.Vec3) float64 {
	dr := a[0] - b[0]
	dg := a[1] - b[1]
	db := a[2] - b[2]
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// Difference computes the per-pixel colour distance between two rasters.
// Mismatched sizes are a caller bug and panic.
func Difference(a, b *RGB) *Gray {
	if !a.SameSize(b) {
		panic(fmt.Sprintf("%v: %dx%d vs %dx%d", ErrDimensionMismatch, a.Width, a.Height, b.Width, b.Height))
	}

	out := NewGray(a.Width, a.Height)
	for i := range out.Pix {
		j := i * 3
		dr := a.Pix[j] - b.Pix[j]
		dg := a.Pix[j+1] - b.Pix[j+1]
		db := a.Pix[j+2] - b.Pix[j+2]
		out.Pix[i] = math.Sqrt(dr*dr + dg*dg + db*db)
	}
	return out
}

// Luminance returns the perceptual intensity of every pixel.
func Luminance(r *RGB) *Gray {
	out := NewGray(r.Width, r.Height)
	for i := range out.Pix {
		j := i * 3
		out.Pix[i] = 0.2989*r.Pix[j] + 0.5870*r.Pix[j+1] + 0.1140*r.Pix[j+2]
	}
	return out
}
