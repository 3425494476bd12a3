package shade

import (
	"golang.org/x/image/math/f64"

	"github.com/cwbudde/impasto/internal/kernel"
	"github.com/cwbudde/impasto/internal/raster"
)

// NormalField is a per-pixel unit normal map.
type NormalField struct {
	Width  int
	Height int
	N      []f64.Vec3
}

// At returns the normal at (x, y).
func (f *NormalField) At(x, y int) f64.Vec3 {
	return f.N[y*f.Width+x]
}

// Normals differentiates the height field with the Sobel pair and returns
// normalize(-gx*relief, -gy*relief, 1) per pixel.
func Normals(height *raster.Gray, sobel kernel.Sobel, relief float64) *NormalField {
	f := &NormalField{
		Width:  height.Width,
		Height: height.Height,
		N:      make([]f64.Vec3, height.Width*height.Height),
	}
	for y := 0; y < height.Height; y++ {
		for x := 0; x < height.Width; x++ {
			gx, gy := raster.Gradient(height, x, y, sobel)
			f.N[y*f.Width+x] = normalize3(f64.Vec3{-gx * relief, -gy * relief, 1})
		}
	}
	return f
}
