// Package texture provides gray-scale lookup tables sampled in normalised
// uv space, used for stroke height and opacity.
package texture

import (
	"fmt"
	"math"

	"github.com/cwbudde/impasto/internal/imageio"
	"github.com/cwbudde/impasto/internal/raster"
)

// Texture is an immutable gray image with values in [0,1].
type Texture struct {
	values *raster.Gray
}

// New wraps a gray raster. Values are used as given.
func New(values *raster.Gray) (*Texture, error) {
	if values == nil || values.Width == 0 || values.Height == 0 {
		return nil, fmt.Errorf("texture must not be empty")
	}
	return &Texture{values: values}, nil
}

// Load decodes an image file into a texture of normalised luminance.
func Load(path string) (*Texture, error) {
	img, err := imageio.Load(path, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load texture: %w", err)
	}
	return New(raster.GrayFromImage(img))
}

// Width returns the texture width in texels.
func (t *Texture) Width() int { return t.values.Width }

// Height returns the texture height in texels.
func (t *Texture) Height() int { return t.values.Height }

// Sample returns the bilinearly interpolated value at (u, v).
// Coordinates are clamped to [0,1].
func (t *Texture) Sample(u, v float64) float64 {
	u = math.Max(0, math.Min(1, u))
	v = math.Max(0, math.Min(1, v))

	w, h := t.values.Width, t.values.Height
	x := u * float64(w-1)
	y := v * float64(h-1)

	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	x1, y1 := min(x0+1, w-1), min(y0+1, h-1)
	fx, fy := x-float64(x0), y-float64(y0)

	top := (1-fx)*t.values.At(x0, y0) + fx*t.values.At(x1, y0)
	bottom := (1-fx)*t.values.At(x0, y1) + fx*t.values.At(x1, y1)
	return (1-fy)*top + fy*bottom
}
