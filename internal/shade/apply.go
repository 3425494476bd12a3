package shade

import (
	"golang.org/x/image/math/f64"

	"github.com/cwbudde/impasto/internal/kernel"
	"github.com/cwbudde/impasto/internal/raster"
)

// Options configures a shading pass.
type Options struct {
	Shader Shader
	Lights []Light
	// View is the eye position. Nil places it above the canvas centre.
	View *f64.Vec3
	// Relief scales the height gradient before normals are formed.
	Relief float64
	Sobel  *kernel.Sobel
}

// DefaultLight sits over the top-left corner, as high as the canvas is wide.
func DefaultLight(width, height int) Light {
	return Light{
		Position:  f64.Vec3{0, 0, float64(max(width, height))},
		Intensity: f64.Vec3{1, 1, 1},
	}
}

// DefaultView looks down on the centre of the canvas.
func DefaultView(width, height int) f64.Vec3 {
	return f64.Vec3{float64(width) / 2, float64(height) / 2, 2 * float64(max(width, height))}
}

// Apply lights every canvas pixel using normals from the height field.
// A nil light list gets DefaultLight; an empty non-nil list shades with no
// lights at all. Canvas and height must have the same size.
func Apply(canvas *raster.RGB, height *raster.Gray, opts Options) *raster.RGB {
	if canvas.Width != height.Width || canvas.Height != height.Height {
		panic(raster.ErrDimensionMismatch)
	}

	shader := opts.Shader
	if shader == nil {
		shader = BlinnPhong{Ambient: 0.2, Specular: 0.5, Exponent: 25}
	}
	lights := opts.Lights
	if lights == nil {
		lights = []Light{DefaultLight(canvas.Width, canvas.Height)}
	}
	view := DefaultView(canvas.Width, canvas.Height)
	if opts.View != nil {
		view = *opts.View
	}
	relief := opts.Relief
	if relief == 0 {
		relief = 1
	}
	sobel := kernel.NewSobel()
	if opts.Sobel != nil {
		sobel = *opts.Sobel
	}

	normals := Normals(height, sobel, relief)
	out := raster.NewRGB(canvas.Width, canvas.Height)
	for y := 0; y < canvas.Height; y++ {
		for x := 0; x < canvas.Width; x++ {
			pos := f64.Vec3{float64(x), float64(y), 0}
			out.Set(x, y, shader.Shade(canvas.At(x, y), pos, lights, view, normals.At(x, y)))
		}
	}
	return out
}
