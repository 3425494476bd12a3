package paint

import (
	"math"

	"golang.org/x/image/math/f64"
	"seehuhn.de/go/geom/vec"

	"github.com/cwbudde/impasto/internal/kernel"
	"github.com/cwbudde/impasto/internal/raster"
)

// Sampler returns a scalar for texture coordinates in [0,1]x[0,1].
// *texture.Texture implements it.
type Sampler interface {
	Sample(u, v float64) float64
}

// Stroke is one brush application.
type Stroke struct {
	Points []vec.Vec2 // control points, at least one
	Radius int
	Color  f64.Vec3

	// Relief is the peak height the stroke leaves on the canvas.
	Relief float64
	// HeightMap and OpacityMap modulate relief and coverage across the
	// stroke's bounding box. Nil means constant 1.
	HeightMap  Sampler
	OpacityMap Sampler

	limit    []vec.Vec2
	min, max vec.Vec2
}

// Limit returns the smoothed path of the stroke, computing it on first use.
func (s *Stroke) Limit(cp CurveParams) []vec.Vec2 {
	if s.limit != nil {
		return s.limit
	}
	s.limit = LimitCurve(s.Points, cp)

	r := float64(s.Radius)
	s.min = vec.Vec2{X: math.Inf(1), Y: math.Inf(1)}
	s.max = vec.Vec2{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, p := range s.limit {
		s.min.X = math.Min(s.min.X, p.X-r)
		s.min.Y = math.Min(s.min.Y, p.Y-r)
		s.max.X = math.Max(s.max.X, p.X+r)
		s.max.Y = math.Max(s.max.Y, p.Y+r)
	}
	return s.limit
}

// Bounds returns the axis-aligned box covered by the stroke's limit curve
// grown by its radius. It is zero until Limit has been called.
func (s *Stroke) Bounds() (lo, hi vec.Vec2) {
	return s.min, s.max
}

// UV maps a canvas pixel to texture coordinates within the stroke's bounds.
func (s *Stroke) UV(x, y int) (u, v float64) {
	return unit(float64(x), s.min.X, s.max.X), unit(float64(y), s.min.Y, s.max.Y)
}

func unit(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0.5
	}
	return math.Max(0, math.Min(1, (v-lo)/(hi-lo)))
}

func (s *Stroke) opacity(u, v float64) float64 {
	if s.OpacityMap == nil {
		return 1
	}
	return s.OpacityMap.Sample(u, v)
}

func (s *Stroke) height(u, v float64) float64 {
	if s.HeightMap == nil {
		return s.Relief
	}
	return s.Relief * s.HeightMap.Sample(u, v)
}

// BuildStroke grows a stroke from seed by following the direction normal to
// the luminance gradient. ref is the blurred reference for the current layer
// and lum its luminance. Growth stops early when the gradient vanishes, the
// path leaves the image or the canvas already matches the reference better
// than the stroke colour would; none of these are errors.
func BuildStroke(seed vec.Vec2, radius int, ref, canvas *raster.RGB, lum *raster.Gray, sobel kernel.Sobel, p Params) *Stroke {
	sx, sy := pixel(seed)
	s := &Stroke{
		Points: []vec.Vec2{seed},
		Radius: radius,
		Color:  ref.At(sx, sy),
		Relief: p.StrokeHeight,
	}

	spacing := float64(radius) * p.LengthFactor
	cur := seed
	var last vec.Vec2

	for i := 1; i < p.MaxStrokeLength; i++ {
		x, y := pixel(cur)
		gx, gy := raster.Gradient(lum, x, y, sobel)
		if math.Hypot(gx, gy)*spacing < 1 {
			break
		}

		d := unitVec(vec.Vec2{X: -gy, Y: gx})
		if i > 1 && last.Dot(d) < 0 {
			d = d.Mul(-1)
		}
		d = unitVec(d.Mul(p.FilterFactor).Add(last.Mul(1 - p.FilterFactor)))
		if d == (vec.Vec2{}) {
			break
		}

		next := cur.Add(d.Mul(spacing))
		nx, ny := pixel(next)
		if !ref.In(nx, ny) {
			break
		}

		target := ref.At(nx, ny)
		if len(s.Points) > p.MinStrokeLength &&
			raster.Distance(target, canvas.At(nx, ny)) < raster.Distance(target, s.Color) {
			break
		}

		s.Points = append(s.Points, next)
		cur, last = next, d
	}

	return s
}
