// Package shade relights a painted canvas from its height field.
package shade

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/math/f64"
)

// Light is a point light. Intensity is per channel, nominally in [0,1].
type Light struct {
	Position  f64.Vec3 `json:"position"`
	Intensity f64.Vec3 `json:"intensity"`
}

// ParseLight reads "x,y,z" or "x,y,z,r,g,b". Without an intensity the light
// is white.
func ParseLight(s string) (Light, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 && len(parts) != 6 {
		return Light{}, fmt.Errorf("invalid light %q: want x,y,z or x,y,z,r,g,b", s)
	}

	vals := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Light{}, fmt.Errorf("invalid light %q: %w", s, err)
		}
		vals[i] = v
	}

	l := Light{
		Position:  f64.Vec3{vals[0], vals[1], vals[2]},
		Intensity: f64.Vec3{1, 1, 1},
	}
	if len(vals) == 6 {
		l.Intensity = f64.Vec3{vals[3], vals[4], vals[5]}
	}
	return l, nil
}

func (l Light) String() string {
	return fmt.Sprintf("%g,%g,%g,%g,%g,%g",
		l.Position[0], l.Position[1], l.Position[2],
		l.Intensity[0], l.Intensity[1], l.Intensity[2])
}

func add3(a, b f64.Vec3) f64.Vec3 { return f64.Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func sub3(a, b f64.Vec3) f64.Vec3 { return f64.Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func mul3(a, b f64.Vec3) f64.Vec3 { return f64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]} }
func scale3(a f64.Vec3, s float64) f64.Vec3 {
	return f64.Vec3{a[0] * s, a[1] * s, a[2] * s}
}
func dot3(a, b f64.Vec3) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func normalize3(a f64.Vec3) f64.Vec3 {
	l := math.Sqrt(dot3(a, a))
	if l == 0 {
		return a
	}
	return scale3(a, 1/l)
}

func clamp01(a f64.Vec3) f64.Vec3 {
	for i := range a {
		a[i] = math.Max(0, math.Min(1, a[i]))
	}
	return a
}
