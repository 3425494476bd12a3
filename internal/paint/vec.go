package paint

import (
	"math"

	"seehuhn.de/go/geom/vec"
)

// unitVec returns v scaled to length 1, or the zero vector unchanged.
func unitVec(v vec.Vec2) vec.Vec2 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Mul(1 / l)
}

// turningAngle is the angle between segments a->b and b->c.
// Degenerate segments count as straight.
func turningAngle(a, b, c vec.Vec2) float64 {
	u, v := b.Sub(a), c.Sub(b)
	lu, lv := u.Length(), v.Length()
	if lu == 0 || lv == 0 {
		return 0
	}
	cos := u.Dot(v) / (lu * lv)
	return math.Acos(math.Max(-1, math.Min(1, cos)))
}

// pixel maps a point to the pixel containing it.
func pixel(p vec.Vec2) (int, int) {
	return int(math.Floor(p.X)), int(math.Floor(p.Y))
}
