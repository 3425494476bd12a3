package paint

import "seehuhn.de/go/geom/vec"

// LimitCurve smooths a control polygon by repeated cubic B-spline
// subdivision. Endpoints stay fixed. Subdivision stops once curveDone holds
// or after cp.MaxDepth rounds.
func LimitCurve(points []vec.Vec2, cp CurveParams) []vec.Vec2 {
	curve := make([]vec.Vec2, len(points))
	copy(curve, points)

	for depth := 0; depth < cp.MaxDepth && !curveDone(curve, cp); depth++ {
		curve = subdivide(curve)
	}
	if cp.Decimate {
		curve = decimate(curve, cp.ThetaTolerance)
	}
	return curve
}

// curveDone reports whether every consecutive triple is either spread
// further than the neighbourhood or already turns by at most the tolerance.
func curveDone(curve []vec.Vec2, cp CurveParams) bool {
	if len(curve) < 3 {
		return true
	}
	for i := 1; i+1 < len(curve); i++ {
		a, b, c := curve[i-1], curve[i], curve[i+1]
		if b.Sub(a).Length() > cp.Neighbourhood || c.Sub(b).Length() > cp.Neighbourhood {
			continue
		}
		if turningAngle(a, b, c) > cp.ThetaTolerance {
			return false
		}
	}
	return true
}

// subdivide inserts the midpoint of every segment and pulls each interior
// original point towards its new neighbours.
func subdivide(curve []vec.Vec2) []vec.Vec2 {
	n := len(curve)
	if n < 2 {
		return curve
	}

	out := make([]vec.Vec2, 2*n-1)
	for i := 0; i+1 < n; i++ {
		out[2*i+1] = curve[i].Add(curve[i+1]).Mul(0.5)
	}
	out[0] = curve[0]
	out[2*n-2] = curve[n-1]
	for i := 1; i+1 < n; i++ {
		prev, next := out[2*i-1], out[2*i+1]
		out[2*i] = prev.Mul(0.25).Add(curve[i].Mul(0.5)).Add(next.Mul(0.25))
	}
	return out
}

// decimate drops interior points that barely change direction.
func decimate(curve []vec.Vec2, tolerance float64) []vec.Vec2 {
	if len(curve) < 3 {
		return curve
	}
	out := []vec.Vec2{curve[0]}
	for i := 1; i+1 < len(curve); i++ {
		if turningAngle(out[len(out)-1], curve[i], curve[i+1]) < tolerance {
			continue
		}
		out = append(out, curve[i])
	}
	return append(out, curve[len(curve)-1])
}
