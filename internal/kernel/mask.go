package kernel

import "math"

// NewBrushMask builds the anti-aliased disc stamped by every stroke of a
// layer. Weights are 1 up to radius, fall off linearly over fallOff*radius
// pixels and are exactly 0 beyond that.
func NewBrushMask(radius int, fallOff float64) *Kernel {
	if radius < 0 {
		radius = 0
	}
	if fallOff < 0 {
		fallOff = 0
	}

	r := float64(radius)
	width := fallOff * r
	outer := r + width
	half := int(math.Ceil(outer))
	side := 2*half + 1

	k := newKernel(side, side)
	k.CentreX, k.CentreY = half, half

	for j := 0; j < side; j++ {
		for i := 0; i < side; i++ {
			d := math.Hypot(float64(i-half), float64(j-half))
			k.values[j*side+i] = falloff(d, r, width)
		}
	}
	return k
}

func falloff(d, inner, width float64) float64 {
	switch {
	case d <= inner:
		return 1
	case width <= 0 || d >= inner+width:
		return 0
	default:
		return 1 - (d-inner)/width
	}
}
