package raster

import "github.com/cwbudde/impasto/internal/kernel"

// Gradient convolves the pixels around (x, y) with the Sobel pair and returns
// the horizontal and vertical derivatives. Neighbours outside the raster are
// clamped to the edge. A constant neighbourhood yields exactly zero.
func Gradient(g *Gray, x, y int, sobel kernel.Sobel) (gx, gy float64) {
	var xPos, xNeg, yPos, yNeg float64
	kx, ky := sobel.X, sobel.Y
	for j := 0; j < kx.Height; j++ {
		for i := 0; i < kx.Width; i++ {
			v := g.Clamped(x+i-kx.CentreX, y+j-kx.CentreY)
			xPos, xNeg = accumulate(xPos, xNeg, v, kx.At(i, j))
			yPos, yNeg = accumulate(yPos, yNeg, v, ky.At(i, j))
		}
	}
	return xPos - xNeg, yPos - yNeg
}

// accumulate adds v*w to the sum matching the sign of w. Keeping the two
// sums apart makes mirrored weights cancel without rounding residue.
func accumulate(pos, neg, v, w float64) (float64, float64) {
	switch {
	case w > 0:
		pos += v * w
	case w < 0:
		neg -= v * w
	}
	return pos, neg
}
