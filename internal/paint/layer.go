package paint

import (
	"math/rand"

	"seehuhn.de/go/geom/vec"

	"github.com/cwbudde/impasto/internal/kernel"
	"github.com/cwbudde/impasto/internal/raster"
)

// FindStrokes scans the canvas on a grid tied to the brush radius and seeds
// a stroke at the worst pixel of every cell whose summed error exceeds the
// threshold. Strokes are built against the canvas as it was before the
// layer. Cells are visited row by row and strokes are returned in that order.
func FindStrokes(ref, canvas *raster.RGB, diff, lum *raster.Gray, radius int, sobel kernel.Sobel, p Params) []*Stroke {
	grid := max(int(p.GridFactor*float64(radius)), 1)
	half := grid / 2

	var strokes []*Stroke
	for y := 0; y < diff.Height; y += grid {
		for x := 0; x < diff.Width; x += grid {
			x0, x1 := max(x-half, 0), min(x+half, diff.Width-1)
			y0, y1 := max(y-half, 0), min(y+half, diff.Height-1)

			var area float64
			best := -1.0
			bx, by := x, y
			for wy := y0; wy <= y1; wy++ {
				for wx := x0; wx <= x1; wx++ {
					d := diff.At(wx, wy)
					area += d
					if d > best {
						best, bx, by = d, wx, wy
					}
				}
			}

			count := float64((x1 - x0 + 1) * (y1 - y0 + 1))
			if area > p.Threshold*count {
				seed := vec.Vec2{X: float64(bx), Y: float64(by)}
				strokes = append(strokes, BuildStroke(seed, radius, ref, canvas, lum, sobel, p))
			}
		}
	}
	return strokes
}

// Order returns the strokes in rendering order: discovery order unless
// RandomOrder is set, in which case they are shuffled with the seeded rng.
func Order(strokes []*Stroke, rng *rand.Rand, p Params) []*Stroke {
	if !p.RandomOrder || rng == nil {
		return strokes
	}
	out := make([]*Stroke, len(strokes))
	copy(out, strokes)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
