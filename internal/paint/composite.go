package paint

import (
	"math"

	"golang.org/x/image/math/f64"

	"github.com/cwbudde/impasto/internal/kernel"
	"github.com/cwbudde/impasto/internal/raster"
)

// Canvas is the painted colour raster with its parallel height field.
type Canvas struct {
	Color  *raster.RGB
	Height *raster.Gray
}

// NewCanvas allocates a black, flat canvas.
func NewCanvas(width, height int) *Canvas {
	return &Canvas{
		Color:  raster.NewRGB(width, height),
		Height: raster.NewGray(width, height),
	}
}

// EpochState tracks which stroke touched each pixel last, the strongest mask
// weight the current stroke applied there and the pixel's colour and height
// before the current stroke. Starting a stroke bumps the epoch instead of
// clearing the buffers.
type EpochState struct {
	width, height int
	epoch         int
	last          []int
	mask          []float64
	color         []f64.Vec3
	heights       []float64
}

// NewEpochState sizes the state for a width x height canvas.
func NewEpochState(width, height int) *EpochState {
	n := width * height
	return &EpochState{
		width:   width,
		height:  height,
		last:    make([]int, n),
		mask:    make([]float64, n),
		color:   make([]f64.Vec3, n),
		heights: make([]float64, n),
	}
}

// Epoch returns the id of the most recently started stroke.
func (e *EpochState) Epoch() int { return e.epoch }

// Begin starts a new stroke and returns its id.
func (e *EpochState) Begin() int {
	e.epoch++
	return e.epoch
}

// Composite stamps the stroke's limit curve onto the canvas. Within one
// stroke every pixel ends up blended from its pre-stroke colour by the
// strongest mask weight any stamp applied to it, so revisited pixels are
// never blended twice. Every touched pixel ends heightIncrement above the
// blend of its old height and the stroke height. Pixels outside the canvas
// are skipped.
func Composite(c *Canvas, state *EpochState, mask *kernel.Kernel, s *Stroke, cp CurveParams, heightIncrement float64) {
	if state.width != c.Color.Width || state.height != c.Color.Height {
		panic("paint: epoch state does not match canvas size")
	}

	st := stamper{
		canvas:    c,
		state:     state,
		mask:      mask,
		stroke:    s,
		epoch:     state.Begin(),
		increment: heightIncrement,
	}

	path := s.Limit(cp)
	if len(path) == 1 {
		x, y := pixel(path[0])
		st.stamp(x, y)
		return
	}
	for i := 0; i+1 < len(path); i++ {
		x0, y0 := pixel(path[i])
		x1, y1 := pixel(path[i+1])
		digitalLine(x0, y0, x1, y1, st.stamp)
	}
}

type stamper struct {
	canvas    *Canvas
	state     *EpochState
	mask      *kernel.Kernel
	stroke    *Stroke
	epoch     int
	increment float64
}

// stamp applies the brush mask centred on (cx, cy).
func (st *stamper) stamp(cx, cy int) {
	m := st.mask
	color := st.canvas.Color
	for my := 0; my < m.Height; my++ {
		for mx := 0; mx < m.Width; mx++ {
			w := m.At(mx, my)
			if w <= 0 {
				continue
			}
			x, y := cx+mx-m.CentreX, cy+my-m.CentreY
			if !color.In(x, y) {
				continue
			}

			i := y*color.Width + x
			e := st.state
			if e.last[i] < st.epoch {
				e.last[i] = st.epoch
				e.mask[i] = w
				e.color[i] = color.At(x, y)
				e.heights[i] = st.canvas.Height.At(x, y)
			} else if w > e.mask[i] {
				e.mask[i] = w
			} else {
				continue
			}
			st.blend(x, y, i, w)
		}
	}
}

func (st *stamper) blend(x, y, i int, w float64) {
	e, s := st.state, st.stroke
	snap := e.color[i]
	st.canvas.Color.Set(x, y, f64.Vec3{
		w*s.Color[0] + (1-w)*snap[0],
		w*s.Color[1] + (1-w)*snap[1],
		w*s.Color[2] + (1-w)*snap[2],
	})

	u, v := s.UV(x, y)
	a := w * s.opacity(u, v)
	h := (1-a)*e.heights[i] + a*s.height(u, v) + st.increment
	st.canvas.Height.Set(x, y, h)
}

// digitalLine visits the pixels between two points with a single slope,
// stepping along y when the line is vertical and along x otherwise.
// Both endpoints are visited.
func digitalLine(x0, y0, x1, y1 int, visit func(x, y int)) {
	if x0 == x1 {
		step := 1
		if y1 < y0 {
			step = -1
		}
		for y := y0; ; y += step {
			visit(x0, y)
			if y == y1 {
				return
			}
		}
	}

	step := 1
	if x1 < x0 {
		step = -1
	}
	slope := float64(y1-y0) / float64(x1-x0)
	for x := x0; ; x += step {
		visit(x, y0+int(math.Round(slope*float64(x-x0))))
		if x == x1 {
			return
		}
	}
}
