package paint

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/cwbudde/impasto/internal/kernel"
	"github.com/cwbudde/impasto/internal/raster"
)

// LayerStats summarises one finished layer.
type LayerStats struct {
	Index   int           `json:"index"`
	Radius  int           `json:"radius"`
	Strokes int           `json:"strokes"`
	Error   float64       `json:"error"` // mean difference before the layer was painted
	Elapsed time.Duration `json:"elapsed"`
}

// Result holds the output of a paint run.
type Result struct {
	Canvas  *raster.RGB
	Height  *raster.Gray
	Layers  []LayerStats
	Strokes int
}

// Observer receives the stats of every finished layer.
type Observer func(LayerStats)

// Option configures a Session.
type Option func(*Session)

// WithObserver reports per-layer progress to fn.
func WithObserver(fn Observer) Option {
	return func(s *Session) { s.observer = fn }
}

// WithBlurrer replaces the gaussian blur used for layer references.
func WithBlurrer(b raster.Blurrer) Option {
	return func(s *Session) { s.blurrer = b }
}

// WithSobel replaces the kernels used for stroke directions.
func WithSobel(sobel kernel.Sobel) Option {
	return func(s *Session) { s.sobel = sobel }
}

// WithTextures attaches height and opacity textures to every stroke.
// Either may be nil.
func WithTextures(height, opacity Sampler) Option {
	return func(s *Session) {
		s.heightMap = height
		s.opacityMap = opacity
	}
}

// Session owns the canvas and epoch state of a single paint run.
// It is not safe for concurrent use.
type Session struct {
	source *raster.RGB
	params Params
	canvas *Canvas
	state  *EpochState

	blurrer    raster.Blurrer
	sobel      kernel.Sobel
	observer   Observer
	heightMap  Sampler
	opacityMap Sampler
	rng        *rand.Rand
}

// NewSession prepares a run over src, which must be width x height.
func NewSession(src *raster.RGB, width, height int, params Params, opts ...Option) (*Session, error) {
	if src == nil || src.Width != width || src.Height != height {
		return nil, fmt.Errorf("failed to create session: %w", raster.ErrDimensionMismatch)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("failed to create session: empty %dx%d source", width, height)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		source:  src,
		params:  params,
		canvas:  NewCanvas(width, height),
		state:   NewEpochState(width, height),
		blurrer: raster.GaussianBlurrer{},
		sobel:   kernel.NewSobel(),
		rng:     rand.New(rand.NewSource(params.Seed)),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.canvas.Color.Fill(src.Average())
	return s, nil
}

// Canvas returns the canvas being painted.
func (s *Session) Canvas() *Canvas { return s.canvas }

// Paint runs every layer from the largest brush to the smallest. The context
// is checked between layers; a cancelled run returns the context's error.
func (s *Session) Paint(ctx context.Context) (*Result, error) {
	radii := Schedule(s.params)
	res := &Result{
		Canvas: s.canvas.Color,
		Height: s.canvas.Height,
		Layers: make([]LayerStats, 0, len(radii)),
	}

	slog.Debug("Starting paint", "width", s.source.Width, "height", s.source.Height, "layers", len(radii))

	for i, radius := range radii {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("paint cancelled before layer %d: %w", i, err)
		}

		stats := s.paintLayer(i, radius)
		res.Layers = append(res.Layers, stats)
		res.Strokes += stats.Strokes

		slog.Debug("Layer complete", "layer", i, "radius", radius, "strokes", stats.Strokes, "error", stats.Error)
		if s.observer != nil {
			s.observer(stats)
		}
	}

	slog.Debug("Paint complete", "strokes", res.Strokes)
	return res, nil
}

func (s *Session) paintLayer(index, radius int) LayerStats {
	start := time.Now()

	sigma := s.params.BlurFactor * float64(radius)
	ref := s.blurrer.Blur(s.source, kernel.BlurKernelLength(sigma), sigma)
	diff := raster.Difference(ref, s.canvas.Color)
	lum := raster.Luminance(ref)

	strokes := FindStrokes(ref, s.canvas.Color, diff, lum, radius, s.sobel, s.params)
	strokes = Order(strokes, s.rng, s.params)

	mask := kernel.NewBrushMask(radius, s.params.FallOff)
	for _, st := range strokes {
		st.HeightMap = s.heightMap
		st.OpacityMap = s.opacityMap
		Composite(s.canvas, s.state, mask, st, s.params.Curve, s.params.HeightIncrement)
	}

	var sum float64
	for _, d := range diff.Pix {
		sum += d
	}

	return LayerStats{
		Index:   index,
		Radius:  radius,
		Strokes: len(strokes),
		Error:   sum / float64(len(diff.Pix)),
		Elapsed: time.Since(start),
	}
}
