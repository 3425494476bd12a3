// Package tune searches painting parameters that reproduce a source image
// with few strokes.
package tune

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/cwbudde/impasto/internal/opt"
	"github.com/cwbudde/impasto/internal/paint"
	"github.com/cwbudde/impasto/internal/raster"
)

// Range is a closed search interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Options configures a tuning run.
type Options struct {
	// Lambda weighs stroke density against image error:
	// cost = MSE + Lambda * strokes / pixels.
	Lambda float64

	Threshold  Range
	BlurFactor Range

	// Rounds is the maximum number of optimizer runs. Each round searches a
	// box half the size of the previous one, centred on the best point.
	Rounds      int
	Convergence ConvergenceConfig

	// NewOptimizer returns the optimizer for a round.
	NewOptimizer func(round int) opt.Optimizer
}

// DefaultOptions searches thresholds 10..200 and blur factors 0.25..3 with
// a seeded Mayfly optimizer.
func DefaultOptions(seed int64) Options {
	return Options{
		Lambda:      2000,
		Threshold:   Range{Min: 10, Max: 200},
		BlurFactor:  Range{Min: 0.25, Max: 3},
		Rounds:      3,
		Convergence: DefaultConvergenceConfig(),
		NewOptimizer: func(round int) opt.Optimizer {
			return opt.NewMayfly(30, 20, seed+int64(round))
		},
	}
}

// Result is the outcome of Tune.
type Result struct {
	Params      paint.Params
	Cost        float64
	MSE         float64
	Strokes     int
	Evaluations int
	Rounds      int
	History     []float64 // best cost after every round
}

// Tune searches Threshold and BlurFactor around base. Every evaluation paints
// src from scratch. Cancelling ctx aborts between evaluations.
func Tune(ctx context.Context, src *raster.RGB, base paint.Params, opts Options) (*Result, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	if opts.NewOptimizer == nil {
		return nil, fmt.Errorf("tune: no optimizer configured")
	}
	if opts.Threshold.Max < opts.Threshold.Min || opts.BlurFactor.Max < opts.BlurFactor.Min {
		return nil, fmt.Errorf("tune: empty search range")
	}

	lower := []float64{math.Max(0, opts.Threshold.Min), math.Max(0, opts.BlurFactor.Min)}
	upper := []float64{opts.Threshold.Max, opts.BlurFactor.Max}
	pixels := float64(src.Width * src.Height)

	best := &Result{Params: base, Cost: math.Inf(1)}
	var evalErr error

	eval := func(x []float64) float64 {
		if evalErr != nil {
			return math.Inf(1)
		}
		if err := ctx.Err(); err != nil {
			evalErr = err
			return math.Inf(1)
		}

		p := apply(base, x)
		res, err := paintOnce(ctx, src, p)
		if err != nil {
			evalErr = err
			return math.Inf(1)
		}

		mse := MSECost(res.Canvas, src)
		cost := mse + opts.Lambda*float64(res.Strokes)/pixels
		best.Evaluations++
		if cost < best.Cost {
			best.Params, best.Cost, best.MSE, best.Strokes = p, cost, mse, res.Strokes
		}
		return cost
	}

	tracker := NewConvergenceTracker(opts.Convergence)
	rounds := max(opts.Rounds, 1)
	for round := 0; round < rounds; round++ {
		slog.Info("Tuning round", "round", round, "threshold", []float64{lower[0], upper[0]}, "blur_factor", []float64{lower[1], upper[1]})

		opts.NewOptimizer(round).Run(eval, lower, upper, len(lower))
		if evalErr != nil {
			return nil, fmt.Errorf("tuning aborted: %w", evalErr)
		}
		best.Rounds = round + 1

		if tracker.Update(best.Cost) {
			break
		}
		lower, upper = shrink(lower, upper, []float64{best.Params.Threshold, best.Params.BlurFactor}, opts)
	}

	best.History = tracker.History()
	slog.Info("Tuning complete",
		"threshold", best.Params.Threshold,
		"blur_factor", best.Params.BlurFactor,
		"cost", best.Cost,
		"evaluations", best.Evaluations,
	)
	return best, nil
}

func apply(base paint.Params, x []float64) paint.Params {
	p := base
	p.Threshold = x[0]
	p.BlurFactor = x[1]
	return p
}

func paintOnce(ctx context.Context, src *raster.RGB, p paint.Params) (*paint.Result, error) {
	s, err := paint.NewSession(src, src.Width, src.Height, p)
	if err != nil {
		return nil, err
	}
	return s.Paint(ctx)
}

// shrink halves the search box around centre, staying inside the original
// ranges.
func shrink(lower, upper, centre []float64, opts Options) ([]float64, []float64) {
	limits := []Range{opts.Threshold, opts.BlurFactor}
	lo := make([]float64, len(lower))
	hi := make([]float64, len(upper))
	for i := range lower {
		half := (upper[i] - lower[i]) / 4
		lo[i] = math.Max(math.Max(0, limits[i].Min), centre[i]-half)
		hi[i] = math.Min(limits[i].Max, centre[i]+half)
	}
	return lo, hi
}
