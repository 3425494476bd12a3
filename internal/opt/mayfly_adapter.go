package opt

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MayflyAdapter runs the Mayfly algorithm. The library only supports one
// scalar bound for all dimensions, so the search runs in the unit box and
// every position is mapped onto the per-dimension bounds before evaluation.
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a Mayfly optimizer. popSize must be at least 20.
func NewMayfly(maxIters, popSize int, seed int64) Optimizer {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

func (m *MayflyAdapter) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	scaled := func(unit []float64) float64 {
		return eval(fromUnit(unit, lower, upper))
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = scaled
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		slog.Warn("Mayfly failed, falling back to box centre", "error", err)
		centre := make([]float64, dim)
		for i := range centre {
			centre[i] = 0.5
		}
		best := fromUnit(centre, lower, upper)
		return best, eval(best)
	}

	return fromUnit(result.GlobalBest.Position, lower, upper), result.GlobalBest.Cost
}

// fromUnit maps a point of the unit box onto [lower, upper].
func fromUnit(unit, lower, upper []float64) []float64 {
	out := make([]float64, len(unit))
	for i, u := range unit {
		u = math.Max(0, math.Min(1, u))
		out[i] = lower[i] + u*(upper[i]-lower[i])
	}
	return out
}
