package tune

import (
	"log/slog"
	"math"
)

// ConvergenceConfig decides when further tuning rounds stop paying off.
type ConvergenceConfig struct {
	// Patience is the number of rounds without significant improvement
	// tolerated before stopping.
	Patience int

	// Threshold is the minimum relative improvement that counts as progress,
	// (lastSignificant - cost) / lastSignificant.
	Threshold float64
}

// DefaultConvergenceConfig stops after two flat rounds of under 0.5% gain.
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Patience:  2,
		Threshold: 0.005,
	}
}

// ConvergenceTracker records the best cost of every round.
type ConvergenceTracker struct {
	config          ConvergenceConfig
	history         []float64
	best            float64
	lastSignificant float64
	stale           int
}

// NewConvergenceTracker creates a tracker with the given config.
func NewConvergenceTracker(config ConvergenceConfig) *ConvergenceTracker {
	return &ConvergenceTracker{
		config:          config,
		best:            math.Inf(1),
		lastSignificant: math.Inf(1),
	}
}

// Update records a round's cost and reports whether tuning has converged.
func (c *ConvergenceTracker) Update(cost float64) bool {
	c.history = append(c.history, cost)
	c.best = math.Min(c.best, cost)

	if len(c.history) == 1 {
		c.lastSignificant = cost
		return false
	}

	improvement := 0.0
	if c.lastSignificant > 0 {
		improvement = (c.lastSignificant - cost) / c.lastSignificant
	}
	if improvement >= c.config.Threshold {
		c.lastSignificant = cost
		c.stale = 0
		slog.Debug("Tuning improved", "cost", cost, "relative_improvement", improvement)
		return false
	}

	c.stale++
	slog.Debug("No significant tuning improvement",
		"cost", cost,
		"last_significant", c.lastSignificant,
		"stale_count", c.stale,
		"patience", c.config.Patience,
	)
	return c.config.Patience > 0 && c.stale >= c.config.Patience
}

// BestCost returns the best cost seen so far.
func (c *ConvergenceTracker) BestCost() float64 { return c.best }

// History returns a copy of the recorded costs.
func (c *ConvergenceTracker) History() []float64 {
	return append([]float64{}, c.history...)
}
