// Package opt provides the black-box optimizers used by the style tuner.
package opt

// Optimizer minimises an objective over a box.
type Optimizer interface {
	// Run minimises eval over the box [lower, upper] of dimension dim and
	// returns the best position found with its cost.
	Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64)
}
