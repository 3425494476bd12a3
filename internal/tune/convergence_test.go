package tune

import "testing"

func TestConvergenceTracker(t *testing.T) {
	tests := []struct {
		name       string
		costs      []float64
		convergeAt int // index of the Update that reports convergence, -1 for never
	}{
		{"steady improvement", []float64{100, 90, 80, 70}, -1},
		{"plateau", []float64{100, 90, 89.9, 89.8}, 3},
		{"immediate plateau", []float64{100, 100, 100}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewConvergenceTracker(ConvergenceConfig{Patience: 2, Threshold: 0.01})
			got := -1
			for i, c := range tt.costs {
				if tracker.Update(c) && got < 0 {
					got = i
				}
			}
			if got != tt.convergeAt {
				t.Errorf("converged at %d, want %d", got, tt.convergeAt)
			}
			if len(tracker.History()) != len(tt.costs) {
				t.Errorf("History has %d entries, want %d", len(tracker.History()), len(tt.costs))
			}
		})
	}
}

func TestConvergenceTrackerBestCost(t *testing.T) {
	tracker := NewConvergenceTracker(DefaultConvergenceConfig())
	for _, c := range []float64{5, 3, 4} {
		tracker.Update(c)
	}
	if tracker.BestCost() != 3 {
		t.Errorf("BestCost = %f, want 3", tracker.BestCost())
	}
}

func TestConvergenceZeroPatienceNeverStops(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{Patience: 0, Threshold: 0.5})
	for i := 0; i < 5; i++ {
		if tracker.Update(1) {
			t.Fatal("zero patience should never report convergence")
		}
	}
}
