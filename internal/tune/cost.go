package tune

import (
	"fmt"

	"github.com/cwbudde/impasto/internal/raster"
)

// MSECost computes the mean squared error over RGB channels.
func MSECost(current, reference *raster.RGB) float64 {
	if !current.SameSize(reference) {
		panic(fmt.Sprintf("image dimensions must match: %dx%d vs %dx%d",
			current.Width, current.Height, reference.Width, reference.Height))
	}
	if len(current.Pix) == 0 {
		return 0
	}

	var sum float64
	for i, v := range current.Pix {
		d := v - reference.Pix[i]
		sum += d * d
	}
	return sum / float64(len(current.Pix))
}
