package kernel

// Sobel is the pair of 3x3 directional difference kernels.
// Build it once with NewSobel and pass it to whatever needs gradients.
type Sobel struct {
	X *Kernel
	Y *Kernel
}

// NewSobel returns the standard horizontal and vertical Sobel kernels.
func NewSobel() Sobel {
	x := newKernel(3, 3)
	copy(x.values, []float64{
		-1, 0, 1,
		-2, 0, 2,
		-1, 0, 1,
	})

	y := newKernel(3, 3)
	copy(y.values, []float64{
		-1, -2, -1,
		0, 0, 0,
		1, 2, 1,
	})

	return Sobel{X: x, Y: y}
}
