package paint

import "fmt"

// CurveParams controls limit-curve subdivision.
type CurveParams struct {
	// ThetaTolerance is the largest turning angle (radians) a triple of
	// close points may have before the curve is subdivided again.
	ThetaTolerance float64 `json:"thetaTolerance"`

	// Neighbourhood is the distance in pixels beyond which two consecutive
	// points are considered far enough apart to need no further smoothing.
	Neighbourhood float64 `json:"neighbourhood"`

	// Decimate removes nearly collinear points after subdivision.
	Decimate bool `json:"decimate,omitempty"`

	// MaxDepth bounds the number of subdivision rounds.
	MaxDepth int `json:"maxDepth"`
}

// Params holds the painting style.
type Params struct {
	Layers          int     `json:"layers"`
	MinRadius       int     `json:"minRadius"`
	MinStrokeLength int     `json:"minStrokeLength"`
	MaxStrokeLength int     `json:"maxStrokeLength"`
	BlurFactor      float64 `json:"blurFactor"`   // blur sigma relative to brush radius
	FilterFactor    float64 `json:"filterFactor"` // IIR weight of the new direction
	GridFactor      float64 `json:"gridFactor"`   // grid spacing relative to brush radius
	LengthFactor    float64 `json:"lengthFactor"` // control point spacing relative to brush radius
	Threshold       float64 `json:"threshold"`    // mean error per pixel tolerated before painting
	FallOff         float64 `json:"fallOff"`      // anti-aliased rim relative to brush radius

	RandomOrder bool  `json:"randomOrder,omitempty"`
	Seed        int64 `json:"seed,omitempty"`

	// StrokeHeight is the relief of a stroke without a height texture.
	StrokeHeight float64 `json:"strokeHeight"`
	// HeightIncrement is added on top of every stroke's height blend so the
	// freshest stroke at a pixel sits slightly above the blend.
	HeightIncrement float64 `json:"heightIncrement"`

	Curve CurveParams `json:"curve"`
}

// DefaultParams returns the classic painterly settings.
func DefaultParams() Params {
	return Params{
		Layers:          3,
		MinRadius:       2,
		MinStrokeLength: 4,
		MaxStrokeLength: 16,
		BlurFactor:      2.0,
		FilterFactor:    1.0,
		GridFactor:      1.0,
		LengthFactor:    1.0,
		Threshold:       100,
		FallOff:         0.1,
		StrokeHeight:    1.0,
		HeightIncrement: 0.001,
		Curve: CurveParams{
			ThetaTolerance: 0.1,
			Neighbourhood:  2,
			MaxDepth:       6,
		},
	}
}

// Validate checks that the parameters describe a runnable painting.
func (p Params) Validate() error {
	switch {
	case p.Layers < 1:
		return &ValidationError{Field: "Layers", Reason: "must be at least 1"}
	case p.MinRadius < 1:
		return &ValidationError{Field: "MinRadius", Reason: "must be at least 1"}
	case p.Layers > 1 && p.MinRadius<<(p.Layers-1) > 1<<16:
		return &ValidationError{Field: "Layers", Reason: "largest brush radius too large"}
	case p.MaxStrokeLength < 1:
		return &ValidationError{Field: "MaxStrokeLength", Reason: "must be at least 1"}
	case p.MinStrokeLength < 0:
		return &ValidationError{Field: "MinStrokeLength", Reason: "cannot be negative"}
	case p.BlurFactor < 0:
		return &ValidationError{Field: "BlurFactor", Reason: "cannot be negative"}
	case p.FilterFactor < 0 || p.FilterFactor > 1:
		return &ValidationError{Field: "FilterFactor", Reason: "must be in [0,1]"}
	case p.GridFactor <= 0:
		return &ValidationError{Field: "GridFactor", Reason: "must be positive"}
	case p.LengthFactor <= 0:
		return &ValidationError{Field: "LengthFactor", Reason: "must be positive"}
	case p.Threshold < 0:
		return &ValidationError{Field: "Threshold", Reason: "cannot be negative"}
	case p.FallOff < 0:
		return &ValidationError{Field: "FallOff", Reason: "cannot be negative"}
	case p.Curve.ThetaTolerance < 0:
		return &ValidationError{Field: "Curve.ThetaTolerance", Reason: "cannot be negative"}
	case p.Curve.MaxDepth < 0:
		return &ValidationError{Field: "Curve.MaxDepth", Reason: "cannot be negative"}
	}
	return nil
}

// ValidationError reports an invalid parameter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid params: %s %s", e.Field, e.Reason)
}

// Schedule returns the brush radii of every layer, largest first. Each layer
// halves the radius of the previous one, ending at MinRadius.
func Schedule(p Params) []int {
	radii := make([]int, 0, p.Layers)
	for i := p.Layers - 1; i >= 0; i-- {
		radii = append(radii, p.MinRadius<<i)
	}
	return radii
}
