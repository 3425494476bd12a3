package store

import (
	"time"

	"github.com/cwbudde/impasto/internal/paint"
	"github.com/cwbudde/impasto/internal/shade"
)

// JobConfig holds everything needed to repeat a paint run.
// It lives here rather than in the server package to avoid import cycles.
type JobConfig struct {
	SourcePath string        `json:"sourcePath"`
	MaxDim     int           `json:"maxDim,omitempty"` // downscale the source so its longer side fits (0 = keep)
	Shader     string        `json:"shader"`
	Lights     []shade.Light `json:"lights,omitempty"` // empty = default light
	Relief     float64       `json:"relief,omitempty"`
	Params     paint.Params  `json:"params"`

	// Optional gray textures sampled across every stroke.
	HeightTexture  string `json:"heightTexture,omitempty"`
	OpacityTexture string `json:"opacityTexture,omitempty"`
}

// Record is the persisted summary of a finished paint job. The rasters it
// describes are stored next to it as separate artifacts.
type Record struct {
	JobID     string             `json:"jobId"`
	Config    JobConfig          `json:"config"`
	Width     int                `json:"width"`
	Height    int                `json:"height"`
	Strokes   int                `json:"strokes"`
	Cost      float64            `json:"cost"` // MSE of the painted canvas against the source
	Layers    []paint.LayerStats `json:"layers"`
	Elapsed   time.Duration      `json:"elapsed"`
	Timestamp time.Time          `json:"timestamp"`
}

// RecordInfo is the listing view of a Record.
type RecordInfo struct {
	JobID      string    `json:"jobId"`
	SourcePath string    `json:"sourcePath"`
	Shader     string    `json:"shader"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Strokes    int       `json:"strokes"`
	Cost       float64   `json:"cost"`
	Timestamp  time.Time `json:"timestamp"`
}

// ToInfo converts a full Record to RecordInfo.
func (r *Record) ToInfo() RecordInfo {
	return RecordInfo{
		JobID:      r.JobID,
		SourcePath: r.Config.SourcePath,
		Shader:     r.Config.Shader,
		Width:      r.Width,
		Height:     r.Height,
		Strokes:    r.Strokes,
		Cost:       r.Cost,
		Timestamp:  r.Timestamp,
	}
}

// Validate checks if the record has valid data.
func (r *Record) Validate() error {
	if r.JobID == "" {
		return &ValidationError{Field: "JobID", Reason: "cannot be empty"}
	}
	if r.Width <= 0 || r.Height <= 0 {
		return &ValidationError{Field: "Width/Height", Reason: "must be positive"}
	}
	if r.Strokes < 0 {
		return &ValidationError{Field: "Strokes", Reason: "cannot be negative"}
	}
	if r.Cost < 0 {
		return &ValidationError{Field: "Cost", Reason: "cannot be negative"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if r.Config.SourcePath == "" {
		return &ValidationError{Field: "Config.SourcePath", Reason: "cannot be empty"}
	}
	if _, err := shade.Parse(r.Config.Shader); err != nil {
		return &ValidationError{Field: "Config.Shader", Reason: err.Error()}
	}
	if err := r.Config.Params.Validate(); err != nil {
		return &ValidationError{Field: "Config.Params", Reason: err.Error()}
	}
	if len(r.Layers) != r.Config.Params.Layers {
		return &ValidationError{Field: "Layers", Reason: "does not match the configured layer count"}
	}
	return nil
}

// ValidationError represents a record validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
