package store

import (
	"image"

	"github.com/cwbudde/impasto/internal/raster"
)

// Artifact names stored next to a record.
const (
	PaintedImage = "painted.png"
	ShadedImage  = "shaded.png"
	SourceImage  = "source.png"
)

// Store persists finished paint jobs.
// Implementations must be safe for concurrent use.
//
// Load and Delete return ErrNotFound for unknown jobs. Other failures are
// wrapped with context.
type Store interface {
	// SaveRecord atomically writes the record, replacing any previous one.
	SaveRecord(jobID string, record *Record) error
	LoadRecord(jobID string) (*Record, error)
	ListRecords() ([]RecordInfo, error)

	// DeleteRecord removes the record and all artifacts of the job.
	DeleteRecord(jobID string) error

	// SaveImage stores an image artifact such as PaintedImage.
	SaveImage(jobID, name string, img image.Image) error
	LoadImage(jobID, name string) (image.Image, error)

	// SaveHeight stores the height field losslessly.
	SaveHeight(jobID string, height *raster.Gray) error
	LoadHeight(jobID string) (*raster.Gray, error)

	// OpenTrace starts a fresh per-layer trace for the job.
	OpenTrace(jobID string) (*TraceWriter, error)
	LoadTrace(jobID string) ([]TraceEntry, error)
}

// ErrNotFound is returned when a requested job does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing job or artifact.
type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string {
	if e.JobID != "" {
		return "job not found: " + e.JobID
	}
	return "job not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
