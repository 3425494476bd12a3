package store

import (
	"fmt"

	"github.com/cwbudde/impasto/internal/paint"
	"github.com/cwbudde/impasto/internal/raster"
)

// Run is a finished paint job ready to be stored.
type Run struct {
	Record  *Record
	Source  *raster.RGB
	Painted *raster.RGB
	Shaded  *raster.RGB
	Height  *raster.Gray
}

// SaveRun validates the record and writes it together with the source,
// painted and shaded images and the height field.
func SaveRun(st Store, run Run) error {
	if run.Record == nil {
		return &ValidationError{Field: "Record", Reason: "is required"}
	}
	if err := run.Record.Validate(); err != nil {
		return err
	}
	jobID := run.Record.JobID

	if err := st.SaveRecord(jobID, run.Record); err != nil {
		return err
	}
	for _, a := range []struct {
		name string
		img  *raster.RGB
	}{
		{SourceImage, run.Source},
		{PaintedImage, run.Painted},
		{ShadedImage, run.Shaded},
	} {
		if a.img == nil {
			return fmt.Errorf("job %s: missing %s", jobID, a.name)
		}
		if err := st.SaveImage(jobID, a.name, a.img.NRGBA()); err != nil {
			return err
		}
	}
	if run.Height == nil {
		return fmt.Errorf("job %s: missing height field", jobID)
	}
	return st.SaveHeight(jobID, run.Height)
}

// WriteTrace replaces the job's trace with one entry per layer.
func WriteTrace(st Store, jobID string, layers []paint.LayerStats) error {
	trace, err := st.OpenTrace(jobID)
	if err != nil {
		return err
	}
	for _, stats := range layers {
		if err := trace.Write(NewTraceEntry(stats)); err != nil {
			trace.Close()
			return err
		}
	}
	return trace.Close()
}
