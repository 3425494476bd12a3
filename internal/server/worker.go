package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/impasto/internal/imageio"
	"github.com/cwbudde/impasto/internal/paint"
	"github.com/cwbudde/impasto/internal/raster"
	"github.com/cwbudde/impasto/internal/shade"
	"github.com/cwbudde/impasto/internal/store"
	"github.com/cwbudde/impasto/internal/texture"
	"github.com/cwbudde/impasto/internal/tune"
)

// runJob paints, shades and optionally persists a job. If st is not nil the
// per-layer trace and the finished artifacts are written to it.
func runJob(ctx context.Context, jm *JobManager, st store.Store, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if err := ctx.Err(); err != nil {
		markJobCancelled(jm, jobID)
		return err
	}

	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		return err
	}
	cfg := job.Config
	slog.Info("Starting job", "job_id", jobID, "source", cfg.SourcePath)

	shader, err := shade.Parse(cfg.Shader)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	img, err := imageio.Load(cfg.SourcePath, cfg.MaxDim)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}
	src := raster.FromImage(img)
	jm.UpdateJob(jobID, func(j *Job) {
		j.Width, j.Height = src.Width, src.Height
		j.source = src
	})
	slog.Info("Loaded source image", "job_id", jobID, "width", src.Width, "height", src.Height)

	opts, err := texture.Options(cfg.HeightTexture, cfg.OpacityTexture)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	var trace *store.TraceWriter
	if st != nil {
		if trace, err = st.OpenTrace(jobID); err != nil {
			slog.Warn("Failed to open trace", "job_id", jobID, "error", err)
			trace = nil
		} else {
			defer trace.Close()
		}
	}

	opts = append(opts, paint.WithObserver(func(stats paint.LayerStats) {
		var event ProgressEvent
		jm.UpdateJob(jobID, func(j *Job) {
			j.Layers = append(j.Layers, stats)
			j.Layer = len(j.Layers)
			j.Strokes += stats.Strokes
			event = jobEvent(j.snapshot())
		})
		event.Radius = stats.Radius
		jm.broadcaster.Broadcast(event)

		if trace != nil {
			if err := trace.Write(store.NewTraceEntry(stats)); err != nil {
				slog.Warn("Failed to write trace entry", "job_id", jobID, "error", err)
			}
		}
	}))

	session, err := paint.NewSession(src, src.Width, src.Height, cfg.Params, opts...)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	start := time.Now()
	res, err := session.Paint(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			markJobCancelled(jm, jobID)
		} else {
			markJobFailed(jm, jobID, err)
		}
		return err
	}

	shaded := shade.Apply(res.Canvas, res.Height, shade.Options{
		Shader: shader,
		Lights: cfg.Lights,
		Relief: cfg.Relief,
	})
	cost := tune.MSECost(res.Canvas, src)
	elapsed := time.Since(start)

	endTime := time.Now()
	var final Job
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Cost = cost
		j.Strokes = res.Strokes
		j.Layers = res.Layers
		j.Layer = len(res.Layers)
		j.EndTime = &endTime
		j.canvas, j.height, j.shaded = res.Canvas, res.Height, shaded
		final = j.snapshot()
	})
	if err != nil {
		return err
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"strokes", res.Strokes,
		"cost", cost,
	)

	if st != nil {
		if trace != nil {
			if err := trace.Flush(); err != nil {
				slog.Warn("Failed to flush trace", "job_id", jobID, "error", err)
			}
		}
		if err := persistJob(st, final, elapsed); err != nil {
			slog.Error("Failed to persist job", "job_id", jobID, "error", err)
		}
	}

	jm.broadcaster.Broadcast(jobEvent(final))
	return nil
}

// persistJob writes the record and artifacts of a completed job.
func persistJob(st store.Store, job Job, elapsed time.Duration) error {
	err := store.SaveRun(st, store.Run{
		Record: &store.Record{
			JobID:     job.ID,
			Config:    job.Config,
			Width:     job.Width,
			Height:    job.Height,
			Strokes:   job.Strokes,
			Cost:      job.Cost,
			Layers:    job.Layers,
			Elapsed:   elapsed,
			Timestamp: time.Now(),
		},
		Source:  job.source,
		Painted: job.canvas,
		Shaded:  job.shaded,
		Height:  job.height,
	})
	if err != nil {
		return err
	}

	slog.Debug("Job persisted", "job_id", job.ID)
	return nil
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	var final Job
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
		final = j.snapshot()
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
	jm.broadcaster.Broadcast(jobEvent(final))
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	var final Job
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
		final = j.snapshot()
	})
	slog.Info("Job cancelled", "job_id", jobID)
	jm.broadcaster.Broadcast(jobEvent(final))
}
