package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cwbudde/impasto/internal/imageio"
	"github.com/cwbudde/impasto/internal/paint"
	"github.com/cwbudde/impasto/internal/raster"
	"github.com/cwbudde/impasto/internal/shade"
	"github.com/cwbudde/impasto/internal/store"
	"github.com/cwbudde/impasto/internal/texture"
	"github.com/cwbudde/impasto/internal/tune"
)

var (
	paintIn         string
	paintOut        string
	heightOut       string
	shadedOut       string
	paintMaxDim     int
	paramsFile      string
	heightTexture   string
	opacityTexture  string
	saveJob         bool
	paintParams     = paint.DefaultParams()
	paintShadeFlags shadeFlags
)

var paintCmd = &cobra.Command{
	Use:   "paint",
	Short: "Paint an image with layered strokes",
	Long: `Paints the input image from the largest brush to the smallest, then shades
the canvas using the height field the strokes built up.

Painted, height and shaded images are written by extension (png, jpg, qoi,
bmp, tiff). With --save the run is also stored under --data-dir so it can be
relit later.`,
	RunE: runPaint,
}

func init() {
	fs := paintCmd.Flags()
	fs.StringVar(&paintIn, "in", "", "Source image path (required)")
	fs.StringVar(&paintOut, "out", "painted.png", "Painted canvas output path")
	fs.StringVar(&heightOut, "height-out", "", "Height field visualisation output path (optional)")
	fs.StringVar(&shadedOut, "shaded-out", "shaded.png", "Shaded canvas output path (empty to skip shading)")
	fs.IntVar(&paintMaxDim, "max-dim", 0, "Downscale the source so its longer side fits (0 = keep)")
	fs.StringVar(&paramsFile, "params", "", "JSON file with painting parameters")
	fs.StringVar(&heightTexture, "height-texture", "", "Gray image modulating stroke height")
	fs.StringVar(&opacityTexture, "opacity-texture", "", "Gray image modulating stroke opacity")
	fs.BoolVar(&saveJob, "save", false, "Store the run under --data-dir")
	bindParams(fs, &paintParams)
	paintShadeFlags.register(fs)

	paintCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(paintCmd)
}

func runPaint(cmd *cobra.Command, args []string) error {
	if err := applyParamsFile(cmd.Flags(), paramsFile, &paintParams); err != nil {
		return err
	}
	for _, path := range []string{paintOut, heightOut, shadedOut} {
		if path != "" && !imageio.Supported(filepath.Ext(path)) {
			return fmt.Errorf("%w: %s", imageio.ErrUnsupportedFormat, path)
		}
	}
	shadeOpts, err := paintShadeFlags.options()
	if err != nil {
		return err
	}

	img, err := imageio.Load(paintIn, paintMaxDim)
	if err != nil {
		return err
	}
	src := raster.FromImage(img)
	slog.Info("Loaded source", "width", src.Width, "height", src.Height)

	opts, err := texture.Options(heightTexture, opacityTexture)
	if err != nil {
		return err
	}
	opts = append(opts, paint.WithObserver(func(stats paint.LayerStats) {
		slog.Info("Layer painted",
			"layer", stats.Index,
			"radius", stats.Radius,
			"strokes", stats.Strokes,
			"error", stats.Error,
			"elapsed", stats.Elapsed,
		)
	}))

	session, err := paint.NewSession(src, src.Width, src.Height, paintParams, opts...)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := session.Paint(cmd.Context())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	cost := tune.MSECost(res.Canvas, src)

	slog.Info("Painting complete", "elapsed", elapsed, "strokes", res.Strokes, "mse", cost)

	if err := imageio.Save(paintOut, res.Canvas.NRGBA()); err != nil {
		return err
	}
	if heightOut != "" {
		if err := imageio.Save(heightOut, res.Height.Image()); err != nil {
			return err
		}
	}

	var shaded *raster.RGB
	if shadedOut != "" {
		shaded = shade.Apply(res.Canvas, res.Height, shadeOpts)
		if err := imageio.Save(shadedOut, shaded.NRGBA()); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s (%d strokes, mse %.2f, %s)\n", paintOut, res.Strokes, cost, elapsed.Round(time.Millisecond))

	if saveJob {
		if shaded == nil {
			shaded = shade.Apply(res.Canvas, res.Height, shadeOpts)
		}
		config := store.JobConfig{
			SourcePath:     paintIn,
			MaxDim:         paintMaxDim,
			Shader:         paintShadeFlags.shader,
			Lights:         paintShadeFlags.lights,
			Relief:         paintShadeFlags.relief,
			Params:         paintParams,
			HeightTexture:  heightTexture,
			OpacityTexture: opacityTexture,
		}
		jobID, err := saveRun(config, src, res, shaded, cost, elapsed)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved job %s\n", jobID)
	}
	return nil
}

// saveRun stores a finished run as a new job in the data directory.
func saveRun(config store.JobConfig, src *raster.RGB, res *paint.Result, shaded *raster.RGB, cost float64, elapsed time.Duration) (string, error) {
	st, err := store.NewFSStore(dataDir)
	if err != nil {
		return "", fmt.Errorf("failed to create store: %w", err)
	}

	jobID := uuid.New().String()
	err = store.SaveRun(st, store.Run{
		Record: &store.Record{
			JobID:     jobID,
			Config:    config,
			Width:     src.Width,
			Height:    src.Height,
			Strokes:   res.Strokes,
			Cost:      cost,
			Layers:    res.Layers,
			Elapsed:   elapsed,
			Timestamp: time.Now(),
		},
		Source:  src,
		Painted: res.Canvas,
		Shaded:  shaded,
		Height:  res.Height,
	})
	if err != nil {
		return "", err
	}
	if err := store.WriteTrace(st, jobID, res.Layers); err != nil {
		return "", err
	}

	slog.Info("Saved job", "job_id", jobID, "dir", st.BaseDir())
	return jobID, nil
}
