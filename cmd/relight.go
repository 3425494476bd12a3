package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cwbudde/impasto/internal/imageio"
	"github.com/cwbudde/impasto/internal/raster"
	"github.com/cwbudde/impasto/internal/shade"
	"github.com/cwbudde/impasto/internal/store"
)

var (
	relightOut        string
	relightUpdate     bool
	relightShadeFlags shadeFlags
)

var relightCmd = &cobra.Command{
	Use:   "relight <job-id>",
	Short: "Shade a stored job again with other lights or another shader",
	Long: `Loads the painted canvas and height field of a job saved with "paint --save"
or by the server and shades it again. Painting is not repeated.`,
	Args: cobra.ExactArgs(1),
	RunE: runRelight,
}

func init() {
	fs := relightCmd.Flags()
	fs.StringVar(&relightOut, "out", "relit.png", "Output image path")
	fs.BoolVar(&relightUpdate, "update", false, "Replace the stored shaded image and shading settings")
	relightShadeFlags.register(fs)

	rootCmd.AddCommand(relightCmd)
}

func runRelight(cmd *cobra.Command, args []string) error {
	jobID := args[0]
	if !imageio.Supported(filepath.Ext(relightOut)) {
		return fmt.Errorf("%w: %s", imageio.ErrUnsupportedFormat, relightOut)
	}
	opts, err := relightShadeFlags.options()
	if err != nil {
		return err
	}

	st, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	shaded, err := relight(st, jobID, opts)
	if err != nil {
		return err
	}
	if err := imageio.Save(relightOut, shaded.NRGBA()); err != nil {
		return err
	}

	if relightUpdate {
		record, err := st.LoadRecord(jobID)
		if err != nil {
			return err
		}
		record.Config.Shader = relightShadeFlags.shader
		record.Config.Lights = relightShadeFlags.lights
		record.Config.Relief = relightShadeFlags.relief
		if err := st.SaveRecord(jobID, record); err != nil {
			return err
		}
		if err := st.SaveImage(jobID, store.ShadedImage, shaded.NRGBA()); err != nil {
			return err
		}
		slog.Info("Updated stored shading", "job_id", jobID, "shader", relightShadeFlags.shader)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", relightOut)
	return nil
}

// relight shades a stored canvas with its stored height field.
func relight(st store.Store, jobID string, opts shade.Options) (*raster.RGB, error) {
	painted, err := st.LoadImage(jobID, store.PaintedImage)
	if err != nil {
		return nil, err
	}
	height, err := st.LoadHeight(jobID)
	if err != nil {
		return nil, err
	}

	canvas := raster.FromImage(painted)
	if canvas.Width != height.Width || canvas.Height != height.Height {
		return nil, fmt.Errorf("job %s: canvas %dx%d and height field %dx%d: %w",
			jobID, canvas.Width, canvas.Height, height.Width, height.Height, raster.ErrDimensionMismatch)
	}
	return shade.Apply(canvas, height, opts), nil
}
