package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/impasto/internal/imageio"
	"github.com/cwbudde/impasto/internal/opt"
	"github.com/cwbudde/impasto/internal/paint"
	"github.com/cwbudde/impasto/internal/raster"
	"github.com/cwbudde/impasto/internal/tune"
)

var (
	tuneIn         string
	tuneMaxDim     int
	tuneParamsFile string
	tuneOut        string
	tuneIters      int
	tunePop        int
	tuneSeed       int64
	tuneParams     = paint.DefaultParams()
	tuneOpts       = tune.DefaultOptions(0)
)

var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Search painting parameters for an image",
	Long: `Searches the error threshold and blur factor with the Mayfly optimizer,
trading image error against stroke count:

  cost = MSE + lambda * strokes / pixels

Each evaluation paints the whole image, so tune on a downscaled copy
(--max-dim) and reuse the parameters at full size.`,
	RunE: runTune,
}

func init() {
	fs := tuneCmd.Flags()
	fs.StringVar(&tuneIn, "in", "", "Source image path (required)")
	fs.IntVar(&tuneMaxDim, "max-dim", 128, "Downscale the source so its longer side fits (0 = keep)")
	fs.StringVar(&tuneParamsFile, "params", "", "JSON file with the starting parameters")
	fs.StringVar(&tuneOut, "out", "", "Write the best parameters as JSON to this file")
	fs.IntVar(&tuneIters, "iters", 30, "Optimizer iterations per round")
	fs.IntVar(&tunePop, "pop", 20, "Optimizer population size")
	fs.Int64Var(&tuneSeed, "tune-seed", 42, "Optimizer seed")
	fs.Float64Var(&tuneOpts.Lambda, "lambda", tuneOpts.Lambda, "Weight of stroke density against image error")
	fs.IntVar(&tuneOpts.Rounds, "rounds", tuneOpts.Rounds, "Maximum optimizer rounds")
	fs.IntVar(&tuneOpts.Convergence.Patience, "patience", tuneOpts.Convergence.Patience, "Stop after this many rounds without improvement (0 = never)")
	fs.Float64Var(&tuneOpts.Threshold.Min, "threshold-min", tuneOpts.Threshold.Min, "Lower bound of the threshold search")
	fs.Float64Var(&tuneOpts.Threshold.Max, "threshold-max", tuneOpts.Threshold.Max, "Upper bound of the threshold search")
	fs.Float64Var(&tuneOpts.BlurFactor.Min, "blur-min", tuneOpts.BlurFactor.Min, "Lower bound of the blur factor search")
	fs.Float64Var(&tuneOpts.BlurFactor.Max, "blur-max", tuneOpts.BlurFactor.Max, "Upper bound of the blur factor search")
	bindParams(fs, &tuneParams)

	tuneCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(tuneCmd)
}

func runTune(cmd *cobra.Command, args []string) error {
	if err := applyParamsFile(cmd.Flags(), tuneParamsFile, &tuneParams); err != nil {
		return err
	}

	img, err := imageio.Load(tuneIn, tuneMaxDim)
	if err != nil {
		return err
	}
	src := raster.FromImage(img)

	opts := tuneOpts
	opts.NewOptimizer = func(round int) opt.Optimizer {
		return opt.NewMayfly(tuneIters, tunePop, tuneSeed+int64(round))
	}

	res, err := tune.Tune(cmd.Context(), src, tuneParams, opts)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(res.Params, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	if tuneOut != "" {
		if err := os.WriteFile(tuneOut, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("failed to write params: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Best cost %.2f (mse %.2f, %d strokes) after %d evaluations in %d round(s)\n",
		res.Cost, res.MSE, res.Strokes, res.Evaluations, res.Rounds)
	fmt.Fprintf(out, "%s\n", data)
	return nil
}
