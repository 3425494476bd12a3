package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

// jobStatus is the subset of the server's status response shown here.
type jobStatus struct {
	ID     string `json:"id"`
	State  string `json:"state"`
	Config struct {
		SourcePath string `json:"sourcePath"`
		Shader     string `json:"shader"`
		Params     struct {
			Layers    int     `json:"layers"`
			MinRadius int     `json:"minRadius"`
			Threshold float64 `json:"threshold"`
		} `json:"params"`
	} `json:"config"`
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	Layer            int     `json:"layer"`
	Strokes          int     `json:"strokes"`
	Cost             float64 `json:"cost"`
	Elapsed          float64 `json:"elapsed"`
	StrokesPerSecond float64 `json:"strokesPerSecond"`
	Persisted        bool    `json:"persisted"`
	Error            string  `json:"error"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		return listJobs(out, fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}
	jobID := args[0]
	return getJobStatus(out, fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

func fetchJSON(url string, v any) (int, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("server returned error: %s", body)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func listJobs(out io.Writer, url string) error {
	var jobs []jobStatus
	if _, err := fetchJSON(url, &jobs); err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs found")
		return nil
	}

	fmt.Fprintf(out, "Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Fprintf(out, "Job ID: %s\n", job.ID)
		fmt.Fprintf(out, "  State: %s\n", job.State)
		fmt.Fprintf(out, "  Source: %s\n", job.Config.SourcePath)
		fmt.Fprintf(out, "  Layers: %d/%d\n", job.Layer, job.Config.Params.Layers)
		if job.Strokes > 0 {
			fmt.Fprintf(out, "  Strokes: %d\n", job.Strokes)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func getJobStatus(out io.Writer, url, jobID string) error {
	var status jobStatus
	code, err := fetchJSON(url, &status)
	if code == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Job: %s\n", status.ID)
	fmt.Fprintf(out, "State: %s\n", status.State)
	if status.Persisted {
		fmt.Fprintln(out, "(loaded from store)")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintf(out, "  Source: %s\n", status.Config.SourcePath)
	fmt.Fprintf(out, "  Shader: %s\n", status.Config.Shader)
	fmt.Fprintf(out, "  Layers: %d (min radius %d)\n", status.Config.Params.Layers, status.Config.Params.MinRadius)
	fmt.Fprintf(out, "  Threshold: %.1f\n", status.Config.Params.Threshold)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Progress:")
	if status.Width > 0 {
		fmt.Fprintf(out, "  Size: %dx%d\n", status.Width, status.Height)
	}
	fmt.Fprintf(out, "  Layers painted: %d/%d\n", status.Layer, status.Config.Params.Layers)
	fmt.Fprintf(out, "  Strokes: %d\n", status.Strokes)
	if status.Cost > 0 {
		fmt.Fprintf(out, "  MSE: %.2f\n", status.Cost)
	}
	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Fprintf(out, "  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	if status.StrokesPerSecond > 0 {
		fmt.Fprintf(out, "  Throughput: %.0f strokes/sec\n", status.StrokesPerSecond)
	}

	if status.Error != "" {
		fmt.Fprintf(out, "\nError: %s\n", status.Error)
	}
	return nil
}
