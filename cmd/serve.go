package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/impasto/internal/server"
	"github.com/cwbudde/impasto/internal/store"
)

var (
	serveAddr    string
	serveNoStore bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP job server",
	Long: `Serves the paint job API:

  POST /api/v1/jobs                  start a job (JSON config)
  GET  /api/v1/jobs                  list jobs of this run
  GET  /api/v1/jobs/{id}             job status
  POST /api/v1/jobs/{id}/cancel      stop a job between layers
  GET  /api/v1/jobs/{id}/stream      per-layer progress (server-sent events)
  GET  /api/v1/jobs/{id}/{painted,height,shaded,diff}.png
  GET  /api/v1/jobs/{id}/trace       per-layer trace of a stored job
  GET  /api/v1/records               stored jobs`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().BoolVar(&serveNoStore, "no-store", false, "Keep jobs in memory only")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	var st store.Store
	if !serveNoStore {
		fs, err := store.NewFSStore(dataDir)
		if err != nil {
			return fmt.Errorf("failed to create store: %w", err)
		}
		st = fs
		slog.Info("Persisting jobs", "dir", fs.BaseDir())
	}

	srv := server.NewServer(serveAddr, st)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-cmd.Context().Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
