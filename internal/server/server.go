// Package server runs paint jobs in the background and exposes them over a
// JSON API with per-layer progress streamed as server-sent events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwbudde/impasto/internal/paint"
	"github.com/cwbudde/impasto/internal/raster"
	"github.com/cwbudde/impasto/internal/shade"
	"github.com/cwbudde/impasto/internal/store"
)

// Image names served under /api/v1/jobs/{id}/.
const (
	paintedPNG = "painted.png"
	heightPNG  = "height.png"
	shadedPNG  = "shaded.png"
	diffPNG    = "diff.png"
)

var errNoResults = errors.New("no results yet")

// Server represents the HTTP server
type Server struct {
	jobManager *JobManager
	store      store.Store
	addr       string
	server     *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a new HTTP server. st may be nil, in which case jobs
// live only in memory.
func NewServer(addr string, st store.Store) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		jobManager: NewJobManager(),
		store:      st,
		addr:       addr,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)
	mux.HandleFunc("/api/v1/records", s.handleListRecords)

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown cancels running jobs and gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	s.cancel()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleJobs handles /api/v1/jobs
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	case http.MethodGet:
		s.handleListJobs(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobsWithID handles /api/v1/jobs/:id/*
func (s *Server) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}
	jobID := parts[0]

	sub := ""
	if len(parts) > 1 {
		sub = parts[1]
	}

	switch sub {
	case "", "status":
		s.handleGetJobStatus(w, r, jobID)
	case "cancel":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleCancelJob(w, r, jobID)
	case "stream":
		s.handleJobStream(w, r, jobID)
	case "trace":
		s.handleGetTrace(w, r, jobID)
	case paintedPNG, heightPNG, shadedPNG, diffPNG:
		s.handleGetImage(w, r, jobID, sub)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleCreateJob handles POST /api/v1/jobs. Fields missing from the body
// keep their defaults.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	config := JobConfig{
		Shader: shade.Names()[0],
		Params: paint.DefaultParams(),
	}
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	if config.SourcePath == "" {
		http.Error(w, "sourcePath is required", http.StatusBadRequest)
		return
	}
	if config.MaxDim < 0 {
		http.Error(w, "maxDim cannot be negative", http.StatusBadRequest)
		return
	}
	if _, err := shade.Parse(config.Shader); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := config.Params.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := s.jobManager.CreateJob(config)

	ctx, cancel := context.WithCancel(s.ctx)
	s.jobManager.setCancel(job.ID, cancel)
	go func() {
		defer cancel()
		runJob(ctx, s.jobManager, s.store, job.ID)
	}()

	writeJSON(w, http.StatusCreated, job)
}

// handleListJobs handles GET /api/v1/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobManager.ListJobs())
}

// handleListRecords handles GET /api/v1/records
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		writeJSON(w, http.StatusOK, []store.RecordInfo{})
		return
	}
	records, err := s.store.ListRecords()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleGetJobStatus handles GET /api/v1/jobs/:id/status. Jobs from earlier
// server runs are answered from the store.
func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		s.handleStoredStatus(w, jobID)
		return
	}

	elapsed := job.Elapsed()
	strokesPerSecond := 0.0
	if elapsed.Seconds() > 0 {
		strokesPerSecond = float64(job.Strokes) / elapsed.Seconds()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":               job.ID,
		"state":            job.State,
		"config":           job.Config,
		"width":            job.Width,
		"height":           job.Height,
		"layer":            job.Layer,
		"layers":           job.Layers,
		"strokes":          job.Strokes,
		"cost":             job.Cost,
		"elapsed":          elapsed.Seconds(),
		"strokesPerSecond": strokesPerSecond,
		"startTime":        job.StartTime,
		"endTime":          job.EndTime,
		"error":            job.Error,
	})
}

func (s *Server) handleStoredStatus(w http.ResponseWriter, jobID string) {
	if s.store == nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	record, err := s.store.LoadRecord(jobID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":        record.JobID,
		"state":     StateCompleted,
		"config":    record.Config,
		"width":     record.Width,
		"height":    record.Height,
		"layer":     len(record.Layers),
		"layers":    record.Layers,
		"strokes":   record.Strokes,
		"cost":      record.Cost,
		"elapsed":   record.Elapsed.Seconds(),
		"endTime":   record.Timestamp,
		"persisted": true,
	})
}

// handleCancelJob handles POST /api/v1/jobs/:id/cancel
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if _, exists := s.jobManager.GetJob(jobID); !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	if err := s.jobManager.CancelJob(jobID); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handleGetTrace handles GET /api/v1/jobs/:id/trace
func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request, jobID string) {
	if s.store == nil {
		http.Error(w, "No store configured", http.StatusNotFound)
		return
	}
	entries, err := s.store.LoadTrace(jobID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Trace not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleGetImage handles GET /api/v1/jobs/:id/{painted,height,shaded,diff}.png
func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request, jobID, name string) {
	img, err := s.jobImage(jobID, name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "Job not found", http.StatusNotFound)
	case errors.Is(err, errNoResults):
		http.Error(w, "No results yet", http.StatusNotFound)
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		writePNG(w, img)
	}
}

// jobImage renders a finished job's image from memory, falling back to the
// store for jobs of earlier runs.
func (s *Server) jobImage(jobID, name string) (image.Image, error) {
	job, exists := s.jobManager.GetJob(jobID)
	if exists {
		if job.State != StateCompleted {
			return nil, errNoResults
		}
		switch name {
		case paintedPNG:
			return job.canvas.NRGBA(), nil
		case heightPNG:
			return job.height.Image(), nil
		case shadedPNG:
			return job.shaded.NRGBA(), nil
		default:
			return diffImage(job.source, job.canvas), nil
		}
	}

	if s.store == nil {
		return nil, &store.NotFoundError{JobID: jobID}
	}
	switch name {
	case paintedPNG:
		return s.store.LoadImage(jobID, store.PaintedImage)
	case shadedPNG:
		return s.store.LoadImage(jobID, store.ShadedImage)
	case heightPNG:
		height, err := s.store.LoadHeight(jobID)
		if err != nil {
			return nil, err
		}
		return height.Image(), nil
	default:
		source, err := s.store.LoadImage(jobID, store.SourceImage)
		if err != nil {
			return nil, err
		}
		painted, err := s.store.LoadImage(jobID, store.PaintedImage)
		if err != nil {
			return nil, err
		}
		return diffImage(raster.FromImage(source), raster.FromImage(painted)), nil
	}
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
