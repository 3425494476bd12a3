package server

import (
	"net/http"

	"github.com/cwbudde/impasto/internal/shade"
)

// handleIndex handles GET / with a summary of the service and its jobs.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	counts := make(map[JobState]int)
	for _, job := range s.jobManager.ListJobs() {
		counts[job.State]++
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"service":   "impasto",
		"shaders":   shade.Names(),
		"jobs":      counts,
		"persisted": s.store != nil,
	})
}
