package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/impasto/internal/store"
)

func TestServer_CreateJob(t *testing.T) {
	imgPath := filepath.Join(t.TempDir(), "test.png")
	createTestImage(t, imgPath)

	s := NewServer(":8080", nil)
	defer s.Shutdown(context.Background())

	body := fmt.Sprintf(`{"sourcePath": %q, "params": {"layers": 2}}`, imgPath)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.handleCreateJob(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body)
	}

	var job Job
	if err := json.NewDecoder(w.Body).Decode(&job); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if job.ID == "" {
		t.Error("Job ID should not be empty")
	}
	if job.State != StatePending && job.State != StateRunning {
		t.Errorf("Expected pending or running state, got %s", job.State)
	}

	// Fields absent from the request keep their defaults.
	if job.Config.Params.Layers != 2 || job.Config.Params.MinRadius != 2 || job.Config.Params.Threshold != 100 {
		t.Errorf("Params not merged with defaults: %+v", job.Config.Params)
	}
	if job.Config.Shader != "blinn-phong" {
		t.Errorf("Default shader = %q, want blinn-phong", job.Config.Shader)
	}
}

func TestServer_CreateJob_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing source", `{}`},
		{"negative max dim", `{"sourcePath": "a.png", "maxDim": -1}`},
		{"unknown shader", `{"sourcePath": "a.png", "shader": "phong"}`},
		{"invalid params", `{"sourcePath": "a.png", "params": {"layers": 0}}`},
	}

	s := NewServer(":8080", nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			s.handleCreateJob(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
	if n := len(s.jobManager.ListJobs()); n != 0 {
		t.Errorf("Rejected requests created %d jobs", n)
	}
}

func TestServer_ListJobs(t *testing.T) {
	s := NewServer(":8080", nil)
	s.jobManager.CreateJob(JobConfig{SourcePath: "a.png"})
	s.jobManager.CreateJob(JobConfig{SourcePath: "b.png"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	w := httptest.NewRecorder()
	s.handleListJobs(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var jobs []Job
	if err := json.NewDecoder(w.Body).Decode(&jobs); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(jobs) != 2 {
		t.Errorf("Expected 2 jobs, got %d", len(jobs))
	}
}

func TestServer_GetJobStatus(t *testing.T) {
	s := NewServer(":8080", nil)
	job := s.jobManager.CreateJob(JobConfig{SourcePath: "a.png"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/status", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response map[string]any
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["id"] != job.ID {
		t.Error("Response should contain job ID")
	}
	if response["state"] != string(StatePending) {
		t.Errorf("Expected pending state, got %v", response["state"])
	}
}

func TestServer_GetJobStatus_NotFound(t *testing.T) {
	s := NewServer(":8080", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nonexistent/status", nil)
	w := httptest.NewRecorder()
	s.handleGetJobStatus(w, req, "nonexistent")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestServer_GetImages(t *testing.T) {
	imgPath := filepath.Join(t.TempDir(), "test.png")
	createTestImage(t, imgPath)

	s := NewServer(":8080", nil)
	job := s.jobManager.CreateJob(testConfig(imgPath))

	// Nothing to serve before the job has run.
	w := httptest.NewRecorder()
	s.handleGetImage(w, httptest.NewRequest(http.MethodGet, "/", nil), job.ID, paintedPNG)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before completion, got %d", w.Code)
	}

	if err := runJob(context.Background(), s.jobManager, nil, job.ID); err != nil {
		t.Fatalf("Job failed: %v", err)
	}

	for _, name := range []string{paintedPNG, heightPNG, shadedPNG, diffPNG} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/"+name, nil)
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			if w.Header().Get("Content-Type") != "image/png" {
				t.Error("Expected image/png content type")
			}
			img, err := png.Decode(w.Body)
			if err != nil {
				t.Fatalf("Response should be valid PNG: %v", err)
			}
			if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 50 {
				t.Errorf("Image size = %v, want 50x50", img.Bounds())
			}
		})
	}
}

func TestServer_StoredJob(t *testing.T) {
	tmpDir := t.TempDir()
	imgPath := filepath.Join(tmpDir, "test.png")
	createTestImage(t, imgPath)

	st, err := store.NewFSStore(filepath.Join(tmpDir, "data"))
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	first := NewServer(":8080", st)
	job := first.jobManager.CreateJob(testConfig(imgPath))
	if err := runJob(context.Background(), first.jobManager, st, job.ID); err != nil {
		t.Fatalf("Job failed: %v", err)
	}

	// A restarted server answers from the store.
	second := NewServer(":8080", st)
	handler := second.Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Status: expected 200, got %d", w.Code)
	}
	var status map[string]any
	json.NewDecoder(w.Body).Decode(&status)
	if status["state"] != string(StateCompleted) || status["persisted"] != true {
		t.Errorf("Stored status = %v", status)
	}

	for _, name := range []string{paintedPNG, heightPNG, shadedPNG, diffPNG} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/"+name, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", name, w.Code)
		}
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/trace", nil))
	var trace []store.TraceEntry
	if err := json.NewDecoder(w.Body).Decode(&trace); err != nil || len(trace) != 3 {
		t.Errorf("Trace: %d entries, err %v", len(trace), err)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/records", nil))
	var records []store.RecordInfo
	if err := json.NewDecoder(w.Body).Decode(&records); err != nil || len(records) != 1 || records[0].JobID != job.ID {
		t.Errorf("Records = %+v, err %v", records, err)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/unknown/painted.png", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Unknown job image: expected 404, got %d", w.Code)
	}
}

func TestServer_CancelJob(t *testing.T) {
	s := NewServer(":8080", nil)
	job := s.jobManager.CreateJob(JobConfig{SourcePath: "a.png"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.jobManager.setCancel(job.ID, cancel)

	handler := s.Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/cancel", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET cancel: expected 405, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/jobs/"+job.ID+"/cancel", nil))
	if w.Code != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", w.Code)
	}
	if ctx.Err() == nil {
		t.Error("Job context should be cancelled")
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/jobs/unknown/cancel", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Unknown job: expected 404, got %d", w.Code)
	}
}

func TestServer_Index(t *testing.T) {
	s := NewServer(":8080", nil)
	s.jobManager.CreateJob(JobConfig{SourcePath: "a.png"})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var index struct {
		Shaders []string       `json:"shaders"`
		Jobs    map[string]int `json:"jobs"`
	}
	if err := json.NewDecoder(w.Body).Decode(&index); err != nil {
		t.Fatalf("Failed to decode index: %v", err)
	}
	if len(index.Shaders) != 5 || index.Jobs["pending"] != 1 {
		t.Errorf("Index = %+v", index)
	}

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nothing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown path, got %d", w.Code)
	}
}

func TestServer_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	imgPath := filepath.Join(t.TempDir(), "test.png")
	createTestImage(t, imgPath)

	s := NewServer("localhost:0", nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	defer s.Shutdown(context.Background())

	body, _ := json.Marshal(testConfig(imgPath))
	resp, err := http.Post(srv.URL+"/api/v1/jobs", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	var job Job
	json.NewDecoder(resp.Body).Decode(&job)
	resp.Body.Close()

	// The stream ends with the completion event.
	stream, err := http.Get(srv.URL + "/api/v1/jobs/" + job.ID + "/stream")
	if err != nil {
		t.Fatalf("Failed to open stream: %v", err)
	}
	defer stream.Body.Close()
	if ct := stream.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected text/event-stream, got %q", ct)
	}

	var last ProgressEvent
	scanner := bufio.NewScanner(stream.Body)
	for scanner.Scan() {
		line, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		if err := json.Unmarshal([]byte(line), &last); err != nil {
			t.Fatalf("Invalid event %q: %v", line, err)
		}
	}
	if last.State != StateCompleted || last.Layer != 3 {
		t.Fatalf("Last event = %+v, want completed after 3 layers", last)
	}

	resp, err = http.Get(srv.URL + "/api/v1/jobs/" + job.ID + "/status")
	if err != nil {
		t.Fatalf("Failed to get status: %v", err)
	}
	var status map[string]any
	json.NewDecoder(resp.Body).Decode(&status)
	resp.Body.Close()
	if status["state"] != string(StateCompleted) {
		t.Errorf("Status = %v", status["state"])
	}

	resp, err = http.Get(srv.URL + "/api/v1/jobs/" + job.ID + "/shaded.png")
	if err != nil {
		t.Fatalf("Failed to get shaded image: %v", err)
	}
	defer resp.Body.Close()
	if _, err := png.Decode(resp.Body); err != nil {
		t.Errorf("Shaded image should be valid PNG: %v", err)
	}
}

func TestServer_JobStream_Finished(t *testing.T) {
	s := NewServer(":8080", nil)
	job := s.jobManager.CreateJob(JobConfig{SourcePath: "a.png"})
	s.jobManager.UpdateJob(job.ID, func(j *Job) { j.State = StateFailed; j.Error = "boom" })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/stream", nil)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.handleJobStream(w, req, job.ID)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stream of a finished job should end immediately")
	}

	if !strings.Contains(w.Body.String(), `"error":"boom"`) {
		t.Errorf("Expected final state in stream, got %q", w.Body.String())
	}
}

func TestServer_JobStream_NotFound(t *testing.T) {
	s := NewServer(":8080", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nonexistent/stream", nil)
	w := httptest.NewRecorder()
	s.handleJobStream(w, req, "nonexistent")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestEventBroadcaster(t *testing.T) {
	eb := NewEventBroadcaster()

	ch := eb.Subscribe("job1")
	eb.Broadcast(ProgressEvent{JobID: "job1", State: StateRunning, Layer: 1, Radius: 8})

	select {
	case received := <-ch:
		if received.JobID != "job1" || received.Layer != 1 {
			t.Errorf("Unexpected event %+v", received)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for event")
	}

	// Late subscribers get the last event replayed.
	late := eb.Subscribe("job1")
	select {
	case replayed := <-late:
		if replayed.Radius != 8 {
			t.Errorf("Replayed event %+v", replayed)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for replay")
	}

	eb.CleanupJob("job1")
	if _, ok := <-ch; ok {
		t.Error("Channel should be closed after cleanup")
	}
	// Unsubscribing after cleanup must not close the channel twice.
	eb.Unsubscribe("job1", ch)
	eb.Unsubscribe("job1", late)
}
