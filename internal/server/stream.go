package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	subscriberBuffer = 16
	pingInterval     = 30 * time.Second
)

// ProgressEvent is sent after every painted layer and on every state change.
type ProgressEvent struct {
	JobID     string    `json:"jobId"`
	State     JobState  `json:"state"`
	Layer     int       `json:"layer"`  // finished layers
	Layers    int       `json:"layers"` // configured layers
	Radius    int       `json:"radius,omitempty"`
	Strokes   int       `json:"strokes"` // total so far
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type subscribers map[chan ProgressEvent]struct{}

// EventBroadcaster fans progress events out to the stream subscribers of
// each job and remembers the latest event per job for late subscribers.
type EventBroadcaster struct {
	mu     sync.Mutex
	subs   map[string]subscribers
	latest map[string]ProgressEvent
}

// NewEventBroadcaster returns an empty broadcaster.
func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		subs:   make(map[string]subscribers),
		latest: make(map[string]ProgressEvent),
	}
}

// Subscribe registers a channel for the job's events. If the job has
// already emitted an event, it is queued on the channel straight away.
func (eb *EventBroadcaster) Subscribe(jobID string) chan ProgressEvent {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan ProgressEvent, subscriberBuffer)
	if eb.subs[jobID] == nil {
		eb.subs[jobID] = make(subscribers)
	}
	eb.subs[jobID][ch] = struct{}{}

	if ev, ok := eb.latest[jobID]; ok {
		ch <- ev
	}

	slog.Debug("Stream subscribed", "job_id", jobID, "subscribers", len(eb.subs[jobID]))
	return ch
}

// Unsubscribe closes ch. Channels already closed by CleanupJob are ignored.
func (eb *EventBroadcaster) Unsubscribe(jobID string, ch chan ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.subs[jobID]
	if _, ok := subs[ch]; !ok {
		return
	}
	delete(subs, ch)
	close(ch)
	if len(subs) == 0 {
		delete(eb.subs, jobID)
	}

	slog.Debug("Stream unsubscribed", "job_id", jobID)
}

// Broadcast records event as the job's latest and offers it to every
// subscriber. A subscriber whose buffer is full misses the event.
func (eb *EventBroadcaster) Broadcast(event ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.latest[event.JobID] = event
	for ch := range eb.subs[event.JobID] {
		select {
		case ch <- event:
		default:
			slog.Warn("Stream subscriber lagging, event dropped", "job_id", event.JobID, "layer", event.Layer)
		}
	}
}

// CleanupJob closes every subscriber of the job and forgets its latest event.
func (eb *EventBroadcaster) CleanupJob(jobID string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for ch := range eb.subs[jobID] {
		close(ch)
	}
	delete(eb.subs, jobID)
	delete(eb.latest, jobID)
}

func jobEvent(job Job) ProgressEvent {
	return ProgressEvent{
		JobID:     job.ID,
		State:     job.State,
		Layer:     job.Layer,
		Layers:    job.Config.Params.Layers,
		Strokes:   job.Strokes,
		Error:     job.Error,
		Timestamp: time.Now(),
	}
}

// handleJobStream serves GET /api/v1/jobs/{id}/stream as server-sent events.
// It opens with the job's current state and closes after the first event in
// a terminal state, or at once if the job has already finished.
func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")

	events := s.jobManager.broadcaster.Subscribe(jobID)
	defer s.jobManager.broadcaster.Unsubscribe(jobID, events)

	send := func(ev ProgressEvent) bool {
		if err := writeSSEEvent(w, ev); err != nil {
			slog.Warn("Stream write failed", "job_id", jobID, "error", err)
			return false
		}
		flusher.Flush()
		return !ev.State.Terminal()
	}

	if !send(jobEvent(job)) {
		return
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			slog.Debug("Stream client gone", "job_id", jobID)
			return
		case ev, open := <-events:
			if !open || !send(ev) {
				return
			}
		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, event ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
