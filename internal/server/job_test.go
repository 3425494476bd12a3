package server

import (
	"context"
	"testing"
	"time"

	"github.com/cwbudde/impasto/internal/paint"
)

func TestJobManager_CreateJob(t *testing.T) {
	jm := NewJobManager()

	config := JobConfig{
		SourcePath: "test.png",
		Shader:     "toon",
		Params:     paint.DefaultParams(),
	}

	job := jm.CreateJob(config)

	if job.ID == "" {
		t.Error("Job ID should not be empty")
	}
	if job.State != StatePending {
		t.Errorf("Initial state should be pending, got %s", job.State)
	}
	if job.Config.SourcePath != "test.png" || job.Config.Shader != "toon" {
		t.Errorf("Config not set correctly: %+v", job.Config)
	}
}

func TestJobManager_GetJob(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(JobConfig{SourcePath: "test.png"})

	retrieved, exists := jm.GetJob(job.ID)
	if !exists {
		t.Fatal("Job should exist")
	}
	if retrieved.ID != job.ID {
		t.Error("Retrieved wrong job")
	}

	if _, exists := jm.GetJob("nonexistent"); exists {
		t.Error("Nonexistent job should not exist")
	}
}

func TestJobManager_GetJobReturnsCopy(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(JobConfig{SourcePath: "test.png"})
	jm.UpdateJob(job.ID, func(j *Job) {
		j.Layers = append(j.Layers, paint.LayerStats{Radius: 8})
	})

	snapshot, _ := jm.GetJob(job.ID)
	snapshot.State = StateFailed
	snapshot.Layers[0].Radius = 99

	current, _ := jm.GetJob(job.ID)
	if current.State != StatePending || current.Layers[0].Radius != 8 {
		t.Errorf("Modifying a snapshot changed the job: %+v", current)
	}
}

func TestJobManager_ListJobs(t *testing.T) {
	jm := NewJobManager()

	if len(jm.ListJobs()) != 0 {
		t.Error("Should start with no jobs")
	}

	first := jm.CreateJob(JobConfig{SourcePath: "test1.png"})
	time.Sleep(time.Millisecond)
	second := jm.CreateJob(JobConfig{SourcePath: "test2.png"})

	jobs := jm.ListJobs()
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != first.ID || jobs[1].ID != second.ID {
		t.Error("Jobs should be listed oldest first")
	}
}

func TestJobManager_UpdateJob(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(JobConfig{SourcePath: "test.png"})

	err := jm.UpdateJob(job.ID, func(j *Job) {
		j.State = StateRunning
		j.Layer = 2
		j.Strokes = 40
	})
	if err != nil {
		t.Errorf("Update should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateRunning || updated.Layer != 2 || updated.Strokes != 40 {
		t.Errorf("Job not updated: %+v", updated)
	}
	if len(jm.GetRunningJobs()) != 1 {
		t.Error("Expected one running job")
	}

	if err := jm.UpdateJob("nonexistent", func(j *Job) {}); err == nil {
		t.Error("Update of nonexistent job should fail")
	}
}

func TestJobManager_CancelJob(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(JobConfig{SourcePath: "test.png"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	jm.setCancel(job.ID, cancel)

	if err := jm.CancelJob(job.ID); err != nil {
		t.Fatalf("CancelJob failed: %v", err)
	}
	if ctx.Err() == nil {
		t.Error("Context should be cancelled")
	}

	jm.UpdateJob(job.ID, func(j *Job) { j.State = StateCompleted })
	if err := jm.CancelJob(job.ID); err == nil {
		t.Error("Cancelling a finished job should fail")
	}
	if err := jm.CancelJob("nonexistent"); err == nil {
		t.Error("Cancelling a nonexistent job should fail")
	}
}

func TestJobManager_ThreadSafety(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(JobConfig{SourcePath: "test.png"})

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(layer int) {
			jm.UpdateJob(job.ID, func(j *Job) {
				j.Layers = append(j.Layers, paint.LayerStats{Index: layer})
				j.Layer = len(j.Layers)
			})
			jm.GetJob(job.ID)
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	got, exists := jm.GetJob(job.ID)
	if !exists || got.Layer != 10 {
		t.Errorf("Expected 10 layers after concurrent updates, got %d", got.Layer)
	}
}

func TestJobStateTerminal(t *testing.T) {
	tests := []struct {
		state JobState
		want  bool
	}{
		{StatePending, false},
		{StateRunning, false},
		{StateCompleted, true},
		{StateFailed, true},
		{StateCancelled, true},
	}
	for _, tt := range tests {
		if got := tt.state.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.state, got, tt.want)
		}
	}
}
