package store

import (
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/impasto/internal/imageio"
)

// FSStore implements Store on the filesystem. Every job lives in
// <baseDir>/jobs/<jobID>/ next to its artifacts.
//
// Writes go through a temp file and a rename, so concurrent readers never see
// a partial file and no locks are needed.
type FSStore struct {
	baseDir string
}

// NewFSStore creates a store rooted at baseDir, creating it if needed.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSStore{
		baseDir: baseDir,
	}, nil
}

// BaseDir returns the root directory of the store.
func (fs *FSStore) BaseDir() string {
	return fs.baseDir
}

func (fs *FSStore) jobDir(jobID string) string {
	return filepath.Join(fs.baseDir, "jobs", jobID)
}

func (fs *FSStore) recordPath(jobID string) string {
	return filepath.Join(fs.jobDir(jobID), "record.json")
}

// validJobID rejects ids that would escape the jobs directory.
func validJobID(jobID string) error {
	if jobID == "" {
		return fmt.Errorf("jobID cannot be empty")
	}
	if strings.ContainsAny(jobID, `/\`) || jobID == "." || jobID == ".." {
		return fmt.Errorf("invalid jobID %q", jobID)
	}
	return nil
}

// writeAtomic writes data through a temp file renamed into place.
func (fs *FSStore) writeAtomic(jobID, name string, write func(*os.File) error) error {
	dir := fs.jobDir(jobID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create job directory: %w", err)
	}

	final := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tempPath, final); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename %s: %w", name, err)
	}
	return nil
}

// openArtifact opens a file of the job, mapping a missing file to NotFoundError.
func (fs *FSStore) openArtifact(jobID, name string) (*os.File, error) {
	if err := validJobID(jobID); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(fs.jobDir(jobID), name))
	if os.IsNotExist(err) {
		return nil, &NotFoundError{JobID: jobID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	return f, nil
}

// SaveRecord atomically saves a record for the given job.
func (fs *FSStore) SaveRecord(jobID string, record *Record) error {
	if err := validJobID(jobID); err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}

	err = fs.writeAtomic(jobID, "record.json", func(f *os.File) error {
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("failed to write temp record file: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Debug("Record saved", "job_id", jobID, "path", fs.recordPath(jobID))
	return nil
}

// LoadRecord retrieves the record for the given job.
func (fs *FSStore) LoadRecord(jobID string) (*Record, error) {
	f, err := fs.openArtifact(jobID, "record.json")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var record Record
	if err := json.NewDecoder(f).Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to deserialize record: %w", err)
	}

	slog.Debug("Record loaded", "job_id", jobID)
	return &record, nil
}

// ListRecords returns metadata for all stored jobs. Unreadable records are
// skipped with a warning.
func (fs *FSStore) ListRecords() ([]RecordInfo, error) {
	jobsDir := filepath.Join(fs.baseDir, "jobs")

	entries, err := os.ReadDir(jobsDir)
	if os.IsNotExist(err) {
		return []RecordInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read jobs directory: %w", err)
	}

	infos := []RecordInfo{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		jobID := entry.Name()
		if _, err := os.Stat(fs.recordPath(jobID)); os.IsNotExist(err) {
			continue
		}

		record, err := fs.LoadRecord(jobID)
		if err != nil {
			slog.Warn("Failed to load record for listing", "job_id", jobID, "error", err)
			continue
		}
		infos = append(infos, record.ToInfo())
	}

	slog.Debug("Listed records", "count", len(infos))
	return infos, nil
}

// DeleteRecord removes the job directory with all artifacts.
func (fs *FSStore) DeleteRecord(jobID string) error {
	if err := validJobID(jobID); err != nil {
		return err
	}

	jobDir := fs.jobDir(jobID)
	if _, err := os.Stat(jobDir); os.IsNotExist(err) {
		return &NotFoundError{JobID: jobID}
	} else if err != nil {
		return fmt.Errorf("failed to stat job directory: %w", err)
	}

	if err := os.RemoveAll(jobDir); err != nil {
		return fmt.Errorf("failed to remove job directory: %w", err)
	}

	slog.Debug("Record deleted", "job_id", jobID, "path", jobDir)
	return nil
}

// SaveImage encodes img by the extension of name.
func (fs *FSStore) SaveImage(jobID, name string, img image.Image) error {
	if err := validJobID(jobID); err != nil {
		return err
	}
	ext := filepath.Ext(name)
	if !imageio.Supported(ext) || filepath.Base(name) != name {
		return fmt.Errorf("invalid artifact name %q", name)
	}

	return fs.writeAtomic(jobID, name, func(f *os.File) error {
		return imageio.Encode(f, ext, img)
	})
}

// LoadImage decodes an image artifact.
func (fs *FSStore) LoadImage(jobID, name string) (image.Image, error) {
	if filepath.Base(name) != name {
		return nil, fmt.Errorf("invalid artifact name %q", name)
	}
	f, err := fs.openArtifact(jobID, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return imageio.Decode(f, 0)
}
