package history

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"fjacquet/cfdi-sentinel/internal/fileutils"
	"fjacquet/cfdi-sentinel/internal/logging"
	"fjacquet/cfdi-sentinel/internal/models"

	"gopkg.in/yaml.v3"
)

type fileDocument struct {
	Runs []Summary `yaml:"runs"`
}

// FileRecorder appends summaries to a YAML file.
type FileRecorder struct {
	path   string
	logger logging.Logger
	mu     sync.Mutex
}

// NewFileRecorder creates a recorder writing to path.
func NewFileRecorder(path string, logger logging.Logger) *FileRecorder {
	return &FileRecorder{path: path, logger: logging.OrDefault(logger)}
}

// Record implements Recorder.
func (r *FileRecorder) Record(_ context.Context, s Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return err
	}
	doc.Runs = append(doc.Runs, s)

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error marshaling history: %w", err)
	}
	if err := fileutils.WriteFileAtomic(r.path, data, models.PermissionConfigFile); err != nil {
		return fmt.Errorf("error saving history file: %w", err)
	}

	r.logger.WithFields(
		logging.Field{Key: logging.FieldFile, Value: r.path},
		logging.Field{Key: logging.FieldRunID, Value: s.RunID},
	).Debug("Recorded run summary")
	return nil
}

// List implements Lister.
func (r *FileRecorder) List(_ context.Context, limit int) ([]Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	runs := doc.Runs
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (r *FileRecorder) load() (fileDocument, error) {
	var doc fileDocument
	if !fileutils.FileExists(r.path) {
		return doc, nil
	}
	data, err := os.ReadFile(r.path) // #nosec G304 -- path comes from configuration
	if err != nil {
		return doc, fmt.Errorf("error reading history file: %w", err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("error parsing history file: %w", err)
	}
	return doc, nil
}
