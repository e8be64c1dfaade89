// Package source loads CFDI XML documents from a local directory or an
// S3-compatible bucket.
package source

import (
	"context"
	"fmt"
	"path/filepath"

	"fjacquet/cfdi-sentinel/internal/engine"
	"fjacquet/cfdi-sentinel/internal/fileutils"
	"fjacquet/cfdi-sentinel/internal/logging"
)

// XMLExtension is the extension of the documents a source picks up.
const XMLExtension = ".xml"

// Source yields the documents of one run in a stable order.
type Source interface {
	Load(ctx context.Context) ([]engine.Input, error)
}

// DirectorySource reads every .xml file under a directory, or a single file.
type DirectorySource struct {
	path     string
	activity string
	logger   logging.Logger
}

// NewDirectorySource creates a source rooted at path. activity is copied
// into every input.
func NewDirectorySource(path, activity string, logger logging.Logger) *DirectorySource {
	return &DirectorySource{path: path, activity: activity, logger: logging.OrDefault(logger)}
}

// Load implements Source. An unreadable file still yields an input with
// no data, so it shows up in the run as a malformed document.
func (s *DirectorySource) Load(ctx context.Context) ([]engine.Input, error) {
	files := []string{s.path}
	if fileutils.DirectoryExists(s.path) {
		var err error
		files, err = fileutils.ListFilesWithExtension(s.path, XMLExtension)
		if err != nil {
			return nil, err
		}
	} else if !fileutils.FileExists(s.path) {
		return nil, fmt.Errorf("input path does not exist: %s", s.path)
	}

	inputs := make([]engine.Input, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := fileutils.ReadFile(f)
		if err != nil {
			s.logger.WithError(err).WithFields(logging.Field{Key: logging.FieldFile, Value: f}).Warn("Failed to read document")
		}
		inputs = append(inputs, engine.Input{FileName: filepath.Base(f), Data: data, Activity: s.activity})
	}

	s.logger.WithFields(
		logging.Field{Key: logging.FieldInputFile, Value: s.path},
		logging.Field{Key: logging.FieldCount, Value: len(inputs)},
	).Info("Loaded documents from directory")
	return inputs, nil
}
