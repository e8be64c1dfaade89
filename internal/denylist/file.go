package denylist

import (
	"context"
	"fmt"
	"os"
	"sort"

	"fjacquet/cfdi-sentinel/internal/fileutils"
	"fjacquet/cfdi-sentinel/internal/logging"
	"fjacquet/cfdi-sentinel/internal/models"

	"gopkg.in/yaml.v3"
)

// fileDocument is the on-disk layout of a YAML denylist.
type fileDocument struct {
	Records []Record `yaml:"records"`
}

// FileStore is a YAML-backed store. The file is loaded once and rewritten
// on every Put.
type FileStore struct {
	path   string
	mem    *MemoryStore
	logger logging.Logger
}

// NewFileStore loads path. A missing file yields an empty store.
func NewFileStore(path string, logger logging.Logger) (*FileStore, error) {
	logger = logging.OrDefault(logger)
	s := &FileStore{path: path, mem: NewMemoryStore(), logger: logger}

	if !fileutils.FileExists(path) {
		logger.WithFields(logging.Field{Key: logging.FieldFile, Value: path}).Warn("Denylist file not found, starting empty")
		return s, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("error reading denylist file: %w", err)
	}

	records, err := decodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing denylist file: %w", err)
	}
	_ = s.mem.Put(context.Background(), records...)

	logger.WithFields(
		logging.Field{Key: logging.FieldFile, Value: path},
		logging.Field{Key: logging.FieldCount, Value: s.mem.Len()},
	).Debug("Loaded denylist file")
	return s, nil
}

// Get implements Store.
func (s *FileStore) Get(ctx context.Context, rfc string) (Record, bool, error) {
	return s.mem.Get(ctx, rfc)
}

// Put adds records and saves the file.
func (s *FileStore) Put(ctx context.Context, records ...Record) error {
	if err := s.mem.Put(ctx, records...); err != nil {
		return err
	}
	return s.save()
}

func (s *FileStore) save() error {
	records := s.mem.Records()
	sort.Slice(records, func(i, j int) bool { return records[i].RFC < records[j].RFC })

	data, err := yaml.Marshal(fileDocument{Records: records})
	if err != nil {
		return fmt.Errorf("error marshaling denylist: %w", err)
	}
	if err := fileutils.WriteFileAtomic(s.path, data, models.PermissionConfigFile); err != nil {
		return fmt.Errorf("error saving denylist file: %w", err)
	}
	s.logger.WithFields(
		logging.Field{Key: logging.FieldFile, Value: s.path},
		logging.Field{Key: logging.FieldCount, Value: len(records)},
	).Info("Saved denylist file")
	return nil
}

// decodeRecords accepts either a "records:" document or a bare list.
func decodeRecords(data []byte) ([]Record, error) {
	var doc fileDocument
	err := yaml.Unmarshal(data, &doc)
	if err == nil && len(doc.Records) > 0 {
		return doc.Records, nil
	}
	var records []Record
	if listErr := yaml.Unmarshal(data, &records); listErr == nil {
		return records, nil
	}
	return nil, err
}
