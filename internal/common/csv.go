// Package common holds the gocsv plumbing shared by the report exporter and
// the denylist importer.
package common

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"fjacquet/cfdi-sentinel/internal/fileutils"
	"fjacquet/cfdi-sentinel/internal/logging"

	"github.com/gocarina/gocsv"
)

// DefaultDelimiter is used when none is configured.
const DefaultDelimiter = ','

// ParseDelimiter returns the first rune of s, or DefaultDelimiter.
func ParseDelimiter(s string) rune {
	for _, r := range s {
		return r
	}
	return DefaultDelimiter
}

// ReadCSVFile reads CSV data into a slice of structs using gocsv.
// TCSVRow is the struct type that maps to the CSV columns.
func ReadCSVFile[TCSVRow any](filePath string, delimiter rune, logger logging.Logger) ([]TCSVRow, error) {
	logger = logging.OrDefault(logger)
	logger.WithFields(logging.Field{Key: logging.FieldFile, Value: filePath}).Info("Reading CSV file")

	file, err := os.Open(filePath) // #nosec G304 -- path comes from the operator
	if err != nil {
		logger.WithError(err).Error("Failed to open CSV file")
		return nil, fmt.Errorf("error opening CSV file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close file")
		}
	}()

	rows, err := ReadCSV[TCSVRow](file, delimiter)
	if err != nil {
		logger.WithError(err).Error("Failed to parse CSV file")
		return nil, err
	}

	logger.WithFields(logging.Field{Key: logging.FieldCount, Value: len(rows)}).Info("Successfully read CSV data")
	return rows, nil
}

// ReadCSV decodes rows from r.
func ReadCSV[TCSVRow any](r io.Reader, delimiter rune) ([]TCSVRow, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows []TCSVRow
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		return nil, fmt.Errorf("error parsing CSV data: %w", err)
	}
	return rows, nil
}

// WriteCSV encodes rows to w with a header line.
func WriteCSV[TCSVRow any](w io.Writer, rows []TCSVRow, delimiter rune) error {
	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = delimiter

	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// WriteCSVFile writes rows to csvFile, creating parent directories.
func WriteCSVFile[TCSVRow any](csvFile string, rows []TCSVRow, delimiter rune, logger logging.Logger) error {
	if rows == nil {
		return fmt.Errorf("cannot write nil rows to CSV")
	}
	logger = logging.OrDefault(logger)
	logger.WithFields(
		logging.Field{Key: logging.FieldFile, Value: csvFile},
		logging.Field{Key: logging.FieldCount, Value: len(rows)},
	).Info("Writing CSV file")

	file, err := fileutils.CreateFile(csvFile)
	if err != nil {
		logger.WithError(err).Error("Failed to create CSV file")
		return fmt.Errorf("error creating CSV file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close file")
		}
	}()

	if err := WriteCSV(file, rows, delimiter); err != nil {
		logger.WithError(err).Error("Failed to marshal rows to CSV")
		return err
	}

	logger.WithFields(
		logging.Field{Key: logging.FieldFile, Value: csvFile},
		logging.Field{Key: logging.FieldCount, Value: len(rows)},
	).Info("Successfully wrote CSV file")
	return nil
}
