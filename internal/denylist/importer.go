package denylist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fjacquet/cfdi-sentinel/internal/common"
	"fjacquet/cfdi-sentinel/internal/dateutils"
	"fjacquet/cfdi-sentinel/internal/logging"
)

// CSVRow is one line of a SAT list export.
type CSVRow struct {
	RFC          string `csv:"RFC"`
	BusinessName string `csv:"Nombre del Contribuyente"`
	Situation    string `csv:"Situación del contribuyente"`
	List         string `csv:"Lista"`
	PublishedAt  string `csv:"Fecha de publicación"`
}

// Record converts a row, defaulting to list.
func (r CSVRow) Record(list List) Record {
	rec := Record{
		RFC:          NormalizeRFC(r.RFC),
		List:         list,
		Situation:    strings.TrimSpace(r.Situation),
		BusinessName: strings.TrimSpace(r.BusinessName),
	}
	if strings.TrimSpace(r.List) != "" {
		rec.List = NormalizeList(r.List)
	}
	if t, _, err := dateutils.ParseDate(strings.TrimSpace(r.PublishedAt)); err == nil {
		rec.PublishedAt = t
	}
	return rec
}

// ImportStats summarizes an import.
type ImportStats struct {
	Read     int
	Imported int
	Skipped  int
	Duration time.Duration
}

// ImportCSV reads a SAT list export and writes it into w. Rows without an
// RFC are skipped.
func ImportCSV(ctx context.Context, w Writer, csvFile string, delimiter rune, list List, logger logging.Logger) (ImportStats, error) {
	logger = logging.OrDefault(logger)
	start := time.Now()

	rows, err := common.ReadCSVFile[CSVRow](csvFile, delimiter, logger)
	if err != nil {
		return ImportStats{}, fmt.Errorf("failed to read denylist CSV: %w", err)
	}

	stats := ImportStats{Read: len(rows)}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := row.Record(list)
		if rec.RFC == "" {
			stats.Skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := w.Put(ctx, records...); err != nil {
		return stats, fmt.Errorf("failed to store denylist records: %w", err)
	}
	stats.Imported = len(records)
	stats.Duration = time.Since(start)

	logger.WithFields(
		logging.Field{Key: logging.FieldInputFile, Value: csvFile},
		logging.Field{Key: logging.FieldCount, Value: stats.Imported},
		logging.Field{Key: logging.FieldDuration, Value: stats.Duration.String()},
	).Info("Imported denylist records")
	return stats, nil
}
