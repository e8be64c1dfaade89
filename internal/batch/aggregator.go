// Package batch runs many CFDI documents through the engine in fixed-size
// batches and aggregates the results of a run.
package batch

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"fjacquet/cfdi-sentinel/internal/dateutils"
	"fjacquet/cfdi-sentinel/internal/logging"
	"fjacquet/cfdi-sentinel/internal/models"
)

// DateRange represents a date range with start and end dates
type DateRange struct {
	Start time.Time
	End   time.Time
}

// String returns the date range in the format "YYYY-MM-DD_YYYY-MM-DD"
func (dr DateRange) String() string {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s_%s", dateutils.ToISODate(dr.Start), dateutils.ToISODate(dr.End))
}

// Merge combines this date range with another, returning the overall range
func (dr DateRange) Merge(other DateRange) DateRange {
	start := dr.Start
	end := dr.End

	if dr.Start.IsZero() {
		start = other.Start
	} else if !other.Start.IsZero() && other.Start.Before(start) {
		start = other.Start
	}

	if dr.End.IsZero() {
		end = other.End
	} else if !other.End.IsZero() && other.End.After(end) {
		end = other.End
	}

	return DateRange{Start: start, End: end}
}

// Aggregator derives run-level facts from the per-document results.
type Aggregator struct {
	logger logging.Logger
}

// NewAggregator creates a new Aggregator instance
func NewAggregator(logger logging.Logger) *Aggregator {
	return &Aggregator{logger: logging.OrDefault(logger)}
}

// Period returns the range of issue dates covered by results. Rows without
// a readable date are ignored.
func (a *Aggregator) Period(results []models.Result) DateRange {
	var dr DateRange
	for _, r := range results {
		d, err := time.Parse(dateutils.DateLayoutISO, r.IssueDate)
		if err != nil {
			continue
		}
		dr = dr.Merge(DateRange{Start: d, End: d})
	}
	return dr
}

// DetectDuplicates logs every UUID carried by more than one file and
// returns them in first-seen order. All rows are kept.
func (a *Aggregator) DetectDuplicates(results []models.Result) []string {
	seen := make(map[string][]string)
	var order []string
	for _, r := range results {
		if r.UUID == "" || r.UUID == models.NotAvailable {
			continue
		}
		key := strings.ToUpper(r.UUID)
		if _, ok := seen[key]; !ok {
			order = append(order, key)
		}
		seen[key] = append(seen[key], r.FileName)
	}

	var dups []string
	for _, id := range order {
		files := seen[id]
		if len(files) < 2 {
			continue
		}
		dups = append(dups, id)
		a.logger.Warn("Duplicate CFDI UUID in run",
			logging.Field{Key: logging.FieldUUID, Value: id},
			logging.Field{Key: logging.FieldFile, Value: strings.Join(files, ", ")})
	}
	if len(dups) > 0 {
		a.logger.Warn("Found duplicate CFDI in run", logging.Field{Key: logging.FieldCount, Value: len(dups)})
	}
	return dups
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// OutputFilename creates a filename for a run export.
// Format: {prefix}_{start_date}_{end_date}.{ext}
func OutputFilename(prefix string, dateRange DateRange, ext string) string {
	prefix = strings.Trim(unsafeName.ReplaceAllString(prefix, "_"), "_")
	if prefix == "" {
		prefix = "cfdi"
	}
	ext = strings.TrimPrefix(ext, ".")
	if s := dateRange.String(); s != "" {
		return fmt.Sprintf("%s_%s.%s", prefix, s, ext)
	}
	return fmt.Sprintf("%s.%s", prefix, ext)
}
