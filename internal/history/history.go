// Package history records one summary line per batch run so past runs can
// be listed and compared.
package history

import (
	"context"
	"time"

	"fjacquet/cfdi-sentinel/internal/dateutils"
	"fjacquet/cfdi-sentinel/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Summary aggregates the outcome of one batch run.
type Summary struct {
	ID          string          `json:"id" yaml:"id"`
	RunID       string          `json:"run_id" yaml:"run_id"`
	Company     string          `json:"company,omitempty" yaml:"company,omitempty"`
	Label       string          `json:"label" yaml:"label"`
	CreatedAt   time.Time       `json:"created_at" yaml:"created_at"`
	XMLCount    int             `json:"xml_count" yaml:"xml_count"`
	UsableCount int             `json:"usable_count" yaml:"usable_count"`
	AlertCount  int             `json:"alert_count" yaml:"alert_count"`
	ErrorCount  int             `json:"error_count" yaml:"error_count"`
	TotalAmount decimal.Decimal `json:"total_amount" yaml:"total_amount"`
}

// NewSummary counts results by outcome and sums their declared totals.
func NewSummary(runID, company string, results []models.Result, at time.Time) Summary {
	s := Summary{
		ID:          uuid.NewString(),
		RunID:       runID,
		Company:     company,
		Label:       "Proceso " + dateutils.ToISODate(at),
		CreatedAt:   at,
		XMLCount:    len(results),
		TotalAmount: decimal.Zero,
	}
	for _, r := range results {
		switch r.Outcome {
		case models.OutcomeUsable:
			s.UsableCount++
		case models.OutcomeAlert:
			s.AlertCount++
		default:
			s.ErrorCount++
		}
		s.TotalAmount = s.TotalAmount.Add(r.Declared)
	}
	return s
}

// Recorder persists run summaries. Recording is one-way: the batch run
// never reads back what it wrote.
type Recorder interface {
	Record(ctx context.Context, s Summary) error
}

// Lister returns the most recent summaries first, at most limit of them.
// A limit of zero or less returns everything.
type Lister interface {
	List(ctx context.Context, limit int) ([]Summary, error)
}

// NopRecorder discards summaries.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, Summary) error { return nil }
