package report

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"time"

	"fjacquet/cfdi-sentinel/internal/batch"
	"fjacquet/cfdi-sentinel/internal/logging"
	"fjacquet/cfdi-sentinel/internal/models"
)

// Supported run report formats.
const (
	FormatJSON = "json"
	FormatXML  = "xml"
)

// RunReport summarises a batch run for archiving next to the CSV export.
type RunReport struct {
	XMLName    xml.Name         `json:"-" xml:"runReport"`
	RunID      string           `json:"run_id" xml:"runId,attr"`
	StartedAt  time.Time        `json:"started_at" xml:"startedAt"`
	FinishedAt time.Time        `json:"finished_at" xml:"finishedAt"`
	Period     string           `json:"period,omitempty" xml:"period,omitempty"`
	Cancelled  bool             `json:"cancelled" xml:"cancelled"`
	Total      int              `json:"total" xml:"total"`
	Usable     int              `json:"usable" xml:"usable"`
	Alert      int              `json:"alert" xml:"alert"`
	NotUsable  int              `json:"not_usable" xml:"notUsable"`
	Amount     string           `json:"total_amount" xml:"totalAmount"`
	Duplicates []string         `json:"duplicates,omitempty" xml:"duplicates>uuid,omitempty"`
	Documents  []DocumentReport `json:"documents" xml:"documents>document"`
}

// DocumentReport is the per-document part of a RunReport.
type DocumentReport struct {
	File    string   `json:"file" xml:"file,attr"`
	UUID    string   `json:"uuid" xml:"uuid,attr"`
	Outcome string   `json:"outcome" xml:"outcome,attr"`
	Label   string   `json:"label" xml:"label"`
	Score   int      `json:"score" xml:"score"`
	Codes   []string `json:"codes,omitempty" xml:"codes>code,omitempty"`
	Comment string   `json:"comment" xml:"comment"`
}

// NewRunReport builds the report of run.
func NewRunReport(run *batch.Run) *RunReport {
	r := &RunReport{
		RunID:      run.ID,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Period:     run.Period.String(),
		Cancelled:  run.Cancelled,
		Total:      run.Total,
		Usable:     run.Summary.UsableCount,
		Alert:      run.Summary.AlertCount,
		NotUsable:  run.Summary.ErrorCount,
		Amount:     models.FormatPesos(run.Summary.TotalAmount),
		Duplicates: run.Duplicates,
		Documents:  make([]DocumentReport, 0, len(run.Results)),
	}
	for _, res := range run.Results {
		r.Documents = append(r.Documents, DocumentReport{
			File:    res.FileName,
			UUID:    res.UUID,
			Outcome: string(res.Outcome),
			Label:   res.Label,
			Score:   res.Score,
			Codes:   res.Codes,
			Comment: res.FiscalComment,
		})
	}
	return r
}

// Generator renders run reports in various formats.
type Generator struct {
	logger logging.Logger
}

// NewGenerator creates a new instance of Generator.
func NewGenerator(logger logging.Logger) *Generator {
	return &Generator{
		logger: logging.OrDefault(logger).WithField(logging.FieldComponent, "ReportGenerator"),
	}
}

// Generate renders report in the specified format (json or xml).
func (g *Generator) Generate(report *RunReport, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return g.generateJSON(report)
	case FormatXML:
		return g.generateXML(report)
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

func (g *Generator) generateJSON(report *RunReport) ([]byte, error) {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal JSON report")
		return nil, fmt.Errorf("failed to marshal JSON report: %w", err)
	}
	return out, nil
}

func (g *Generator) generateXML(report *RunReport) ([]byte, error) {
	out, err := xml.MarshalIndent(report, "", "  ")
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal XML report")
		return nil, fmt.Errorf("failed to marshal XML report: %w", err)
	}
	return []byte(xml.Header + string(out)), nil
}
