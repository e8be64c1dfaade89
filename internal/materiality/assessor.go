package materiality

import (
	"context"
	"strings"

	"fjacquet/cfdi-sentinel/internal/diagnostic"
	"fjacquet/cfdi-sentinel/internal/logging"
	"fjacquet/cfdi-sentinel/internal/models"
)

// Assessor runs strategies in order until one finds the document risky.
type Assessor struct {
	strategies []Strategy
	logger     logging.Logger
}

// NewAssessor builds a chain. With no strategies the rule table is used.
func NewAssessor(logger logging.Logger, strategies ...Strategy) *Assessor {
	if len(strategies) == 0 {
		strategies = []Strategy{NewRuleStrategy()}
	}
	return &Assessor{strategies: strategies, logger: logging.OrDefault(logger)}
}

// Assess returns an advisory diagnostic when the concepts look unrelated
// to activity, or nil. Strategy errors are logged and skipped.
func (a *Assessor) Assess(ctx context.Context, doc *models.Document, activity string) *diagnostic.Diagnostic {
	if noActivity(activity) {
		return nil
	}

	var results StrategyResults
	for _, s := range a.strategies {
		assessment, found, err := s.Assess(ctx, doc, activity)
		results.Results = append(results.Results, StrategyResult{Strategy: s.Name(), Assessment: assessment, Found: found, Error: err})
		if err == nil && found && assessment.Risky {
			break
		}
	}

	for _, err := range results.Errors() {
		a.logger.WithError(err).WithFields(
			logging.Field{Key: logging.FieldUUID, Value: doc.UUID()},
		).Warn("Materiality strategy failed")
	}
	a.logger.WithFields(
		logging.Field{Key: logging.FieldUUID, Value: doc.UUID()},
		logging.Field{Key: "strategies", Value: results.Summary()},
	).Debug("Materiality assessed")

	best, ok := results.Best()
	if !ok || !best.Risky {
		return nil
	}
	reason := best.Reason
	if reason == "" && len(best.Concepts) > 0 {
		reason = "Conceptos a revisar: " + strings.Join(best.Concepts, "; ") + "."
	}
	d := diagnostic.New(diagnostic.CodeMateriality,
		diagnostic.ParamActivity, strings.TrimSpace(activity),
		diagnostic.ParamReason, reason,
	)
	return &d
}
