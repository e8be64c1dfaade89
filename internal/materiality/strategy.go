// Package materiality gives a soft opinion on whether the billed concepts
// fit the business activity declared by the caller. The opinion is only
// ever advisory; it never changes an outcome.
package materiality

import (
	"context"
	"fmt"
	"strings"

	"fjacquet/cfdi-sentinel/internal/models"
)

// Assessment is the opinion a strategy forms about one document.
type Assessment struct {
	// Risky is true when some concepts look unrelated to the activity.
	Risky bool
	// Concepts lists the doubtful lines as "<clave> - <descripcion>".
	Concepts []string
	// Reason is an optional free-text explanation.
	Reason string
}

// Strategy is one way of judging materiality.
type Strategy interface {
	// Assess returns the assessment, whether the strategy reached an
	// opinion, and any error encountered.
	Assess(ctx context.Context, doc *models.Document, activity string) (Assessment, bool, error)

	// Name returns the name of this strategy for logging.
	Name() string
}

// StrategyResult records one strategy attempt.
type StrategyResult struct {
	Strategy   string
	Assessment Assessment
	Found      bool
	Error      error
}

// StrategyResults aggregates the attempts of a chain.
type StrategyResults struct {
	Results []StrategyResult
}

// Best returns the first risky opinion, or the first opinion at all.
func (sr StrategyResults) Best() (Assessment, bool) {
	for _, r := range sr.Results {
		if r.Found && r.Error == nil && r.Assessment.Risky {
			return r.Assessment, true
		}
	}
	for _, r := range sr.Results {
		if r.Found && r.Error == nil {
			return r.Assessment, true
		}
	}
	return Assessment{}, false
}

// Errors returns the errors of failed attempts.
func (sr StrategyResults) Errors() []error {
	var errs []error
	for _, r := range sr.Results {
		if r.Error != nil {
			errs = append(errs, fmt.Errorf("%s strategy: %w", r.Strategy, r.Error))
		}
	}
	return errs
}

// Summary renders "rules:risky, gemini:no_opinion".
func (sr StrategyResults) Summary() string {
	parts := make([]string, 0, len(sr.Results))
	for _, r := range sr.Results {
		status := "no_opinion"
		switch {
		case r.Error != nil:
			status = "failed"
		case r.Found && r.Assessment.Risky:
			status = "risky"
		case r.Found:
			status = "plausible"
		}
		parts = append(parts, r.Strategy+":"+status)
	}
	return strings.Join(parts, ", ")
}
