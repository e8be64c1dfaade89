package classifier

import (
	"fjacquet/cfdi-sentinel/internal/diagnostic"
	"fjacquet/cfdi-sentinel/internal/models"

	"github.com/shopspring/decimal"
)

// Qualifier refines a verdict with the reason that drove it.
type Qualifier string

const (
	QualifierNone      Qualifier = ""
	QualifierTaxRisk   Qualifier = "Riesgo IVA"
	QualifierRFCEFOS   Qualifier = "RFC EFOS"
	QualifierRFC69B    Qualifier = "RFC 69-B"
	QualifierCancelled Qualifier = "CANCELADO"
)

var qualifierRank = map[Qualifier]int{
	QualifierNone:      0,
	QualifierRFCEFOS:   1,
	QualifierTaxRisk:   2,
	QualifierRFC69B:    3,
	QualifierCancelled: 4,
}

var outcomeRank = map[models.Outcome]int{
	models.OutcomeUsable:    0,
	models.OutcomeAlert:     1,
	models.OutcomeNotUsable: 2,
}

// Validation class labels.
const (
	ClassPayroll = "ESTRUCTURAL, NÓMINA"
	ClassStamp   = "ESTRUCTURAL, TIMBRE"
	ClassFull    = "ESTRUCTURAL, SAT, NEGOCIO, RIESGO"
	ClassError   = "ERROR"
)

// Verdict is the classification of one document.
type Verdict struct {
	Outcome   models.Outcome
	Qualifier Qualifier
	// Terminal verdicts come from structural failures and are never
	// upgraded.
	Terminal        bool
	Diagnostics     []diagnostic.Diagnostic
	ValidationClass string
	// Difference is the totals difference the score is derived from.
	Difference decimal.Decimal
	// FreightPenalty marks a required manifest that is incomplete.
	FreightPenalty bool
}

// Add appends findings without changing the outcome.
func (v *Verdict) Add(ds ...diagnostic.Diagnostic) {
	v.Diagnostics = append(v.Diagnostics, ds...)
}

// Downgrade moves the verdict to outcome when it is worse than the current
// one, and records the findings. It never improves a verdict, so it never
// clears a terminal state.
func (v *Verdict) Downgrade(outcome models.Outcome, q Qualifier, ds ...diagnostic.Diagnostic) {
	v.Add(ds...)
	cur, next := outcomeRank[v.Outcome], outcomeRank[outcome]
	if next > cur {
		v.Outcome = outcome
	}
	if next >= cur && qualifierRank[q] > qualifierRank[v.Qualifier] {
		v.Qualifier = q
	}
	if q == QualifierRFC69B || q == QualifierCancelled {
		v.ValidationClass = ClassError
	}
}

// Label is the traffic-light label shown in reports.
func (v Verdict) Label() string {
	switch v.Outcome {
	case models.OutcomeNotUsable:
		switch v.Qualifier {
		case QualifierCancelled:
			return "🔴 NO DISPONIBLE (CANCELADO)"
		case QualifierNone:
			return "🔴 NO USABLE"
		}
		return "🔴 NO USABLE (" + string(v.Qualifier) + ")"
	case models.OutcomeAlert:
		if v.Qualifier == QualifierRFCEFOS {
			return "🟡 ALERTA (RFC EFOS)"
		}
		return "🟡 USABLE CON ALERTAS"
	}
	return "🟢 USABLE"
}

var (
	ten = decimal.NewFromInt(10)
	one = decimal.NewFromInt(1)
)

// Score is an informational 0-100 figure; it never drives the outcome.
func (v Verdict) Score() int {
	if v.Qualifier == QualifierCancelled {
		return 0
	}
	switch v.Outcome {
	case models.OutcomeNotUsable:
		switch {
		case v.Difference.GreaterThan(ten):
			return 10
		case v.Difference.GreaterThan(one):
			return 25
		}
		return 40
	case models.OutcomeAlert:
		if v.FreightPenalty {
			return 70
		}
		return 80
	}
	if v.Difference.IsZero() {
		return 100
	}
	return 95
}

// FiscalComment renders the diagnostics as the fiscal comment.
func (v Verdict) FiscalComment() string {
	return diagnostic.Render(v.Diagnostics)
}

// TechnicalNotes renders the diagnostics as technical notes.
func (v Verdict) TechnicalNotes() string {
	return diagnostic.RenderTechnical(v.Diagnostics)
}
