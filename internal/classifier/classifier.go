// Package classifier turns the parsed document and every validator outcome
// into one verdict. Checks run in strict precedence: structural failures,
// totals, tax risk, informational notes, freight manifest and materiality.
package classifier

import (
	"strconv"
	"strings"

	"fjacquet/cfdi-sentinel/internal/complement"
	"fjacquet/cfdi-sentinel/internal/diagnostic"
	"fjacquet/cfdi-sentinel/internal/doctype"
	"fjacquet/cfdi-sentinel/internal/models"
	"fjacquet/cfdi-sentinel/internal/reconciler"
	"fjacquet/cfdi-sentinel/internal/rules"
	"fjacquet/cfdi-sentinel/internal/textutils"

	"github.com/shopspring/decimal"
)

// educationClavePrefix is the ClaveProdServ segment of education services.
const educationClavePrefix = "86"

var educationIssuerWords = []string{"INSTITUTO", "UNIVERSIDAD", "COLEGIO", "ESCUELA"}

// Input gathers everything the classifier reads.
type Input struct {
	Document *models.Document
	Rules    rules.RuleSet
	Taxes    reconciler.TaxSummary
	Payroll  complement.PayrollResult
	Payments complement.PaymentsResult
	Freight  complement.FreightResult
	DocType  doctype.Classification
	// Materiality is the advisory finding of the materiality check, if any.
	Materiality *diagnostic.Diagnostic
}

// Classify applies the precedence rules to in.
func Classify(in Input) Verdict {
	doc := in.Document
	v := Verdict{Outcome: models.OutcomeUsable, ValidationClass: validationClass(doc, in.Payroll)}

	if structural := structuralFailures(in); len(structural) > 0 {
		v.Outcome = models.OutcomeNotUsable
		v.Terminal = true
		v.Add(structural...)
		return v
	}

	classifyTotals(&v, in)

	if in.Payments.Exempt {
		v.Add(diagnostic.New(diagnostic.CodePaymentsNotApplicable, diagnostic.ParamYear, strconv.Itoa(doc.FiscalYear)))
	}
	v.Add(advisories(in.DocType.Diagnostics)...)

	classifyTaxRisk(&v, doc)

	if hasBonifiedConcepts(doc) {
		v.Add(diagnostic.New(diagnostic.CodeBonifiedConcepts))
	}

	if !in.Payroll.Applicable && v.Outcome != models.OutcomeNotUsable {
		classifyFreight(&v, in)
	}

	if in.Materiality != nil {
		v.Add(*in.Materiality)
	}
	return v
}

func validationClass(doc *models.Document, payroll complement.PayrollResult) string {
	switch {
	case payroll.Applicable:
		return ClassPayroll
	case doc.Version == "3.3":
		return ClassStamp
	}
	return ClassFull
}

func structuralFailures(in Input) []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	for _, d := range in.DocType.Diagnostics {
		if d.Blocking() {
			out = append(out, d)
		}
	}
	if in.Payroll.Applicable && !in.Payroll.Valid {
		out = append(out, diagnostic.New(diagnostic.CodePayrollInvalid, diagnostic.ParamDetail, in.Payroll.Error))
	}
	if in.Payments.Valid == complement.No {
		out = append(out, diagnostic.New(diagnostic.CodePaymentsInvalid, diagnostic.ParamDetail, in.Payments.Error))
	}
	return out
}

func advisories(ds []diagnostic.Diagnostic) []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	for _, d := range ds {
		if !d.Blocking() {
			out = append(out, d)
		}
	}
	return out
}

func classifyTotals(v *Verdict, in Input) {
	doc := in.Document
	if in.Payroll.Applicable {
		p := in.Payroll
		v.Difference = p.Difference
		params := []string{
			diagnostic.ParamVersion, p.Version,
			diagnostic.ParamEarnings, models.FormatPesos(p.Earnings),
			diagnostic.ParamDeductions, models.FormatPesos(p.Deductions),
			diagnostic.ParamOtherPayments, models.FormatPesos(p.OtherPayments),
			diagnostic.ParamISRWithheld, models.FormatPesos(p.ISRWithheld),
			diagnostic.ParamDeclared, models.FormatPesos(p.Declared),
			diagnostic.ParamComputed, models.FormatPesos(p.Computed),
			diagnostic.ParamDifference, models.FormatPesos(p.Difference),
		}
		switch {
		case p.TotalsValid:
			v.Add(diagnostic.New(diagnostic.CodePayrollTotalsValid, params...))
		case doc.HasFuelStatement:
			v.Downgrade(models.OutcomeAlert, QualifierNone, fuelNote(p.Difference))
		default:
			v.Downgrade(models.OutcomeNotUsable, QualifierNone, diagnostic.New(diagnostic.CodePayrollTotalsInvalid, params...))
		}
		return
	}

	t := in.Taxes
	v.Difference = t.Difference
	switch {
	case t.Valid:
		params := []string{diagnostic.ParamContext, in.Rules.HistoricalNote}
		if t.LocalWithheld.IsPositive() {
			params = append(params, diagnostic.ParamLocalWithheld, models.FormatPesos(t.LocalWithheld))
		} else if t.LocalTransferred.IsPositive() {
			params = append(params, diagnostic.ParamLocalTransferred, models.FormatPesos(t.LocalTransferred))
		}
		v.Add(diagnostic.New(diagnostic.CodeTotalsValid, params...))
	case doc.HasFuelStatement:
		v.Downgrade(models.OutcomeAlert, QualifierNone, fuelNote(t.Difference))
	default:
		v.Downgrade(models.OutcomeNotUsable, QualifierNone, mismatch(t))
	}
}

func fuelNote(diff decimal.Decimal) diagnostic.Diagnostic {
	return diagnostic.New(diagnostic.CodeFuelStatement, diagnostic.ParamDifference, models.FormatPesos(diff))
}

func mismatch(t reconciler.TaxSummary) diagnostic.Diagnostic {
	params := []string{
		diagnostic.ParamDeclared, models.FormatPesos(t.Declared),
		diagnostic.ParamComputed, models.FormatPesos(t.Computed),
		diagnostic.ParamDifference, models.FormatPesos(t.Difference),
		diagnostic.ParamSubtotal, models.FormatPesos(t.Subtotal),
		diagnostic.ParamIVATransferred, models.FormatPesos(t.IVATransferred),
		diagnostic.ParamIVAWithheld, models.FormatPesos(t.IVAWithheld),
		diagnostic.ParamISRWithheld, models.FormatPesos(t.ISRWithheld),
		diagnostic.ParamCause, string(reconciler.DiagnoseMismatch(t)),
		diagnostic.ParamExplanation, t.Explanation(),
	}
	if t.IEPSTransferred.IsPositive() {
		params = append(params, diagnostic.ParamIEPS, models.FormatPesos(t.IEPSTransferred))
	}
	if t.LocalTransferred.IsPositive() {
		params = append(params, diagnostic.ParamLocalTransferred, models.FormatPesos(t.LocalTransferred))
	}
	if t.LocalWithheld.IsPositive() {
		params = append(params, diagnostic.ParamLocalWithheld, models.FormatPesos(t.LocalWithheld))
	}
	return diagnostic.New(diagnostic.CodeTotalsMismatch, params...)
}

// classifyTaxRisk flags taxable concepts transferred at IVA 0 %, unless
// the document looks like an education service.
func classifyTaxRisk(v *Verdict, doc *models.Document) {
	var risky, exempt bool
	educationIssuer := textutils.ContainsAny(doc.Issuer.Name, educationIssuerWords...)
	for _, c := range doc.Concepts {
		if c.ObjetoImp != models.ObjectTaxable || !c.HasZeroRateIVA() {
			continue
		}
		if educationIssuer || strings.HasPrefix(c.ClaveProdServ, educationClavePrefix) {
			exempt = true
			continue
		}
		risky = true
	}

	switch {
	case risky && v.Outcome != models.OutcomeNotUsable:
		v.Downgrade(models.OutcomeNotUsable, QualifierTaxRisk, diagnostic.New(diagnostic.CodeZeroRateIVA))
	case !risky && exempt:
		v.Add(diagnostic.New(diagnostic.CodeEducationExempt))
	}
}

func hasBonifiedConcepts(doc *models.Document) bool {
	for _, c := range doc.Concepts {
		if c.ObjetoImp == models.ObjectNotTaxable && c.FullyDiscounted() {
			return true
		}
	}
	return false
}

func classifyFreight(v *Verdict, in Input) {
	f := in.Freight
	v.FreightPenalty = f.Required == complement.Yes && f.Complete == complement.No
	switch {
	case f.RequiredButAbsent():
		v.Downgrade(models.OutcomeAlert, QualifierNone, diagnostic.New(diagnostic.CodeFreightMissing))
	case f.Incomplete():
		v.Downgrade(models.OutcomeAlert, QualifierNone,
			diagnostic.New(diagnostic.CodeFreightIncomplete, diagnostic.ParamMissing, strings.Join(f.Missing, ", ")))
	case f.Present == complement.Yes && f.Complete == complement.Yes:
		v.Add(diagnostic.New(diagnostic.CodeFreightComplete, diagnostic.ParamVersion, f.Version))
	case f.Required == complement.NotApplicable:
		v.Add(diagnostic.New(diagnostic.CodeFreightNotApplicable, diagnostic.ParamContext, in.Rules.HistoricalNote))
	case f.Required == complement.No && f.Present != complement.Yes:
		v.Add(diagnostic.New(diagnostic.CodeFreightNotRequired))
	}
}
