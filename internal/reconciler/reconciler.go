// Package reconciler recomputes a CFDI total from its line items and
// compares it with the declared total.
package reconciler

import (
	"fmt"
	"strings"

	"fjacquet/cfdi-sentinel/internal/diagnostic"
	"fjacquet/cfdi-sentinel/internal/models"

	"github.com/shopspring/decimal"
)

var (
	rate16     = decimal.RequireFromString("0.16")
	rate8      = decimal.RequireFromString("0.08")
	roundingUp = decimal.NewFromInt(1)
)

// ConceptLine is the per-concept part of the breakdown.
type ConceptLine struct {
	Number              int
	Importe             decimal.Decimal
	Descuento           decimal.Decimal
	ObjetoImp           string
	ClaveProdServ       string
	Descripcion         string
	Transferred         []models.TaxEntry
	Withheld            []models.TaxEntry
	SubtotalAccumulated decimal.Decimal
	TotalParcial        decimal.Decimal
}

// TaxSummary is the outcome of a reconciliation. All figures are rounded
// to cents.
type TaxSummary struct {
	Subtotal         decimal.Decimal
	BaseIVA16        decimal.Decimal
	BaseIVA8         decimal.Decimal
	BaseIVA0         decimal.Decimal
	BaseIVAExempt    decimal.Decimal
	IVATransferred   decimal.Decimal
	IVAWithheld      decimal.Decimal
	ISRWithheld      decimal.Decimal
	IEPSTransferred  decimal.Decimal
	IEPSWithheld     decimal.Decimal
	LocalTransferred decimal.Decimal
	LocalWithheld    decimal.Decimal
	TransferredTotal decimal.Decimal
	WithheldTotal    decimal.Decimal
	Computed         decimal.Decimal
	Declared         decimal.Decimal
	Difference       decimal.Decimal
	Valid            bool
	Concepts         []ConceptLine
	// UsedDocumentTaxes is set when the legacy comprobante-level block was
	// accumulated because no concept carried taxes.
	UsedDocumentTaxes bool
}

type accumulator struct {
	s TaxSummary
}

func (a *accumulator) transferred(t models.TaxEntry) {
	a.s.TransferredTotal = a.s.TransferredTotal.Add(t.Amount)
	switch t.Kind {
	case models.TaxIVA:
		switch {
		case t.Factor == models.FactorExempt:
			a.s.BaseIVAExempt = a.s.BaseIVAExempt.Add(t.Base)
		case t.Rate.Equal(rate16):
			a.s.BaseIVA16 = a.s.BaseIVA16.Add(t.Base)
		case t.Rate.Equal(rate8):
			a.s.BaseIVA8 = a.s.BaseIVA8.Add(t.Base)
		case t.Rate.IsZero():
			a.s.BaseIVA0 = a.s.BaseIVA0.Add(t.Base)
		}
		a.s.IVATransferred = a.s.IVATransferred.Add(t.Amount)
	case models.TaxIEPS:
		a.s.IEPSTransferred = a.s.IEPSTransferred.Add(t.Amount)
	}
}

func (a *accumulator) withheld(t models.TaxEntry) {
	a.s.WithheldTotal = a.s.WithheldTotal.Add(t.Amount)
	switch t.Kind {
	case models.TaxIVA:
		a.s.IVAWithheld = a.s.IVAWithheld.Add(t.Amount)
	case models.TaxISR:
		a.s.ISRWithheld = a.s.ISRWithheld.Add(t.Amount)
	case models.TaxIEPS:
		a.s.IEPSWithheld = a.s.IEPSWithheld.Add(t.Amount)
	}
}

// Reconcile recomputes the total of doc as
// subtotal + transferred - withheld + local transferred - local withheld.
func Reconcile(doc *models.Document) TaxSummary {
	a := &accumulator{}

	for _, c := range doc.Concepts {
		a.s.Subtotal = a.s.Subtotal.Add(c.Importe.Sub(c.Descuento))
		for _, t := range c.Transferred {
			a.transferred(t)
		}
		for _, w := range c.Withheld {
			a.withheld(w)
		}
		a.s.Concepts = append(a.s.Concepts, ConceptLine{
			Number:              c.Number,
			Importe:             c.Importe,
			Descuento:           c.Descuento,
			ObjetoImp:           c.ObjetoImp,
			ClaveProdServ:       c.ClaveProdServ,
			Descripcion:         c.Descripcion,
			Transferred:         c.Transferred,
			Withheld:            c.Withheld,
			SubtotalAccumulated: models.Round2(a.s.Subtotal),
			TotalParcial:        models.Round2(c.TotalParcial()),
		})
	}

	if !doc.ConceptsCarryTaxes() && doc.DocumentTaxes != nil {
		for _, t := range doc.DocumentTaxes.Transferred {
			a.transferred(t)
		}
		for _, w := range doc.DocumentTaxes.Withheld {
			a.withheld(w)
		}
		a.s.UsedDocumentTaxes = len(doc.DocumentTaxes.Transferred)+len(doc.DocumentTaxes.Withheld) > 0
	}

	if lt := doc.LocalTaxes; lt != nil {
		a.s.LocalTransferred = localTotal(lt.TotalTransferred, lt.Transferred)
		a.s.LocalWithheld = localTotal(lt.TotalWithheld, lt.Withheld)
	}

	s := a.s
	s.Subtotal = models.Round2(s.Subtotal)
	s.BaseIVA16 = models.Round2(s.BaseIVA16)
	s.BaseIVA8 = models.Round2(s.BaseIVA8)
	s.BaseIVA0 = models.Round2(s.BaseIVA0)
	s.BaseIVAExempt = models.Round2(s.BaseIVAExempt)
	s.IVATransferred = models.Round2(s.IVATransferred)
	s.IVAWithheld = models.Round2(s.IVAWithheld)
	s.ISRWithheld = models.Round2(s.ISRWithheld)
	s.IEPSTransferred = models.Round2(s.IEPSTransferred)
	s.IEPSWithheld = models.Round2(s.IEPSWithheld)
	s.LocalTransferred = models.Round2(s.LocalTransferred)
	s.LocalWithheld = models.Round2(s.LocalWithheld)
	s.TransferredTotal = models.Round2(s.TransferredTotal)
	s.WithheldTotal = models.Round2(s.WithheldTotal)

	// Computed is built from the rounded figures so the reported breakdown
	// always adds up and Difference == |Computed - Declared|.
	s.Computed = models.Round2(s.Subtotal.Add(s.TransferredTotal).Sub(s.WithheldTotal).
		Add(s.LocalTransferred).Sub(s.LocalWithheld))
	s.Declared = doc.Total
	s.Difference = models.Round2(s.Computed.Sub(s.Declared).Abs())
	s.Valid = s.Difference.LessThanOrEqual(models.Tolerance)
	return s
}

// localTotal prefers the declared total attribute and only sums the
// individual entries when it is absent.
func localTotal(declared decimal.NullDecimal, entries []decimal.Decimal) decimal.Decimal {
	if declared.Valid {
		return declared.Decimal
	}
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e)
	}
	return sum
}

// DiagnoseMismatch names the most likely cause of a failed reconciliation.
func DiagnoseMismatch(s TaxSummary) diagnostic.Code {
	switch {
	case s.LocalWithheld.IsPositive() && models.WithinTolerance(s.Difference, s.LocalWithheld):
		return diagnostic.CauseLocalWithheld
	case s.LocalTransferred.IsPositive() && models.WithinTolerance(s.Difference, s.LocalTransferred):
		return diagnostic.CauseLocalTransferred
	case s.Difference.LessThan(roundingUp):
		return diagnostic.CauseRounding
	}
	return diagnostic.CauseReviewTaxes
}

// Explanation spells out the formula with the summary figures.
func (s TaxSummary) Explanation() string {
	return fmt.Sprintf("Subtotal: %s + Traslados: %s - Retenciones: %s + Impuestos Locales Trasladados: %s - Impuestos Locales Retenidos: %s = %s",
		s.Subtotal.StringFixed(2), s.TransferredTotal.StringFixed(2), s.WithheldTotal.StringFixed(2),
		s.LocalTransferred.StringFixed(2), s.LocalWithheld.StringFixed(2), s.Computed.StringFixed(2))
}

// Breakdown renders the per-concept breakdown text.
func (s TaxSummary) Breakdown() string {
	var b strings.Builder
	b.WriteString("DESGLOSE POR CONCEPTO:\n\n")
	for _, c := range s.Concepts {
		fmt.Fprintf(&b, "Concepto %d\n", c.Number)
		fmt.Fprintf(&b, "  Importe: %s\n", models.FormatPesos(c.Importe))
		if len(c.Transferred) > 0 {
			b.WriteString("  Traslados:\n")
			for _, t := range c.Transferred {
				fmt.Fprintf(&b, "    - Impuesto %s, Tasa %s: %s\n", t.Kind, t.RateRaw, models.FormatPesos(t.Amount))
			}
		}
		if len(c.Withheld) > 0 {
			b.WriteString("  Retenciones:\n")
			for _, w := range c.Withheld {
				fmt.Fprintf(&b, "    - Impuesto %s, Tasa %s: %s\n", w.Kind, w.RateRaw, models.FormatPesos(w.Amount))
			}
		}
		fmt.Fprintf(&b, "  Subtotal acumulado: %s\n", models.FormatPesos(c.SubtotalAccumulated))
		fmt.Fprintf(&b, "  Total parcial: %s\n\n", models.FormatPesos(c.TotalParcial))
	}
	b.WriteString("RESUMEN DEL CFDI:\n")
	fmt.Fprintf(&b, "  Subtotal calculado: %s\n", models.FormatPesos(s.Subtotal))
	fmt.Fprintf(&b, "  Traslados federales: %s\n", models.FormatPesos(s.TransferredTotal))
	fmt.Fprintf(&b, "  Retenciones federales: %s\n", models.FormatPesos(s.WithheldTotal))
	if s.LocalTransferred.IsPositive() || s.LocalWithheld.IsPositive() {
		b.WriteString("\nIMPUESTOS LOCALES:\n")
		if s.LocalTransferred.IsPositive() {
			fmt.Fprintf(&b, "  Impuestos locales trasladados: %s\n", models.FormatPesos(s.LocalTransferred))
		}
		if s.LocalWithheld.IsPositive() {
			fmt.Fprintf(&b, "  Impuestos locales retenidos (CEDULAR): %s\n", models.FormatPesos(s.LocalWithheld))
		}
	}
	return b.String()
}
