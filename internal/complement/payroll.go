package complement

import (
	"fmt"

	"fjacquet/cfdi-sentinel/internal/models"

	"github.com/shopspring/decimal"
)

var payrollVersions = map[string]bool{"1.1": true, "1.2": true}

var requiredPayrollAttributes = []string{"FechaInicialPago", "FechaFinalPago", "FechaPago", "NumDiasPagados"}

const isrDeductionType = "002"

// PayrollResult is the outcome of payroll validation.
type PayrollResult struct {
	Applicable bool
	Valid      bool
	Version    string
	// Error names the structural failure when Valid is false.
	Error string

	Earnings      decimal.Decimal
	Deductions    decimal.Decimal
	OtherPayments decimal.Decimal
	ISRWithheld   decimal.Decimal

	Computed    decimal.Decimal
	Declared    decimal.Decimal
	Difference  decimal.Decimal
	TotalsValid bool
}

// Breakdown renders the payroll breakdown text.
func (r PayrollResult) Breakdown() string {
	return fmt.Sprintf("CFDI DE NÓMINA:\nPercepciones: %s\nDeducciones: %s\nOtros Pagos: %s\nISR Retenido: %s\nTotal: %s",
		models.FormatPesos(r.Earnings), models.FormatPesos(r.Deductions), models.FormatPesos(r.OtherPayments),
		models.FormatPesos(r.ISRWithheld), models.FormatPesos(r.Computed))
}

// ValidatePayroll checks the payroll complement of a type N document and
// recomputes its total as earnings + other payments - deductions.
func ValidatePayroll(doc *models.Document) PayrollResult {
	if doc.Type != models.TypePayroll || doc.Payroll == nil {
		return PayrollResult{Version: models.NotApplicable}
	}
	p := doc.Payroll
	res := PayrollResult{Applicable: true, Version: p.Version, Declared: doc.Total}
	prefix := p.Prefix
	if prefix == "" {
		prefix = "nomina12"
	}

	fail := func(msg string) PayrollResult {
		res.Error = msg
		return res
	}

	if !payrollVersions[p.Version] {
		return fail(fmt.Sprintf("Versión de nómina inválida: %s. Se requiere versión 1.1 o 1.2", p.Version))
	}
	for _, name := range requiredPayrollAttributes {
		if p.Attribute(name) == "" {
			return fail(fmt.Sprintf("Falta campo obligatorio en complemento de nómina (versión %s): %s", p.Version, name))
		}
	}
	if p.Receiver != nil && p.Receiver.NumEmpleado == "" {
		return fail(fmt.Sprintf("Falta NumEmpleado en %s:Receptor", prefix))
	}
	if !p.HasIssuer {
		return fail(fmt.Sprintf("Falta nodo obligatorio: %s:Emisor", prefix))
	}
	if p.Receiver == nil {
		return fail(fmt.Sprintf("Falta nodo obligatorio: %s:Receptor", prefix))
	}
	if p.Perceptions == nil {
		return fail(fmt.Sprintf("Falta nodo obligatorio: %s:Percepciones", prefix))
	}
	if !p.Perceptions.TotalGravado.Valid {
		return fail(fmt.Sprintf("Falta campo obligatorio en %s:Percepciones: TotalGravado", prefix))
	}
	if !p.Perceptions.TotalExento.Valid {
		return fail(fmt.Sprintf("Falta campo obligatorio en %s:Percepciones: TotalExento", prefix))
	}

	res.Valid = true
	res.Earnings = p.Perceptions.TotalGravado.Decimal.Add(p.Perceptions.TotalExento.Decimal)

	if d := p.Deductions; d != nil {
		withheld := models.OrZero(d.TotalImpuestosRetenidos)
		res.Deductions = models.OrZero(d.TotalOtrasDeducciones).Add(withheld)
		res.ISRWithheld = withheld
		for _, item := range d.Items {
			if item.Type == isrDeductionType {
				res.ISRWithheld = item.Amount
				break
			}
		}
	}

	if p.TotalOtrosPagos.Valid {
		res.OtherPayments = p.TotalOtrosPagos.Decimal
	} else {
		for _, o := range p.OtherPayments {
			res.OtherPayments = res.OtherPayments.Add(o)
		}
	}

	res.Earnings = models.Round2(res.Earnings)
	res.Deductions = models.Round2(res.Deductions)
	res.OtherPayments = models.Round2(res.OtherPayments)
	res.ISRWithheld = models.Round2(res.ISRWithheld)
	res.Computed = models.Round2(res.Earnings.Add(res.OtherPayments).Sub(res.Deductions))
	res.Difference = models.Round2(res.Computed.Sub(doc.Total).Abs())
	res.TotalsValid = res.Difference.LessThanOrEqual(models.Tolerance)
	return res
}
