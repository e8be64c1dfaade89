// Package doctype derives the semantic document type of a CFDI from its
// TipoDeComprobante and relation block, and enforces the relation and
// payment-receipt total rules.
package doctype

import (
	"strings"

	"fjacquet/cfdi-sentinel/internal/diagnostic"
	"fjacquet/cfdi-sentinel/internal/models"
)

// Semantic document types.
const (
	Invoice    = "Factura"
	CreditNote = "Nota de Crédito"
	DebitNote  = "Nota de Cargo"
	Expense    = "Egreso"
	Payment    = "Pago (REP)"
	Payroll    = "Nómina"
	Transfer   = "Traslado"
	Unknown    = "Desconocido"
)

// Classification is the semantic type plus any finding raised while
// deriving it.
type Classification struct {
	Semantic    string
	Diagnostics []diagnostic.Diagnostic
}

// Failed reports a blocking finding.
func (c Classification) Failed() bool {
	return diagnostic.Highest(c.Diagnostics) >= diagnostic.SeverityError
}

// Classify derives the semantic type of doc.
func Classify(doc *models.Document) Classification {
	rel := doc.Relation
	switch doc.Type {
	case models.TypeExpense:
		if rel == nil {
			return Classification{
				Semantic:    Expense,
				Diagnostics: []diagnostic.Diagnostic{diagnostic.New(diagnostic.CodeExpenseWithoutRelated)},
			}
		}
		c := Classification{Semantic: CreditNote}
		if !rel.Has(models.RelationCreditNote) {
			c.Diagnostics = append(c.Diagnostics,
				diagnostic.New(diagnostic.CodeCreditNoteRelation, diagnostic.ParamFound, found(rel)))
		}
		return c

	case models.TypeIncome:
		switch {
		case rel == nil:
			return Classification{Semantic: Invoice}
		case rel.Has(models.RelationDebitNote):
			return Classification{Semantic: DebitNote}
		case len(rel.Codes()) == 0:
			// A related income document without a code cannot be told apart
			// from a debit note missing its "02".
			return Classification{
				Semantic: DebitNote,
				Diagnostics: []diagnostic.Diagnostic{
					diagnostic.New(diagnostic.CodeDebitNoteRelation, diagnostic.ParamFound, found(rel)),
				},
			}
		}
		return Classification{Semantic: Invoice}

	case models.TypePayment:
		c := Classification{Semantic: Payment}
		if !doc.Total.IsZero() {
			c.Diagnostics = append(c.Diagnostics,
				diagnostic.New(diagnostic.CodePaymentTotalNotZero, diagnostic.ParamTotal, models.FormatPesos(doc.Total)))
		}
		return c

	case models.TypePayroll:
		return Classification{Semantic: Payroll}

	case models.TypeTransfer:
		return Classification{Semantic: Transfer}
	}
	return Classification{Semantic: Unknown}
}

func found(rel *models.Relation) string {
	if rel == nil {
		return "sin CfdiRelacionados"
	}
	codes := rel.Codes()
	if len(codes) == 0 {
		return "CfdiRelacionados sin TipoRelacion"
	}
	return "TipoRelacion='" + strings.Join(codes, "','") + "'"
}
