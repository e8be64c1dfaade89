package classifier

import (
	"strings"
	"testing"

	"fjacquet/cfdi-sentinel/internal/complement"
	"fjacquet/cfdi-sentinel/internal/diagnostic"
	"fjacquet/cfdi-sentinel/internal/doctype"
	"fjacquet/cfdi-sentinel/internal/models"
	"fjacquet/cfdi-sentinel/internal/reconciler"
	"fjacquet/cfdi-sentinel/internal/rules"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func iva(rate, base, amount string) models.TaxEntry {
	return models.TaxEntry{Kind: models.TaxIVA, Factor: models.FactorRate, RateRaw: rate, Rate: dec(rate), Base: dec(base), Amount: dec(amount)}
}

func income(total string) *models.Document {
	return &models.Document{
		Version:    "4.0",
		Type:       models.TypeIncome,
		FiscalYear: 2024,
		Currency:   "MXN",
		Subtotal:   dec("100"),
		Total:      dec(total),
		Issuer:     models.Party{RFC: "AAA010101AAA", Name: "Comercializadora del Norte"},
		Receiver:   models.Party{RFC: "BBB010101BBB", Name: "Cliente"},
		Concepts: []models.Concept{
			{Number: 1, Importe: dec("100"), ObjetoImp: models.ObjectTaxable, ClaveProdServ: "43211500", Transferred: []models.TaxEntry{iva("0.160000", "100", "16")}},
		},
	}
}

// inputFor runs the upstream validators so the classifier sees what the
// pipeline would hand it.
func inputFor(doc *models.Document) Input {
	rs := rules.Resolve(doc.Version, doc.FiscalYear, doc.Type)
	return Input{
		Document: doc,
		Rules:    rs,
		Taxes:    reconciler.Reconcile(doc),
		Payroll:  complement.ValidatePayroll(doc),
		Payments: complement.ValidatePayments(doc, rs),
		Freight:  complement.ValidateFreight(doc, rs),
		DocType:  doctype.Classify(doc),
	}
}

func codes(v Verdict) []diagnostic.Code {
	out := make([]diagnostic.Code, 0, len(v.Diagnostics))
	for _, d := range v.Diagnostics {
		out = append(out, d.Code)
	}
	return out
}

func TestClassify_BalancedIncomeIsUsable(t *testing.T) {
	v := Classify(inputFor(income("116.00")))

	assert.Equal(t, models.OutcomeUsable, v.Outcome)
	assert.Equal(t, "🟢 USABLE", v.Label())
	assert.Equal(t, 100, v.Score())
	assert.Equal(t, ClassFull, v.ValidationClass)
	assert.Contains(t, codes(v), diagnostic.CodeTotalsValid)
	assert.Contains(t, v.FiscalComment(), "CFDI válido")
}

func TestClassify_TotalsMismatch(t *testing.T) {
	v := Classify(inputFor(income("120.00")))

	assert.Equal(t, models.OutcomeNotUsable, v.Outcome)
	assert.Equal(t, "🔴 NO USABLE", v.Label())
	assert.Equal(t, 25, v.Score())
	assert.Contains(t, v.FiscalComment(), "$120.00")
	assert.Contains(t, v.FiscalComment(), "$116.00")
	assert.True(t, v.Difference.Equal(dec("4")))
}

func TestClassify_FuelStatementExplainsMismatch(t *testing.T) {
	doc := income("216.00")
	doc.HasFuelStatement = true

	v := Classify(inputFor(doc))

	assert.Equal(t, models.OutcomeAlert, v.Outcome)
	assert.Equal(t, "🟡 USABLE CON ALERTAS", v.Label())
	assert.Contains(t, codes(v), diagnostic.CodeFuelStatement)
	assert.NotContains(t, codes(v), diagnostic.CodeTotalsMismatch)
}

func TestClassify_FuelStatementWithBalancedTotals(t *testing.T) {
	doc := income("116.00")
	doc.HasFuelStatement = true

	v := Classify(inputFor(doc))
	assert.Equal(t, models.OutcomeUsable, v.Outcome)
}

func TestClassify_ZeroRateIVA(t *testing.T) {
	tests := []struct {
		name      string
		issuer    string
		clave     string
		outcome   models.Outcome
		qualifier Qualifier
		code      diagnostic.Code
	}{
		{"taxable goods", "Ferretería Central", "27111700", models.OutcomeNotUsable, QualifierTaxRisk, diagnostic.CodeZeroRateIVA},
		{"education by clave", "Servicios Integrales", "86101700", models.OutcomeUsable, QualifierNone, diagnostic.CodeEducationExempt},
		{"education by issuer", "Universidad del Valle", "80101500", models.OutcomeUsable, QualifierNone, diagnostic.CodeEducationExempt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := income("100.00")
			doc.Issuer.Name = tt.issuer
			doc.Concepts[0].ClaveProdServ = tt.clave
			doc.Concepts[0].Transferred = []models.TaxEntry{iva("0.000000", "100", "0")}

			v := Classify(inputFor(doc))

			assert.Equal(t, tt.outcome, v.Outcome)
			assert.Equal(t, tt.qualifier, v.Qualifier)
			assert.Contains(t, codes(v), tt.code)
		})
	}
}

func TestClassify_ZeroRateIVALabelAndPlacement(t *testing.T) {
	doc := income("100.00")
	doc.Concepts[0].Transferred = []models.TaxEntry{iva("0", "100", "0")}

	v := Classify(inputFor(doc))

	assert.Equal(t, "🔴 NO USABLE (Riesgo IVA)", v.Label())
	assert.Equal(t, 40, v.Score())
	assert.True(t, strings.HasPrefix(v.FiscalComment(), "[CRÍTICO]"))
}

func TestClassify_StructuralFailureIsTerminal(t *testing.T) {
	doc := income("116.00")
	doc.Type = models.TypeExpense
	doc.Relation = &models.Relation{Type: models.RelationSubstitution, UUIDs: []string{"A"}}

	v := Classify(inputFor(doc))

	assert.Equal(t, models.OutcomeNotUsable, v.Outcome)
	assert.True(t, v.Terminal)
	assert.Equal(t, []diagnostic.Code{diagnostic.CodeCreditNoteRelation}, codes(v))
	assert.Contains(t, v.FiscalComment(), "TipoRelacion='04'")
}

func TestClassify_PaymentReceiptWithTotal(t *testing.T) {
	doc := income("116.00")
	doc.Type = models.TypePayment

	v := Classify(inputFor(doc))

	assert.True(t, v.Terminal)
	assert.Contains(t, codes(v), diagnostic.CodePaymentTotalNotZero)
}

func TestClassify_BonifiedConcept(t *testing.T) {
	doc := income("116.00")
	doc.Concepts = append(doc.Concepts, models.Concept{Number: 2, Importe: dec("50"), Descuento: dec("50"), ObjetoImp: models.ObjectNotTaxable})

	v := Classify(inputFor(doc))

	assert.Equal(t, models.OutcomeUsable, v.Outcome)
	assert.Contains(t, codes(v), diagnostic.CodeBonifiedConcepts)
}

func TestClassify_FreightMissing(t *testing.T) {
	doc := income("116.00")
	doc.Concepts[0].ClaveProdServ = "78101800"

	v := Classify(inputFor(doc))

	assert.Equal(t, models.OutcomeAlert, v.Outcome)
	assert.Contains(t, codes(v), diagnostic.CodeFreightMissing)
	assert.True(t, v.FreightPenalty)
	assert.Equal(t, 70, v.Score())
}

func TestClassify_FreightSkippedOnceNotUsable(t *testing.T) {
	doc := income("120.00")
	doc.Concepts[0].ClaveProdServ = "78101800"

	v := Classify(inputFor(doc))

	assert.NotContains(t, codes(v), diagnostic.CodeFreightMissing)
}

func TestClassify_Materiality(t *testing.T) {
	in := inputFor(income("116.00"))
	m := diagnostic.New(diagnostic.CodeMateriality, diagnostic.ParamActivity, "Software")
	in.Materiality = &m

	v := Classify(in)

	assert.Equal(t, models.OutcomeUsable, v.Outcome)
	assert.Contains(t, codes(v), diagnostic.CodeMateriality)
}

func TestVerdict_DowngradeNeverImproves(t *testing.T) {
	v := Verdict{Outcome: models.OutcomeNotUsable, Terminal: true}
	v.Downgrade(models.OutcomeAlert, QualifierRFCEFOS, diagnostic.New(diagnostic.CodeIssuerEFOS))

	assert.Equal(t, models.OutcomeNotUsable, v.Outcome)
	assert.Equal(t, QualifierNone, v.Qualifier)
	require.Len(t, v.Diagnostics, 1)

	v.Downgrade(models.OutcomeNotUsable, QualifierCancelled)
	assert.Equal(t, QualifierCancelled, v.Qualifier)
	assert.Equal(t, ClassError, v.ValidationClass)
	assert.Equal(t, 0, v.Score())
}

func TestVerdict_Label(t *testing.T) {
	tests := []struct {
		outcome   models.Outcome
		qualifier Qualifier
		want      string
	}{
		{models.OutcomeUsable, QualifierNone, "🟢 USABLE"},
		{models.OutcomeAlert, QualifierNone, "🟡 USABLE CON ALERTAS"},
		{models.OutcomeAlert, QualifierRFCEFOS, "🟡 ALERTA (RFC EFOS)"},
		{models.OutcomeNotUsable, QualifierNone, "🔴 NO USABLE"},
		{models.OutcomeNotUsable, QualifierTaxRisk, "🔴 NO USABLE (Riesgo IVA)"},
		{models.OutcomeNotUsable, QualifierRFC69B, "🔴 NO USABLE (RFC 69-B)"},
		{models.OutcomeNotUsable, QualifierCancelled, "🔴 NO DISPONIBLE (CANCELADO)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Verdict{Outcome: tt.outcome, Qualifier: tt.qualifier}.Label())
		})
	}
}

func TestVerdict_Score(t *testing.T) {
	tests := []struct {
		name  string
		v     Verdict
		score int
	}{
		{"usable exact", Verdict{Outcome: models.OutcomeUsable}, 100},
		{"usable within tolerance", Verdict{Outcome: models.OutcomeUsable, Difference: dec("0.01")}, 95},
		{"alert", Verdict{Outcome: models.OutcomeAlert}, 80},
		{"not usable large", Verdict{Outcome: models.OutcomeNotUsable, Difference: dec("10.01")}, 10},
		{"not usable medium", Verdict{Outcome: models.OutcomeNotUsable, Difference: dec("5")}, 25},
		{"not usable small", Verdict{Outcome: models.OutcomeNotUsable, Difference: dec("0.5")}, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.score, tt.v.Score())
		})
	}
}
