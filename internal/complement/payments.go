package complement

import (
	"fmt"

	"fjacquet/cfdi-sentinel/internal/models"
	"fjacquet/cfdi-sentinel/internal/rules"
)

// PaymentsResult is the outcome of payments complement validation.
type PaymentsResult struct {
	Present Tristate
	Version string
	Valid   Tristate
	// Error is set when Valid is No.
	Error string
	// Exempt marks a payment receipt issued before its rule set knew the
	// payments complement.
	Exempt bool
}

// ValidatePayments checks a type P document against the payments version
// its rule set expects.
func ValidatePayments(doc *models.Document, rs rules.RuleSet) PaymentsResult {
	na := PaymentsResult{Present: NotApplicable, Version: models.NotApplicable, Valid: NotApplicable}
	if doc.Type != models.TypePayment {
		return na
	}
	if !rs.PaymentsRequired {
		na.Exempt = true
		return na
	}
	if doc.Payments == nil || doc.Payments.Version == "" {
		return PaymentsResult{
			Present: No,
			Version: models.NotAvailable,
			Valid:   No,
			Error:   fmt.Sprintf("Falta complemento de Pagos (%s)", rs.ExpectedPaymentsVersion),
		}
	}
	found := doc.Payments.Version
	if found != rs.ExpectedPaymentsVersion {
		return PaymentsResult{
			Present: Yes,
			Version: found,
			Valid:   No,
			Error:   fmt.Sprintf("Requiere Pagos %s, detectado %s", rs.ExpectedPaymentsVersion, found),
		}
	}
	return PaymentsResult{Present: Yes, Version: found, Valid: Yes}
}
