package models

import (
	"github.com/shopspring/decimal"
)

// Outcome is the traffic-light bucket of a verdict.
type Outcome string

const (
	OutcomeUsable    Outcome = "USABLE"
	OutcomeAlert     Outcome = "ALERTA"
	OutcomeNotUsable Outcome = "NO USABLE"
)

// Result is the outcome row for one input document. Every input yields
// exactly one Result, including inputs that failed to parse or timed out.
type Result struct {
	FileName string `json:"file_name"`
	UUID     string `json:"uuid"`
	Version  string `json:"version"`
	Type     string `json:"type"`
	Series   string `json:"series"`
	Folio    string `json:"folio"`

	IssueDate  string `json:"issue_date"`
	IssueTime  string `json:"issue_time"`
	FiscalYear int    `json:"fiscal_year"`

	SATStatus          string `json:"sat_status"`
	CancellationDetail string `json:"cancellation_detail"`
	Substituted        string `json:"substituted"`
	SubstitutionUUID   string `json:"substitution_uuid"`

	Issuer         Party  `json:"issuer"`
	IssuerSATState string `json:"issuer_sat_state"`
	Receiver       Party  `json:"receiver"`
	DenylistIssuer string `json:"denylist_issuer,omitempty"`

	HasRelation  bool     `json:"has_relation"`
	RelationType string   `json:"relation_type"`
	RelatedUUIDs []string `json:"related_uuids,omitempty"`
	SemanticType string   `json:"semantic_type"`

	IsPayroll      bool   `json:"is_payroll"`
	PayrollVersion string `json:"payroll_version"`

	FreightRequired string   `json:"freight_required"`
	FreightPresent  string   `json:"freight_present"`
	FreightComplete string   `json:"freight_complete"`
	FreightVersion  string   `json:"freight_version"`
	FreightMissing  []string `json:"freight_missing,omitempty"`

	PaymentsPresent string `json:"payments_present"`
	PaymentsVersion string `json:"payments_version"`
	PaymentsValid   string `json:"payments_valid"`

	Encoding    string   `json:"encoding"`
	Complements []string `json:"complements,omitempty"`

	Subtotal         decimal.Decimal `json:"subtotal"`
	BaseIVA16        decimal.Decimal `json:"base_iva_16"`
	BaseIVA8         decimal.Decimal `json:"base_iva_8"`
	BaseIVA0         decimal.Decimal `json:"base_iva_0"`
	BaseIVAExempt    decimal.Decimal `json:"base_iva_exempt"`
	IVATransferred   decimal.Decimal `json:"iva_transferred"`
	IVAWithheld      decimal.Decimal `json:"iva_withheld"`
	ISRWithheld      decimal.Decimal `json:"isr_withheld"`
	IEPSTransferred  decimal.Decimal `json:"ieps_transferred"`
	IEPSWithheld     decimal.Decimal `json:"ieps_withheld"`
	LocalTransferred decimal.Decimal `json:"local_transferred"`
	LocalWithheld    decimal.Decimal `json:"local_withheld"`

	PayrollEarnings      decimal.Decimal `json:"payroll_earnings"`
	PayrollDeductions    decimal.Decimal `json:"payroll_deductions"`
	PayrollOtherPayments decimal.Decimal `json:"payroll_other_payments"`
	PayrollISR           decimal.Decimal `json:"payroll_isr"`

	Computed   decimal.Decimal `json:"computed"`
	Declared   decimal.Decimal `json:"declared"`
	Difference decimal.Decimal `json:"difference"`

	Currency      string          `json:"currency"`
	ExchangeRate  decimal.Decimal `json:"exchange_rate"`
	PaymentForm   string          `json:"payment_form"`
	PaymentMethod string          `json:"payment_method"`

	ValidationClass string   `json:"validation_class"`
	Outcome         Outcome  `json:"outcome"`
	Label           string   `json:"label"`
	Score           int      `json:"score"`
	FiscalComment   string   `json:"fiscal_comment"`
	TechnicalNotes  string   `json:"technical_notes"`
	Breakdown       string   `json:"breakdown,omitempty"`
	Codes           []string `json:"codes,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// Usable reports whether the document can back a deduction, with or without alerts.
func (r Result) Usable() bool {
	return r.Outcome == OutcomeUsable || r.Outcome == OutcomeAlert
}

// NewErrorResult builds the row for an input that never reached
// classification. Every descriptive field carries a placeholder.
func NewErrorResult(fileName, code, message string) Result {
	na := Party{RFC: NotAvailable, Name: NotAvailable, Regime: NotAvailable, PostalCode: NotAvailable}
	return Result{
		FileName:           fileName,
		UUID:               NotAvailable,
		Version:            NotAvailable,
		Type:               NotAvailable,
		Series:             NotAvailable,
		Folio:              NotAvailable,
		IssueDate:          NotAvailable,
		IssueTime:          NotAvailable,
		SATStatus:          "Error",
		CancellationDetail: NotApplicable,
		Substituted:        No,
		SubstitutionUUID:   NotApplicable,
		Issuer:             na,
		IssuerSATState:     NotAvailable,
		Receiver:           na,
		RelationType:       NotApplicable,
		SemanticType:       "Desconocido",
		PayrollVersion:     NotApplicable,
		FreightRequired:    NotAvailable,
		FreightPresent:     No,
		FreightComplete:    NotApplicable,
		FreightVersion:     NotApplicable,
		PaymentsPresent:    NotApplicable,
		PaymentsVersion:    NotApplicable,
		PaymentsValid:      NotApplicable,
		Currency:           DefaultMXN,
		ExchangeRate:       decimal.NewFromInt(1),
		PaymentForm:        NotAvailable,
		PaymentMethod:      NotAvailable,
		ValidationClass:    "ERROR",
		Outcome:            OutcomeNotUsable,
		Label:              "🔴 NO USABLE",
		FiscalComment:      message,
		TechnicalNotes:     "Error al procesar: " + message,
		Codes:              []string{code},
		Error:              message,
	}
}
