// Package report exports validation results as the accountant spreadsheet
// (CSV) and renders run reports in JSON or XML.
package report

import (
	"io"
	"strings"

	"fjacquet/cfdi-sentinel/internal/common"
	"fjacquet/cfdi-sentinel/internal/logging"
	"fjacquet/cfdi-sentinel/internal/models"

	"github.com/shopspring/decimal"
)

// Row is one spreadsheet line. Field order is the column order.
type Row struct {
	File               string `csv:"Archivo_XML"`
	UUID               string `csv:"UUID"`
	Version            string `csv:"Version_CFDI"`
	Type               string `csv:"Tipo_CFDI"`
	Series             string `csv:"Serie"`
	Folio              string `csv:"Folio"`
	IssueDate          string `csv:"Fecha_Emision"`
	IssueTime          string `csv:"Hora_Emision"`
	SATStatus          string `csv:"Estatus_SAT"`
	CancellationDetail string `csv:"Fecha_Cancelacion"`
	Substituted        string `csv:"CFDI_Sustituido"`
	SubstitutionUUID   string `csv:"UUID_Sustitucion"`
	IssuerRFC          string `csv:"RFC_Emisor"`
	IssuerName         string `csv:"Nombre_Emisor"`
	IssuerRegime       string `csv:"Regimen_Emisor"`
	IssuerSATState     string `csv:"Estado_SAT_Emisor"`
	ReceiverRFC        string `csv:"RFC_Receptor"`
	ReceiverName       string `csv:"Nombre_Receptor"`
	ReceiverRegime     string `csv:"Regimen_Receptor"`
	ReceiverPostalCode string `csv:"CP_Receptor"`
	IsPayroll          string `csv:"Es_Nomina"`
	PayrollVersion     string `csv:"Version_Nomina"`
	FreightRequired    string `csv:"Requiere_Carta_Porte"`
	FreightPresent     string `csv:"Carta_Porte_Presente"`
	FreightComplete    string `csv:"Carta_Porte_Completa"`
	FreightVersion     string `csv:"Version_Carta_Porte"`
	Subtotal           string `csv:"Subtotal"`
	PayrollEarnings    string `csv:"Total_Percepciones"`
	PayrollDeductions  string `csv:"Total_Deducciones"`
	PayrollOther       string `csv:"Total_OtrosPagos"`
	PayrollISR         string `csv:"ISR_Retenido_Nomina"`
	BaseIVA16          string `csv:"Base_IVA_16"`
	BaseIVA8           string `csv:"Base_IVA_8"`
	BaseIVA0           string `csv:"Base_IVA_0"`
	BaseIVAExempt      string `csv:"Base_IVA_Exento"`
	IVATransferred     string `csv:"IVA_Trasladado"`
	IVAWithheld        string `csv:"IVA_Retenido"`
	ISRWithheld        string `csv:"ISR_Retenido"`
	IEPSTransferred    string `csv:"IEPS_Trasladado"`
	IEPSWithheld       string `csv:"IEPS_Retenido"`
	LocalTransferred   string `csv:"Impuestos_Locales_Trasladados"`
	LocalWithheld      string `csv:"Impuestos_Locales_Retenidos"`
	Computed           string `csv:"Total_Calculado"`
	Declared           string `csv:"Total_Declarado"`
	Difference         string `csv:"Diferencia_Totales"`
	Currency           string `csv:"Moneda"`
	ExchangeRate       string `csv:"Tipo_Cambio"`
	PaymentForm        string `csv:"Forma_Pago"`
	PaymentMethod      string `csv:"Metodo_Pago"`
	ValidationClass    string `csv:"Nivel_Validacion"`
	Label              string `csv:"Resultado"`
	FiscalComment      string `csv:"Comentario_Fiscal"`
	TechnicalNotes     string `csv:"Observaciones_Tecnicas"`
}

// NewRow flattens a result into a spreadsheet line.
func NewRow(r models.Result) Row {
	payroll := models.No
	if r.IsPayroll {
		payroll = models.Yes
	}
	return Row{
		File:               r.FileName,
		UUID:               r.UUID,
		Version:            r.Version,
		Type:               r.Type,
		Series:             r.Series,
		Folio:              r.Folio,
		IssueDate:          r.IssueDate,
		IssueTime:          r.IssueTime,
		SATStatus:          r.SATStatus,
		CancellationDetail: r.CancellationDetail,
		Substituted:        r.Substituted,
		SubstitutionUUID:   r.SubstitutionUUID,
		IssuerRFC:          r.Issuer.RFC,
		IssuerName:         r.Issuer.Name,
		IssuerRegime:       r.Issuer.Regime,
		IssuerSATState:     r.IssuerSATState,
		ReceiverRFC:        r.Receiver.RFC,
		ReceiverName:       r.Receiver.Name,
		ReceiverRegime:     r.Receiver.Regime,
		ReceiverPostalCode: r.Receiver.PostalCode,
		IsPayroll:          payroll,
		PayrollVersion:     r.PayrollVersion,
		FreightRequired:    r.FreightRequired,
		FreightPresent:     r.FreightPresent,
		FreightComplete:    r.FreightComplete,
		FreightVersion:     r.FreightVersion,
		Subtotal:           amount(r.Subtotal),
		PayrollEarnings:    amount(r.PayrollEarnings),
		PayrollDeductions:  amount(r.PayrollDeductions),
		PayrollOther:       amount(r.PayrollOtherPayments),
		PayrollISR:         amount(r.PayrollISR),
		BaseIVA16:          amount(r.BaseIVA16),
		BaseIVA8:           amount(r.BaseIVA8),
		BaseIVA0:           amount(r.BaseIVA0),
		BaseIVAExempt:      amount(r.BaseIVAExempt),
		IVATransferred:     amount(r.IVATransferred),
		IVAWithheld:        amount(r.IVAWithheld),
		ISRWithheld:        amount(r.ISRWithheld),
		IEPSTransferred:    amount(r.IEPSTransferred),
		IEPSWithheld:       amount(r.IEPSWithheld),
		LocalTransferred:   amount(r.LocalTransferred),
		LocalWithheld:      amount(r.LocalWithheld),
		Computed:           amount(r.Computed),
		Declared:           amount(r.Declared),
		Difference:         amount(r.Difference),
		Currency:           r.Currency,
		ExchangeRate:       r.ExchangeRate.String(),
		PaymentForm:        r.PaymentForm,
		PaymentMethod:      r.PaymentMethod,
		ValidationClass:    r.ValidationClass,
		Label:              r.Label,
		FiscalComment:      r.FiscalComment,
		TechnicalNotes:     oneLine(r.TechnicalNotes),
	}
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Rows converts results in order.
func Rows(results []models.Result) []Row {
	rows := make([]Row, len(results))
	for i, r := range results {
		rows[i] = NewRow(r)
	}
	return rows
}

// WriteCSV writes results with a header line to w.
func WriteCSV(w io.Writer, results []models.Result, delimiter rune) error {
	return common.WriteCSV(w, Rows(results), delimiter)
}

// WriteCSVFile writes results to path, creating parent directories.
func WriteCSVFile(path string, results []models.Result, delimiter rune, logger logging.Logger) error {
	return common.WriteCSVFile(path, Rows(results), delimiter, logger)
}
