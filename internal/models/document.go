// Package models holds the normalized CFDI document model and the
// per-document result row shared by the validation pipeline.
package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Document is the normalized, immutable view of one CFDI. The parser builds
// it once; validators only read it.
type Document struct {
	Version       string          `json:"version"`
	Type          DocumentType    `json:"type"`
	Series        string          `json:"series,omitempty"`
	Folio         string          `json:"folio,omitempty"`
	IssuedAtRaw   string          `json:"issued_at_raw"`
	IssuedAt      time.Time       `json:"issued_at"`
	FiscalYear    int             `json:"fiscal_year"`
	Currency      string          `json:"currency"`
	ExchangeRate  decimal.Decimal `json:"exchange_rate"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Total         decimal.Decimal `json:"total"`
	PaymentForm   string          `json:"payment_form,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Issuer        Party           `json:"issuer"`
	Receiver      Party           `json:"receiver"`
	Concepts      []Concept       `json:"concepts"`
	Encoding      string          `json:"encoding"`

	// DocumentTaxes is the comprobante-level Impuestos block.
	DocumentTaxes *TaxBlock `json:"document_taxes,omitempty"`

	Relation         *Relation   `json:"relation,omitempty"`
	Stamp            *Stamp      `json:"stamp,omitempty"`
	Payroll          *Payroll    `json:"payroll,omitempty"`
	Payments         *Payments   `json:"payments,omitempty"`
	CartaPorte       *CartaPorte `json:"carta_porte,omitempty"`
	LocalTaxes       *LocalTaxes `json:"local_taxes,omitempty"`
	HasFuelStatement bool        `json:"has_fuel_statement"`
}

// UUID returns the fiscal folio from the stamp, or "" when unstamped.
func (d *Document) UUID() string {
	if d.Stamp == nil {
		return ""
	}
	return d.Stamp.UUID
}

// ConceptsCarryTaxes reports whether any concept has a tax entry.
func (d *Document) ConceptsCarryTaxes() bool {
	for _, c := range d.Concepts {
		if len(c.Transferred) > 0 || len(c.Withheld) > 0 {
			return true
		}
	}
	return false
}

// DetectedComplements lists the versioned complements found in the document,
// e.g. "Pagos 2.0", "Nómina 1.2", "CartaPorte 3.0".
func (d *Document) DetectedComplements() []string {
	var out []string
	if d.Payments != nil && d.Payments.Version != "" {
		out = append(out, "Pagos "+d.Payments.Version)
	}
	if d.Payroll != nil && d.Type == TypePayroll && d.Payroll.Version != "" {
		out = append(out, "Nómina "+d.Payroll.Version)
	}
	if d.CartaPorte != nil && d.CartaPorte.Version != "" {
		out = append(out, "CartaPorte "+d.CartaPorte.Version)
	}
	if d.LocalTaxes != nil {
		out = append(out, "ImpuestosLocales")
	}
	if d.HasFuelStatement {
		out = append(out, "EstadoDeCuentaCombustible")
	}
	return out
}

// Concept is one billed line item.
type Concept struct {
	Number        int             `json:"number"`
	Importe       decimal.Decimal `json:"importe"`
	Descuento     decimal.Decimal `json:"descuento"`
	ObjetoImp     string          `json:"objeto_imp"`
	ClaveProdServ string          `json:"clave_prod_serv"`
	Descripcion   string          `json:"descripcion"`
	Transferred   []TaxEntry      `json:"transferred,omitempty"`
	Withheld      []TaxEntry      `json:"withheld,omitempty"`
}

// TotalParcial is importe - descuento + transferred - withheld.
func (c Concept) TotalParcial() decimal.Decimal {
	total := c.Importe.Sub(c.Descuento)
	for _, t := range c.Transferred {
		total = total.Add(t.Amount)
	}
	for _, w := range c.Withheld {
		total = total.Sub(w.Amount)
	}
	return total
}

// FullyDiscounted reports a positive amount entirely offset by its discount.
func (c Concept) FullyDiscounted() bool {
	return c.Importe.IsPositive() && c.Descuento.Sub(c.Importe).Abs().LessThan(Tolerance)
}

// HasZeroRateIVA reports a transferred IVA entry at rate 0 that is not exempt.
func (c Concept) HasZeroRateIVA() bool {
	for _, t := range c.Transferred {
		if t.Kind == TaxIVA && t.Factor != FactorExempt && t.Rate.IsZero() {
			return true
		}
	}
	return false
}

// TaxEntry is a Traslado or Retencion.
type TaxEntry struct {
	Kind    TaxKind         `json:"kind"`
	Factor  FactorType      `json:"factor,omitempty"`
	RateRaw string          `json:"rate_raw,omitempty"`
	Rate    decimal.Decimal `json:"rate"`
	Base    decimal.Decimal `json:"base"`
	Amount  decimal.Decimal `json:"amount"`
}

// TaxBlock is a comprobante-level Impuestos node.
type TaxBlock struct {
	Transferred []TaxEntry `json:"transferred,omitempty"`
	Withheld    []TaxEntry `json:"withheld,omitempty"`
}

// Relation merges the CfdiRelacionados blocks. CFDI 4.0 allows several
// blocks, each with its own TipoRelacion.
type Relation struct {
	// Type is the first TipoRelacion found.
	Type  string   `json:"type"`
	Types []string `json:"types,omitempty"`
	UUIDs []string `json:"uuids"`
}

// Codes returns every distinct TipoRelacion in document order.
func (r *Relation) Codes() []string {
	if r == nil {
		return nil
	}
	if len(r.Types) > 0 {
		return r.Types
	}
	if r.Type != "" {
		return []string{r.Type}
	}
	return nil
}

// Has reports whether any block carries code.
func (r *Relation) Has(code string) bool {
	return slices.Contains(r.Codes(), code)
}

// FirstUUID returns the first related UUID or "".
func (r *Relation) FirstUUID() string {
	if r == nil || len(r.UUIDs) == 0 {
		return ""
	}
	return r.UUIDs[0]
}

// Stamp is the TimbreFiscalDigital.
type Stamp struct {
	UUID        string `json:"uuid"`
	StampedAt   string `json:"stamped_at,omitempty"`
	RFCProvider string `json:"rfc_provider,omitempty"`
}

// LocalTaxes is the implocal:ImpuestosLocales complement. Declared totals
// are absent when the attribute is missing.
type LocalTaxes struct {
	TotalTransferred decimal.NullDecimal `json:"total_transferred"`
	TotalWithheld    decimal.NullDecimal `json:"total_withheld"`
	Transferred      []decimal.Decimal   `json:"transferred,omitempty"`
	Withheld         []decimal.Decimal   `json:"withheld,omitempty"`
}
