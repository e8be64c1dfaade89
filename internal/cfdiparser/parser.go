// Package cfdiparser turns raw CFDI bytes into the normalized document model.
// It guards the declared encoding before any tree parsing and resolves every
// namespace prefix and attribute casing variant into one canonical form.
package cfdiparser

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"fjacquet/cfdi-sentinel/internal/dateutils"
	"fjacquet/cfdi-sentinel/internal/logging"
	"fjacquet/cfdi-sentinel/internal/models"
	"fjacquet/cfdi-sentinel/internal/parsererror"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

const parserName = "CFDI"

// UnknownVersion is reported when the Comprobante declares no version.
const UnknownVersion = "DESCONOCIDA"

// Namespaces of the payments complement.
const (
	NamespacePagos10 = "http://www.sat.gob.mx/Pagos"
	NamespacePagos20 = "http://www.sat.gob.mx/Pagos20"
)

var legacyTypes = map[string]models.DocumentType{
	"ingreso":  models.TypeIncome,
	"egreso":   models.TypeExpense,
	"traslado": models.TypeTransfer,
	"pago":     models.TypePayment,
	"nomina":   models.TypePayroll,
}

var legacyTaxNames = map[string]models.TaxKind{
	"ISR":  models.TaxISR,
	"IVA":  models.TaxIVA,
	"IEPS": models.TaxIEPS,
}

// Parser builds models.Document values from raw XML.
type Parser struct {
	logger logging.Logger
}

// NewParser creates a parser that logs through logger.
func NewParser(logger logging.Logger) *Parser {
	return &Parser{logger: logging.OrDefault(logger)}
}

// Parse validates the declared encoding and normalizes the document.
// It returns *parsererror.EncodingError for unsupported encodings and
// *parsererror.ParseError for malformed markup or non-CFDI roots.
func (p *Parser) Parse(raw []byte) (*models.Document, error) {
	enc := DetectEncoding(raw)
	if !enc.Supported {
		return nil, &parsererror.EncodingError{Detected: enc.Declared}
	}

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, &parsererror.ParseError{Parser: parserName, Err: err}
	}

	root := doc.Root()
	if root == nil || root.Tag != "Comprobante" {
		tag := ""
		if root != nil {
			tag = root.Tag
		}
		return nil, &parsererror.ParseError{
			Parser: parserName,
			Field:  "root",
			Value:  tag,
			Err:    errors.New("document root is not a Comprobante"),
		}
	}

	out, err := p.buildDocument(root)
	if err != nil {
		return nil, err
	}
	out.Encoding = enc.Name

	p.logger.Debug("Parsed CFDI",
		logging.Field{Key: logging.FieldVersion, Value: out.Version},
		logging.Field{Key: logging.FieldDocType, Value: string(out.Type)},
		logging.Field{Key: logging.FieldUUID, Value: out.UUID()},
		logging.Field{Key: logging.FieldCount, Value: len(out.Concepts)})
	return out, nil
}

func (p *Parser) buildDocument(root *etree.Element) (*models.Document, error) {
	d := &models.Document{
		Version:       attr(root, "Version"),
		Series:        attr(root, "Serie"),
		Folio:         attr(root, "Folio"),
		IssuedAtRaw:   attr(root, "Fecha"),
		Currency:      attr(root, "Moneda"),
		PaymentForm:   attr(root, "FormaPago", "formaDePago"),
		PaymentMethod: attr(root, "MetodoPago", "metodoDePago"),
	}
	if d.Version == "" {
		d.Version = UnknownVersion
	}
	d.Type = documentType(attr(root, "TipoDeComprobante"))
	if d.Currency == "" {
		d.Currency = models.DefaultMXN
	}
	d.FiscalYear = dateutils.FiscalYear(d.IssuedAtRaw)
	if ts, err := dateutils.ParseCFDITimestamp(d.IssuedAtRaw); err == nil {
		d.IssuedAt = ts
	}

	var err error
	if d.Subtotal, err = amount(root, "SubTotal"); err != nil {
		return nil, err
	}
	if d.Total, err = amount(root, "Total"); err != nil {
		return nil, err
	}
	d.ExchangeRate = decimal.NewFromInt(1)
	if d.Currency != models.DefaultMXN {
		rate, err := amount(root, "TipoCambio")
		if err != nil {
			return nil, err
		}
		if rate.IsPositive() {
			d.ExchangeRate = rate
		}
	}

	d.Issuer = issuer(child(root, "Emisor"))
	d.Receiver = receiver(child(root, "Receptor"), d.Version)
	d.Relation = relation(root)

	if d.Concepts, err = concepts(child(root, "Conceptos")); err != nil {
		return nil, err
	}
	if block := child(root, "Impuestos"); block != nil {
		if d.DocumentTaxes, err = taxBlock(block); err != nil {
			return nil, err
		}
	}

	if err := p.complements(root, d); err != nil {
		return nil, err
	}
	return d, nil
}

func documentType(raw string) models.DocumentType {
	if t, ok := legacyTypes[strings.ToLower(raw)]; ok {
		return t
	}
	return models.DocumentType(strings.ToUpper(raw))
}

func issuer(e *etree.Element) models.Party {
	if e == nil {
		return models.Party{}
	}
	p := models.Party{
		RFC:    strings.ToUpper(attr(e, "Rfc")),
		Name:   attr(e, "Nombre"),
		Regime: attr(e, "RegimenFiscal"),
	}
	if p.Regime == "" {
		// CFDI 3.2 declares the regime as a child element.
		p.Regime = attr(child(e, "RegimenFiscal"), "Regimen")
	}
	return p
}

func receiver(e *etree.Element, version string) models.Party {
	if e == nil {
		return models.Party{}
	}
	p := models.Party{
		RFC:    strings.ToUpper(attr(e, "Rfc")),
		Name:   attr(e, "Nombre"),
		Regime: attr(e, "RegimenFiscalReceptor", "UsoCFDI"),
	}
	if version == "4.0" {
		p.PostalCode = attr(e, "DomicilioFiscalReceptor")
	}
	if p.PostalCode == "" {
		p.PostalCode = attr(e, "CodigoPostal")
	}
	if p.PostalCode == "" {
		p.PostalCode = attr(child(e, "Domicilio"), "CodigoPostal")
	}
	return p
}

func relation(root *etree.Element) *models.Relation {
	blocks := children(root, "CfdiRelacionados")
	if len(blocks) == 0 {
		return nil
	}
	r := &models.Relation{}
	for _, b := range blocks {
		if code := attr(b, "TipoRelacion"); code != "" && !slices.Contains(r.Types, code) {
			r.Types = append(r.Types, code)
		}
		for _, rel := range children(b, "CfdiRelacionado") {
			if id := attr(rel, "UUID"); id != "" {
				r.UUIDs = append(r.UUIDs, strings.ToUpper(id))
			}
		}
	}
	if len(r.Types) > 0 {
		r.Type = r.Types[0]
	}
	return r
}

func concepts(block *etree.Element) ([]models.Concept, error) {
	var out []models.Concept
	for i, e := range children(block, "Concepto") {
		c := models.Concept{
			Number:        i + 1,
			ObjetoImp:     attr(e, "ObjetoImp"),
			ClaveProdServ: attr(e, "ClaveProdServ"),
			Descripcion:   attr(e, "Descripcion"),
		}
		if c.ObjetoImp == "" {
			c.ObjetoImp = models.ObjectNotTaxable
		}
		var err error
		if c.Importe, err = amount(e, "Importe"); err != nil {
			return nil, err
		}
		if c.Descuento, err = amount(e, "Descuento"); err != nil {
			return nil, err
		}
		if taxes := child(e, "Impuestos"); taxes != nil {
			block, err := taxBlock(taxes)
			if err != nil {
				return nil, err
			}
			c.Transferred, c.Withheld = block.Transferred, block.Withheld
		}
		out = append(out, c)
	}
	return out, nil
}

func taxBlock(e *etree.Element) (*models.TaxBlock, error) {
	b := &models.TaxBlock{}
	for _, t := range children(child(e, "Traslados"), "Traslado") {
		entry, err := taxEntry(t)
		if err != nil {
			return nil, err
		}
		b.Transferred = append(b.Transferred, entry)
	}
	for _, r := range children(child(e, "Retenciones"), "Retencion") {
		entry, err := taxEntry(r)
		if err != nil {
			return nil, err
		}
		b.Withheld = append(b.Withheld, entry)
	}
	return b, nil
}

func taxEntry(e *etree.Element) (models.TaxEntry, error) {
	kind := attr(e, "Impuesto")
	if mapped, ok := legacyTaxNames[strings.ToUpper(kind)]; ok {
		kind = string(mapped)
	}
	if kind == "" {
		kind = string(models.TaxIVA)
	}
	entry := models.TaxEntry{
		Kind:    models.TaxKind(kind),
		Factor:  models.FactorType(attr(e, "TipoFactor")),
		RateRaw: attr(e, "TasaOCuota", "tasa"),
	}

	var err error
	if entry.Base, err = amount(e, "Base"); err != nil {
		return entry, err
	}
	if entry.Amount, err = amount(e, "Importe"); err != nil {
		return entry, err
	}
	if entry.RateRaw != "" {
		rate, err := decimal.NewFromString(entry.RateRaw)
		if err != nil {
			return entry, &parsererror.ParseError{Parser: parserName, Field: "TasaOCuota", Value: entry.RateRaw, Err: err}
		}
		// CFDI 3.2 writes rates as percentages ("16.00").
		if rate.GreaterThan(decimal.NewFromInt(1)) && entry.Factor == "" {
			rate = rate.Div(decimal.NewFromInt(100))
		}
		entry.Rate = rate
	}
	return entry, nil
}

func amount(e *etree.Element, name string) (decimal.Decimal, error) {
	raw := attr(e, name)
	d, err := models.ParseAmount(raw)
	if err != nil {
		return decimal.Zero, &parsererror.ParseError{Parser: parserName, Field: name, Value: raw, Err: err}
	}
	return d, nil
}

func optionalAmount(e *etree.Element, name string) (decimal.NullDecimal, error) {
	raw := attr(e, name)
	d, err := models.ParseOptionalAmount(raw)
	if err != nil {
		return d, &parsererror.ParseError{Parser: parserName, Field: name, Value: raw, Err: err}
	}
	return d, nil
}

func wrapComplement(name string, err error) error {
	return fmt.Errorf("%s complement: %w", name, err)
}
