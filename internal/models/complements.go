package models

import "github.com/shopspring/decimal"

// Payroll is the nomina11/nomina12 Nomina complement. Attributes keep their
// raw text so validators can tell absent from empty-but-zero.
type Payroll struct {
	Version          string              `json:"version"`
	Prefix           string              `json:"prefix,omitempty"`
	FechaPago        string              `json:"fecha_pago"`
	FechaInicialPago string              `json:"fecha_inicial_pago"`
	FechaFinalPago   string              `json:"fecha_final_pago"`
	NumDiasPagados   string              `json:"num_dias_pagados"`
	TotalOtrosPagos  decimal.NullDecimal `json:"total_otros_pagos"`
	HasIssuer        bool                `json:"has_issuer"`
	Receiver         *PayrollReceiver    `json:"receiver,omitempty"`
	Perceptions      *Perceptions        `json:"perceptions,omitempty"`
	Deductions       *Deductions         `json:"deductions,omitempty"`
	OtherPayments    []decimal.Decimal   `json:"other_payments,omitempty"`
}

// Attribute returns a required top-level payroll attribute by name.
func (p *Payroll) Attribute(name string) string {
	switch name {
	case "FechaPago":
		return p.FechaPago
	case "FechaInicialPago":
		return p.FechaInicialPago
	case "FechaFinalPago":
		return p.FechaFinalPago
	case "NumDiasPagados":
		return p.NumDiasPagados
	}
	return ""
}

// PayrollReceiver is the Receptor node of the payroll complement.
type PayrollReceiver struct {
	NumEmpleado string `json:"num_empleado"`
}

// Perceptions is the Percepciones node.
type Perceptions struct {
	TotalGravado decimal.NullDecimal `json:"total_gravado"`
	TotalExento  decimal.NullDecimal `json:"total_exento"`
}

// Deductions is the Deducciones node.
type Deductions struct {
	TotalOtrasDeducciones   decimal.NullDecimal `json:"total_otras_deducciones"`
	TotalImpuestosRetenidos decimal.NullDecimal `json:"total_impuestos_retenidos"`
	Items                   []Deduction         `json:"items,omitempty"`
}

// Deduction is a single Deduccion entry.
type Deduction struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

// Payments is the Pagos complement.
type Payments struct {
	Version   string `json:"version"`
	Namespace string `json:"namespace,omitempty"`
	Count     int    `json:"count"`
}

// CartaPorte is the freight-manifest complement.
type CartaPorte struct {
	Version   string            `json:"version"`
	Locations []Location        `json:"locations,omitempty"`
	Goods     *Goods            `json:"goods,omitempty"`
	Motor     *MotorTransport   `json:"motor,omitempty"`
	Operators []TransportFigure `json:"operators,omitempty"`
}

// Location is an Ubicacion entry; Type is Origen or Destino.
type Location struct {
	Type string `json:"type"`
}

// Goods is the Mercancias node.
type Goods struct {
	PesoBrutoTotal     string `json:"peso_bruto_total"`
	UnidadPeso         string `json:"unidad_peso"`
	NumTotalMercancias string `json:"num_total_mercancias"`
}

// MotorTransport is the Autotransporte node flattened with its vehicle and
// insurance children.
type MotorTransport struct {
	PermSCT          string `json:"perm_sct"`
	NumPermisoSCT    string `json:"num_permiso_sct"`
	ConfigVehicular  string `json:"config_vehicular"`
	PlacaVM          string `json:"placa_vm"`
	AnioModeloVM     string `json:"anio_modelo_vm"`
	AseguraRespCivil string `json:"asegura_resp_civil"`
	PolizaRespCivil  string `json:"poliza_resp_civil"`
}

// TransportFigure is a TiposFigura entry of FiguraTransporte.
type TransportFigure struct {
	RFCFigura   string `json:"rfc_figura"`
	NumLicencia string `json:"num_licencia"`
}
