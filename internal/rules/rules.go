// Package rules resolves which SAT validations apply to a CFDI given its
// version, fiscal year and document type. Resolution is a pure function:
// a document is always judged by the rules in force when it was issued.
package rules

import (
	"fmt"

	"fjacquet/cfdi-sentinel/internal/models"
)

// Validation classes a rule set can enable.
const (
	ClassStructural = "estructural"
	ClassTotals     = "totales"
	ClassRequired   = "campos-obligatorios"
	ClassStamp      = "timbrado"
	ClassFreight    = "carta-porte"
)

// CartaPorteStartYear is the first fiscal year in which the freight manifest
// can be demanded from a CFDI 4.0.
const CartaPorteStartYear = 2022

// PaymentsStartYear is the first fiscal year of the payments complement.
const PaymentsStartYear = 2018

var legacyVersions = map[string]bool{
	"2.0": true,
	"2.2": true,
	"3.0": true,
	"3.2": true,
}

// RuleSet lists the validations applicable to one document.
type RuleSet struct {
	Version                 string
	FiscalYear              int
	FreightRequired         bool
	PaymentsRequired        bool
	ExpectedPaymentsVersion string
	ValidationClasses       []string
	HistoricalNote          string
	Known                   bool
}

// Has reports whether class is enabled.
func (r RuleSet) Has(class string) bool {
	for _, c := range r.ValidationClasses {
		if c == class {
			return true
		}
	}
	return false
}

// IsLegacy reports a pre-3.3 version.
func (r RuleSet) IsLegacy() bool {
	return legacyVersions[r.Version]
}

// Resolve returns the rule set for a version, fiscal year and document type.
func Resolve(version string, fiscalYear int, docType models.DocumentType) RuleSet {
	rs := RuleSet{Version: version, FiscalYear: fiscalYear, Known: true}

	switch {
	case legacyVersions[version]:
		rs.ValidationClasses = []string{ClassStructural, ClassTotals, ClassRequired}
		rs.HistoricalNote = fmt.Sprintf("CFDI %s (%d): Reglas históricas SAT %d, sin Carta Porte ni Pagos",
			version, fiscalYear, fiscalYear)

	case version == "3.3":
		rs.ValidationClasses = []string{ClassStructural, ClassTotals, ClassRequired, ClassStamp}
		payments := "Pre-Pagos"
		if fiscalYear >= PaymentsStartYear {
			rs.ExpectedPaymentsVersion = "1.0"
			rs.PaymentsRequired = docType == models.TypePayment
			payments = "Pagos 1.0 disponible"
		}
		rs.HistoricalNote = fmt.Sprintf("CFDI 3.3 (%d): Reglas SAT %d, %s, sin Carta Porte",
			fiscalYear, fiscalYear, payments)

	case version == "4.0":
		rs.ValidationClasses = []string{ClassStructural, ClassTotals, ClassRequired, ClassStamp}
		rs.PaymentsRequired = docType == models.TypePayment
		if rs.PaymentsRequired {
			rs.ExpectedPaymentsVersion = "2.0"
		}
		if fiscalYear >= CartaPorteStartYear {
			rs.ValidationClasses = append(rs.ValidationClasses, ClassFreight)
			rs.FreightRequired = docType == models.TypeTransfer || docType == models.TypeIncome
			rs.HistoricalNote = fmt.Sprintf("CFDI 4.0 (%d): Reglas SAT vigentes %d, Carta Porte obligatoria según tipo, Pagos 2.0",
				fiscalYear, fiscalYear)
		} else {
			rs.HistoricalNote = fmt.Sprintf("CFDI 4.0 (%d): Reglas SAT vigentes %d, Carta Porte no exigible antes de %d, Pagos 2.0",
				fiscalYear, fiscalYear, CartaPorteStartYear)
		}

	default:
		rs.Known = false
		rs.ValidationClasses = []string{ClassStructural}
		rs.HistoricalNote = fmt.Sprintf("Versión %s no reconocida, validación mínima", version)
	}
	return rs
}
