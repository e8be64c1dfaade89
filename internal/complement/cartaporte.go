package complement

import (
	"regexp"
	"strings"

	"fjacquet/cfdi-sentinel/internal/models"
	"fjacquet/cfdi-sentinel/internal/rules"
)

// Names of the Carta Porte sub-checks reported in FreightResult.Missing.
const (
	CheckLocations = "Ubicaciones"
	CheckGoods     = "Mercancias"
	CheckMotor     = "Autotransporte"
	CheckOperator  = "FiguraTransporte"
)

var operatorRFC = regexp.MustCompile(`^[A-Z0-9]{12,13}$`)

// FreightResult is the outcome of Carta Porte validation.
type FreightResult struct {
	Required Tristate
	Present  Tristate
	Complete Tristate
	Version  string
	// Missing lists the failed sub-checks of an incomplete manifest.
	Missing []string
}

// RequiredButAbsent reports a manifest the rules demand and the document
// does not carry.
func (r FreightResult) RequiredButAbsent() bool {
	return r.Required == Yes && r.Present == No
}

// Incomplete reports a manifest that is present but fails a sub-check.
func (r FreightResult) Incomplete() bool {
	return r.Present == Yes && r.Complete == No
}

// ValidateFreight decides whether doc needs a Carta Porte and, when one is
// present, whether it carries the minimum structure.
func ValidateFreight(doc *models.Document, rs rules.RuleSet) FreightResult {
	if doc.Type == models.TypePayroll && doc.Payroll != nil {
		return FreightResult{
			Required: No,
			Present:  NotApplicable,
			Complete: NotApplicable,
			Version:  models.NotApplicable,
		}
	}

	res := FreightResult{Required: freightRequired(doc, rs)}
	cp := doc.CartaPorte
	if cp == nil {
		res.Present = No
		if doc.Version == "3.3" {
			res.Present = NotApplicable
		}
		res.Complete = NotApplicable
		res.Version = models.NotApplicable
		return res
	}

	res.Present = Yes
	res.Version = cp.Version
	if res.Version == "" {
		res.Version = models.NotAvailable
	}
	if !locationsComplete(cp) {
		res.Missing = append(res.Missing, CheckLocations)
	}
	if !goodsComplete(cp.Goods) {
		res.Missing = append(res.Missing, CheckGoods)
	}
	if !motorComplete(cp.Motor) {
		res.Missing = append(res.Missing, CheckMotor)
	}
	if !operatorComplete(cp.Operators) {
		res.Missing = append(res.Missing, CheckOperator)
	}
	res.Complete = boolState(len(res.Missing) == 0)
	return res
}

// freightRequired only answers Yes on catalog evidence, never on free text.
func freightRequired(doc *models.Document, rs rules.RuleSet) Tristate {
	if doc.Version == "3.3" || !rs.Has(rules.ClassFreight) {
		return NotApplicable
	}
	if !rs.FreightRequired {
		return No
	}

	cp := doc.CartaPorte
	if cp != nil && len(cp.Locations) > 0 {
		return Yes
	}
	subtree := cp != nil && (cp.Goods != nil || cp.Motor != nil)

	for _, c := range doc.Concepts {
		switch Classify(c.ClaveProdServ) {
		case CategoryFreightService:
			if doc.Type == models.TypeIncome || subtree {
				return Yes
			}
		case CategoryTransportAdjacent, CategoryTransportGroup:
			if subtree {
				return Yes
			}
		}
	}
	return No
}

func locationsComplete(cp *models.CartaPorte) bool {
	var origin, destination bool
	for _, l := range cp.Locations {
		switch {
		case strings.EqualFold(l.Type, "Origen"):
			origin = true
		case strings.EqualFold(l.Type, "Destino"):
			destination = true
		}
	}
	return origin && destination
}

func goodsComplete(g *models.Goods) bool {
	return g != nil && g.PesoBrutoTotal != "" && g.UnidadPeso != "" && g.NumTotalMercancias != ""
}

func motorComplete(m *models.MotorTransport) bool {
	if m == nil {
		return false
	}
	for _, v := range []string{m.PermSCT, m.NumPermisoSCT, m.ConfigVehicular, m.PlacaVM, m.AnioModeloVM, m.AseguraRespCivil, m.PolizaRespCivil} {
		if v == "" {
			return false
		}
	}
	return true
}

func operatorComplete(ops []models.TransportFigure) bool {
	for _, o := range ops {
		if operatorRFC.MatchString(strings.ToUpper(o.RFCFigura)) && o.NumLicencia != "" {
			return true
		}
	}
	return false
}
