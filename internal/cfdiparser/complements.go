package cfdiparser

import (
	"strings"

	"fjacquet/cfdi-sentinel/internal/models"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

// complements scans the whole tree once per complement kind. Complements are
// matched by local name so the nomina11/nomina12, pago10/pago20 and
// cartaporte20/30/31 prefixes all resolve the same way.
func (p *Parser) complements(root *etree.Element, d *models.Document) error {
	if e := firstDescendant(root, "TimbreFiscalDigital"); e != nil {
		d.Stamp = &models.Stamp{
			UUID:        strings.ToUpper(attr(e, "UUID")),
			StampedAt:   attr(e, "FechaTimbrado"),
			RFCProvider: attr(e, "RfcProvCertif"),
		}
	}

	if e := firstDescendant(root, "Nomina"); e != nil {
		payroll, err := parsePayroll(e)
		if err != nil {
			return wrapComplement("Nomina", err)
		}
		d.Payroll = payroll
	}

	if e := firstDescendant(root, "Pagos"); e != nil {
		d.Payments = parsePayments(e)
	}

	if e := firstDescendant(root, "CartaPorte"); e != nil {
		d.CartaPorte = parseCartaPorte(e)
	}

	if e := firstDescendant(root, "ImpuestosLocales"); e != nil {
		local, err := parseLocalTaxes(e)
		if err != nil {
			return wrapComplement("ImpuestosLocales", err)
		}
		d.LocalTaxes = local
	}

	d.HasFuelStatement = firstDescendant(root, "EstadoDeCuentaCombustible") != nil
	return nil
}

func parsePayroll(e *etree.Element) (*models.Payroll, error) {
	p := &models.Payroll{
		Version:          attr(e, "Version"),
		Prefix:           e.Space,
		FechaPago:        attr(e, "FechaPago"),
		FechaInicialPago: attr(e, "FechaInicialPago"),
		FechaFinalPago:   attr(e, "FechaFinalPago"),
		NumDiasPagados:   attr(e, "NumDiasPagados"),
		HasIssuer:        child(e, "Emisor") != nil,
	}

	var err error
	if p.TotalOtrosPagos, err = optionalAmount(e, "TotalOtrosPagos"); err != nil {
		return nil, err
	}

	if r := child(e, "Receptor"); r != nil {
		p.Receiver = &models.PayrollReceiver{NumEmpleado: attr(r, "NumEmpleado")}
	}

	if per := child(e, "Percepciones"); per != nil {
		p.Perceptions = &models.Perceptions{}
		if p.Perceptions.TotalGravado, err = optionalAmount(per, "TotalGravado"); err != nil {
			return nil, err
		}
		if p.Perceptions.TotalExento, err = optionalAmount(per, "TotalExento"); err != nil {
			return nil, err
		}
	}

	if ded := child(e, "Deducciones"); ded != nil {
		p.Deductions = &models.Deductions{}
		if p.Deductions.TotalOtrasDeducciones, err = optionalAmount(ded, "TotalOtrasDeducciones"); err != nil {
			return nil, err
		}
		if p.Deductions.TotalImpuestosRetenidos, err = optionalAmount(ded, "TotalImpuestosRetenidos"); err != nil {
			return nil, err
		}
		for _, item := range children(ded, "Deduccion") {
			amt, err := deductionAmount(item)
			if err != nil {
				return nil, err
			}
			p.Deductions.Items = append(p.Deductions.Items, models.Deduction{
				Type:   attr(item, "TipoDeduccion"),
				Amount: amt,
			})
		}
	}

	for _, other := range children(child(e, "OtrosPagos"), "OtroPago") {
		amt, err := amount(other, "Importe")
		if err != nil {
			return nil, err
		}
		p.OtherPayments = append(p.OtherPayments, amt)
	}
	return p, nil
}

// deductionAmount reads Importe (nomina 1.2) or the gravado/exento pair
// used by nomina 1.1.
func deductionAmount(e *etree.Element) (decimal.Decimal, error) {
	if hasAttr(e, "Importe") {
		return amount(e, "Importe")
	}
	gravado, err := amount(e, "ImporteGravado")
	if err != nil {
		return decimal.Zero, err
	}
	exento, err := amount(e, "ImporteExento")
	if err != nil {
		return decimal.Zero, err
	}
	return gravado.Add(exento), nil
}

func parsePayments(e *etree.Element) *models.Payments {
	p := &models.Payments{
		Version:   attr(e, "Version"),
		Namespace: e.NamespaceURI(),
		Count:     len(children(e, "Pago")),
	}
	if p.Version == "" {
		p.Version = paymentsVersionFromNamespace(p.Namespace, e.Space)
	}
	return p
}

func paymentsVersionFromNamespace(uri, prefix string) string {
	switch {
	case uri == NamespacePagos20, strings.EqualFold(prefix, "pago20"):
		return "2.0"
	case uri == NamespacePagos10, strings.EqualFold(prefix, "pago10"):
		return "1.0"
	}
	return ""
}

func parseCartaPorte(e *etree.Element) *models.CartaPorte {
	cp := &models.CartaPorte{Version: attr(e, "Version")}

	for _, u := range descendants(child(e, "Ubicaciones"), "Ubicacion") {
		loc := models.Location{Type: attr(u, "TipoUbicacion")}
		if loc.Type == "" {
			// Carta Porte 1.0 nests Origen/Destino inside the Ubicacion.
			switch {
			case child(u, "Origen") != nil:
				loc.Type = "Origen"
			case child(u, "Destino") != nil:
				loc.Type = "Destino"
			}
		}
		cp.Locations = append(cp.Locations, loc)
	}

	goods := child(e, "Mercancias")
	if goods != nil {
		cp.Goods = &models.Goods{
			PesoBrutoTotal:     attr(goods, "PesoBrutoTotal"),
			UnidadPeso:         attr(goods, "UnidadPeso"),
			NumTotalMercancias: attr(goods, "NumTotalMercancias"),
		}
	}

	if auto := firstDescendant(e, "Autotransporte"); auto != nil {
		vehicle := child(auto, "IdentificacionVehicular")
		insurance := child(auto, "Seguros")
		cp.Motor = &models.MotorTransport{
			PermSCT:          attr(auto, "PermSCT"),
			NumPermisoSCT:    attr(auto, "NumPermisoSCT"),
			ConfigVehicular:  attr(vehicle, "ConfigVehicular"),
			PlacaVM:          attr(vehicle, "PlacaVM"),
			AnioModeloVM:     attr(vehicle, "AnioModeloVM"),
			AseguraRespCivil: attr(insurance, "AseguraRespCivil"),
			PolizaRespCivil:  attr(insurance, "PolizaRespCivil"),
		}
	}

	if fig := child(e, "FiguraTransporte"); fig != nil {
		for _, t := range descendants(fig, "TiposFigura") {
			cp.Operators = append(cp.Operators, models.TransportFigure{
				RFCFigura:   strings.ToUpper(attr(t, "RFCFigura")),
				NumLicencia: attr(t, "NumLicencia"),
			})
		}
		for _, o := range descendants(fig, "Operador") {
			cp.Operators = append(cp.Operators, models.TransportFigure{
				RFCFigura:   strings.ToUpper(attr(o, "RFCOperador")),
				NumLicencia: attr(o, "NumLicencia"),
			})
		}
	}
	return cp
}

func parseLocalTaxes(e *etree.Element) (*models.LocalTaxes, error) {
	lt := &models.LocalTaxes{}
	var err error
	if lt.TotalTransferred, err = optionalAmount(e, firstPresent(e, "TotaldeTraslados", "TotalImpuestosLocalesTrasladados")); err != nil {
		return nil, err
	}
	if lt.TotalWithheld, err = optionalAmount(e, firstPresent(e, "TotaldeRetenciones", "TotalImpuestosLocalesRetenidos")); err != nil {
		return nil, err
	}
	for _, t := range children(e, "TrasladosLocales") {
		amt, err := amount(t, "Importe")
		if err != nil {
			return nil, err
		}
		lt.Transferred = append(lt.Transferred, amt)
	}
	for _, r := range children(e, "RetencionesLocales") {
		amt, err := amount(r, "Importe")
		if err != nil {
			return nil, err
		}
		lt.Withheld = append(lt.Withheld, amt)
	}
	return lt, nil
}

// firstPresent returns the first of names carried by e, or the first name
// when none is.
func firstPresent(e *etree.Element, names ...string) string {
	for _, n := range names {
		if hasAttr(e, n) {
			return n
		}
	}
	return names[0]
}
