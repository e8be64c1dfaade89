package diagnostic

import (
	"fmt"
	"strings"
)

// Code identifies a kind of finding.
type Code string

// Ingestion and infrastructure failures. Documents carrying these never
// reach the classifier.
const (
	CodeEncodingUnsupported Code = "INGEST_ENCODING"
	CodeMalformed           Code = "INGEST_MALFORMED"
	CodeUnsupportedVersion  Code = "INGEST_VERSION"
	CodeTimeout             Code = "INFRA_TIMEOUT"
	CodeInternal            Code = "INFRA_INTERNAL"
)

// Structural findings.
const (
	CodeCreditNoteRelation    Code = "STRUCT_CREDIT_NOTE_RELATION"
	CodeDebitNoteRelation     Code = "STRUCT_DEBIT_NOTE_RELATION"
	CodePaymentTotalNotZero   Code = "STRUCT_PAYMENT_TOTAL"
	CodePayrollInvalid        Code = "STRUCT_PAYROLL"
	CodePaymentsInvalid       Code = "STRUCT_PAYMENTS"
	CodePaymentsNotApplicable Code = "INFO_PAYMENTS_NA"
	CodeExpenseWithoutRelated Code = "ADV_EXPENSE_NO_RELATION"
)

// Totals and tax risk findings.
const (
	CodeTotalsValid          Code = "TOTALS_VALID"
	CodeTotalsMismatch       Code = "TOTALS_MISMATCH"
	CodePayrollTotalsValid   Code = "TOTALS_PAYROLL_VALID"
	CodePayrollTotalsInvalid Code = "TOTALS_PAYROLL_MISMATCH"
	CodeFuelStatement        Code = "ADV_FUEL_STATEMENT"
	CodeZeroRateIVA          Code = "RISK_IVA_ZERO_RATE"
	CodeEducationExempt      Code = "ADV_EDUCATION_EXEMPT"
	CodeBonifiedConcepts     Code = "INFO_BONIFIED"
)

// Freight manifest findings.
const (
	CodeFreightMissing       Code = "FREIGHT_MISSING"
	CodeFreightIncomplete    Code = "FREIGHT_INCOMPLETE"
	CodeFreightComplete      Code = "FREIGHT_COMPLETE"
	CodeFreightNotRequired   Code = "FREIGHT_NOT_REQUIRED"
	CodeFreightNotApplicable Code = "FREIGHT_NOT_APPLICABLE"
)

// Enrichment findings.
const (
	CodeMateriality       Code = "ADV_MATERIALITY"
	CodeIssuer69B         Code = "DENY_ISSUER_69B"
	CodeIssuer69BPresumed Code = "DENY_ISSUER_69B_PRESUMED"
	CodeIssuerEFOS        Code = "DENY_ISSUER_EFOS"
	CodeReceiver69B       Code = "DENY_RECEIVER_69B"
	CodeDenylistFailed    Code = "DENY_LOOKUP_FAILED"
	CodeCancelled         Code = "SAT_CANCELLED"
	CodeStatusNotFound    Code = "SAT_NOT_FOUND"
	CodeStatusUnavailable Code = "SAT_UNAVAILABLE"
)

// Causes of a totals mismatch, carried in the "cause" parameter of
// CodeTotalsMismatch.
const (
	CauseLocalWithheld    Code = "CAUSE_LOCAL_WITHHELD"
	CauseLocalTransferred Code = "CAUSE_LOCAL_TRANSFERRED"
	CauseRounding         Code = "CAUSE_ROUNDING"
	CauseReviewTaxes      Code = "CAUSE_REVIEW_TAXES"
)

// Parameter keys.
const (
	ParamEncoding         = "encoding"
	ParamVersion          = "version"
	ParamYear             = "year"
	ParamFound            = "found"
	ParamTotal            = "total"
	ParamDetail           = "detail"
	ParamExpected         = "expected"
	ParamDetected         = "detected"
	ParamDeclared         = "declared"
	ParamComputed         = "computed"
	ParamDifference       = "difference"
	ParamSubtotal         = "subtotal"
	ParamIVATransferred   = "iva_transferred"
	ParamIVAWithheld      = "iva_withheld"
	ParamISRWithheld      = "isr_withheld"
	ParamIEPS             = "ieps"
	ParamLocalTransferred = "local_transferred"
	ParamLocalWithheld    = "local_withheld"
	ParamCause            = "cause"
	ParamExplanation      = "explanation"
	ParamContext          = "context"
	ParamEarnings         = "earnings"
	ParamDeductions       = "deductions"
	ParamOtherPayments    = "other_payments"
	ParamMissing          = "missing"
	ParamActivity         = "activity"
	ParamReason           = "reason"
	ParamSituation        = "situation"
	ParamError            = "error"
)

// Placement controls where a fragment lands in the fiscal comment.
type Placement int

const (
	Append Placement = iota
	// Prepend fragments are alerts that must be read first.
	Prepend
)

type entry struct {
	severity  Severity
	placement Placement
	message   func(Params) string
	technical func(Params) string
}

func fixed(s string) func(Params) string {
	return func(Params) string { return s }
}

var catalog = map[Code]entry{
	CodeEncodingUnsupported: {
		severity: SeverityError,
		message: func(p Params) string {
			return fmt.Sprintf("ERROR TÉCNICO: Encoding %q no soportado. Encodings aceptados: UTF-8, ISO-8859-1, Windows-1252. "+
				"Regla SAT: Anexo 20 CFDI - Los CFDIs deben usar codificaciones estándar para garantizar interoperabilidad.", p[ParamEncoding])
		},
	},
	CodeMalformed: {
		severity: SeverityError,
		message:  fixed("Error al procesar XML: formato inválido"),
		technical: func(p Params) string {
			return p[ParamDetail]
		},
	},
	CodeUnsupportedVersion: {
		severity: SeverityError,
		message: func(p Params) string {
			return fmt.Sprintf("Versión no soportada: %s. Se aceptan CFDI 2.0, 2.2, 3.0, 3.2, 3.3 y 4.0 según contexto histórico SAT.", p[ParamVersion])
		},
	},
	CodeTimeout: {
		severity: SeverityError,
		message:  fixed("Error: Tiempo de procesamiento excedido"),
	},
	CodeInternal: {
		severity: SeverityError,
		message:  fixed("Error al procesar archivo"),
		technical: func(p Params) string {
			return p[ParamDetail]
		},
	},

	CodeCreditNoteRelation: {
		severity: SeverityError,
		message: func(p Params) string {
			return "ERROR FISCAL: Nota de Crédito (Tipo E) debe tener CfdiRelacionados con TipoRelacion='01'. Encontrado: " +
				p[ParamFound] + ". Regla SAT: Anexo 20 CFDI 3.3/4.0 - Tipo de relación 01 para Notas de Crédito."
		},
	},
	CodeDebitNoteRelation: {
		severity: SeverityError,
		message: func(p Params) string {
			return "ERROR FISCAL: Nota de Cargo (Tipo I con relación) debe tener CfdiRelacionados con TipoRelacion='02'. Encontrado: " +
				p[ParamFound] + ". Regla SAT: Anexo 20 CFDI 3.3/4.0 - Tipo de relación 02 para Notas de Débito/Cargo."
		},
	},
	CodePaymentTotalNotZero: {
		severity: SeverityError,
		message: func(p Params) string {
			return "ERROR FISCAL: CFDI Tipo P (Recibo Electrónico de Pago) debe tener Total=0.00. Encontrado: Total=" + p[ParamTotal] +
				". Regla SAT: Anexo 20 CFDI 3.3/4.0 - Los recibos de pago deben emitirse con Total=0 ya que el importe se registra en el complemento de pagos. " +
				`Verifica el complemento "pago10:Pagos" o "pago20:Pagos".`
		},
	},
	CodePayrollInvalid: {
		severity: SeverityError,
		message: func(p Params) string {
			return "ERROR FISCAL: " + p[ParamDetail]
		},
		technical: func(p Params) string {
			return p[ParamDetail]
		},
	},
	CodePaymentsInvalid: {
		severity: SeverityError,
		message: func(p Params) string {
			return "ERROR EN PAGOS: " + p[ParamDetail]
		},
		technical: func(p Params) string {
			return p[ParamDetail]
		},
	},
	CodePaymentsNotApplicable: {
		severity: SeverityInfo,
		message: func(p Params) string {
			return fmt.Sprintf("Complemento Pagos no existía en %s (disponible desde 2018 con CFDI 3.3).", p[ParamYear])
		},
	},
	CodeExpenseWithoutRelated: {
		severity: SeverityAdvisory,
		message:  fixed("CFDI de Egreso sin CfdiRelacionados; se clasifica como Egreso y no como Nota de Crédito."),
	},

	CodeTotalsValid: {
		severity: SeverityInfo,
		message:  totalsValidMessage,
	},
	CodeTotalsMismatch: {
		severity:  SeverityError,
		message:   mismatchMessage,
		technical: mismatchTechnical,
	},
	CodePayrollTotalsValid: {
		severity: SeverityInfo,
		message:  payrollValidMessage,
		technical: func(p Params) string {
			return fmt.Sprintf("Nómina %s validada. Percepciones: %s, Deducciones: %s, Otros Pagos: %s",
				p[ParamVersion], p[ParamEarnings], p[ParamDeductions], p[ParamOtherPayments])
		},
	},
	CodePayrollTotalsInvalid: {
		severity: SeverityError,
		message: func(p Params) string {
			return fmt.Sprintf("ERROR FISCAL: Total declarado (%s) no coincide con cálculo SAT (%s). Diferencia: %s. "+
				"Fórmula SAT: Percepciones (%s) + Otros Pagos (%s) - Deducciones (%s) = %s.",
				p[ParamDeclared], p[ParamComputed], p[ParamDifference],
				p[ParamEarnings], p[ParamOtherPayments], p[ParamDeductions], p[ParamComputed])
		},
		technical: func(p Params) string {
			return fmt.Sprintf("Total declarado: %s, Total calculado: %s. Percepciones: %s, Deducciones: %s, Otros Pagos: %s",
				p[ParamDeclared], p[ParamComputed], p[ParamEarnings], p[ParamDeductions], p[ParamOtherPayments])
		},
	},
	CodeFuelStatement: {
		severity: SeverityAdvisory,
		message: fixed("CFDI con complemento de Estado de Cuenta de Combustible. La información relevante de litros, importes e impuestos viene en el complemento. " +
			"Revisar deducibilidad y acreditamiento de IVA conforme a política interna."),
		technical: func(p Params) string {
			return "Diferencia de totales (" + p[ParamDifference] + ") explicada por el complemento ecc12:EstadoDeCuentaCombustible."
		},
	},
	CodeZeroRateIVA: {
		severity:  SeverityCritical,
		placement: Prepend,
		message: fixed("[CRÍTICO] ObjetoImp=02 con IVA 0 % en productos típicamente gravados. " +
			"Riesgo de no poder acreditar IVA o de que la deducción sea rechazada en revisión."),
	},
	CodeEducationExempt: {
		severity: SeverityAdvisory,
		message:  fixed("Servicio potencialmente exento de IVA (servicios educativos); ObjetoImp=02 con IVA 0 % no se considera riesgo."),
	},
	CodeBonifiedConcepts: {
		severity: SeverityInfo,
		message:  fixed("Incluye conceptos bonificados (ObjetoImp=01 con descuento total); revisar solo para efectos de control interno."),
	},

	CodeFreightMissing: {
		severity:  SeverityAdvisory,
		message:   fixed("ALERTA SAT: Falta complemento Carta Porte obligatorio para transporte de mercancías por vía federal."),
		technical: fixed("Complemento de Carta Porte requerido según Anexo 20 SAT pero ausente en el XML"),
	},
	CodeFreightIncomplete: {
		severity: SeverityAdvisory,
		message: fixed("ALERTA SAT: Carta Porte presente pero incompleta. Faltan elementos obligatorios según Anexo 20: " +
			"verifica Ubicaciones (Origen/Destino), Mercancías (peso/unidad/cantidad), Autotransporte (permiso SCT/vehículo/seguros) " +
			"o FiguraTransporte (operador/licencia)."),
		technical: func(p Params) string {
			note := "Carta Porte detectada pero no cumple estructura mínima obligatoria del Anexo 20 SAT"
			if p[ParamMissing] != "" {
				note += " (faltan: " + p[ParamMissing] + ")"
			}
			return note
		},
	},
	CodeFreightComplete: {
		severity: SeverityInfo,
		message: func(p Params) string {
			return "Carta Porte versión " + p[ParamVersion] + " presente y completa según Anexo 20 SAT."
		},
		technical: fixed("Complemento Carta Porte cumple con estructura obligatoria del SAT"),
	},
	CodeFreightNotRequired: {
		severity:  SeverityInfo,
		message:   fixed("Carta Porte no requerida para esta operación."),
		technical: fixed("Sin observaciones. Carta Porte no aplica según tipo de operación y Anexo 20 SAT"),
	},
	CodeFreightNotApplicable: {
		severity: SeverityInfo,
		message: func(p Params) string {
			return "Carta Porte no aplica (" + p[ParamContext] + ")."
		},
		technical: func(p Params) string {
			return "Sin observaciones. " + p[ParamContext]
		},
	},

	CodeMateriality: {
		severity: SeverityAdvisory,
		message: func(p Params) string {
			msg := fmt.Sprintf("ALERTA DE GIRO: Algunos conceptos podrían no estar directamente relacionados con el giro declarado de la empresa (%q). "+
				"Verificar estricta indispensabilidad y documentación de soporte antes de deducir.", p[ParamActivity])
			if p[ParamReason] != "" {
				msg += " " + p[ParamReason]
			}
			return msg
		},
	},
	CodeIssuer69B: {
		severity:  SeverityCritical,
		placement: Prepend,
		message: func(p Params) string {
			return "[CRÍTICO] RFC EMISOR EN LISTA 69-B (" + p[ParamSituation] + "). Operaciones inexistentes. NO DEDUCIBLE."
		},
	},
	CodeIssuer69BPresumed: {
		severity:  SeverityAdvisory,
		placement: Prepend,
		message: func(p Params) string {
			return "[ALERTA] RFC EMISOR EN LISTA 69-B (" + p[ParamSituation] + "). Verificar materialidad de las operaciones antes de deducir."
		},
	},
	CodeIssuerEFOS: {
		severity:  SeverityAdvisory,
		placement: Prepend,
		message:   fixed("[ALERTA] RFC EMISOR EN LISTA EFOS (Facturera). Revisar documentación soporte."),
	},
	CodeReceiver69B: {
		severity: SeverityAdvisory,
		message:  fixed("[ALERTA] RFC Receptor en lista 69-B."),
	},
	CodeDenylistFailed: {
		severity: SeverityInfo,
		technical: func(p Params) string {
			return "No fue posible consultar listas negras: " + p[ParamError]
		},
	},
	CodeCancelled: {
		severity:  SeverityCritical,
		placement: Prepend,
		message: func(p Params) string {
			detail := strings.TrimSpace(p[ParamDetail])
			if detail == "" {
				return "[CRÍTICO] CFDI CANCELADO en SAT. No tiene efectos fiscales."
			}
			return "[CRÍTICO] CFDI CANCELADO en SAT. " + strings.TrimSuffix(detail, ".") + ". No tiene efectos fiscales."
		},
	},
	CodeStatusNotFound: {
		severity:  SeverityAdvisory,
		placement: Prepend,
		message:   fixed("[ALERTA] UUID no encontrado en SAT (puede ser muy reciente o apócrifo)."),
	},
	CodeStatusUnavailable: {
		severity: SeverityInfo,
		technical: func(p Params) string {
			return "No fue posible consultar el estatus SAT: " + p[ParamError]
		},
	},
}

// PlacementOf returns where the fragment of code is rendered.
func PlacementOf(code Code) Placement {
	return catalog[code].placement
}

func totalsValidMessage(p Params) string {
	var b strings.Builder
	b.WriteString("CFDI válido. Total correcto calculado por concepto considerando impuestos y retenciones")
	switch {
	case p[ParamLocalWithheld] != "":
		b.WriteString(" incluyendo impuestos locales (retención cedular: " + p[ParamLocalWithheld] + ")")
	case p[ParamLocalTransferred] != "":
		b.WriteString(" incluyendo impuestos locales trasladados (" + p[ParamLocalTransferred] + ")")
	}
	b.WriteString(".")
	if p[ParamContext] != "" {
		b.WriteString(" " + p[ParamContext] + ".")
	}
	return b.String()
}

func payrollValidMessage(p Params) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CFDI de Nómina %s válido. Total correcto: Percepciones (%s)", p[ParamVersion], p[ParamEarnings])
	if p[ParamOtherPayments] != "" && !isZeroPesos(p[ParamOtherPayments]) {
		b.WriteString(" + Otros Pagos (" + p[ParamOtherPayments] + ")")
	}
	if p[ParamDeductions] != "" && !isZeroPesos(p[ParamDeductions]) {
		b.WriteString(" - Deducciones (" + p[ParamDeductions] + ")")
	}
	b.WriteString(". Totales correctos conforme reglas SAT para nómina.")
	if p[ParamISRWithheld] != "" && !isZeroPesos(p[ParamISRWithheld]) {
		b.WriteString(" ISR retenido: " + p[ParamISRWithheld] + ".")
	}
	return b.String()
}

func mismatchMessage(p Params) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ERROR FISCAL: Total declarado (%s) no coincide con cálculo SAT (%s). Diferencia: %s. ",
		p[ParamDeclared], p[ParamComputed], p[ParamDifference])
	fmt.Fprintf(&b, "DESGLOSE: Subtotal=%s, IVA Traslado=%s, IVA Retenido=%s, ISR Retenido=%s",
		p[ParamSubtotal], p[ParamIVATransferred], p[ParamIVAWithheld], p[ParamISRWithheld])
	if v := p[ParamIEPS]; v != "" {
		b.WriteString(", IEPS=" + v)
	}
	if v := p[ParamLocalTransferred]; v != "" {
		b.WriteString(", Imp.Locales Trasl.=" + v)
	}
	if v := p[ParamLocalWithheld]; v != "" {
		b.WriteString(", Imp.Locales Ret.=" + v)
	}
	switch Code(p[ParamCause]) {
	case CauseLocalWithheld:
		b.WriteString(". CAUSA: Impuesto local retenido (cedular) no declarado en complemento implocal:ImpuestosLocales.")
	case CauseLocalTransferred:
		b.WriteString(". CAUSA: Impuesto local trasladado no declarado en complemento implocal:ImpuestosLocales.")
	case CauseRounding:
		b.WriteString(". CAUSA PROBABLE: Error de redondeo en cálculo de impuestos por concepto.")
	default:
		b.WriteString(". CAUSA: Revisar cálculo de impuestos por concepto, validar contra XML timbrado.")
	}
	return b.String()
}

func mismatchTechnical(p Params) string {
	explanation := p[ParamExplanation]
	switch Code(p[ParamCause]) {
	case CauseLocalWithheld:
		return fmt.Sprintf("Diferencia (%s) coincide con impuestos locales retenidos (%s). Revisar nodo implocal:ImpuestosLocales. %s",
			p[ParamDifference], p[ParamLocalWithheld], explanation)
	case CauseLocalTransferred:
		return fmt.Sprintf("Diferencia (%s) coincide con impuestos locales trasladados (%s). Revisar nodo implocal:ImpuestosLocales. %s",
			p[ParamDifference], p[ParamLocalTransferred], explanation)
	case CauseRounding:
		return "Diferencia menor a $1.00 sugiere error de redondeo. " + explanation
	}
	return "Diferencia significativa. " + explanation + ". Verificar: 1) Impuestos en conceptos, 2) Complementos adicionales, 3) Retenciones."
}

func isZeroPesos(s string) bool {
	return s == "$0.00" || s == "0.00" || s == "0"
}
