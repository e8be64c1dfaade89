// Package xmlutils provides xmlpath helpers and the XPath expressions used to
// read SAT web-service responses.
package xmlutils

// SATConsulta contains the XPath expressions for a ConsultaCFDIService
// response. xmlpath matches local names, so the "a:" prefix the service
// sometimes uses needs no special handling.
type SATConsulta struct {
	CodigoEstatus      string
	Estado             string
	EsCancelable       string
	EstatusCancelacion string
	ValidacionEFOS     string
	Fault              string
}

// DefaultSATConsultaXPaths returns the XPath expressions for the Consulta operation.
func DefaultSATConsultaXPaths() SATConsulta {
	return SATConsulta{
		CodigoEstatus:      "//ConsultaResult/CodigoEstatus",
		Estado:             "//ConsultaResult/Estado",
		EsCancelable:       "//ConsultaResult/EsCancelable",
		EstatusCancelacion: "//ConsultaResult/EstatusCancelacion",
		ValidacionEFOS:     "//ConsultaResult/ValidacionEFOS",
		Fault:              "//Fault/faultstring",
	}
}
