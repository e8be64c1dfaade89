// Package diagnostic holds the structured findings produced while
// validating a CFDI and renders them into the Spanish fiscal comment and
// technical notes shown to accountants. Findings stay structured until the
// output boundary.
package diagnostic

import "sort"

// Severity orders findings from purely informational to blocking.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityAdvisory
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityAdvisory:
		return "advisory"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	}
	return "unknown"
}

// Params carries the pre-formatted values a message interpolates.
type Params map[string]string

// Diagnostic is one finding about a document.
type Diagnostic struct {
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Params   Params   `json:"params,omitempty"`
}

// New builds a diagnostic with the catalog severity of code. kv is a list of
// key/value pairs; a trailing odd key is ignored.
func New(code Code, kv ...string) Diagnostic {
	d := Diagnostic{Code: code, Severity: catalog[code].severity}
	if len(kv) > 1 {
		d.Params = make(Params, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			d.Params[kv[i]] = kv[i+1]
		}
	}
	return d
}

// Param returns a parameter or "".
func (d Diagnostic) Param(key string) string {
	return d.Params[key]
}

// Blocking reports an Error or Critical finding.
func (d Diagnostic) Blocking() bool {
	return d.Severity >= SeverityError
}

// Message renders the fiscal comment fragment of d.
func (d Diagnostic) Message() string {
	e, ok := catalog[d.Code]
	if !ok || e.message == nil {
		return ""
	}
	return e.message(d.Params)
}

// Technical renders the technical note of d, or "".
func (d Diagnostic) Technical() string {
	e, ok := catalog[d.Code]
	if !ok || e.technical == nil {
		return ""
	}
	return e.technical(d.Params)
}

// Codes lists the distinct codes in ds, sorted.
func Codes(ds []Diagnostic) []string {
	seen := make(map[string]bool, len(ds))
	var out []string
	for _, d := range ds {
		c := string(d.Code)
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// Highest returns the most severe severity in ds, or SeverityInfo.
func Highest(ds []Diagnostic) Severity {
	highest := SeverityInfo
	for _, d := range ds {
		if d.Severity > highest {
			highest = d.Severity
		}
	}
	return highest
}
