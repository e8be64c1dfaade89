package models

import "strings"

// MinDenylistRFCLength is the shortest RFC worth checking against a denylist.
// Persona moral RFCs have 12 characters and persona física ones 13.
const MinDenylistRFCLength = 12

// Party is the issuer (Emisor) or receiver (Receptor) of a CFDI.
type Party struct {
	RFC        string `json:"rfc" yaml:"rfc"`
	Name       string `json:"name" yaml:"name"`
	Regime     string `json:"regime" yaml:"regime"`
	PostalCode string `json:"postal_code,omitempty" yaml:"postal_code,omitempty"`
}

// NormalizedRFC returns the RFC upper-cased and without surrounding spaces.
func (p Party) NormalizedRFC() string {
	return strings.ToUpper(strings.TrimSpace(p.RFC))
}

// Checkable reports whether the RFC is long enough for a denylist lookup.
func (p Party) Checkable() bool {
	return len(p.NormalizedRFC()) >= MinDenylistRFCLength
}

func (p Party) String() string {
	if p.Name != "" && p.RFC != "" {
		return p.Name + " (" + p.RFC + ")"
	}
	if p.Name != "" {
		return p.Name
	}
	return p.RFC
}
