// Package denylist looks up RFCs on the SAT 69-B (operaciones inexistentes)
// and EFOS lists.
package denylist

import (
	"context"
	"strings"
	"time"

	"fjacquet/cfdi-sentinel/internal/textutils"
)

// List names a SAT list.
type List string

const (
	List69B  List = "69B"
	ListEFOS List = "EFOS"
)

// 69-B situations. Desvirtuado and Sentencia Favorable clear the RFC.
const (
	SituationPresumed        = "Presunto"
	SituationDefinitive      = "Definitivo"
	SituationDisproved       = "Desvirtuado"
	SituationFavorableRuling = "Sentencia Favorable"
)

// Record is one denylist entry.
type Record struct {
	RFC          string    `yaml:"rfc" json:"rfc"`
	List         List      `yaml:"list" json:"list"`
	Situation    string    `yaml:"situation" json:"situation"`
	PublishedAt  time.Time `yaml:"published_at,omitempty" json:"published_at,omitempty"`
	BusinessName string    `yaml:"business_name,omitempty" json:"business_name,omitempty"`
}

// Active reports whether the record still taints the RFC.
func (r Record) Active() bool {
	s := textutils.Fold(r.Situation)
	return s != textutils.Fold(SituationDisproved) && s != textutils.Fold(SituationFavorableRuling)
}

// Presumed reports whether the RFC is only presumed to simulate operations.
// The taxpayer can still rebut it, so it is not yet final.
func (r Record) Presumed() bool {
	return textutils.Fold(r.Situation) == textutils.Fold(SituationPresumed)
}

// Store answers RFC lookups.
type Store interface {
	// Get returns the record for rfc and whether it was found.
	Get(ctx context.Context, rfc string) (Record, bool, error)
}

// Writer is a Store that accepts imports.
type Writer interface {
	Store
	Put(ctx context.Context, records ...Record) error
}

// NormalizeRFC upper-cases and trims rfc.
func NormalizeRFC(rfc string) string {
	return strings.ToUpper(strings.TrimSpace(rfc))
}

// NormalizeList maps the spellings found in SAT exports to a List.
func NormalizeList(s string) List {
	switch strings.ToUpper(strings.NewReplacer("-", "", " ", "", "_", "").Replace(s)) {
	case "EFOS", "FACTURERA":
		return ListEFOS
	}
	return List69B
}
