package materiality

import (
	"context"
	"strings"

	"fjacquet/cfdi-sentinel/internal/models"
	"fjacquet/cfdi-sentinel/internal/textutils"
)

// Two-digit ClaveProdServ segments.
var (
	segmentsFuel         = []string{"15"}
	segmentsTransport    = []string{"78", "25", "24"}
	segmentsProfessional = []string{"80", "81", "44", "43"}
	segmentsConstruction = []string{"30", "72", "95"}
	segmentsConsumer     = []string{"50", "51", "52", "53", "56", "91"}
	segmentsHealth       = []string{"85", "42", "51"}
)

var retailIssuers = []string{"walmart", "soriana", "chedraui", "costco", "oxxo", "7-eleven"}

// RuleStrategy judges materiality from the ClaveProdServ segment, the
// concept description and the issuer name.
type RuleStrategy struct{}

// NewRuleStrategy creates a RuleStrategy.
func NewRuleStrategy() *RuleStrategy {
	return &RuleStrategy{}
}

// Name returns the name of this strategy.
func (s *RuleStrategy) Name() string {
	return "rules"
}

// Assess always reaches an opinion when an activity is declared.
func (s *RuleStrategy) Assess(_ context.Context, doc *models.Document, activity string) (Assessment, bool, error) {
	if noActivity(activity) {
		return Assessment{}, false, nil
	}
	giro := textutils.Fold(activity)
	retail := textutils.ContainsAny(doc.Issuer.Name, retailIssuers...)

	var doubtful []string
	seen := make(map[string]bool)
	flag := func(c models.Concept) {
		line := c.ClaveProdServ + " - " + c.Descripcion
		if !seen[line] {
			seen[line] = true
			doubtful = append(doubtful, line)
		}
	}

	for _, c := range doc.Concepts {
		segment := segment(c.ClaveProdServ)
		desc := textutils.Fold(c.Descripcion)

		switch {
		case strings.Contains(giro, "transporte"):
			if in(segment, segmentsConsumer) && !containsAny(desc, "limpieza", "detergente", "aceite") {
				flag(c)
			}
		case containsAny(giro, "profesional", "consultoria", "servicios"):
			if segment == "25" || segment == "30" {
				flag(c)
			}
			if in(segment, segmentsConsumer) && !containsAny(desc, "cafe", "agua", "papel") {
				flag(c)
			}
		case containsAny(giro, "alimento", "abarrote", "comercializadora"):
			if segment == "85" || segment == "95" {
				flag(c)
			}
		}

		if retail && !containsAny(giro, "alimento", "comercio") &&
			in(segment, segmentsConsumer) && !containsAny(desc, "papel", "limpieza") {
			flag(c)
		}
	}
	return Assessment{Risky: len(doubtful) > 0, Concepts: doubtful}, true, nil
}

// Category names the broad expense family of a ClaveProdServ code.
func Category(claveProdServ string) string {
	s := segment(claveProdServ)
	switch {
	case in(s, segmentsFuel):
		return "COMBUSTIBLE"
	case in(s, segmentsTransport):
		return "TRANSPORTE"
	case in(s, segmentsProfessional):
		return "PROFESIONAL"
	case in(s, segmentsConstruction):
		return "CONSTRUCCION"
	case in(s, segmentsConsumer):
		return "CONSUMO"
	case in(s, segmentsHealth):
		return "SALUD"
	}
	return ""
}

func noActivity(activity string) bool {
	a := strings.TrimSpace(activity)
	return a == "" || a == models.NotAvailable
}

func segment(clave string) string {
	clave = strings.TrimSpace(clave)
	if len(clave) < 2 {
		return clave
	}
	return clave[:2]
}

func in(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsAny(folded string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(folded, w) {
			return true
		}
	}
	return false
}
