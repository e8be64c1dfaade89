package materiality

import (
	"context"
	"errors"
	"testing"

	"fjacquet/cfdi-sentinel/internal/diagnostic"
	"fjacquet/cfdi-sentinel/internal/logging"
	"fjacquet/cfdi-sentinel/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docWith(issuer string, concepts ...models.Concept) *models.Document {
	return &models.Document{Issuer: models.Party{Name: issuer}, Concepts: concepts}
}

func concept(clave, desc string) models.Concept {
	return models.Concept{ClaveProdServ: clave, Descripcion: desc}
}

func TestRuleStrategy(t *testing.T) {
	tests := []struct {
		name     string
		activity string
		issuer   string
		concepts []models.Concept
		risky    bool
	}{
		{"transport buying fuel", "Transporte de carga", "Gasolinera", []models.Concept{concept("15101506", "GASOLINA 87 OCTANOS")}, false},
		{"transport buying food", "Transporte de carga", "Pastelería", []models.Concept{concept("50192100", "ROSCA DE REYES TAMAÑO FAMILIAR")}, true},
		{"transport buying cleaning", "Transporte de carga", "Proveedor", []models.Concept{concept("53131600", "DETERGENTE INDUSTRIAL")}, false},
		{"consulting buying spare parts", "Consultoría", "Refaccionaria", []models.Concept{concept("25101500", "REFACCION")}, true},
		{"consulting buying coffee", "Servicios profesionales", "Cafetería", []models.Concept{concept("50201700", "CAFÉ EN GRANO")}, false},
		{"food trade buying medical", "Comercializadora de alimentos", "Hospital", []models.Concept{concept("85101500", "CONSULTA")}, true},
		{"retail issuer for consulting", "Despacho contable", "WALMART DE MEXICO", []models.Concept{concept("50202300", "REFRESCO")}, true},
		{"retail issuer paper", "Despacho contable", "OXXO", []models.Concept{concept("14111500", "PAPEL BOND")}, false},
		{"retail issuer for food trade", "Comercio de alimentos", "Soriana", []models.Concept{concept("50202300", "REFRESCO")}, false},
	}
	s := NewRuleStrategy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, found, err := s.Assess(context.Background(), docWith(tt.issuer, tt.concepts...), tt.activity)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, tt.risky, a.Risky)
		})
	}
}

func TestRuleStrategy_NoActivity(t *testing.T) {
	s := NewRuleStrategy()
	for _, activity := range []string{"", "  ", models.NotAvailable} {
		_, found, err := s.Assess(context.Background(), docWith("X", concept("50192100", "PAN")), activity)
		require.NoError(t, err)
		assert.False(t, found)
	}
}

func TestRuleStrategy_DeduplicatesConcepts(t *testing.T) {
	doc := docWith("Chedraui", concept("50192100", "PAN"))
	a, _, err := NewRuleStrategy().Assess(context.Background(), doc, "Transporte")
	require.NoError(t, err)
	assert.Equal(t, []string{"50192100 - PAN"}, a.Concepts)
}

func TestCategory(t *testing.T) {
	assert.Equal(t, "COMBUSTIBLE", Category("15101506"))
	assert.Equal(t, "TRANSPORTE", Category("78101800"))
	assert.Equal(t, "CONSUMO", Category("51101500"))
	assert.Equal(t, "SALUD", Category("85101500"))
	assert.Equal(t, "", Category("1"))
}

type stubStrategy struct {
	name       string
	assessment Assessment
	found      bool
	err        error
	calls      int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Assess(context.Context, *models.Document, string) (Assessment, bool, error) {
	s.calls++
	return s.assessment, s.found, s.err
}

func TestAssessor_Diagnostic(t *testing.T) {
	a := NewAssessor(logging.NewMockLogger())
	doc := docWith("Pastelería", concept("50192100", "ROSCA DE REYES"))

	d := a.Assess(context.Background(), doc, "Transporte de carga")

	require.NotNil(t, d)
	assert.Equal(t, diagnostic.CodeMateriality, d.Code)
	assert.Equal(t, diagnostic.SeverityAdvisory, d.Severity)
	assert.Contains(t, d.Message(), "ALERTA DE GIRO")
	assert.Contains(t, d.Message(), "Transporte de carga")
	assert.Contains(t, d.Message(), "50192100 - ROSCA DE REYES")
}

func TestAssessor_NoRisk(t *testing.T) {
	a := NewAssessor(nil)
	doc := docWith("Gasolinera", concept("15101506", "GASOLINA"))
	assert.Nil(t, a.Assess(context.Background(), doc, "Transporte de carga"))
	assert.Nil(t, a.Assess(context.Background(), doc, ""))
}

func TestAssessor_ChainStopsAtRisk(t *testing.T) {
	first := &stubStrategy{name: "first", found: true, assessment: Assessment{Risky: true, Reason: "no cuadra"}}
	second := &stubStrategy{name: "second", found: true}
	a := NewAssessor(logging.NewMockLogger(), first, second)

	d := a.Assess(context.Background(), docWith("X"), "Software")

	require.NotNil(t, d)
	assert.Equal(t, "no cuadra", d.Param(diagnostic.ParamReason))
	assert.Equal(t, 0, second.calls)
}

func TestAssessor_ErrorsAreLogged(t *testing.T) {
	logger := logging.NewMockLogger()
	failing := &stubStrategy{name: "broken", err: errors.New("quota exceeded")}
	plausible := &stubStrategy{name: "ok", found: true}
	a := NewAssessor(logger, failing, plausible)

	assert.Nil(t, a.Assess(context.Background(), docWith("X"), "Software"))
	assert.True(t, logger.HasEntry("WARN", "Materiality strategy failed"))
	assert.Equal(t, 1, plausible.calls)
}

func TestStrategyResults_Summary(t *testing.T) {
	sr := StrategyResults{Results: []StrategyResult{
		{Strategy: "rules", Found: true},
		{Strategy: "gemini", Error: errors.New("x")},
		{Strategy: "other", Found: true, Assessment: Assessment{Risky: true}},
		{Strategy: "none"},
	}}
	assert.Equal(t, "rules:plausible, gemini:failed, other:risky, none:no_opinion", sr.Summary())
	require.Len(t, sr.Errors(), 1)
	assert.EqualError(t, sr.Errors()[0], "gemini strategy: x")
	best, ok := sr.Best()
	assert.True(t, ok)
	assert.True(t, best.Risky)
}
