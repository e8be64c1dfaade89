package enrichment

import (
	"context"
	"errors"
	"testing"

	"fjacquet/cfdi-sentinel/internal/classifier"
	"fjacquet/cfdi-sentinel/internal/denylist"
	"fjacquet/cfdi-sentinel/internal/diagnostic"
	"fjacquet/cfdi-sentinel/internal/logging"
	"fjacquet/cfdi-sentinel/internal/metrics"
	"fjacquet/cfdi-sentinel/internal/models"
	"fjacquet/cfdi-sentinel/internal/satstatus"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	issuerRFC   = "AAA010101AAA"
	receiverRFC = "BBB010101BBB"
)

func stampedDoc() *models.Document {
	return &models.Document{
		Total:    decimal.NewFromInt(116),
		Issuer:   models.Party{RFC: issuerRFC},
		Receiver: models.Party{RFC: receiverRFC},
		Stamp:    &models.Stamp{UUID: "6F1E3A2B-1111-2222-3333-444455556666"},
	}
}

func usable() *classifier.Verdict {
	return &classifier.Verdict{Outcome: models.OutcomeUsable, ValidationClass: classifier.ClassFull}
}

func codes(v *classifier.Verdict) []diagnostic.Code {
	var out []diagnostic.Code
	for _, d := range v.Diagnostics {
		out = append(out, d.Code)
	}
	return out
}

type fakeChecker struct {
	status satstatus.Status
	err    error
	calls  int
}

func (f *fakeChecker) Check(context.Context, string, string, string, decimal.Decimal) (satstatus.Status, error) {
	f.calls++
	return f.status, f.err
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (denylist.Record, bool, error) {
	return denylist.Record{}, false, errors.New("db down")
}

func TestApply_Issuer69B(t *testing.T) {
	store := denylist.NewMemoryStore(denylist.Record{RFC: issuerRFC, List: denylist.List69B, Situation: "Definitivo"})
	m := metrics.New()
	e := New(Options{Denylist: store, Metrics: m, Logger: logging.NewMockLogger()})
	v := usable()

	out := e.Apply(context.Background(), stampedDoc(), v)

	assert.Equal(t, models.OutcomeNotUsable, v.Outcome)
	assert.Equal(t, "🔴 NO USABLE (RFC 69-B)", v.Label())
	assert.Equal(t, classifier.ClassError, v.ValidationClass)
	assert.Equal(t, "69B (Definitivo)", out.IssuerListing)
	assert.Contains(t, v.FiscalComment(), "RFC EMISOR EN LISTA 69-B (Definitivo)")
}

func TestApply_Issuer69BPresumed(t *testing.T) {
	store := denylist.NewMemoryStore(denylist.Record{RFC: issuerRFC, List: denylist.List69B, Situation: "Presunto"})
	v := usable()

	out := New(Options{Denylist: store, Logger: logging.NewMockLogger()}).Apply(context.Background(), stampedDoc(), v)

	assert.Equal(t, models.OutcomeAlert, v.Outcome)
	assert.Equal(t, "🟡 USABLE CON ALERTAS", v.Label())
	assert.Equal(t, classifier.ClassFull, v.ValidationClass)
	assert.Equal(t, []diagnostic.Code{diagnostic.CodeIssuer69BPresumed}, codes(v))
	assert.Equal(t, "69B (Presunto)", out.IssuerListing)
	assert.Contains(t, v.FiscalComment(), "[ALERTA] RFC EMISOR EN LISTA 69-B (Presunto)")
	assert.NotContains(t, v.FiscalComment(), "NO DEDUCIBLE")

	t.Run("does not lift a worse verdict", func(t *testing.T) {
		v := &classifier.Verdict{Outcome: models.OutcomeNotUsable, ValidationClass: classifier.ClassFull}
		New(Options{Denylist: store}).Apply(context.Background(), stampedDoc(), v)
		assert.Equal(t, models.OutcomeNotUsable, v.Outcome)
	})
}

func TestApply_Issuer69BDisproved(t *testing.T) {
	store := denylist.NewMemoryStore(denylist.Record{RFC: issuerRFC, List: denylist.List69B, Situation: "Desvirtuado"})
	v := usable()

	New(Options{Denylist: store}).Apply(context.Background(), stampedDoc(), v)

	assert.Equal(t, models.OutcomeUsable, v.Outcome)
	assert.Empty(t, v.Diagnostics)
}

func TestApply_IssuerEFOS(t *testing.T) {
	store := denylist.NewMemoryStore(denylist.Record{RFC: issuerRFC, List: denylist.ListEFOS})
	v := usable()

	New(Options{Denylist: store}).Apply(context.Background(), stampedDoc(), v)

	assert.Equal(t, models.OutcomeAlert, v.Outcome)
	assert.Equal(t, "🟡 ALERTA (RFC EFOS)", v.Label())
}

func TestApply_Receiver69B(t *testing.T) {
	store := denylist.NewMemoryStore(denylist.Record{RFC: receiverRFC, List: denylist.List69B, Situation: "Presunto"})
	v := usable()

	out := New(Options{Denylist: store}).Apply(context.Background(), stampedDoc(), v)

	assert.Equal(t, models.OutcomeUsable, v.Outcome)
	assert.Equal(t, []diagnostic.Code{diagnostic.CodeReceiver69B}, codes(v))
	assert.Equal(t, "69B (Presunto)", out.ReceiverListing)
}

func TestApply_ShortRFCsAreNotLookedUp(t *testing.T) {
	store := denylist.NewMemoryStore(denylist.Record{RFC: "XAXX0101", List: denylist.List69B})
	doc := stampedDoc()
	doc.Issuer.RFC = "XAXX0101"
	v := usable()

	New(Options{Denylist: store}).Apply(context.Background(), doc, v)
	assert.Equal(t, models.OutcomeUsable, v.Outcome)
}

func TestApply_DenylistErrorIsAdvisory(t *testing.T) {
	logger := logging.NewMockLogger()
	v := usable()

	New(Options{Denylist: failingStore{}, Logger: logger}).Apply(context.Background(), stampedDoc(), v)

	assert.Equal(t, models.OutcomeUsable, v.Outcome)
	assert.Contains(t, codes(v), diagnostic.CodeDenylistFailed)
	assert.True(t, logger.HasEntry("WARN", "Denylist lookup failed"))
}

func TestApply_Cancelled(t *testing.T) {
	checker := &fakeChecker{status: satstatus.Status{State: satstatus.StateCancelled, CancellationStatus: " Cancelado sin aceptación "}}
	v := usable()

	out := New(Options{Status: checker}).Apply(context.Background(), stampedDoc(), v)

	assert.Equal(t, satstatus.StateCancelled, out.SATState)
	assert.Equal(t, "Cancelado sin aceptación", out.CancellationDetail)
	assert.Equal(t, "🔴 NO DISPONIBLE (CANCELADO)", v.Label())
	assert.Equal(t, 0, v.Score())
	assert.Equal(t, "[CRÍTICO] CFDI CANCELADO en SAT. Cancelado sin aceptación. No tiene efectos fiscales.", v.FiscalComment())
}

func TestApply_CancelledNeverImprovesTerminal(t *testing.T) {
	checker := &fakeChecker{status: satstatus.Status{State: satstatus.StateValid}}
	v := &classifier.Verdict{Outcome: models.OutcomeNotUsable, Terminal: true}

	New(Options{Status: checker}).Apply(context.Background(), stampedDoc(), v)

	assert.Equal(t, models.OutcomeNotUsable, v.Outcome)
	assert.True(t, v.Terminal)
}

func TestApply_NotFoundAndErrors(t *testing.T) {
	v := usable()
	out := New(Options{Status: &fakeChecker{status: satstatus.Status{State: satstatus.StateNotFound}}}).Apply(context.Background(), stampedDoc(), v)
	assert.Equal(t, satstatus.StateNotFound, out.SATState)
	assert.Equal(t, models.OutcomeUsable, v.Outcome)
	assert.Contains(t, codes(v), diagnostic.CodeStatusNotFound)

	v = usable()
	out = New(Options{Status: &fakeChecker{err: errors.New("timeout")}}).Apply(context.Background(), stampedDoc(), v)
	assert.Equal(t, satstatus.StateConnectionError, out.SATState)
	assert.Equal(t, models.OutcomeUsable, v.Outcome)
	assert.Contains(t, codes(v), diagnostic.CodeStatusUnavailable)
}

func TestApply_StatusSkippedWithoutData(t *testing.T) {
	checker := &fakeChecker{status: satstatus.Status{State: satstatus.StateCancelled}}
	doc := stampedDoc()
	doc.Stamp = nil

	out := New(Options{Status: checker}).Apply(context.Background(), doc, usable())

	assert.Equal(t, 0, checker.calls)
	assert.Equal(t, satstatus.StateNotVerified, out.SATState)
}

func TestEnabled(t *testing.T) {
	var nilEnricher *Enricher
	assert.False(t, nilEnricher.Enabled())
	assert.False(t, New(Options{}).Enabled())
	require.True(t, New(Options{Status: &fakeChecker{}}).Enabled())
}
