package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue reads a counter through the registry.
func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	next:
		for _, metric := range f.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue next
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMetrics_Observe(t *testing.T) {
	m := New()
	m.ObserveDocument("USABLE", 10*time.Millisecond)
	m.ObserveDocument("USABLE", 20*time.Millisecond)
	m.ObserveDocument("NO USABLE", time.Millisecond)
	m.ObserveStatusLookup(LookupHit)
	m.ObserveDenylistMatch("69B")
	m.ObserveBatch()

	assert.Equal(t, 2.0, counterValue(t, m, "cfdi_sentinel_documents_validated_total", map[string]string{"outcome": "USABLE"}))
	assert.Equal(t, 1.0, counterValue(t, m, "cfdi_sentinel_documents_validated_total", map[string]string{"outcome": "NO USABLE"}))
	assert.Equal(t, 1.0, counterValue(t, m, "cfdi_sentinel_sat_status_lookups_total", map[string]string{"result": LookupHit}))
	assert.Equal(t, 1.0, counterValue(t, m, "cfdi_sentinel_denylist_matches_total", map[string]string{"list": "69B"}))
	assert.Equal(t, 1.0, counterValue(t, m, "cfdi_sentinel_batches_completed_total", nil))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveBatch()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "cfdi_sentinel_batches_completed_total 1")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDocument("USABLE", time.Second)
		m.ObserveStatusLookup(LookupMiss)
		m.ObserveDenylistMatch("EFOS")
		m.ObserveBatch()
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObserveBatch()
	assert.Equal(t, 0.0, counterValue(t, b, "cfdi_sentinel_batches_completed_total", nil))
}
