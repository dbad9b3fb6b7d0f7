package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNew_IndependentRegistries(t *testing.T) {
	a := New(nil)
	b := New(nil)

	a.PostalLookups.WithLabelValues(ResultFound).Inc()

	assert.Contains(t, scrape(t, a), `gigmaps_postal_lookups_total{result="found"} 1`)
	assert.NotContains(t, scrape(t, b), `gigmaps_postal_lookups_total{result="found"}`)
}

func TestHandler_ExposesCounters(t *testing.T) {
	m := New(nil)
	m.GrantActivations.WithLabelValues("mock-payment").Inc()
	m.GrantActivations.WithLabelValues("mock-payment").Inc()

	assert.Contains(t, scrape(t, m), `gigmaps_grant_activations_total{source="mock-payment"} 2`)
}
