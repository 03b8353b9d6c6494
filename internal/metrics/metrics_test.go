package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_RecordsStreamLifecycle(t *testing.T) {
	c := New()

	done := c.StreamOpened("groq")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ActiveStreams))

	c.Fragment("groq")
	c.Fragment("groq")
	done("ok", 1.5)

	assert.Equal(t, 0.0, testutil.ToFloat64(c.ActiveStreams))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.FragmentsTotal.WithLabelValues("groq")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RelayRequestsTotal.WithLabelValues("groq", "ok")))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	c.MalformedChunk("together")
	c.ModelList("together", "ok")
	c.Fragment("together")
	c.Rejected("together", "invalid")
	c.FirstFragment("together", 0.1)
	c.StreamOpened("together")("ok", 1)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCollector_HandlerExposesMetrics(t *testing.T) {
	c := New()
	c.MalformedChunk("openrouter")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `quran_ai_upstream_malformed_chunks_total{provider="openrouter"} 1`)
}
