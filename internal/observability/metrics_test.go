package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountersAndHandler(t *testing.T) {
	m := NewMetrics()
	m.ObserveRequest("GET /employees", http.StatusOK)
	m.ObserveRequest("GET /employees", http.StatusOK)
	m.ObserveRequest("", http.StatusNotFound)
	m.AuthEvent("login", "success")
	m.TrackActiveSessions(func() float64 { return 3 })

	assert.InDelta(t, 2, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET /employees", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("unmatched", "404")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.AuthEvents.WithLabelValues("login", "success")), 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "staffdesk_active_sessions 3")
	assert.Contains(t, string(body), "staffdesk_http_requests_total")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET /", http.StatusOK)
	m.AuthEvent("logout", "success")
	m.TrackActiveSessions(func() float64 { return 1 })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
