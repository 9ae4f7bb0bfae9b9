package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCall(t *testing.T) {
	m := New()
	m.ObserveCall("search_movies", 10*time.Millisecond, nil)
	m.ObserveCall("search_movies", 10*time.Millisecond, errors.New("boom"))
	m.ObserveCall("search_movies", 10*time.Millisecond, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("search_movies", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("search_movies", OutcomeError)))
}

func TestSessionsGauge(t *testing.T) {
	m := New()
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sessions))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCall("x", time.Second, nil)
		m.SessionOpened()
		m.SessionClosed()
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveCall("get_popular_movies", time.Millisecond, nil)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `movies_mcp_tool_calls_total{outcome="ok",tool="get_popular_movies"} 1`)
}
