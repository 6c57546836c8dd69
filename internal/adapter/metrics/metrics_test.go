package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors_RegisterWithoutConflicts(t *testing.T) {
	reg := NewRegistry()

	require.NotPanics(t, func() {
		NewHTTPMetrics(reg)
		NewPollMetrics(reg)
		NewWebSocketMetrics(reg)
		NewBreakerMetrics(reg)
		NewDatabaseMetrics(reg)
	})
}

func TestPollMetrics_ResponsesByResult(t *testing.T) {
	m := NewPollMetrics(prometheus.NewRegistry())

	m.Responses.WithLabelValues(ResultAccepted).Inc()
	m.Responses.WithLabelValues(ResultAccepted).Inc()
	m.Responses.WithLabelValues(ResultDuplicate).Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Responses.WithLabelValues(ResultAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Responses.WithLabelValues(ResultDuplicate)))
}

func TestBreakerMetrics_Record(t *testing.T) {
	m := NewBreakerMetrics(prometheus.NewRegistry())

	m.Record("redis", "open", 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.State.WithLabelValues("redis")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StateChanges.WithLabelValues("redis", "open")))

	var nilMetrics *BreakerMetrics
	assert.NotPanics(t, func() { nilMetrics.Record("redis", "open", 2) })
}

func TestHTTPMetrics_MiddlewareUsesRoutePattern(t *testing.T) {
	m := NewHTTPMetrics(prometheus.NewRegistry())

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/polls/:sessionId", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/health/live", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	for _, path := range []string{"/api/polls/s1", "/api/polls/s2", "/health/live"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(http.MethodGet, "/api/polls/:sessionId", "2xx")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestsTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlightGauge))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(http.StatusNoContent))
	assert.Equal(t, "4xx", statusClass(http.StatusTooManyRequests))
	assert.Equal(t, "5xx", statusClass(http.StatusInternalServerError))
	assert.Equal(t, "unknown", statusClass(0))
}
