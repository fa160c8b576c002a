package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// findMetric extracts the first metric from a collector whose labels match.
func findMetric(t *testing.T, c prometheus.Collector, labels map[string]string) *dto.Metric {
	t.Helper()
	ch := make(chan prometheus.Metric, 64)
	c.Collect(ch)
	close(ch)

	for m := range ch {
		d := &dto.Metric{}
		if err := m.Write(d); err != nil {
			continue
		}
		got := map[string]string{}
		for _, lp := range d.GetLabel() {
			got[lp.GetName()] = lp.GetValue()
		}
		match := true
		for k, v := range labels {
			if got[k] != v {
				match = false
				break
			}
		}
		if match {
			return d
		}
	}
	return nil
}

func metricsRouter(status int) *chi.Mux {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics())
	r.Get("/p/{slug}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	})
	return r
}

func TestPrometheusMetrics_CountsByRoutePattern(t *testing.T) {
	handler := metricsRouter(http.StatusOK)

	// Two distinct slugs must land on the same route-pattern series.
	for _, path := range []string{"/p/salon-chez-ngozi", "/p/studio-douala"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	m := findMetric(t, httpRequestsTotal, map[string]string{
		"method": "GET", "path": "/p/{slug}", "status": "200",
	})
	require.NotNil(t, m, "expected one series for the /p/{slug} pattern")
	assert.GreaterOrEqual(t, m.GetCounter().GetValue(), float64(2))
}

func TestPrometheusMetrics_ObservesDuration(t *testing.T) {
	handler := metricsRouter(http.StatusNotFound)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/p/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	m := findMetric(t, httpRequestDuration, map[string]string{
		"method": "GET", "path": "/p/{slug}", "status": "404",
	})
	require.NotNil(t, m)
	assert.GreaterOrEqual(t, m.GetHistogram().GetSampleCount(), uint64(1))
}

func TestPrometheusMetrics_DefaultStatusIs200(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	m := findMetric(t, httpRequestsTotal, map[string]string{"path": "/healthz", "status": "200"})
	require.NotNil(t, m, "implicit WriteHeader should record as 200")
}
