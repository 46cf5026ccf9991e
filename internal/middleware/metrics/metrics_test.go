package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m := New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/summary/{year}/{month}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := m.Middleware(mux)

	for _, path := range []string{"/api/summary/2024/6", "/api/summary/2024/7"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("200", "GET", "GET /api/summary/{year}/{month}")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("404", "GET", "unmatched")))
}

func TestCacheAndRateLimitCounters(t *testing.T) {
	m := New()
	m.CacheHit("summary")
	m.CacheHit("summary")
	m.CacheMiss("summary")
	m.RateLimited()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cache.WithLabelValues("summary", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cache.WithLabelValues("summary", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New()
	m.RateLimited()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "bilancio_rate_limited_total 1"))
	assert.Contains(t, string(body), "go_goroutines")
}
