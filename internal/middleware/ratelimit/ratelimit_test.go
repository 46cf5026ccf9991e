package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute})
	t.Cleanup(rl.Stop)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestAllow_FixedWindow(t *testing.T) {
	rl, now := newTestLimiter(t, 2)

	ok, _ := rl.Allow("1.1.1.1")
	assert.True(t, ok)
	ok, _ = rl.Allow("1.1.1.1")
	assert.True(t, ok)

	*now = now.Add(20 * time.Second)
	ok, wait := rl.Allow("1.1.1.1")
	assert.False(t, ok)
	assert.Equal(t, 40*time.Second, wait)

	ok, _ = rl.Allow("2.2.2.2")
	assert.True(t, ok, "clients are limited independently")

	*now = now.Add(41 * time.Second)
	ok, _ = rl.Allow("1.1.1.1")
	assert.True(t, ok, "window resets after a minute")

	assert.Equal(t, int64(1), rl.GetMetrics().TotalHits)
	assert.Equal(t, int64(2), rl.GetMetrics().ClientCount)
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(t, 5)
	rl.Allow("1.1.1.1")
	*now = now.Add(11 * time.Minute)
	rl.Allow("2.2.2.2")

	rl.cleanupStaleEntries()
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, "1", RetryAfterSeconds(0))
	assert.Equal(t, "1", RetryAfterSeconds(200*time.Millisecond))
	assert.Equal(t, "41", RetryAfterSeconds(40*time.Second+time.Millisecond))
}

func TestMiddleware_OnlyLimitsListedMethods(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	ip := func(*http.Request) string { return "9.9.9.9" }
	h := rl.Middleware(ip, nil, http.MethodPost, http.MethodDelete)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(method string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/api/expense", nil))
		return rec
	}

	assert.Equal(t, http.StatusNoContent, do(http.MethodPost).Code)
	limited := do(http.MethodDelete)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusNoContent, do(http.MethodGet).Code)
	}
}

func TestMiddleware_CustomHandler(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	var called time.Duration
	onLimit := func(w http.ResponseWriter, r *http.Request, d time.Duration) {
		called = d
		w.WriteHeader(http.StatusTeapot)
	}
	h := rl.Middleware(func(*http.Request) string { return "x" }, onLimit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, time.Minute, called)
}
