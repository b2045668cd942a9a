package ratelimit

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insureadmin/internal/ratelimit/metrics"
	apitest "insureadmin/pkg/testutil"
)

func throttled(t *testing.T, l *Limiter, m *metrics.Metrics) (http.Handler, *[]string) {
	t.Helper()
	var seen []string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		seen = append(seen, string(body))
		w.WriteHeader(http.StatusOK)
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return LoginThrottle(l, logger, m)(next), &seen
}

func login(t *testing.T, h http.Handler, ip, body string) *httptest.ResponseRecorder {
	t.Helper()
	return apitest.DoRequest(h, apitest.NewJSONRequest(t, http.MethodPost, "/auth/login", body, apitest.WithClientIP(ip)))
}

func TestLoginThrottlePassesBodyThrough(t *testing.T) {
	l, _ := newTestLimiter(6, 2)
	h, seen := throttled(t, l, nil)

	body := `{"email":"agent@insurer.example","password":"pw"}`
	w := login(t, h, "10.0.0.1", body)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{body}, *seen)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
}

func TestLoginThrottleByEmailAcrossAddresses(t *testing.T) {
	l, _ := newTestLimiter(6, 2)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	h, seen := throttled(t, l, m)

	body := `{"email":"Agent@Insurer.example","password":"guess"}`
	assert.Equal(t, http.StatusOK, login(t, h, "10.0.0.1", body).Code)
	assert.Equal(t, http.StatusOK, login(t, h, "10.0.0.2", `{"email":"agent@insurer.example "}`).Code)

	w := login(t, h, "10.0.0.3", body)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Len(t, *seen, 2)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	var resp errorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "rate_limit_exceeded", resp.Error)
	assert.InDelta(t, 10, resp.RetryAfter, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ThrottledTotal.WithLabelValues("email")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.TrackedKeys))
}

func TestLoginThrottleByAddress(t *testing.T) {
	l, _ := newTestLimiter(6, 1)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	h, _ := throttled(t, l, m)

	assert.Equal(t, http.StatusOK, login(t, h, "10.0.0.9", `{"email":"a@insurer.example"}`).Code)
	w := login(t, h, "10.0.0.9", `{"email":"b@insurer.example"}`)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ThrottledTotal.WithLabelValues("ip")))
}

func TestLoginThrottleMalformedBodyStillLimitedByAddress(t *testing.T) {
	l, _ := newTestLimiter(6, 1)
	h, seen := throttled(t, l, nil)

	assert.Equal(t, http.StatusOK, login(t, h, "10.0.0.5", `not json`).Code)
	assert.Equal(t, []string{"not json"}, *seen)
	assert.Equal(t, http.StatusTooManyRequests, login(t, h, "10.0.0.5", `not json`).Code)
}
