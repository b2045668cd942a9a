package ratelimit

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"insureadmin/internal/platform/middleware"
	"insureadmin/internal/ratelimit/metrics"
	"insureadmin/pkg/platform/httputil"
	"insureadmin/pkg/requestcontext"
)

const maxLoginBody = 64 << 10

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	RetryAfter       int    `json:"retry_after"`
}

// LoginThrottle refuses login attempts once either the caller's address or the
// email in the request body has run out of tokens. The body is restored for
// the next handler. m may be nil.
func LoginThrottle(l *Limiter, logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := middleware.ClientIP(r)
			address := peekEmail(r)

			decision := l.Allow("ip:" + ip)
			kind := "ip"
			if decision.Allowed && address != "" {
				decision = l.Allow("email:" + address)
				kind = "email"
			}
			if m != nil {
				m.SetTrackedKeys(l.Tracked())
			}
			writeHeaders(w, decision)

			if !decision.Allowed {
				if m != nil {
					m.IncrementThrottled(kind)
				}
				logger.WarnContext(ctx, "login throttled",
					"request_id", requestcontext.RequestID(ctx),
					"client_ip", ip,
					"key", kind,
					"retry_after_s", decision.RetryAfterSeconds(),
				)
				w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfterSeconds()))
				httputil.WriteJSON(w, http.StatusTooManyRequests, errorResponse{
					Error:            "rate_limit_exceeded",
					ErrorDescription: "Too many login attempts. Please try again later.",
					RetryAfter:       decision.RetryAfterSeconds(),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeHeaders(w http.ResponseWriter, d Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
}

// peekEmail reads the email field from a JSON login body and puts the body
// back. Anything unreadable yields "".
func peekEmail(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxLoginBody))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}
