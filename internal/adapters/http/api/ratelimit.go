package api

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/pulse/pkg/metrics"
)

type rateKeyFunc func(*http.Request) string

// withRateLimit counts requests per key and answers 429 once the window budget is spent.
func (s *Server) withRateLimit(route string, limit int, keyFn rateKeyFunc, next http.HandlerFunc) http.HandlerFunc {
	const op = "api.ratelimit"
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil || limit <= 0 {
			next(w, r)
			return
		}
		key := keyFn(r)
		d := s.limiter.Allow(r.Context(), route+":"+key, limit, s.rateWindow)
		applyRateHeaders(w, limit, d.Remaining, d.WindowEnd)
		if !d.Allowed {
			metrics.RecordRateLimitHit(route, rateMetricKey(key))
			retry := max(int(time.Until(d.WindowEnd).Seconds()), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			s.fail(w, r, WrapKind(op, ErrRateLimited, fmt.Errorf("%d requests per %s", limit, s.rateWindow)))
			return
		}
		next(w, r)
	}
}

func applyRateHeaders(w http.ResponseWriter, limit, remaining int, reset time.Time) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !reset.IsZero() {
		h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
	}
}

func rateLimitKeyIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func rateLimitKeyTeam(r *http.Request) string {
	if id := teamFromContext(r.Context()); id != "" {
		return "team:" + id
	}
	return rateLimitKeyIP(r)
}

// rateMetricKey keeps label cardinality bounded by reporting only the key kind.
func rateMetricKey(key string) string {
	kind, _, _ := strings.Cut(key, ":")
	return kind
}
