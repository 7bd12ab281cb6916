package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pliu/siso/internal/metrics"
)

// Instrument records request counts and latency per route template.
func Instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			m.ObserveRequest(routeName(r), r.Method, sw.status, time.Since(start))
		})
	}
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
