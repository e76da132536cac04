package middleware

import (
	"bufio"
	"net"
	"net/http"
	"time"

	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
)

// responseWriter remembers the status code written by the handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func wrapWriter(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// Hijack allows the responseWriter to implement the http.Hijacker interface.
// websocket.Upgrader requires it, so the middleware must not hide it.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return h.Hijack()
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Metrics middleware records HTTP metrics
func (m *Middleware) Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip metrics endpoint to avoid recursion
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		metrics.HttpRequestsInFlight.Inc()
		defer metrics.HttpRequestsInFlight.Dec()

		rw := wrapWriter(w)
		next.ServeHTTP(rw, r)

		// шаблон маршрута, а не сырой путь: иначе id в пути раздувают кардинальность
		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPMetrics(r.Method, path, rw.statusCode, time.Since(start))
	})
}
