package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RowanDark/ebh/internal/observability/metrics"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// RequestIDFromContext returns the ID the middleware assigned to a request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

// withMiddleware assigns request IDs, caps body size, tracks in-flight
// requests and latency, and writes an access log line per request.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		done := metrics.IncInflight()
		defer done()

		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
		}

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		dur := time.Since(start)
		code := strconv.Itoa(rec.status)
		route := routeLabel(r.URL.Path)
		metrics.RecordRPCRequest("http", route)
		metrics.ObserveRPCLatency("http", route, code, dur)
		if rec.status >= http.StatusBadRequest {
			metrics.RecordRPCError("http", route, code)
		}
		s.logger.InfoContext(r.Context(), "request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration", dur,
		)
	})
}

var knownRoutes = map[string]bool{
	"/healthz":           true,
	"/metrics":           true,
	"/api/v1/encode":     true,
	"/api/v1/decode":     true,
	"/api/v1/batch":      true,
	"/api/v1/pipeline":   true,
	"/api/v1/operations": true,
}

// routeLabel keeps metric cardinality bounded when clients probe unknown
// paths.
func routeLabel(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}
