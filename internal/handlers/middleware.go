package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// statusWriter records the response status and stamps the processing-time
// header just before headers flush.
type statusWriter struct {
	http.ResponseWriter
	status int
	start  time.Time
}

func (sw *statusWriter) WriteHeader(code int) {
	if sw.status == 0 {
		sw.status = code
		sw.Header().Set("X-Process-Time", fmt.Sprintf("%.6f", time.Since(sw.start).Seconds()))
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.WriteHeader(http.StatusOK)
	}
	return sw.ResponseWriter.Write(b)
}

// LogRequests logs every request with a generated request id, its remote
// address, status and elapsed time.
func LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()

		slog.Info("Request received",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"content_type", r.Header.Get("Content-Type"))

		sw := &statusWriter{ResponseWriter: w, start: start}
		sw.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(sw, r)

		slog.Info("Request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"elapsed", time.Since(start).Round(time.Millisecond))
	})
}
