package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// statusWriter records the response status for the access log.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// requestIDHeader carries the generated request ID back to the client so a
// response can be correlated with its access-log line.
const requestIDHeader = "X-Request-Id"

// logRequests assigns each request an ID and emits one access-log line.
func (s *Server) logRequests(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set(requestIDHeader, requestID)
		sw := &statusWriter{ResponseWriter: w}

		next(sw, r)

		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
