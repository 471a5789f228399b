// File: internal/middleware/logger.go
package middleware

import (
	"log"
	"net/http"
	"time"
)

// statusRecorder captures the status code and whether the header was
// written. Stream handlers flush headers early, so downstream middleware
// must not assume the response is still writable.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (rec *statusRecorder) WriteHeader(code int) {
	if !rec.written {
		rec.status = code
		rec.written = true
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if !rec.written {
		rec.status = http.StatusOK
		rec.written = true
	}
	return rec.ResponseWriter.Write(b)
}

// Flush keeps the wrapped writer usable as an SSE sink.
func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		if !rec.written {
			rec.status = http.StatusOK
			rec.written = true
		}
		f.Flush()
	}
}

// LoggingMiddleware logs method, path, status and duration for every
// request. Streaming endpoints show up with their full connection
// lifetime as the duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		log.Printf(
			"[HTTP] %s %s %d from %s in %v",
			r.Method,
			r.URL.Path,
			rec.status,
			r.RemoteAddr,
			time.Since(start),
		)
	})
}
