package logging

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// responseWriterPool reuses wrappers so the access log does not allocate per request
var responseWriterPool = sync.Pool{
	New: func() any {
		return &responseWriterWrapper{
			statusCode: http.StatusOK,
		}
	},
}

// LoggingMiddleware logs HTTP requests using slog with structured logging.
// Health and metrics probes are not logged.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			ww := responseWriterPool.Get().(*responseWriterWrapper)
			ww.ResponseWriter = w
			ww.statusCode = http.StatusOK
			ww.bytesWritten = 0
			defer func() {
				ww.ResponseWriter = nil
				responseWriterPool.Put(ww)
			}()

			next.ServeHTTP(ww, r)

			duration := time.Since(start)

			requestID, ok := r.Context().Value(middleware.RequestIDKey).(string)
			if !ok || requestID == "" {
				requestID = "unknown"
			}

			attrs := []any{
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
			}

			if r.URL.RawQuery != "" {
				attrs = append(attrs, "query", r.URL.RawQuery)
			}

			attrs = append(attrs,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"status_code", ww.statusCode,
				"bytes_written", ww.bytesWritten,
				"duration_ms", duration.Milliseconds(),
			)

			level := slog.LevelInfo
			if ww.statusCode >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "HTTP request", attrs...)
		})
	}
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code and bytes written
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWrapper) Write(data []byte) (int, error) {
	n, err := w.ResponseWriter.Write(data)
	w.bytesWritten += n
	return n, err
}
