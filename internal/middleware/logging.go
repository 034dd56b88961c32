package middleware

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// requestClient is filled in by APIKeyAuth further down the chain so the
// request log line can name the authenticated client.
type requestClient struct{ name string }

const requestClientKey contextKey = "request-client"

func setRequestClient(ctx context.Context, name string) {
	if rc, ok := ctx.Value(requestClientKey).(*requestClient); ok {
		rc.name = name
	}
}

// Logging logs one line per HTTP request
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			rc := &requestClient{}

			next.ServeHTTP(wrapped, r.WithContext(context.WithValue(r.Context(), requestClientKey, rc)))

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.Int64("bytes", wrapped.written),
				zap.String("ip", r.RemoteAddr),
				zap.String("client", rc.name),
				zap.String("user_agent", r.UserAgent()),
			)
		})
	}
}
