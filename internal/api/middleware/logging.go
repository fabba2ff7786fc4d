package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

type logContextKey string

const (
	loggerKey       = logContextKey("logger")
	RequestIDHeader = "X-Request-ID"
)

// statusRecorder remembers the status code and body size written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// Logging attaches a request-scoped logger carrying the correlation id (and trace id when
// the request is traced) and logs the outcome at a level matching the status class.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		start := time.Now()

		correlationID := r.Header.Get(RequestIDHeader)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, correlationID)

		logger := slog.Default().With(
			slog.String("correlation_id", correlationID),
			slog.String("http_method", r.Method),
			slog.String("http_path", r.URL.Path),
		)

		if spanCtx := trace.SpanContextFromContext(r.Context()); spanCtx.HasTraceID() {
			logger = logger.With(slog.String("trace_id", spanCtx.TraceID().String()))
		}

		logger.Debug("Incoming request", slog.String("remote_addr", r.RemoteAddr), slog.String("user_agent", r.UserAgent()))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(WithLogger(r.Context(), logger)))

		level := slog.LevelInfo
		switch {
		case rec.status >= http.StatusInternalServerError:
			level = slog.LevelError
		case rec.status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		logger.LogAttrs(r.Context(), level, "Request completed",
			slog.Int("http_status", rec.status),
			slog.Int("response_bytes", rec.bytes),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext falls back to the default logger outside a request.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}

	return slog.Default()
}
