package logger

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"

	appMiddleware "github.com/FACorreiaa/go-trekly-itineraries/app/middleware"
)

// StructuredLogger logs one line per request. RequestID must run before it; the
// authenticated user is attached when Authenticate ran for the route.
func StructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			requestLogger := logger.With(
				slog.String("req_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
			)

			// Authenticate stores the user id through this holder so it is visible
			// here after the inner handlers return.
			holder := &appMiddleware.UserHolder{}
			next.ServeHTTP(ww, r.WithContext(appMiddleware.WithUserHolder(r.Context(), holder)))

			attrs := []any{
				slog.Int("status", ww.Status()),
				slog.Int("bytes_written", ww.BytesWritten()),
				slog.Duration("latency", time.Since(start)),
			}
			if holder.UserID != "" {
				attrs = append(attrs, slog.String("user_id", holder.UserID))
			}

			switch status := ww.Status(); {
			case status >= http.StatusInternalServerError:
				requestLogger.ErrorContext(r.Context(), "Request failed", attrs...)
			case status >= http.StatusBadRequest:
				requestLogger.WarnContext(r.Context(), "Request rejected", attrs...)
			default:
				requestLogger.InfoContext(r.Context(), "Request completed", attrs...)
			}
		})
	}
}
