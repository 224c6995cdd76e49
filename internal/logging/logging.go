// Package logging builds the process logger and the HTTP access log.
package logging

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Victorugws/swift/internal/config"
)

// New returns the root logger described by cfg.
func New(cfg config.LogConfig) zerolog.Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// VercelIDHeader carries the edge request id when running behind Vercel.
const VercelIDHeader = "X-Vercel-Id"

// RequestID prefers the edge-assigned id and falls back to chi's generator.
func RequestID(next http.Handler) http.Handler {
	generated := middleware.RequestID(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(VercelIDHeader)); id != "" {
			ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		generated.ServeHTTP(w, r)
	})
}

// FromRequest returns logger annotated with the request id of r.
func FromRequest(logger zerolog.Logger, r *http.Request) zerolog.Logger {
	return FromContext(logger, r.Context())
}

// FromContext returns logger annotated with the request id carried by ctx.
func FromContext(logger zerolog.Logger, ctx context.Context) zerolog.Logger {
	return logger.With().Str("request_id", RequestIDFromContext(ctx)).Logger()
}

// RequestIDFromContext returns the request id carried by ctx, or "local"
// outside an HTTP request.
func RequestIDFromContext(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return "local"
}

// AccessLog writes one line per request after the handler returns.
func AccessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			event := logger.Info()
			if status >= http.StatusInternalServerError {
				event = logger.Warn()
			}
			event.
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("http request")
		})
	}
}
