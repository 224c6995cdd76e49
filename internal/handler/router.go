package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/Victorugws/swift/internal/handler/ratelimit"
	"github.com/Victorugws/swift/internal/handler/voice"
	"github.com/Victorugws/swift/internal/logging"
	"github.com/Victorugws/swift/internal/metrics"
)

// RouterOptions carries what the router needs besides the voice handler.
type RouterOptions struct {
	AllowedOrigins []string
	// Limiter is optional; nil disables the gate.
	Limiter *ratelimit.Limiter
	Logger  zerolog.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(voiceHandler *voice.Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(logging.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.AccessLog(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(corsOptions(opts.AllowedOrigins)))

	r.Route("/api", func(api chi.Router) {
		if opts.Limiter != nil {
			api.Use(opts.Limiter.Middleware)
		}
		voiceHandler.RegisterRoutes(api)
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		// 浏览器只有在这里声明后才能读取这两个头
		ExposedHeaders: []string{voice.TranscriptHeader, voice.ResponseHeader},
		MaxAge:         300,
	}
}
