package router

import (
	"net/http"

	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

type config struct {
	allowedOrigins []string
	logger         *zerolog.Logger
}

type Option func(*config)

func WithAllowedOrigins(origins ...string) Option {
	return func(c *config) {
		c.allowedOrigins = origins
	}
}

// WithLogger makes logger available to handlers through the request context.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = &logger
	}
}

func New(serviceName string, opts ...Option) *chi.Mux {
	cfg := &config{
		allowedOrigins: []string{"*"},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		Debug:            false,
	}).Handler)

	r.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(r)))

	if cfg.logger != nil {
		logger := *cfg.logger
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := logging.NewContextWithLogger(r.Context(), logger)
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		})
	}

	return r
}
