package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"flashdeck/internal/config"
)

// CORS lets browser clients on the configured origins call the JSON API.
// Sessions travel as bearer tokens, so Authorization is the header that
// matters; X-Request-Id is exposed for correlating with access logs.
func CORS(cfg config.Config) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: cfg.CORSAllowCredentials,
		MaxAge:           int(cfg.CORSMaxAge.Seconds()),
	})
}
