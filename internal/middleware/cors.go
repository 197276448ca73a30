package middleware

import (
	"net/http"

	"org-task-management-api/internal/config"

	"github.com/go-chi/cors"
)

// CORS wraps the whole router. A "*" origin disables credentials.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
			http.MethodPatch,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-CSRF-Token",
			"X-Requested-With",
			"Cache-Control",
			OrgHeader,
		},
		AllowCredentials: true,
		MaxAge:           300,
	}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			opts.AllowCredentials = false
			break
		}
	}
	return cors.Handler(opts)
}
