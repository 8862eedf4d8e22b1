package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"

	"github.com/iwanyu/marketplace-backend/pkg/config"
)

const corsPreflightMaxAge = 300

// CORS admits browser calls from the configured origins. Credentials are only
// allowed for an explicit origin list; a "*" entry turns them off.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	wildcard := slices.Contains(cfg.AllowedOrigins, "*")
	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			IdempotencyKeyHeader, requestIDHeader,
		},
		ExposedHeaders:   []string{requestIDHeader, "Retry-After", idempotentReplayHeader},
		AllowCredentials: !wildcard,
		MaxAge:           corsPreflightMaxAge,
	})
}
