package middleware

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows the configured origins with credentials, or any origin
// without credentials when none are configured.
func CORS(origins []string, logger *slog.Logger) func(http.Handler) http.Handler {
	if len(origins) > 0 {
		logger.Info("cors origins loaded", slog.Int("count", len(origins)))
		return cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           86400,
		})
	}

	logger.Warn("no cors origins configured, allowing all origins without credentials")
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           86400,
	})
}
