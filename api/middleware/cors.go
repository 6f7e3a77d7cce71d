package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/shopflow-backend/internal/identity"
)

var localOrigins = []string{"http://localhost:3000"}

// CORS applies the configured origin allow-list. The guest token header is
// exposed so browser clients can persist a freshly issued token.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = localOrigins
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", identity.HeaderGuestToken, "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{identity.HeaderGuestToken, "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
