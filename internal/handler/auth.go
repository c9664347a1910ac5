package handler

import (
	"net/http"

	"github.com/xenking/commerce-core/internal/domain/auth"
)

const apiKeyHeader = "X-API-Key"

// APIKeyAuth rejects requests that do not carry a valid X-API-Key header.
// Verification is HMAC-based and constant-time; see the auth package.
func APIKeyAuth(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(apiKeyHeader)
			if key == "" {
				writeError(w, r, auth.ErrUnauthorized)
				return
			}
			if _, err := verifier.Verify(r.Context(), key); err != nil {
				writeError(w, r, auth.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
