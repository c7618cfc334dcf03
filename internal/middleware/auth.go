package middleware

import (
	"net/http"
	"strings"

	"outpost/internal/auth"
	"outpost/internal/httputil"
)

// Auth extracts the bearer credential from the Authorization header,
// resolves it to a user identity, and stores the user ID in the request
// context. Requests without a valid credential are answered with 401 and
// never reach the handler.
//
// Paths listed in skip bypass authentication (health checks, cron-guarded
// internal endpoints that carry their own credential).
func Auth(verifier auth.JWTVerifier, skip ...string) func(http.Handler) http.Handler {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skipped[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := BearerToken(r)
			if !ok {
				httputil.RespondError(w, http.StatusUnauthorized, "missing or malformed authorization header")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid credential")
				return
			}

			next.ServeHTTP(w, httputil.WithUserID(r, claims.GetUserID()))
		})
	}
}

// BearerToken extracts the credential from "Authorization: Bearer <token>".
// Returns false for an absent or malformed header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", false
	}
	return token, true
}
