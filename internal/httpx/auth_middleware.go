package httpx

import (
	"net/http"
	"strings"

	"booklend/internal/auth"
)

// RequireEmail gates privileged routes: a bearer token must verify against
// the shared secret and carry an email claim. Verification failures reject
// with 401 before the handler runs; a valid token without an email rejects
// with 403.
func RequireEmail(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized access!!", nil)
				return
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := auth.ParseToken(secret, token)
			if err != nil {
				JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized access!!", nil)
				return
			}

			if claims.Email == "" {
				JSONError(w, r, http.StatusForbidden, "FORBIDDEN", "Forbidden access!", nil)
				return
			}

			ctx := ContextWithEmail(r.Context(), claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
