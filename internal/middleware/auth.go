package middleware

import (
	"net/http"
	"strings"

	"friendlychat/backend/internal/authctx"
	"friendlychat/backend/internal/domain/identity"
	"friendlychat/backend/internal/httpjson"
)

// BearerToken extracts the token of an "Authorization: Bearer <token>"
// header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[len("Bearer "):])
	return tok, tok != ""
}

// RequireSession rejects requests while nobody is signed in and stores the
// current session in the request context otherwise.
func RequireSession(current func() *identity.Session) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := current()
			if s == nil {
				httpjson.Error(w, http.StatusUnauthorized, "not signed in")
				return
			}
			next.ServeHTTP(w, r.WithContext(authctx.WithSession(r.Context(), s)))
		})
	}
}
