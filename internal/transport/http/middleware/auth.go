package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fintrack-api/internal/application/session"
	"github.com/fintrack-api/internal/domain"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// Authenticator verifies access tokens.
type Authenticator interface {
	Authenticate(accessToken string) (*session.Principal, error)
}

// SessionVerifier checks that a refresh token is still in its owner's active set.
type SessionVerifier interface {
	VerifyActive(ctx context.Context, userID, refreshToken string) error
}

// Auth validates the access-token cookie and injects the principal into context.
// On failure only the access cookie is cleared so the client can refresh.
func Auth(authn Authenticator, cookies *Cookies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := CookieValue(r, AccessCookie)
			if token == "" {
				cookies.ClearAccess(w)
				writeJSONError(w, http.StatusUnauthorized, "missing access token")
				return
			}
			p, err := authn.Authenticate(token)
			if err != nil {
				cookies.ClearAccess(w)
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), PrincipalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActiveSession additionally requires the refresh cookie to belong to the
// authenticated user and to be unrevoked. Must run after Auth.
func ActiveSession(verifier SessionVerifier, cookies *Cookies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			err := verifier.VerifyActive(r.Context(), p.UserID, CookieValue(r, RefreshCookie))
			if errors.Is(err, domain.ErrUnauthorized) {
				cookies.ClearAll(w)
				writeJSONError(w, http.StatusUnauthorized, "session expired")
				return
			}
			if err != nil {
				slog.Error("session check failed", "user_id", p.UserID, "err", err)
				writeJSONError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext extracts the authenticated principal from the request context.
func PrincipalFromContext(ctx context.Context) (*session.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(*session.Principal)
	return p, ok
}
