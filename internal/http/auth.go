package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"ledger/internal/auth"
	"ledger/internal/core"
	"ledger/internal/log"
)

type contextKey string

const principalKey contextKey = "principal"

var errMissingToken = errors.New("missing bearer token")

// PrincipalFrom returns the authenticated principal of the request.
func PrincipalFrom(ctx context.Context) (core.Principal, bool) {
	p, ok := ctx.Value(principalKey).(core.Principal)
	return p, ok
}

func withPrincipal(ctx context.Context, p core.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// RequireAuth verifies the bearer token and stores the principal in the
// request context.
func RequireAuth(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="ledger"`)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			p, err := tokens.Parse(token)
			if err != nil {
				log.FromContext(r.Context()).DebugContext(r.Context(), "Rejected bearer token", log.FieldError, err)
				w.Header().Set("WWW-Authenticate", `Bearer realm="ledger", error="invalid_token"`)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := withPrincipal(r.Context(), p)
			ctx = log.IntoContext(ctx, log.FromContext(ctx).With(log.FieldActorID, p.UserID, log.FieldRole, p.Role.String()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errMissingToken
	}
	return strings.TrimSpace(token), nil
}

// principal is only called behind RequireAuth.
func principal(r *http.Request) core.Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}
