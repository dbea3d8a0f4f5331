package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"example.com/cartstore/app/internal/infra/security"
)

type ctxKey int

const ctxClaimsKey ctxKey = iota

var errUnauthenticated = errors.New("unauthenticated")

func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			respondError(w, http.StatusUnauthorized, errUnauthenticated)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := a.tokenSvc.ParseToken(token)
		if err != nil {
			a.log.WithError(err).Debug("rejected bearer token")
			respondError(w, http.StatusUnauthorized, errUnauthenticated)
			return
		}

		ctx := context.WithValue(r.Context(), ctxClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getClaims(ctx context.Context) *security.Claims {
	if claims, ok := ctx.Value(ctxClaimsKey).(*security.Claims); ok {
		return claims
	}
	return nil
}
