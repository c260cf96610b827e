package httpapi

import (
	"context"
	"net/http"
	"strings"

	"biodivscope-backend-go/internal/services"
)

type contextKey string

const ctxAccount contextKey = "account"

func WithAuth(tokenService services.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				WriteError(w, http.StatusUnauthorized, "Authentication failed")
				return
			}
			tokenStr := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			claims, err := tokenService.ParseAccessToken(tokenStr)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "Authentication failed")
				return
			}
			ctx := context.WithValue(r.Context(), ctxAccount, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func CurrentAccount(r *http.Request) (services.AccountClaims, bool) {
	claims, ok := r.Context().Value(ctxAccount).(services.AccountClaims)
	return claims, ok
}
