package auth

import (
	"context"
	"net/http"

	"github.com/xela07ax/campusface-client/internal/domain"
	"go.uber.org/zap"
)

type ctxKey string

const (
	credentialKey ctxKey = "credential"
	claimsKey     ctxKey = "claims"
)

func NewMiddleware(v TokenInspector, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				// браузерный WebSocket не умеет ставить заголовки
				authHeader = r.URL.Query().Get("access_token")
			}
			if authHeader == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			cred := Bearer(authHeader)
			claims, err := v.Inspect(cred)
			if err != nil {
				logger.Warn("auth failure", zap.Error(err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// Кладем токен в контекст запроса - дальше хендлер передает его явно
			ctx := context.WithValue(r.Context(), credentialKey, cred)
			ctx = context.WithValue(ctx, claimsKey, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CredentialFrom достает токен, положенный middleware.
func CredentialFrom(ctx context.Context) (Credential, bool) {
	c, ok := ctx.Value(credentialKey).(Credential)
	return c, ok
}

func ClaimsFrom(ctx context.Context) (*domain.CustomClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*domain.CustomClaims)
	return c, ok
}
