package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ablbsk/bookworm-api/internal/auth"
	domainerrors "github.com/ablbsk/bookworm-api/internal/errors"
)

// GetAccountID returns the authenticated account from context.
// Returns a 401 error if the request carried no valid token.
func GetAccountID(ctx context.Context) (string, error) {
	accountID := auth.AccountIDFrom(ctx)
	if accountID == "" {
		return "", domainerrors.Unauthenticated("Authentication required")
	}
	return accountID, nil
}

// authMiddleware returns a middleware that validates Bearer tokens and stores
// the account id in context. Requests without a valid token continue
// anonymously; handlers use GetAccountID to require one.
func authMiddleware(tokens *auth.TokenService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.VerifyAccessToken(token)
			if err != nil {
				logger.Debug("rejected access token", "error", err, "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			ctx := auth.WithAccountID(r.Context(), claims.AccountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
