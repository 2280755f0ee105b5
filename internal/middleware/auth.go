package middleware

import (
	"net/http"

	"vinylstore-be/internal/identity"
	"vinylstore-be/internal/logger"
	"vinylstore-be/internal/utils"

	"go.uber.org/zap"
)

// AuthMiddleware attaches the caller's identity when a token is present.
// Requests without a token pass through anonymous; a bad token is rejected.
func AuthMiddleware(v *identity.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := identity.ExtractAccessToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := v.Parse(tokenStr)
			if err != nil {
				logger.FromCtx(r.Context()).Warn("rejected access token", zap.Error(err))
				utils.WriteJSONError(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := identity.NewContext(r.Context(), id)
			ctx = logger.WithFields(ctx, zap.Stringer("identity", id))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
