package middlewareinternal

import (
	"context"
	"net/http"
	"strings"

	"github.com/amezhanin/skinstore/internal/service"
	"github.com/amezhanin/skinstore/internal/types"
	"github.com/amezhanin/skinstore/internal/util/logger"
	"go.uber.org/zap"
)

// JWTAuthMiddleware guards routes behind a bearer token. A missing header
// is forbidden outright; a present but invalid or expired token is
// unauthorized.
func JWTAuthMiddleware(authService service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractToken(r)
			if !ok {
				logger.Log.Debug("Missing bearer token",
					zap.String("path", r.URL.Path))
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			userID, err := authService.ValidateToken(tokenString)
			if err != nil {
				logger.Log.Warn("Invalid token",
					zap.String("path", r.URL.Path),
					zap.Error(err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), types.UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}

	return parts[1], true
}

func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(types.UserIDKey).(int64)
	return userID, ok
}
