package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/yearlist-server/internal/domain"
	"github.com/listenupapp/yearlist-server/internal/logger"
	"github.com/listenupapp/yearlist-server/internal/service"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// GetUserID returns the authenticated user ID, or a 401 when the request
// carried no valid access token.
func GetUserID(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", huma.Error401Unauthorized("Authentication required")
	}
	return userID, nil
}

func setUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// authMiddleware resolves a Bearer access token into a user ID on the
// request context and tags the request logger with it. Missing or invalid
// tokens pass through anonymously; handlers reject them via GetUserID.
func authMiddleware(auth *service.AuthService, base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, _, err := auth.VerifyAccessToken(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := setUserID(r.Context(), user.ID)
			ctx = logger.NewContext(ctx, logger.FromContext(ctx, base).With(slog.String("user_id", user.ID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser loads the authenticated user. A token for a deleted account
// is treated as unauthenticated.
func (s *Server) RequireUser(ctx context.Context) (*domain.User, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Auth.GetUser(ctx, userID)
	if err != nil {
		return nil, huma.Error401Unauthorized("User not found")
	}
	return user, nil
}
