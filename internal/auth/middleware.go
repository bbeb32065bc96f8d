package auth

import (
	"context"
	"net/http"
	"strings"

	"browntable/internal/apperr"
	"browntable/internal/models"
	"browntable/internal/utils"
)

type contextKey string

const (
	sessionKey      contextKey = "session"
	adminSessionKey contextKey = "admin_session"
)

// SessionLoader resolves a verified user id to a full session. The identity
// service implements it; keeping it an interface here avoids an import
// cycle and lets middleware tests stub it.
type SessionLoader interface {
	LoadSession(ctx context.Context, userID string) (*models.Session, error)
}

// BearerToken pulls the token out of the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", apperr.Auth("access denied, no token provided")
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apperr.Auth("authorization header format must be 'Bearer {token}'")
	}
	return parts[1], nil
}

// Middleware authenticates user tokens and stores the resolved Session in
// the request context.
func Middleware(tm *TokenManager, loader SessionLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				utils.WriteError(w, err)
				return
			}

			claims, err := tm.Verify(token)
			if err != nil {
				utils.WriteError(w, err)
				return
			}

			session, err := loader.LoadSession(r.Context(), claims.UserID)
			if err != nil {
				utils.WriteError(w, apperr.Auth("invalid token"))
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminMiddleware authenticates staff tokens; the admin session is built
// from the token claims alone.
func AdminMiddleware(tm *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				utils.WriteError(w, err)
				return
			}

			claims, err := tm.Verify(token)
			if err != nil {
				utils.WriteError(w, err)
				return
			}

			if claims.Role != models.AdminRoleAdmin && claims.Role != models.AdminRoleSuperAdmin {
				utils.WriteError(w, apperr.Forbidden("access denied, admin privileges required"))
				return
			}

			session := &models.AdminSession{
				AdminID:     claims.UserID,
				Username:    claims.Username,
				Role:        claims.Role,
				Permissions: claims.Permissions,
			}
			ctx := context.WithValue(r.Context(), adminSessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFrom returns the authenticated user session, if any.
func SessionFrom(ctx context.Context) *models.Session {
	if s, ok := ctx.Value(sessionKey).(*models.Session); ok {
		return s
	}
	return nil
}

// AdminSessionFrom returns the authenticated admin session, if any.
func AdminSessionFrom(ctx context.Context) *models.AdminSession {
	if s, ok := ctx.Value(adminSessionKey).(*models.AdminSession); ok {
		return s
	}
	return nil
}
