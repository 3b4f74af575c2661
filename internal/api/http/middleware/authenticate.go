package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dtroode/studyvault-server/internal/api/http/handler"
	"github.com/dtroode/studyvault-server/internal/logger"
	"github.com/dtroode/studyvault-server/internal/model"
)

// TokenService validates bearer tokens.
type TokenService interface {
	Principal(ctx context.Context, token string) (model.Principal, error)
}

// SessionResolver turns a principal into the caller's profile.
type SessionResolver interface {
	Resolve(ctx context.Context, principal model.Principal) (model.Profile, error)
}

// Authenticate validates bearer tokens and injects the caller's profile into the context.
type Authenticate struct {
	tokenService   TokenService
	sessions       SessionResolver
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokenService TokenService, sessions SessionResolver, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{
		tokenService:   tokenService,
		sessions:       sessions,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Handle rejects requests without a valid bearer token with 401.
// A token whose account was deleted is rejected the same way.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			handler.WriteError(w, model.ErrInvalidCredentials)
			return
		}

		principal, err := m.tokenService.Principal(r.Context(), tokenString)
		if err != nil {
			m.logger.Debug("Authenticate middleware: invalid token",
				"error", err.Error())
			handler.WriteError(w, model.ErrInvalidCredentials)
			return
		}

		profile, err := m.sessions.Resolve(r.Context(), principal)
		if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrUnauthorized) {
			handler.WriteError(w, model.ErrInvalidCredentials)
			return
		}
		if err != nil {
			m.logger.Error("Authenticate middleware: failed to resolve session",
				"user_id", principal.UserID,
				"error", err.Error())
			handler.WriteError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(m.contextManager.SetProfileToContext(r.Context(), profile)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireAdmin rejects callers without the administrator role with 403.
// It must run after Authenticate.
func RequireAdmin(contextManager model.ContextManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile, ok := contextManager.GetProfileFromContext(r.Context())
			if !ok {
				handler.WriteError(w, model.ErrInvalidCredentials)
				return
			}
			if !profile.IsAdmin {
				handler.WriteError(w, model.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
