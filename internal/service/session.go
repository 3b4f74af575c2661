package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/studyvault-server/internal/logger"
	"github.com/dtroode/studyvault-server/internal/model"
)

// Session turns an authenticated principal into the caller's Profile.
type Session struct {
	profiles model.ProfileStore
	logger   *logger.Logger
	opts     Options
}

func NewSession(profiles model.ProfileStore, logger *logger.Logger, opts Options) *Session {
	return &Session{profiles: profiles, logger: logger, opts: opts}
}

// Resolve looks the principal up in the account directory. The principal's id
// and email are trusted as given; a principal whose profile no longer exists
// resolves to ErrNotFound.
func (s *Session) Resolve(ctx context.Context, principal model.Principal) (model.Profile, error) {
	if principal.UserID == uuid.Nil {
		return model.Profile{}, fmt.Errorf("%w: empty principal", model.ErrUnauthorized)
	}

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	profile, err := s.profiles.GetByID(ctx, principal.UserID)
	if errors.Is(err, model.ErrNotFound) {
		s.logger.Info("Session service: principal has no profile",
			"user_id", principal.UserID)
		return model.Profile{}, err
	}
	if err != nil {
		return model.Profile{}, upstream("resolve session", err)
	}

	if principal.Email != "" && principal.Email != profile.Email {
		s.logger.Debug("Session service: principal email differs from profile",
			"user_id", principal.UserID)
	}

	return profile, nil
}
