package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/studyvault-server/internal/logger"
	"github.com/dtroode/studyvault-server/internal/model"
)

// TokenService issues, rotates and revokes token pairs. It composes the
// TokenManager and RefreshTokenStore.
type TokenService struct {
	manager    model.TokenManager
	store      model.RefreshTokenStore
	logger     *logger.Logger
	refreshTTL time.Duration
}

// NewTokenService creates a TokenService. refreshTTL must match the manager's
// refresh lifetime; it is used for persistence only, the JWT claims stay authoritative.
func NewTokenService(manager model.TokenManager, store model.RefreshTokenStore, logger *logger.Logger, refreshTTL time.Duration) *TokenService {
	return &TokenService{manager: manager, store: store, logger: logger, refreshTTL: refreshTTL}
}

func (s *TokenService) Issue(ctx context.Context, principal model.Principal) (model.TokenPair, error) {
	return s.issue(ctx, principal, nil)
}

func (s *TokenService) issue(ctx context.Context, principal model.Principal, rotatedFrom *string) (model.TokenPair, error) {
	access, err := s.manager.GenerateAccessToken(principal)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue access: %w", err)
	}

	refresh, jti, err := s.manager.GenerateRefreshToken(principal)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue refresh: %w", err)
	}

	now := time.Now()
	rt := model.RefreshToken{
		ID:             uuid.New(),
		JTI:            jti,
		UserID:         principal.UserID,
		TokenHash:      hashRefresh(refresh),
		IssuedAt:       now,
		ExpiresAt:      now.Add(s.refreshTTL),
		RotatedFromJTI: rotatedFrom,
	}

	if err := s.store.Create(ctx, rt); err != nil {
		return model.TokenPair{}, fmt.Errorf("persist refresh: %w", err)
	}

	return model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh validates the presented refresh token, revokes it and issues a new pair.
func (s *TokenService) Refresh(ctx context.Context, presentedRefresh string) (model.TokenPair, error) {
	principal, jti, err := s.manager.ParseRefreshToken(presentedRefresh)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("%w: %w", model.ErrInvalidCredentials, err)
	}

	rt, err := s.store.GetByJTI(ctx, jti)
	if errors.Is(err, model.ErrNotFound) {
		return model.TokenPair{}, model.ErrTokenRevoked
	}
	if err != nil {
		return model.TokenPair{}, err
	}

	// Validate stored state vs presented token.
	if err := validateRecord(rt, hashRefresh(presentedRefresh), time.Now()); err != nil {
		s.logger.Info("Token service: refresh rejected",
			"user_id", rt.UserID,
			"reason", err.Error())
		return model.TokenPair{}, err
	}

	if err := s.store.RevokeByJTI(ctx, jti); err != nil {
		return model.TokenPair{}, fmt.Errorf("revoke old refresh: %w", err)
	}

	rotatedFrom := rt.JTI
	return s.issue(ctx, principal, &rotatedFrom)
}

func (s *TokenService) RevokeByToken(ctx context.Context, presentedRefresh string) error {
	_, jti, err := s.manager.ParseRefreshToken(presentedRefresh)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrInvalidCredentials, err)
	}
	err = s.store.RevokeByJTI(ctx, jti)
	if errors.Is(err, model.ErrTokenRevoked) {
		return nil
	}
	return err
}

func (s *TokenService) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	return s.store.RevokeAllByUser(ctx, userID)
}

// Principal validates an access token.
func (s *TokenService) Principal(_ context.Context, token string) (model.Principal, error) {
	return s.manager.ParseAccessToken(token)
}

func hashRefresh(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}

func validateRecord(rt model.RefreshToken, presentedHash []byte, now time.Time) error {
	if rt.RevokedAt != nil {
		return model.ErrTokenRevoked
	}
	if now.After(rt.ExpiresAt) {
		return model.ErrTokenExpired
	}
	if subtle.ConstantTimeCompare(rt.TokenHash, presentedHash) != 1 {
		return model.ErrTokenMismatch
	}
	return nil
}
