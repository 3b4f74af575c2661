package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/studyvault-server/internal/logger"
	"github.com/dtroode/studyvault-server/internal/model"
)

const minPasswordLength = 6

var _ model.IdentityProvider = (*Auth)(nil)

// Auth is the identity provider: password credentials, token issue and
// credential revocation. Registration mirrors the new account into the
// account directory in the same transaction.
type Auth struct {
	tx           model.Transactor
	credentials  model.CredentialStore
	tokenService *TokenService
	logger       *logger.Logger
	bcryptCost   int
	dummyHash    []byte
}

func NewAuth(
	tx model.Transactor,
	credentials model.CredentialStore,
	tokenService *TokenService,
	logger *logger.Logger,
	bcryptCost int,
) *Auth {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	// Compared against when the email is unknown so both paths cost the same.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("studyvault-dummy-password"), bcryptCost)

	return &Auth{
		tx:           tx,
		credentials:  credentials,
		tokenService: tokenService,
		logger:       logger,
		bcryptCost:   bcryptCost,
		dummyHash:    dummy,
	}
}

// Register creates a credential and its regular-user profile.
func (a *Auth) Register(ctx context.Context, email, password, name string) (model.Profile, error) {
	a.logger.Debug("Auth service: starting user registration",
		"email", email)

	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return model.Profile{}, fmt.Errorf("%w: malformed email", model.ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return model.Profile{}, fmt.Errorf("%w: password must be at least %d characters", model.ErrInvalidInput, minPasswordLength)
	}
	if name == "" {
		return model.Profile{}, fmt.Errorf("%w: name is required", model.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost)
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	profile := model.Profile{ID: uuid.New(), Email: email, Name: name, CreatedAt: now}

	err = a.tx.WithinTx(ctx, func(ctx context.Context, tx model.Tx) error {
		if err := tx.Credentials().Create(ctx, model.Credential{
			UserID:       profile.ID,
			Email:        email,
			PasswordHash: hash,
			CreatedAt:    now,
		}); err != nil {
			return fmt.Errorf("failed to create credential: %w", err)
		}

		saved, err := tx.Profiles().Create(ctx, profile)
		if err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		profile = saved
		return nil
	})
	if errors.Is(err, model.ErrAlreadyExists) {
		a.logger.Info("Auth service: user already exists",
			"email", email)
		return model.Profile{}, err
	}
	if err != nil {
		a.logger.Error("Auth service: failed to register user",
			"email", email,
			"error", err.Error())
		return model.Profile{}, upstream("register user", err)
	}

	a.logger.Info("Auth service: user registration completed successfully",
		"user_id", profile.ID)

	return profile, nil
}

// Authenticate verifies the password and returns the principal.
func (a *Auth) Authenticate(ctx context.Context, email, password string) (model.Principal, error) {
	cred, err := a.credentials.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, model.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(password))
		return model.Principal{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return model.Principal{}, upstream("get credential", err)
	}

	if err := bcrypt.CompareHashAndPassword(cred.PasswordHash, []byte(password)); err != nil {
		a.logger.Info("Auth service: password mismatch",
			"user_id", cred.UserID)
		return model.Principal{}, model.ErrInvalidCredentials
	}

	return model.Principal{UserID: cred.UserID, Email: cred.Email}, nil
}

// Login authenticates and issues a token pair.
func (a *Auth) Login(ctx context.Context, email, password string) (model.TokenPair, error) {
	principal, err := a.Authenticate(ctx, email, password)
	if err != nil {
		return model.TokenPair{}, err
	}

	pair, err := a.tokenService.Issue(ctx, principal)
	if err != nil {
		a.logger.Error("Auth service: failed to issue tokens",
			"user_id", principal.UserID,
			"error", err.Error())
		return model.TokenPair{}, upstream("issue tokens", err)
	}

	a.logger.Info("Auth service: login completed successfully",
		"user_id", principal.UserID)

	return pair, nil
}

func (a *Auth) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	pair, err := a.tokenService.Refresh(ctx, refreshToken)
	if err != nil {
		if isTokenRejection(err) {
			return model.TokenPair{}, err
		}
		return model.TokenPair{}, upstream("refresh tokens", err)
	}
	return pair, nil
}

func (a *Auth) Logout(ctx context.Context, refreshToken string) error {
	err := a.tokenService.RevokeByToken(ctx, refreshToken)
	if err != nil && !isTokenRejection(err) {
		return upstream("revoke refresh token", err)
	}
	return err
}

// RevokeCredential revokes every refresh token of the user, then deletes the
// password credential. A failure leaves the credential in place and the call
// retryable. A missing credential is not an error.
func (a *Auth) RevokeCredential(ctx context.Context, userID uuid.UUID) error {
	if err := a.tokenService.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	if err := a.credentials.Delete(ctx, userID); err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	a.logger.Info("Auth service: credential revoked",
		"user_id", userID)

	return nil
}

func isTokenRejection(err error) bool {
	return errors.Is(err, model.ErrInvalidCredentials) ||
		errors.Is(err, model.ErrTokenRevoked) ||
		errors.Is(err, model.ErrTokenExpired) ||
		errors.Is(err, model.ErrTokenMismatch)
}
