package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/dtroode/studyvault-server/internal/model"
)

var (
	_ model.CredentialStore   = (*CredentialRepository)(nil)
	_ model.RefreshTokenStore = (*RefreshTokenRepository)(nil)
)

type CredentialRepository struct {
	s *Store
	j *journal
}

func (r *CredentialRepository) Create(ctx context.Context, credential model.Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.credentials[credential.UserID]; ok {
		return model.ErrAlreadyExists
	}
	for _, c := range r.s.credentials {
		if c.Email == credential.Email {
			return model.ErrAlreadyExists
		}
	}

	r.s.credentials[credential.UserID] = credential
	r.j.record(func() { delete(r.s.credentials, credential.UserID) })

	return nil
}

func (r *CredentialRepository) GetByEmail(ctx context.Context, email string) (model.Credential, error) {
	if err := ctx.Err(); err != nil {
		return model.Credential{}, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.s.credentials {
		if c.Email == email {
			return c, nil
		}
	}
	return model.Credential{}, model.ErrNotFound
}

func (r *CredentialRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.credentials[userID]
	if !ok {
		return model.ErrNotFound
	}

	delete(r.s.credentials, userID)
	r.j.record(func() { r.s.credentials[userID] = prev })

	return nil
}

type RefreshTokenRepository struct {
	s *Store
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token model.RefreshToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.refreshTokens[token.JTI]; ok {
		return model.ErrAlreadyExists
	}
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = r.s.now()
	r.s.refreshTokens[token.JTI] = token

	return nil
}

func (r *RefreshTokenRepository) GetByJTI(ctx context.Context, jti string) (model.RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return model.RefreshToken{}, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	token, ok := r.s.refreshTokens[jti]
	if !ok {
		return model.RefreshToken{}, model.ErrNotFound
	}
	return token, nil
}

func (r *RefreshTokenRepository) RevokeByJTI(ctx context.Context, jti string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	token, ok := r.s.refreshTokens[jti]
	if !ok || token.RevokedAt != nil {
		return model.ErrTokenRevoked
	}
	now := r.s.now()
	token.RevokedAt = &now
	r.s.refreshTokens[jti] = token

	return nil
}

func (r *RefreshTokenRepository) RevokeAllByUser(ctx context.Context, userID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	for jti, token := range r.s.refreshTokens {
		if token.UserID == userID && token.RevokedAt == nil {
			token.RevokedAt = &now
			r.s.refreshTokens[jti] = token
		}
	}

	return nil
}
