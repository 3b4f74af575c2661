package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CredentialStore persists password credentials owned by the identity provider.
type CredentialStore interface {
	Create(ctx context.Context, credential Credential) error
	GetByEmail(ctx context.Context, email string) (Credential, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

type Credential struct {
	UserID       uuid.UUID
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// IdentityProvider authenticates principals and revokes their credentials.
type IdentityProvider interface {
	Authenticate(ctx context.Context, email, password string) (Principal, error)
	RevokeCredential(ctx context.Context, userID uuid.UUID) error
}
