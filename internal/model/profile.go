package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProfileStore defines persistence operations for profiles.
type ProfileStore interface {
	Create(ctx context.Context, profile Profile) (Profile, error)
	GetByID(ctx context.Context, id uuid.UUID) (Profile, error)
	GetByEmail(ctx context.Context, email string) (Profile, error)
	// GetByIDForUpdate and GetByEmailForUpdate lock the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (Profile, error)
	GetByEmailForUpdate(ctx context.Context, email string) (Profile, error)
	List(ctx context.Context) ([]Profile, error)
	ListAdmins(ctx context.Context) ([]Profile, error)
	Update(ctx context.Context, id uuid.UUID, patch ProfilePatch) (Profile, error)
	SetAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Profile is a registered user's identity and role record.
type Profile struct {
	ID        uuid.UUID
	Email     string
	Name      string
	IsAdmin   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfilePatch lists the profile fields a caller may change. Nil fields are left untouched.
// The email is owned by the identity provider and cannot be patched.
type ProfilePatch struct {
	Name *string
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.Name == nil
}

// Principal is the identity asserted by the identity provider for a request.
type Principal struct {
	UserID uuid.UUID
	Email  string
}
