package context

import (
	"context"

	"github.com/dtroode/studyvault-server/internal/model"
)

type profileKey struct{}

var _ model.ContextManager = (*Manager)(nil)

// Manager stores the caller's profile in request contexts.
type Manager struct{}

// NewManager creates a new context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetProfileToContext returns a copy of ctx carrying profile.
func (m *Manager) SetProfileToContext(ctx context.Context, profile model.Profile) context.Context {
	return context.WithValue(ctx, profileKey{}, profile)
}

// GetProfileFromContext returns the profile set by the authentication middleware.
func (m *Manager) GetProfileFromContext(ctx context.Context) (model.Profile, bool) {
	profile, ok := ctx.Value(profileKey{}).(model.Profile)
	return profile, ok
}
