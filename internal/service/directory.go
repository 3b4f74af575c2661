package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/studyvault-server/internal/logger"
	"github.com/dtroode/studyvault-server/internal/model"
)

// Directory is the account directory: CRUD over profiles keyed by id with a
// unique email lookup. Role changes and account deletion for end users go
// through Access instead.
type Directory struct {
	profiles model.ProfileStore
	logger   *logger.Logger
	opts     Options
}

func NewDirectory(profiles model.ProfileStore, logger *logger.Logger, opts Options) *Directory {
	return &Directory{profiles: profiles, logger: logger, opts: opts}
}

// Create mirrors a profile registered with the identity provider.
func (d *Directory) Create(ctx context.Context, profile model.Profile) (model.Profile, error) {
	if strings.TrimSpace(profile.Email) == "" {
		return model.Profile{}, fmt.Errorf("%w: email is required", model.ErrInvalidInput)
	}

	ctx, cancel := d.opts.withTimeout(ctx)
	defer cancel()

	saved, err := d.profiles.Create(ctx, profile)
	if err != nil {
		return model.Profile{}, upstream("create profile", err)
	}

	d.logger.Info("Directory service: profile created",
		"user_id", saved.ID)

	return saved, nil
}

func (d *Directory) GetByID(ctx context.Context, id uuid.UUID) (model.Profile, error) {
	ctx, cancel := d.opts.withTimeout(ctx)
	defer cancel()

	p, err := d.profiles.GetByID(ctx, id)
	if err != nil {
		return model.Profile{}, upstream("get profile by id", err)
	}
	return p, nil
}

// GetByEmail matches the email exactly as stored.
func (d *Directory) GetByEmail(ctx context.Context, email string) (model.Profile, error) {
	ctx, cancel := d.opts.withTimeout(ctx)
	defer cancel()

	p, err := d.profiles.GetByEmail(ctx, email)
	if err != nil {
		return model.Profile{}, upstream("get profile by email", err)
	}
	return p, nil
}

// ListAll returns every profile, newest first.
func (d *Directory) ListAll(ctx context.Context) ([]model.Profile, error) {
	ctx, cancel := d.opts.withTimeout(ctx)
	defer cancel()

	profiles, err := d.profiles.List(ctx)
	if err != nil {
		return nil, upstream("list profiles", err)
	}
	return profiles, nil
}

func (d *Directory) ListAdmins(ctx context.Context) ([]model.Profile, error) {
	ctx, cancel := d.opts.withTimeout(ctx)
	defer cancel()

	admins, err := d.profiles.ListAdmins(ctx)
	if err != nil {
		return nil, upstream("list administrators", err)
	}
	return admins, nil
}

// Update applies patch. Concurrent updates are last-write-wins.
func (d *Directory) Update(ctx context.Context, id uuid.UUID, patch model.ProfilePatch) (model.Profile, error) {
	if patch.Empty() {
		return model.Profile{}, fmt.Errorf("%w: nothing to update", model.ErrInvalidInput)
	}
	if patch.Name != nil {
		patch.Name = ptr(strings.TrimSpace(*patch.Name))
		if *patch.Name == "" {
			return model.Profile{}, fmt.Errorf("%w: name must not be empty", model.ErrInvalidInput)
		}
	}

	ctx, cancel := d.opts.withTimeout(ctx)
	defer cancel()

	p, err := d.profiles.Update(ctx, id, patch)
	if err != nil {
		d.logger.Error("Directory service: failed to update profile",
			"user_id", id,
			"error", err.Error())
		return model.Profile{}, upstream("update profile", err)
	}

	return p, nil
}

// Delete removes the profile row only. It neither checks roles nor revokes
// credentials; Access.DeleteAccount does both.
func (d *Directory) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := d.opts.withTimeout(ctx)
	defer cancel()

	if err := d.profiles.Delete(ctx, id); err != nil {
		return upstream("delete profile", err)
	}
	return nil
}
