package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/dtroode/studyvault-server/internal/model"
)

var _ model.ProfileStore = (*ProfileRepository)(nil)

type ProfileRepository struct {
	s *Store
	j *journal
}

func (r *ProfileRepository) Create(ctx context.Context, profile model.Profile) (model.Profile, error) {
	if err := ctx.Err(); err != nil {
		return model.Profile{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	if _, ok := r.s.profiles[profile.ID]; ok {
		return model.Profile{}, model.ErrAlreadyExists
	}
	if _, ok := r.s.profileByEmail(profile.Email); ok {
		return model.Profile{}, model.ErrAlreadyExists
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = r.s.now()
	}
	profile.UpdatedAt = profile.CreatedAt

	r.s.profiles[profile.ID] = profile
	r.j.record(func() { delete(r.s.profiles, profile.ID) })

	return profile, nil
}

// profileByEmail must be called with mu held.
func (s *Store) profileByEmail(email string) (model.Profile, bool) {
	for _, p := range s.profiles {
		if p.Email == email {
			return p, true
		}
	}
	return model.Profile{}, false
}

func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Profile, error) {
	if err := ctx.Err(); err != nil {
		return model.Profile{}, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.profiles[id]
	if !ok {
		return model.Profile{}, model.ErrNotFound
	}
	return p, nil
}

func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (model.Profile, error) {
	if err := ctx.Err(); err != nil {
		return model.Profile{}, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.profileByEmail(email)
	if !ok {
		return model.Profile{}, model.ErrNotFound
	}
	return p, nil
}

// GetByIDForUpdate needs no extra locking: the transaction mutex is already held.
func (r *ProfileRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (model.Profile, error) {
	return r.GetByID(ctx, id)
}

func (r *ProfileRepository) GetByEmailForUpdate(ctx context.Context, email string) (model.Profile, error) {
	return r.GetByEmail(ctx, email)
}

func (r *ProfileRepository) list(ctx context.Context, keep func(model.Profile) bool) ([]model.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	profiles := make([]model.Profile, 0, len(r.s.profiles))
	for _, p := range r.s.profiles {
		if keep(p) {
			profiles = append(profiles, p)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].CreatedAt.Equal(profiles[j].CreatedAt) {
			return profiles[i].ID.String() < profiles[j].ID.String()
		}
		return profiles[i].CreatedAt.After(profiles[j].CreatedAt)
	})

	return profiles, nil
}

func (r *ProfileRepository) List(ctx context.Context) ([]model.Profile, error) {
	return r.list(ctx, func(model.Profile) bool { return true })
}

func (r *ProfileRepository) ListAdmins(ctx context.Context) ([]model.Profile, error) {
	return r.list(ctx, func(p model.Profile) bool { return p.IsAdmin })
}

func (r *ProfileRepository) Update(ctx context.Context, id uuid.UUID, patch model.ProfilePatch) (model.Profile, error) {
	if err := ctx.Err(); err != nil {
		return model.Profile{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.profiles[id]
	if !ok {
		return model.Profile{}, model.ErrNotFound
	}

	next := prev
	if patch.Name != nil {
		next.Name = *patch.Name
	}
	next.UpdatedAt = r.s.now()

	r.s.profiles[id] = next
	r.j.record(func() { r.s.profiles[id] = prev })

	return next, nil
}

func (r *ProfileRepository) SetAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.profiles[id]
	if !ok {
		return model.ErrNotFound
	}

	next := prev
	next.IsAdmin = isAdmin
	next.UpdatedAt = r.s.now()
	r.s.profiles[id] = next
	r.j.record(func() { r.s.profiles[id] = prev })

	return nil
}

func (r *ProfileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.profiles[id]
	if !ok {
		return model.ErrNotFound
	}

	delete(r.s.profiles, id)
	r.j.record(func() { r.s.profiles[id] = prev })

	return nil
}
