package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/studyvault-server/internal/model"
)

var _ model.ProfileStore = (*ProfileRepository)(nil)

const profileColumns = `id, email, name, is_admin, created_at, updated_at`

type ProfileRepository struct {
	db Querier
}

func NewProfileRepository(db Querier) *ProfileRepository {
	return &ProfileRepository{
		db: db,
	}
}

func scanProfile(row pgx.Row) (model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.Email, &p.Name, &p.IsAdmin, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *ProfileRepository) getOne(ctx context.Context, op string, query string, arg any) (model.Profile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, model.ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("failed to get profile by %s: %w", op, err)
	}
	return p, nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Profile, error) {
	return r.getOne(ctx, "id", `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
}

func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (model.Profile, error) {
	return r.getOne(ctx, "email", `SELECT `+profileColumns+` FROM profiles WHERE email = $1`, email)
}

func (r *ProfileRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (model.Profile, error) {
	return r.getOne(ctx, "id", `SELECT `+profileColumns+` FROM profiles WHERE id = $1 FOR UPDATE`, id)
}

func (r *ProfileRepository) GetByEmailForUpdate(ctx context.Context, email string) (model.Profile, error) {
	return r.getOne(ctx, "email", `SELECT `+profileColumns+` FROM profiles WHERE email = $1 FOR UPDATE`, email)
}

func (r *ProfileRepository) Create(ctx context.Context, profile model.Profile) (model.Profile, error) {
	query := `INSERT INTO profiles (id, email, name, is_admin, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $5)
			  RETURNING ` + profileColumns

	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now()
	}

	saved, err := scanProfile(r.db.QueryRow(ctx, query,
		profile.ID, profile.Email, profile.Name, profile.IsAdmin, profile.CreatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return model.Profile{}, model.ErrAlreadyExists
		}
		return model.Profile{}, fmt.Errorf("failed to create profile: %w", err)
	}

	return saved, nil
}

func (r *ProfileRepository) list(ctx context.Context, query string) ([]model.Profile, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]model.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	return profiles, nil
}

func (r *ProfileRepository) List(ctx context.Context) ([]model.Profile, error) {
	return r.list(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC, id`)
}

func (r *ProfileRepository) ListAdmins(ctx context.Context) ([]model.Profile, error) {
	return r.list(ctx, `SELECT `+profileColumns+` FROM profiles WHERE is_admin ORDER BY created_at DESC, id`)
}

// Update applies the non-nil fields of patch. Concurrent updates are last-write-wins.
func (r *ProfileRepository) Update(ctx context.Context, id uuid.UUID, patch model.ProfilePatch) (model.Profile, error) {
	query := `UPDATE profiles
			  SET name = COALESCE($2, name), updated_at = NOW()
			  WHERE id = $1
			  RETURNING ` + profileColumns

	p, err := scanProfile(r.db.QueryRow(ctx, query, id, patch.Name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, model.ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("failed to update profile: %w", err)
	}

	return p, nil
}

func (r *ProfileRepository) SetAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE profiles SET is_admin = $2, updated_at = NOW() WHERE id = $1`, id, isAdmin)
	if err != nil {
		return fmt.Errorf("failed to set admin flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *ProfileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
