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

var _ model.CredentialStore = (*CredentialRepository)(nil)

type CredentialRepository struct {
	db Querier
}

func NewCredentialRepository(db Querier) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) Create(ctx context.Context, credential model.Credential) error {
	query := `INSERT INTO credentials (user_id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`

	if credential.CreatedAt.IsZero() {
		credential.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(ctx, query, credential.UserID, credential.Email, credential.PasswordHash, credential.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create credential: %w", err)
	}
	return nil
}

func (r *CredentialRepository) GetByEmail(ctx context.Context, email string) (model.Credential, error) {
	query := `SELECT user_id, email, password_hash, created_at FROM credentials WHERE email = $1`

	var c model.Credential
	err := r.db.QueryRow(ctx, query, email).Scan(&c.UserID, &c.Email, &c.PasswordHash, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Credential{}, model.ErrNotFound
		}
		return model.Credential{}, fmt.Errorf("failed to get credential by email: %w", err)
	}
	return c, nil
}

func (r *CredentialRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM credentials WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
