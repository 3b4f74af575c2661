package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/studyvault-server/internal/model"
)

var _ model.DocumentStore = (*DocumentRepository)(nil)

const documentColumns = `id, title, description, file_name, content_type, size_bytes, storage_pointer,
	uploaded_by, uploaded_by_name, uploaded_at, subject, semester`

type DocumentRepository struct {
	db Querier
}

func NewDocumentRepository(db Querier) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func scanDocument(row pgx.Row) (model.DocumentRecord, error) {
	var d model.DocumentRecord
	err := row.Scan(
		&d.ID, &d.Title, &d.Description, &d.FileName, &d.ContentType, &d.SizeBytes, &d.StoragePointer,
		&d.UploadedBy, &d.UploadedByName, &d.UploadedAt, &d.Subject, &d.Semester,
	)
	return d, err
}

func (r *DocumentRepository) Create(ctx context.Context, doc model.DocumentRecord) (model.DocumentRecord, error) {
	query := `INSERT INTO documents (` + documentColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			  RETURNING ` + documentColumns

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now()
	}

	saved, err := scanDocument(r.db.QueryRow(ctx, query,
		doc.ID, doc.Title, doc.Description, doc.FileName, doc.ContentType, doc.SizeBytes, doc.StoragePointer,
		doc.UploadedBy, doc.UploadedByName, doc.UploadedAt, doc.Subject, doc.Semester,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return model.DocumentRecord{}, model.ErrAlreadyExists
		}
		return model.DocumentRecord{}, fmt.Errorf("failed to create document: %w", err)
	}

	return saved, nil
}

func (r *DocumentRepository) get(ctx context.Context, query string, id uuid.UUID) (model.DocumentRecord, error) {
	d, err := scanDocument(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.DocumentRecord{}, model.ErrNotFound
		}
		return model.DocumentRecord{}, fmt.Errorf("failed to get document by id: %w", err)
	}
	return d, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (model.DocumentRecord, error) {
	return r.get(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
}

func (r *DocumentRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (model.DocumentRecord, error) {
	return r.get(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1 FOR UPDATE`, id)
}

func (r *DocumentRepository) List(ctx context.Context, filter model.DocumentFilter) ([]model.DocumentRecord, error) {
	query, args := buildDocumentListQuery(filter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]model.DocumentRecord, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

func buildDocumentListQuery(filter model.DocumentFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.Subject != nil {
		args = append(args, *filter.Subject)
		conds = append(conds, fmt.Sprintf("subject = $%d", len(args)))
	}
	if filter.Semester != nil {
		args = append(args, *filter.Semester)
		conds = append(conds, fmt.Sprintf("semester = $%d", len(args)))
	}

	query := `SELECT ` + documentColumns + ` FROM documents`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY uploaded_at DESC, id`

	return query, args
}

func (r *DocumentRepository) Facets(ctx context.Context) (model.DocumentFacets, error) {
	subjects, err := r.distinct(ctx, `SELECT DISTINCT subject FROM documents WHERE subject IS NOT NULL AND subject <> '' ORDER BY subject`)
	if err != nil {
		return model.DocumentFacets{}, err
	}
	semesters, err := r.distinct(ctx, `SELECT DISTINCT semester FROM documents WHERE semester IS NOT NULL AND semester <> '' ORDER BY semester`)
	if err != nil {
		return model.DocumentFacets{}, err
	}
	return model.DocumentFacets{Subjects: subjects, Semesters: semesters}, nil
}

func (r *DocumentRepository) distinct(ctx context.Context, query string) ([]string, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query document facets: %w", err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect document facets: %w", err)
	}
	return values, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
