package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DocumentStore defines persistence operations for document metadata.
type DocumentStore interface {
	Create(ctx context.Context, doc DocumentRecord) (DocumentRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (DocumentRecord, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (DocumentRecord, error)
	List(ctx context.Context, filter DocumentFilter) ([]DocumentRecord, error)
	Facets(ctx context.Context) (DocumentFacets, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// DocumentRecord is the metadata of a shared study document.
// UploadedByName is a snapshot taken at upload time and is never re-resolved.
type DocumentRecord struct {
	ID             uuid.UUID
	Title          string
	Description    string
	FileName       string
	ContentType    string
	SizeBytes      int64
	StoragePointer string
	UploadedBy     uuid.UUID
	UploadedByName string
	UploadedAt     time.Time
	Subject        *string
	Semester       *string
}

// DocumentMetadata is the caller-provided part of a document.
type DocumentMetadata struct {
	Title       string
	Description string
	FileName    string
	ContentType string
	SizeBytes   int64
	Subject     *string
	Semester    *string
}

// DocumentFilter narrows List results. Nil fields match everything.
type DocumentFilter struct {
	Subject  *string
	Semester *string
}

// Matches reports whether doc satisfies the filter.
func (f DocumentFilter) Matches(doc DocumentRecord) bool {
	if f.Subject != nil && (doc.Subject == nil || *doc.Subject != *f.Subject) {
		return false
	}
	if f.Semester != nil && (doc.Semester == nil || *doc.Semester != *f.Semester) {
		return false
	}
	return true
}

// DocumentFacets lists the distinct non-empty subjects and semesters in use.
type DocumentFacets struct {
	Subjects  []string
	Semesters []string
}
