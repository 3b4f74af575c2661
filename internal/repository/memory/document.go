package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/dtroode/studyvault-server/internal/model"
)

var _ model.DocumentStore = (*DocumentRepository)(nil)

type DocumentRepository struct {
	s *Store
	j *journal
}

func (r *DocumentRepository) Create(ctx context.Context, doc model.DocumentRecord) (model.DocumentRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.DocumentRecord{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if _, ok := r.s.documents[doc.ID]; ok {
		return model.DocumentRecord{}, model.ErrAlreadyExists
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = r.s.now()
	}

	r.s.documents[doc.ID] = doc
	r.j.record(func() { delete(r.s.documents, doc.ID) })

	return doc, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (model.DocumentRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.DocumentRecord{}, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	doc, ok := r.s.documents[id]
	if !ok {
		return model.DocumentRecord{}, model.ErrNotFound
	}
	return doc, nil
}

func (r *DocumentRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (model.DocumentRecord, error) {
	return r.GetByID(ctx, id)
}

func (r *DocumentRepository) List(ctx context.Context, filter model.DocumentFilter) ([]model.DocumentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	docs := make([]model.DocumentRecord, 0, len(r.s.documents))
	for _, doc := range r.s.documents {
		if filter.Matches(doc) {
			docs = append(docs, doc)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].ID.String() < docs[j].ID.String()
		}
		return docs[i].UploadedAt.After(docs[j].UploadedAt)
	})

	return docs, nil
}

func (r *DocumentRepository) Facets(ctx context.Context) (model.DocumentFacets, error) {
	if err := ctx.Err(); err != nil {
		return model.DocumentFacets{}, err
	}

	subjects := make(map[string]struct{})
	semesters := make(map[string]struct{})

	r.s.mu.RLock()
	for _, doc := range r.s.documents {
		if doc.Subject != nil && *doc.Subject != "" {
			subjects[*doc.Subject] = struct{}{}
		}
		if doc.Semester != nil && *doc.Semester != "" {
			semesters[*doc.Semester] = struct{}{}
		}
	}
	r.s.mu.RUnlock()

	return model.DocumentFacets{Subjects: sortedKeys(subjects), Semesters: sortedKeys(semesters)}, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.documents[id]
	if !ok {
		return model.ErrNotFound
	}

	delete(r.s.documents, id)
	r.j.record(func() { r.s.documents[id] = prev })

	return nil
}
