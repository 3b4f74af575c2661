package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/dtroode/studyvault-server/internal/model"
)

var _ model.ActivityStore = (*ActivityRepository)(nil)

type ActivityRepository struct {
	s *Store
	j *journal
}

func (r *ActivityRepository) Append(ctx context.Context, record model.ActivityRecord) (model.ActivityRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.ActivityRecord{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	for _, existing := range r.s.activity {
		if existing.ID == record.ID {
			return model.ActivityRecord{}, model.ErrAlreadyExists
		}
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.s.now()
	}

	r.s.seq++
	record.Seq = r.s.seq
	r.s.activity = append(r.s.activity, record.Clone())

	id := record.ID
	r.j.record(func() {
		for i := len(r.s.activity) - 1; i >= 0; i-- {
			if r.s.activity[i].ID == id {
				r.s.activity = append(r.s.activity[:i], r.s.activity[i+1:]...)
				return
			}
		}
	})

	return record.Clone(), nil
}

func (r *ActivityRepository) List(ctx context.Context, after *model.ActivityCursor, limit int) ([]model.ActivityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	records := make([]model.ActivityRecord, 0, len(r.s.activity))
	for _, rec := range r.s.activity {
		if after == nil || after.Before(rec) {
			records = append(records, rec.Clone())
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].Seq > records[j].Seq
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}
