package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dtroode/studyvault-server/internal/model"
)

var _ model.ActivityStore = (*ActivityRepository)(nil)

const activityColumns = `seq, id, action_type, actor_id, actor_email, actor_name,
	target_id, target_email, target_name, document_name, message, created_at`

// ActivityRepository writes to activity_logs. It has no update or delete path
// and the table rejects both through a trigger.
type ActivityRepository struct {
	db Querier
}

func NewActivityRepository(db Querier) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func scanActivity(row pgx.Row) (model.ActivityRecord, error) {
	var rec model.ActivityRecord
	var action string
	err := row.Scan(
		&rec.Seq, &rec.ID, &action, &rec.ActorID, &rec.ActorEmail, &rec.ActorName,
		&rec.TargetID, &rec.TargetEmail, &rec.TargetName, &rec.DocumentName, &rec.Message, &rec.CreatedAt,
	)
	rec.ActionType = model.ActionType(action)
	return rec, err
}

func (r *ActivityRepository) Append(ctx context.Context, record model.ActivityRecord) (model.ActivityRecord, error) {
	query := `INSERT INTO activity_logs (
				id, action_type, actor_id, actor_email, actor_name,
				target_id, target_email, target_name, document_name, message, created_at
			  ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			  RETURNING ` + activityColumns

	saved, err := scanActivity(r.db.QueryRow(ctx, query,
		record.ID, string(record.ActionType), record.ActorID, record.ActorEmail, record.ActorName,
		record.TargetID, record.TargetEmail, record.TargetName, record.DocumentName, record.Message, record.CreatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return model.ActivityRecord{}, model.ErrAlreadyExists
		}
		return model.ActivityRecord{}, fmt.Errorf("failed to append activity record: %w", err)
	}

	return saved, nil
}

func (r *ActivityRepository) List(ctx context.Context, after *model.ActivityCursor, limit int) ([]model.ActivityRecord, error) {
	query, args := buildActivityListQuery(after, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity records: %w", err)
	}
	defer rows.Close()

	records := make([]model.ActivityRecord, 0, limit)
	for rows.Next() {
		rec, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity records: %w", err)
	}

	return records, nil
}

func buildActivityListQuery(after *model.ActivityCursor, limit int) (string, []any) {
	if after == nil {
		return `SELECT ` + activityColumns + ` FROM activity_logs
				ORDER BY created_at DESC, seq DESC LIMIT $1`, []any{limit}
	}
	return `SELECT ` + activityColumns + ` FROM activity_logs
			WHERE (created_at, seq) < ($1, $2)
			ORDER BY created_at DESC, seq DESC LIMIT $3`, []any{after.CreatedAt, after.Seq, limit}
}
