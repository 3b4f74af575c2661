package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActivityStore is the append-only persistence of the activity ledger.
type ActivityStore interface {
	Append(ctx context.Context, record ActivityRecord) (ActivityRecord, error)
	// List returns up to limit records older than after, newest first.
	List(ctx context.Context, after *ActivityCursor, limit int) ([]ActivityRecord, error)
}

// ActivityNotifier publishes committed ledger records to interested parties.
type ActivityNotifier interface {
	Notify(ctx context.Context, record ActivityRecord) error
}

// ActionType enumerates ledger record kinds.
type ActionType string

const (
	ActionDocumentCreated ActionType = "document_created"
	ActionAdminPromoted   ActionType = "admin_promoted"
	ActionAdminDemoted    ActionType = "admin_demoted"
	ActionAccountDeleted  ActionType = "account_deleted"
	ActionDocumentDeleted ActionType = "document_deleted"
)

// SystemActorEmail identifies ledger records written by operator tooling rather than a user.
const SystemActorEmail = "system"

// ActivityRecord is an immutable audit entry.
type ActivityRecord struct {
	ID           uuid.UUID
	Seq          int64
	ActionType   ActionType
	ActorID      uuid.UUID
	ActorEmail   string
	ActorName    string
	TargetID     *uuid.UUID
	TargetEmail  *string
	TargetName   *string
	DocumentName *string
	Message      string
	CreatedAt    time.Time
}

// Clone returns a copy of r that shares no pointers with it.
func (r ActivityRecord) Clone() ActivityRecord {
	r.TargetID = clonePtr(r.TargetID)
	r.TargetEmail = clonePtr(r.TargetEmail)
	r.TargetName = clonePtr(r.TargetName)
	r.DocumentName = clonePtr(r.DocumentName)
	return r
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Cursor returns the keyset position of the record.
func (r ActivityRecord) Cursor() ActivityCursor {
	return ActivityCursor{CreatedAt: r.CreatedAt, Seq: r.Seq}
}

// ActivityCursor is a keyset position in the createdAt-descending ledger order.
// Seq breaks ties between records sharing a timestamp by insertion order.
type ActivityCursor struct {
	CreatedAt time.Time
	Seq       int64
}

// Before reports whether r sorts after the cursor position, i.e. is older.
func (c ActivityCursor) Before(r ActivityRecord) bool {
	if r.CreatedAt.Equal(c.CreatedAt) {
		return r.Seq < c.Seq
	}
	return r.CreatedAt.Before(c.CreatedAt)
}
