package service

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/studyvault-server/internal/logger"
	"github.com/dtroode/studyvault-server/internal/model"
)

const (
	defaultLedgerPageSize = 100
	notifyTimeout         = 5 * time.Second
)

// Ledger is the append-only activity log. It is the only writer of activity records.
type Ledger struct {
	store    model.ActivityStore
	notifier model.ActivityNotifier
	logger   *logger.Logger
	now      func() time.Time
	pageSize int
}

// NewLedger creates a Ledger. notifier may be nil.
func NewLedger(store model.ActivityStore, notifier model.ActivityNotifier, logger *logger.Logger) *Ledger {
	return &Ledger{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		pageSize: defaultLedgerPageSize,
	}
}

// Append durably writes record outside of any caller transaction.
// ID and CreatedAt are assigned only when absent.
func (l *Ledger) Append(ctx context.Context, record model.ActivityRecord) (model.ActivityRecord, error) {
	saved, err := l.appendTo(ctx, l.store, record)
	if err != nil {
		return model.ActivityRecord{}, upstream("append activity record", err)
	}

	l.announce(ctx, saved)

	return saved, nil
}

// appendTo writes record through store, which is usually bound to the caller's transaction.
func (l *Ledger) appendTo(ctx context.Context, store model.ActivityStore, record model.ActivityRecord) (model.ActivityRecord, error) {
	if record.ActionType == "" || record.Message == "" {
		return model.ActivityRecord{}, fmt.Errorf("%w: activity record needs an action type and a message", model.ErrInvalidInput)
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = l.now().UTC()
	}

	saved, err := store.Append(ctx, record)
	if err != nil {
		l.logger.Error("Ledger service: failed to append record",
			"action_type", record.ActionType,
			"actor_id", record.ActorID,
			"error", err.Error())
		return model.ActivityRecord{}, err
	}

	return saved, nil
}

// announce publishes a committed record. Delivery is best effort and never
// affects the outcome of the operation that produced the record.
func (l *Ledger) announce(ctx context.Context, record model.ActivityRecord) {
	if l.notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := l.notifier.Notify(ctx, record); err != nil {
		l.logger.Warn("Ledger service: failed to publish activity notification",
			"record_id", record.ID,
			"error", err.Error())
	}
}

// Page returns up to limit records older than after, newest first, and the
// cursor of the next page. The cursor is nil once the ledger is exhausted.
func (l *Ledger) Page(ctx context.Context, after *model.ActivityCursor, limit int) ([]model.ActivityRecord, *model.ActivityCursor, error) {
	if limit <= 0 || limit > l.pageSize {
		limit = l.pageSize
	}

	records, err := l.store.List(ctx, after, limit)
	if err != nil {
		return nil, nil, upstream("list activity records", err)
	}

	if len(records) < limit {
		return records, nil, nil
	}

	next := records[len(records)-1].Cursor()
	return records, &next, nil
}

// List yields every record, newest first, fetching lazily page by page.
// Each range over the sequence starts again from the newest record.
func (l *Ledger) List(ctx context.Context) iter.Seq2[model.ActivityRecord, error] {
	return func(yield func(model.ActivityRecord, error) bool) {
		var after *model.ActivityCursor
		for {
			records, next, err := l.Page(ctx, after, l.pageSize)
			if err != nil {
				yield(model.ActivityRecord{}, err)
				return
			}
			for _, rec := range records {
				if !yield(rec, nil) {
					return
				}
			}
			if next == nil {
				return
			}
			after = next
		}
	}
}
