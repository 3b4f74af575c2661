package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dtroode/studyvault-server/internal/model"
)

// DefaultTimeout bounds a single operation when Options.Timeout is unset.
const DefaultTimeout = 5 * time.Second

// Options tune the access control engine and the document registry.
type Options struct {
	// Timeout bounds every store, blob store and identity provider call of one operation.
	Timeout time.Duration
	// SymmetricAudit also records demotions, account deletions and document deletions.
	SymmetricAudit bool
}

func (o Options) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// upstream leaves domain errors untouched and marks everything else as an upstream failure.
func upstream(op string, err error) error {
	if model.IsDomainError(err) {
		return err
	}
	return fmt.Errorf("failed to %s: %w: %w", op, model.ErrUpstreamFailure, err)
}

func ptr[T any](v T) *T {
	return &v
}
