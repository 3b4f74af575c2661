package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/studyvault-server/internal/logger"
	"github.com/dtroode/studyvault-server/internal/model"
)

// Access is the access control engine. Every operation checks, in order,
// the actor's role, the self-guard, the target's existence and idempotence.
// The check, the write and the ledger append share one transaction that holds
// a lock on the target row, so racing callers observe each other's result.
type Access struct {
	tx       model.Transactor
	ledger   *Ledger
	identity model.IdentityProvider
	logger   *logger.Logger
	opts     Options
}

func NewAccess(
	tx model.Transactor,
	ledger *Ledger,
	identity model.IdentityProvider,
	logger *logger.Logger,
	opts Options,
) *Access {
	return &Access{
		tx:       tx,
		ledger:   ledger,
		identity: identity,
		logger:   logger,
		opts:     opts,
	}
}

// Promote grants the administrator role to the profile registered under targetEmail.
// Promotion never creates an account.
func (a *Access) Promote(ctx context.Context, actor model.Profile, targetEmail string) error {
	if !actor.IsAdmin {
		return model.ErrUnauthorized
	}

	ctx, cancel := a.opts.withTimeout(ctx)
	defer cancel()

	var record model.ActivityRecord
	err := a.tx.WithinTx(ctx, func(ctx context.Context, tx model.Tx) error {
		target, err := tx.Profiles().GetByEmailForUpdate(ctx, targetEmail)
		if err != nil {
			return err
		}
		record, err = a.grant(ctx, tx, actor, target)
		return err
	})
	if err != nil {
		return a.fail("promote", actor, uuid.Nil, err)
	}

	a.ledger.announce(ctx, record)
	a.logger.Info("Access service: administrator promoted",
		"actor_id", actor.ID,
		"target_id", record.TargetID)

	return nil
}

// Demote revokes the administrator role. Demoting a regular user is a no-op.
func (a *Access) Demote(ctx context.Context, actor model.Profile, targetID uuid.UUID) error {
	return a.setAdmin(ctx, "demote", actor, targetID, false)
}

// SetAdminStatus grants or revokes the administrator role of targetID.
func (a *Access) SetAdminStatus(ctx context.Context, actor model.Profile, targetID uuid.UUID, desired bool) error {
	return a.setAdmin(ctx, "set admin status", actor, targetID, desired)
}

func (a *Access) setAdmin(ctx context.Context, op string, actor model.Profile, targetID uuid.UUID, desired bool) error {
	if !actor.IsAdmin {
		return model.ErrUnauthorized
	}
	if actor.ID == targetID {
		return model.ErrSelfModificationForbidden
	}

	ctx, cancel := a.opts.withTimeout(ctx)
	defer cancel()

	var record *model.ActivityRecord
	err := a.tx.WithinTx(ctx, func(ctx context.Context, tx model.Tx) error {
		target, err := tx.Profiles().GetByIDForUpdate(ctx, targetID)
		if err != nil {
			return err
		}

		if desired {
			rec, err := a.grant(ctx, tx, actor, target)
			if err != nil {
				return err
			}
			record = &rec
			return nil
		}

		if !target.IsAdmin {
			return nil
		}
		if err := tx.Profiles().SetAdmin(ctx, target.ID, false); err != nil {
			return err
		}
		if !a.opts.SymmetricAudit {
			return nil
		}
		rec, err := a.ledger.appendTo(ctx, tx.Activity(), targetRecord(model.ActionAdminDemoted, actor, target,
			fmt.Sprintf("%s - %s was demoted from admin by %s - %s", target.Name, target.Email, actor.Name, actor.Email)))
		if err != nil {
			return fmt.Errorf("failed to append demotion record: %w: %w", model.ErrUpstreamFailure, err)
		}
		record = &rec
		return nil
	})
	if err != nil {
		return a.fail(op, actor, targetID, err)
	}

	if record != nil {
		a.ledger.announce(ctx, *record)
	}
	a.logger.Info("Access service: administrator status set",
		"actor_id", actor.ID,
		"target_id", targetID,
		"is_admin", desired)

	return nil
}

// grant flips target to administrator and appends the promotion record in tx.
func (a *Access) grant(ctx context.Context, tx model.Tx, actor, target model.Profile) (model.ActivityRecord, error) {
	if target.IsAdmin {
		return model.ActivityRecord{}, model.ErrAlreadyAdmin
	}
	if err := tx.Profiles().SetAdmin(ctx, target.ID, true); err != nil {
		return model.ActivityRecord{}, err
	}

	record, err := a.ledger.appendTo(ctx, tx.Activity(), targetRecord(model.ActionAdminPromoted, actor, target,
		fmt.Sprintf("%s - %s was promoted as admin by %s - %s", target.Name, target.Email, actor.Name, actor.Email)))
	if err != nil {
		return model.ActivityRecord{}, fmt.Errorf("failed to append promotion record: %w: %w", model.ErrUpstreamFailure, err)
	}

	return record, nil
}

// DeleteAccount revokes the target's credential with the identity provider and
// removes the profile. Once the credential is revoked the rest of the operation
// ignores cancellation, and any failure is reported as a partial failure.
func (a *Access) DeleteAccount(ctx context.Context, actor model.Profile, targetID uuid.UUID) error {
	if !actor.IsAdmin {
		return model.ErrUnauthorized
	}
	if actor.ID == targetID {
		return model.ErrSelfDeletionForbidden
	}

	ctx, cancel := a.opts.withTimeout(ctx)
	defer cancel()

	var (
		revoked bool
		record  *model.ActivityRecord
	)
	err := a.tx.WithinTx(ctx, func(ctx context.Context, tx model.Tx) error {
		target, err := tx.Profiles().GetByIDForUpdate(ctx, targetID)
		if err != nil {
			return err
		}

		if err := a.identity.RevokeCredential(ctx, target.ID); err != nil {
			return fmt.Errorf("failed to revoke credential: %w: %w", model.ErrUpstreamFailure, err)
		}
		revoked = true
		ctx = context.WithoutCancel(ctx)

		if err := tx.Profiles().Delete(ctx, target.ID); err != nil {
			return fmt.Errorf("failed to delete profile: %w", err)
		}
		if !a.opts.SymmetricAudit {
			return nil
		}
		rec, err := a.ledger.appendTo(ctx, tx.Activity(), targetRecord(model.ActionAccountDeleted, actor, target,
			fmt.Sprintf("%s - %s account was deleted by %s - %s", target.Name, target.Email, actor.Name, actor.Email)))
		if err != nil {
			return fmt.Errorf("failed to append deletion record: %w: %w", model.ErrUpstreamFailure, err)
		}
		record = &rec
		return nil
	})
	if err != nil && revoked {
		a.logger.Error("Access service: credential revoked but profile deletion failed",
			"actor_id", actor.ID,
			"target_id", targetID,
			"error", err.Error())
		return fmt.Errorf("delete account %s: %w: %w", targetID, model.ErrPartialFailure, err)
	}
	if err != nil {
		return a.fail("delete account", actor, targetID, err)
	}

	if record != nil {
		a.ledger.announce(ctx, *record)
	}
	a.logger.Info("Access service: account deleted",
		"actor_id", actor.ID,
		"target_id", targetID)

	return nil
}

// Bootstrap grants the administrator role to email when no administrator
// exists yet. The ledger attributes the promotion to the system actor.
func (a *Access) Bootstrap(ctx context.Context, email string) (model.Profile, error) {
	ctx, cancel := a.opts.withTimeout(ctx)
	defer cancel()

	var (
		target model.Profile
		record model.ActivityRecord
	)
	err := a.tx.WithinTx(ctx, func(ctx context.Context, tx model.Tx) error {
		admins, err := tx.Profiles().ListAdmins(ctx)
		if err != nil {
			return err
		}
		if len(admins) > 0 {
			return fmt.Errorf("%w: an administrator already exists", model.ErrUnauthorized)
		}

		target, err = tx.Profiles().GetByEmailForUpdate(ctx, email)
		if err != nil {
			return err
		}
		record, err = a.grant(ctx, tx, systemActor(), target)
		return err
	})
	if err != nil {
		return model.Profile{}, a.fail("bootstrap administrator", systemActor(), target.ID, err)
	}

	a.ledger.announce(ctx, record)
	target.IsAdmin = true

	return target, nil
}

func (a *Access) fail(op string, actor model.Profile, targetID uuid.UUID, err error) error {
	if errors.Is(err, model.ErrCommitFailed) {
		a.logger.Error("Access service: commit failed, nothing was applied",
			"op", op,
			"actor_id", actor.ID,
			"target_id", targetID,
			"error", err.Error())
	} else if !model.IsDomainError(err) {
		a.logger.Error("Access service: operation failed",
			"op", op,
			"actor_id", actor.ID,
			"target_id", targetID,
			"error", err.Error())
	}
	return upstream(op, err)
}

func systemActor() model.Profile {
	return model.Profile{Email: model.SystemActorEmail, Name: model.SystemActorEmail, IsAdmin: true}
}

func targetRecord(action model.ActionType, actor, target model.Profile, message string) model.ActivityRecord {
	return model.ActivityRecord{
		ActionType:  action,
		ActorID:     actor.ID,
		ActorEmail:  actor.Email,
		ActorName:   actor.Name,
		TargetID:    ptr(target.ID),
		TargetEmail: ptr(target.Email),
		TargetName:  ptr(target.Name),
		Message:     message,
	}
}
