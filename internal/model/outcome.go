package model

import (
	"context"
	"errors"
)

// Outcome is the closed set of results every privileged operation reports.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeUnauthorized
	OutcomeNotFound
	OutcomeAlreadyAdmin
	OutcomeSelfModificationForbidden
	OutcomeSelfDeletionForbidden
	OutcomePartialFailure
	OutcomeUpstreamFailure
	OutcomeInvalidInput
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeAlreadyAdmin:
		return "already_admin"
	case OutcomeSelfModificationForbidden:
		return "self_modification_forbidden"
	case OutcomeSelfDeletionForbidden:
		return "self_deletion_forbidden"
	case OutcomePartialFailure:
		return "partial_failure"
	case OutcomeUpstreamFailure:
		return "upstream_failure"
	case OutcomeInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// OutcomeOf maps an error returned by a service operation onto its Outcome.
// Partial and upstream failures are checked first because they wrap their cause,
// which may itself be a domain sentinel such as ErrNotFound.
// Errors outside the taxonomy are reported as upstream failures.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrPartialFailure):
		return OutcomePartialFailure
	case errors.Is(err, ErrUpstreamFailure):
		return OutcomeUpstreamFailure
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		return OutcomeUnauthorized
	case errors.Is(err, ErrSelfModificationForbidden):
		return OutcomeSelfModificationForbidden
	case errors.Is(err, ErrSelfDeletionForbidden):
		return OutcomeSelfDeletionForbidden
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrAlreadyAdmin):
		return OutcomeAlreadyAdmin
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrAlreadyExists):
		return OutcomeInvalidInput
	default:
		return OutcomeUpstreamFailure
	}
}

// IsTimeout reports whether err was caused by an expired deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// IsDomainError reports whether err already carries one of the taxonomy sentinels.
func IsDomainError(err error) bool {
	return OutcomeOf(err) != OutcomeUpstreamFailure || errors.Is(err, ErrUpstreamFailure)
}
