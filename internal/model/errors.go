package model

import "errors"

var (
	// ErrNotFound is returned when a referenced profile, document or token does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned on a unique key collision.
	ErrAlreadyExists = errors.New("already exists")

	ErrUnauthorized              = errors.New("actor is not an administrator")
	ErrAlreadyAdmin              = errors.New("target is already an administrator")
	ErrSelfModificationForbidden = errors.New("administrators cannot change their own role")
	ErrSelfDeletionForbidden     = errors.New("administrators cannot delete their own account")
	ErrInvalidInput              = errors.New("invalid input")

	// ErrPartialFailure marks a mutation that was committed while a dependent step was not.
	ErrPartialFailure = errors.New("partial failure")
	// ErrUpstreamFailure marks a failed or timed out call to the store, blob store or identity provider.
	ErrUpstreamFailure = errors.New("upstream failure")
	// ErrCommitFailed is returned by Transactor implementations when the final commit fails.
	ErrCommitFailed = errors.New("transaction commit failed")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenRevoked       = errors.New("refresh token revoked")
	ErrTokenExpired       = errors.New("refresh token expired")
	ErrTokenMismatch      = errors.New("refresh token mismatch")
)
