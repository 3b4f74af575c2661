package model

import "context"

// Tx exposes the stores bound to a single transaction.
type Tx interface {
	Profiles() ProfileStore
	Documents() DocumentStore
	Activity() ActivityStore
	Credentials() CredentialStore
}

// Transactor runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise. A failed commit wraps ErrCommitFailed.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
