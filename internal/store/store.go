package store

import (
	"context"

	"github.com/nhle/mail-triage/internal/model"
)

// Store defines the durable client-side state the pipeline survives a
// restart with: the authentication credential (with expiry), the email
// collection in fetch order, and the mailbox continuation token.
//
// Four logical state keys back the credential and paging state; the
// collection is updated independently on every fetch/classify/
// summarize mutation. Logout clears everything in one step.
type Store interface {
	// SaveCredential persists the access token, its absolute expiry,
	// and the authenticated flag together.
	SaveCredential(ctx context.Context, cred model.Credential) error

	// LoadCredential returns the persisted credential, or nil when
	// none is stored. Expiry gating is the caller's concern: the
	// stored expiry is returned as-is.
	LoadCredential(ctx context.Context) (*model.Credential, error)

	// ClearCredential removes the token, expiry, and flag.
	ClearCredential(ctx context.Context) error

	// ReplaceEmails overwrites the whole persisted collection,
	// preserving slice order as fetch order.
	ReplaceEmails(ctx context.Context, emails []model.Email) error

	// UpdateEmail rewrites the durable fields of one record in place,
	// keeping its position in the collection.
	UpdateEmail(ctx context.Context, email model.Email) error

	// LoadEmails returns the persisted collection in fetch order.
	LoadEmails(ctx context.Context) ([]model.Email, error)

	// SaveNextPageToken persists the mailbox continuation token
	// (empty string means "no further pages").
	SaveNextPageToken(ctx context.Context, token string) error

	// LoadNextPageToken returns the persisted continuation token.
	LoadNextPageToken(ctx context.Context) (string, error)

	// Clear removes all state keys and the collection in one
	// transaction. Used on logout.
	Clear(ctx context.Context) error

	Close() error
}
