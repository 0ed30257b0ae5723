package caserec

import (
	"context"
	"errors"
)

// ErrNotFound is returned for lookups of records or users that do not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned when registering an email that already has an
// account.
var ErrEmailTaken = errors.New("email already registered")

// Store is the persistence boundary. Update replaces the record's mutable
// columns (status, data, timestamps) in a single write, so a storage backend
// with atomic row replace keeps each persisted update all-or-nothing.
type Store interface {
	Insert(ctx context.Context, rec *CaseRecord) error
	Update(ctx context.Context, rec *CaseRecord) error

	// FindDraft returns the owner's DRAFT record for a form type, or
	// (nil, nil) when none exists. At most one can exist per (owner, type).
	FindDraft(ctx context.Context, ownerID, formType string) (*CaseRecord, error)

	Get(ctx context.Context, ownerID, id string) (*CaseRecord, error)
	ListByOwner(ctx context.Context, ownerID string) ([]CaseRecord, error)

	CreateUser(ctx context.Context, u *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}
