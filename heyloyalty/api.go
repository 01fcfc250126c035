package heyloyalty

import (
	"context"
)

// API defines the Heyloyalty operations used by the rest of the application
type API interface {
	// ListAll returns every list on the account
	ListAll(ctx context.Context, forceRefresh bool) ([]List, error)

	// ListByID returns a single list, or nil if it does not exist
	ListByID(ctx context.Context, id int) (*List, error)

	// ListNames returns list names indexed by list ID
	ListNames(ctx context.Context) (map[int]string, error)

	// FindMember looks up a member on a list by email, nil if not found
	FindMember(ctx context.Context, listID int, email string) (*Member, error)

	// UpsertMember creates the member if missing, otherwise patches its fields
	UpsertMember(ctx context.Context, email, displayName string, listID int, fields Fields) (*UpsertResult, error)
}

var _ API = (*Client)(nil)
