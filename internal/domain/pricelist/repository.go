package pricelist

import (
	"context"
)

// Repository defines the interface for price list persistence operations
type Repository interface {
	// Create persists a new entry
	Create(ctx context.Context, entry *Entry) error

	// GetByCode retrieves the entry keyed by (project, code)
	GetByCode(ctx context.Context, projectID, code string) (*Entry, error)

	// ListByProject retrieves all entries of a project
	ListByProject(ctx context.Context, projectID string) ([]*Entry, error)
}
