package masterrule

import (
	"context"
)

// Repository defines the interface for master billing rule persistence
// operations
type Repository interface {
	// Create persists a new master rule; activating it deactivates any other
	// active instance of the project
	Create(ctx context.Context, rule *MasterBillingRule) error

	// Get retrieves a master rule by ID
	Get(ctx context.Context, id string) (*MasterBillingRule, error)

	// GetActiveByProject retrieves the project's single active master rule
	GetActiveByProject(ctx context.Context, projectID string) (*MasterBillingRule, error)

	// Update updates an existing master rule, preserving the single-active
	// invariant
	Update(ctx context.Context, rule *MasterBillingRule) error

	// Delete soft-deletes a master rule
	Delete(ctx context.Context, id string) error

	// ListByProject retrieves all master rules of a project
	ListByProject(ctx context.Context, projectID string) ([]*MasterBillingRule, error)
}
