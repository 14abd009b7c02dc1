package billingrule

import (
	"context"
	"time"

	"github.com/warebill/warebill/internal/types"
)

// Repository defines the interface for billing rule persistence operations
type Repository interface {
	// Create persists a new rule and assigns its immutable creation sequence
	Create(ctx context.Context, rule *BillingRule) error

	// Get retrieves a rule by ID
	Get(ctx context.Context, id string) (*BillingRule, error)

	// Update updates an existing rule; the sequence never changes
	Update(ctx context.Context, rule *BillingRule) error

	// Delete soft-deletes a rule
	Delete(ctx context.Context, id string) error

	// List retrieves rules based on filter criteria
	List(ctx context.Context, filter *types.BillingRuleFilter) ([]*BillingRule, error)

	// Count returns the total count of rules based on filter criteria
	Count(ctx context.Context, filter *types.BillingRuleFilter) (int, error)

	// ListEffective returns the project's active rules whose effective window
	// contains asOf, ordered by priority descending then sequence ascending
	ListEffective(ctx context.Context, projectID string, asOf time.Time) ([]*BillingRule, error)
}
