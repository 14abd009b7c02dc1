package performance

import (
	"context"

	"github.com/warebill/warebill/internal/types"
)

// Repository defines read-only access to operational records. Deliveries and
// labor entries are produced by collaborating systems; the engine only queries
// them by project and date window.
type Repository interface {
	// List retrieves records matching the filter; the date window is closed
	// on both ends
	List(ctx context.Context, filter *types.PerformanceFilter) ([]*Record, error)

	// Insert stores records; used by imports and tests, never by the engine
	Insert(ctx context.Context, records []*Record) error
}
