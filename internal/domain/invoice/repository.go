package invoice

import (
	"context"
	"time"

	"github.com/warebill/warebill/internal/types"
)

// Repository defines the interface for invoice persistence operations
type Repository interface {
	// CreateWithLineItems persists the invoice and its lines as a single
	// atomic unit; any failure leaves nothing behind
	CreateWithLineItems(ctx context.Context, inv *Invoice) error

	// Get retrieves an invoice with its lines
	Get(ctx context.Context, id string) (*Invoice, error)

	// Update updates invoice header fields; lines are immutable after create
	Update(ctx context.Context, inv *Invoice) error

	// List retrieves invoices based on filter criteria
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)

	// Count returns the total count of invoices based on filter criteria
	Count(ctx context.Context, filter *types.InvoiceFilter) (int, error)

	// ExistsForPeriod reports whether a non-cancelled invoice of the project
	// overlaps [periodStart, periodEnd]
	ExistsForPeriod(ctx context.Context, projectID string, periodStart, periodEnd time.Time) (bool, error)

	// ListBilledRecordIDs returns the IDs of records already attributed to a
	// line of a non-cancelled invoice of the project
	ListBilledRecordIDs(ctx context.Context, projectID string) (map[string]struct{}, error)

	// GetNextInvoiceNumber reserves the next number of the project's
	// monotonic sequence
	GetNextInvoiceNumber(ctx context.Context, projectID string) (string, error)
}
