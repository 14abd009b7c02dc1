package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/warebill/warebill/internal/domain/invoice"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/types"
)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]

	mu      sync.Mutex
	numbers map[string]int
}

func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
		numbers:       make(map[string]int),
	}
}

func invoiceFilterFn(ctx context.Context, inv *invoice.Invoice, filter interface{}) bool {
	if inv == nil || inv.Status == types.StatusDeleted {
		return false
	}

	f, ok := filter.(*types.InvoiceFilter)
	if !ok || f == nil {
		return true
	}

	if f.ProjectID != "" && inv.ProjectID != f.ProjectID {
		return false
	}
	if f.CustomerID != "" && inv.CustomerID != f.CustomerID {
		return false
	}
	if len(f.InvoiceStatus) > 0 && !lo.Contains(f.InvoiceStatus, inv.InvoiceStatus) {
		return false
	}
	if f.PeriodStart != nil && inv.PeriodEnd.Before(*f.PeriodStart) {
		return false
	}
	if f.PeriodEnd != nil && inv.PeriodStart.After(*f.PeriodEnd) {
		return false
	}
	return true
}

func invoiceSortFn(i, j *invoice.Invoice) bool {
	return i.CreatedAt.After(j.CreatedAt)
}

func (s *InMemoryInvoiceStore) CreateWithLineItems(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").
			Mark(ierr.ErrValidation)
	}

	exists, err := s.ExistsForPeriod(ctx, inv.ProjectID, inv.PeriodStart, inv.PeriodEnd)
	if err != nil {
		return err
	}
	if exists {
		return ierr.NewError("an invoice already covers this period").
			WithHint("Cancel the existing invoice before generating a new one").
			Mark(ierr.ErrDuplicatePeriod)
	}

	sort.Slice(inv.LineItems, func(i, j int) bool {
		return inv.LineItems[i].Sequence < inv.LineItems[j].Sequence
	})
	return s.InMemoryStore.Create(ctx, inv.ID, inv)
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == types.StatusDeleted {
		return nil, ierr.NewError("invoice not found").
			WithHintf("Invoice with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	// copy on read so callers mutate their own view; the version check in
	// Update needs the stored state to stay untouched
	cp := *inv
	return &cp, nil
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").
			Mark(ierr.ErrValidation)
	}

	stored, err := s.InMemoryStore.Get(ctx, inv.ID)
	if err != nil {
		return err
	}
	if stored.Version != inv.Version-1 {
		return ierr.NewError("invoice was modified concurrently").
			WithHint("Please retry the operation").
			Mark(ierr.ErrInvalidOperation)
	}
	return s.InMemoryStore.Update(ctx, inv.ID, inv)
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	return s.InMemoryStore.List(ctx, filter, invoiceFilterFn, invoiceSortFn)
}

func (s *InMemoryInvoiceStore) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, invoiceFilterFn)
}

func (s *InMemoryInvoiceStore) ExistsForPeriod(ctx context.Context, projectID string, periodStart, periodEnd time.Time) (bool, error) {
	invoices, err := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, inv *invoice.Invoice, _ interface{}) bool {
		if inv == nil || inv.Status == types.StatusDeleted || inv.ProjectID != projectID {
			return false
		}
		if inv.IsCancelled() {
			return false
		}
		return inv.CoversPeriod(periodStart, periodEnd)
	}, nil)
	if err != nil {
		return false, err
	}
	return len(invoices) > 0, nil
}

func (s *InMemoryInvoiceStore) ListBilledRecordIDs(ctx context.Context, projectID string) (map[string]struct{}, error) {
	invoices, err := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, inv *invoice.Invoice, _ interface{}) bool {
		return inv != nil && inv.Status != types.StatusDeleted &&
			inv.ProjectID == projectID && !inv.IsCancelled()
	}, nil)
	if err != nil {
		return nil, err
	}

	billed := make(map[string]struct{})
	for _, inv := range invoices {
		for _, line := range inv.LineItems {
			for _, id := range line.SourceRecordIDs {
				billed[id] = struct{}{}
			}
		}
	}
	return billed, nil
}

func (s *InMemoryInvoiceStore) GetNextInvoiceNumber(ctx context.Context, projectID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.numbers[projectID]++
	return fmt.Sprintf("INV-%05d", s.numbers[projectID]), nil
}

// Clear resets invoices and number sequences
func (s *InMemoryInvoiceStore) Clear() {
	s.InMemoryStore.Clear()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.numbers = make(map[string]int)
}
