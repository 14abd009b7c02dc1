package types

import (
	"time"

	"github.com/samber/lo"
	ierr "github.com/warebill/warebill/internal/errors"
)

// InvoiceStatus represents the current state of an invoice in its lifecycle.
// Allowed transitions:
//
//	draft -> approved -> sent -> paid
//	draft|approved|sent -> cancelled (terminal)
//
// "overdue" is a derived display state (sent and past due date) and is never
// stored; see invoice.DerivedStatus.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusApproved  InvoiceStatus = "approved"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"

	// InvoiceStatusOverdue is derived-only, never persisted
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) Validate() error {
	allowed := []InvoiceStatus{
		InvoiceStatusDraft,
		InvoiceStatusApproved,
		InvoiceStatusSent,
		InvoiceStatusPaid,
		InvoiceStatusCancelled,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid invoice status").
			WithHint("Please provide a valid invoice status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// invoiceStatusTransitions defines the stored-state machine. Cancelled is
// reachable from every pre-paid state and is terminal.
var invoiceStatusTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:     {InvoiceStatusApproved, InvoiceStatusCancelled},
	InvoiceStatusApproved:  {InvoiceStatusSent, InvoiceStatusCancelled},
	InvoiceStatusSent:      {InvoiceStatusPaid, InvoiceStatusCancelled},
	InvoiceStatusPaid:      {},
	InvoiceStatusCancelled: {},
}

// CanTransitionTo reports whether the stored-state machine allows s -> to
func (s InvoiceStatus) CanTransitionTo(to InvoiceStatus) bool {
	return lo.Contains(invoiceStatusTransitions[s], to)
}

// InvoiceFilter narrows invoice listings
type InvoiceFilter struct {
	*QueryFilter
	ProjectID     string          `json:"project_id,omitempty" form:"project_id"`
	CustomerID    string          `json:"customer_id,omitempty" form:"customer_id"`
	InvoiceStatus []InvoiceStatus `json:"invoice_status,omitempty" form:"invoice_status"`
	PeriodStart   *time.Time      `json:"period_start,omitempty" form:"period_start" time_format:"2006-01-02"`
	PeriodEnd     *time.Time      `json:"period_end,omitempty" form:"period_end" time_format:"2006-01-02"`
}

// NewInvoiceFilter creates a filter with default pagination
func NewInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

// NewNoLimitInvoiceFilter creates a filter without pagination limits
func NewNoLimitInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *InvoiceFilter) Validate() error {
	if f.QueryFilter != nil {
		if err := f.QueryFilter.Validate(); err != nil {
			return err
		}
	}
	for _, s := range f.InvoiceStatus {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	if f.PeriodStart != nil && f.PeriodEnd != nil && f.PeriodEnd.Before(*f.PeriodStart) {
		return ierr.NewError("period_end must not be before period_start").
			WithHint("Please provide a valid billing period").
			Mark(ierr.ErrValidation)
	}
	return nil
}
