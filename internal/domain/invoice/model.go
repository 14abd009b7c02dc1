package invoice

import (
	"time"

	"github.com/shopspring/decimal"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/types"
)

// Invoice is the billing outcome for one (project, period) pair. It is created
// only by the assembler; line contents are frozen once the invoice leaves
// draft.
type Invoice struct {
	ID            string              `db:"id" json:"id"`
	InvoiceNumber string              `db:"invoice_number" json:"invoice_number"`
	ProjectID     string              `db:"project_id" json:"project_id"`
	CustomerID    string              `db:"customer_id" json:"customer_id"`
	CustomerName  string              `db:"customer_name" json:"customer_name"`
	Currency      string              `db:"currency" json:"currency"`
	PeriodStart   time.Time           `db:"period_start" json:"period_start"`
	PeriodEnd     time.Time           `db:"period_end" json:"period_end"`
	Subtotal      decimal.Decimal     `db:"subtotal" json:"subtotal"`
	TaxRate       decimal.Decimal     `db:"tax_rate" json:"tax_rate"`
	TaxAmount     decimal.Decimal     `db:"tax_amount" json:"tax_amount"`
	Total         decimal.Decimal     `db:"total" json:"total"`
	InvoiceStatus types.InvoiceStatus `db:"invoice_status" json:"invoice_status"`
	DueDate       *time.Time          `db:"due_date" json:"due_date,omitempty"`
	ApprovedAt    *time.Time          `db:"approved_at" json:"approved_at,omitempty"`
	SentAt        *time.Time          `db:"sent_at" json:"sent_at,omitempty"`
	PaidAt        *time.Time          `db:"paid_at" json:"paid_at,omitempty"`
	CancelledAt   *time.Time          `db:"cancelled_at" json:"cancelled_at,omitempty"`
	Version       int                 `db:"version" json:"version"`
	LineItems     []*LineItem         `json:"line_items,omitempty"`
	types.BaseModel
}

// DerivedStatus returns the display status: overdue when the invoice is sent
// and past its due date, otherwise the stored status. Overdue is never stored.
func (i *Invoice) DerivedStatus(now time.Time) types.InvoiceStatus {
	if i.InvoiceStatus == types.InvoiceStatusSent && i.DueDate != nil && now.After(*i.DueDate) {
		return types.InvoiceStatusOverdue
	}
	return i.InvoiceStatus
}

// IsCancelled reports the terminal cancelled state
func (i *Invoice) IsCancelled() bool {
	return i.InvoiceStatus == types.InvoiceStatusCancelled
}

// CoversPeriod reports whether the invoice's period overlaps [start, end]
func (i *Invoice) CoversPeriod(start, end time.Time) bool {
	return !i.PeriodStart.After(end) && !i.PeriodEnd.Before(start)
}

func (i *Invoice) Validate() error {
	if i.ProjectID == "" {
		return ierr.NewError("project_id is required").
			WithHint("Invoices must belong to a project").
			Mark(ierr.ErrValidation)
	}
	if i.PeriodEnd.Before(i.PeriodStart) {
		return ierr.NewError("period_end must not be before period_start").
			WithHint("Please provide a valid billing period").
			Mark(ierr.ErrValidation)
	}
	if err := i.InvoiceStatus.Validate(); err != nil {
		return err
	}
	if i.Subtotal.IsNegative() || i.TaxAmount.IsNegative() || i.Total.IsNegative() {
		return ierr.NewError("invoice amounts must be non negative").
			WithHint("Invoice totals cannot be negative").
			Mark(ierr.ErrValidation)
	}
	if !i.Subtotal.Add(i.TaxAmount).Equal(i.Total) {
		return ierr.NewError("total must equal subtotal plus tax").
			WithHint("Invoice totals are inconsistent").
			Mark(ierr.ErrValidation)
	}

	lineSum := decimal.Zero
	for _, item := range i.LineItems {
		if err := item.Validate(); err != nil {
			return err
		}
		lineSum = lineSum.Add(item.Amount)
	}
	if len(i.LineItems) > 0 && !lineSum.Equal(i.Subtotal) {
		return ierr.NewError("subtotal must equal the sum of line amounts").
			WithHint("Invoice totals are inconsistent").
			Mark(ierr.ErrValidation)
	}
	return nil
}
