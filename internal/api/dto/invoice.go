package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warebill/warebill/internal/domain/invoice"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/types"
	"github.com/warebill/warebill/internal/validator"
)

// BillingPeriodRequest names a project and a closed billing window. Both
// bounds are ISO day strings and both days are included.
type BillingPeriodRequest struct {
	ProjectID   string `json:"project_id" binding:"required"`
	PeriodStart string `json:"period_start" binding:"required"`
	PeriodEnd   string `json:"period_end" binding:"required"`
}

func (r *BillingPeriodRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	start, err := time.Parse("2006-01-02", r.PeriodStart)
	if err != nil {
		return ierr.WithError(err).
			WithHint("period_start must be formatted as YYYY-MM-DD").
			Mark(ierr.ErrValidation)
	}
	end, err := time.Parse("2006-01-02", r.PeriodEnd)
	if err != nil {
		return ierr.WithError(err).
			WithHint("period_end must be formatted as YYYY-MM-DD").
			Mark(ierr.ErrValidation)
	}
	if end.Before(start) {
		return ierr.NewError("period_end must not be before period_start").
			WithHint("Please provide a valid billing period").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Period returns the parsed window bounds; Validate must pass first
func (r *BillingPeriodRequest) Period() (time.Time, time.Time) {
	start, _ := time.Parse("2006-01-02", r.PeriodStart)
	end, _ := time.Parse("2006-01-02", r.PeriodEnd)
	return start.UTC(), end.UTC()
}

type PreviewInvoiceRequest = BillingPeriodRequest

// GenerateInvoiceRequest names the billing window either explicitly or as a
// calendar month, plus optional manual line items appended after the computed
// ones.
type GenerateInvoiceRequest struct {
	ProjectID   string `json:"project_id" binding:"required"`
	PeriodMonth string `json:"period_month,omitempty"`
	PeriodStart string `json:"period_start,omitempty"`
	PeriodEnd   string `json:"period_end,omitempty"`

	Items []ManualLineItemRequest `json:"items,omitempty"`
}

// ManualLineItemRequest is a caller-supplied flat line carried onto the
// generated invoice untouched by rule evaluation.
type ManualLineItemRequest struct {
	DisplayName string          `json:"display_name" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func (r *GenerateInvoiceRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if r.PeriodMonth != "" && r.PeriodStart == "" && r.PeriodEnd == "" {
		month, err := time.Parse("2006-01", r.PeriodMonth)
		if err != nil {
			return ierr.WithError(err).
				WithHint("period_month must be formatted as YYYY-MM").
				Mark(ierr.ErrValidation)
		}
		r.PeriodStart = month.Format("2006-01-02")
		r.PeriodEnd = month.AddDate(0, 1, -1).Format("2006-01-02")
	}

	period := BillingPeriodRequest{
		ProjectID:   r.ProjectID,
		PeriodStart: r.PeriodStart,
		PeriodEnd:   r.PeriodEnd,
	}
	if err := period.Validate(); err != nil {
		return err
	}

	for _, item := range r.Items {
		if item.Quantity.IsNegative() || item.UnitPrice.IsNegative() {
			return ierr.NewError("negative manual line item").
				WithHintf("Manual item %q must have non-negative quantity and unit price", item.DisplayName).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// Period returns the parsed window bounds; Validate must pass first
func (r *GenerateInvoiceRequest) Period() (time.Time, time.Time) {
	start, _ := time.Parse("2006-01-02", r.PeriodStart)
	end, _ := time.Parse("2006-01-02", r.PeriodEnd)
	return start.UTC(), end.UTC()
}

// PerformanceSummary counts the record population a preview drew from
type PerformanceSummary struct {
	DeliveryCount int `json:"delivery_count"`
	LaborCount    int `json:"labor_count"`
	RecordCount   int `json:"record_count"`
}

// InvoicePreviewResponse carries computed lines and totals without persisting
// anything; previewing never consumes records
type InvoicePreviewResponse struct {
	ProjectID   string              `json:"project_id"`
	Currency    string              `json:"currency"`
	PeriodStart time.Time           `json:"period_start"`
	PeriodEnd   time.Time           `json:"period_end"`
	Subtotal    decimal.Decimal     `json:"subtotal"`
	TaxRate     decimal.Decimal     `json:"tax_rate"`
	TaxAmount   decimal.Decimal     `json:"tax_amount"`
	Total       decimal.Decimal     `json:"total"`
	LineCount   int                 `json:"line_count"`
	LineItems   []*invoice.LineItem `json:"line_items"`

	ActiveRules        []*BillingRuleResponse `json:"active_rules"`
	PerformanceSummary PerformanceSummary     `json:"performance_summary"`
	Warnings           []string               `json:"warnings,omitempty"`
}

type InvoiceResponse struct {
	*invoice.Invoice
	// DisplayStatus is the derived status: overdue when sent and past due
	DisplayStatus types.InvoiceStatus `json:"display_status"`
}

// NewInvoiceResponse builds a response with the derived display status
func NewInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		Invoice:       inv,
		DisplayStatus: inv.DerivedStatus(time.Now().UTC()),
	}
}

type ListInvoicesResponse = types.ListResponse[*InvoiceResponse]
