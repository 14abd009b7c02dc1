package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warebill/warebill/internal/api/dto"
	"github.com/warebill/warebill/internal/domain/invoice"
	"github.com/warebill/warebill/internal/domain/project"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/types"
)

type InvoiceService interface {
	// PreviewInvoice computes the window's lines and totals without writing
	// anything; previewing never consumes records and repeats identically
	PreviewInvoice(ctx context.Context, req dto.PreviewInvoiceRequest) (*dto.InvoicePreviewResponse, error)

	// GenerateInvoice computes and persists a draft invoice for the window.
	// At most one non-cancelled invoice may cover a project period.
	GenerateInvoice(ctx context.Context, req dto.GenerateInvoiceRequest) (*dto.InvoiceResponse, error)

	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error)

	ApproveInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	MarkInvoiceSent(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	MarkInvoicePaid(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	CancelInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
}

type invoiceService struct {
	ServiceParams
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{
		ServiceParams: params,
	}
}

func (s *invoiceService) PreviewInvoice(ctx context.Context, req dto.PreviewInvoiceRequest) (*dto.InvoicePreviewResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	periodStart, periodEnd := req.Period()

	proj, err := s.ProjectRepo.Get(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	billingService := NewBillingService(s.ServiceParams)
	comp, err := billingService.PreviewLines(ctx, proj, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	subtotal, taxRate, taxAmount, total := s.computeTotals(proj, comp.Lines)

	activeRules := make([]*dto.BillingRuleResponse, 0, len(comp.Rules))
	for _, rule := range comp.Rules {
		activeRules = append(activeRules, &dto.BillingRuleResponse{BillingRule: rule})
	}

	return &dto.InvoicePreviewResponse{
		ProjectID:   proj.ID,
		Currency:    proj.Currency,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Subtotal:    subtotal,
		TaxRate:     taxRate,
		TaxAmount:   taxAmount,
		Total:       total,
		LineCount:   len(comp.Lines),
		LineItems:   comp.Lines,
		ActiveRules: activeRules,
		PerformanceSummary: dto.PerformanceSummary{
			DeliveryCount: comp.DeliveryCount,
			LaborCount:    comp.LaborCount,
			RecordCount:   comp.DeliveryCount + comp.LaborCount,
		},
		Warnings: comp.Warnings,
	}, nil
}

func (s *invoiceService) GenerateInvoice(ctx context.Context, req dto.GenerateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	periodStart, periodEnd := req.Period()

	proj, err := s.ProjectRepo.Get(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	// serializes concurrent generation attempts on the same window; losers
	// fail fast instead of racing the duplicate check
	release, err := s.Locks.Acquire(proj.ID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	defer release()

	exists, err := s.InvoiceRepo.ExistsForPeriod(ctx, proj.ID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ierr.NewError("invoice already exists for period").
			WithHintf("Project %s already has a non-cancelled invoice overlapping this period", proj.ID).
			Mark(ierr.ErrDuplicatePeriod)
	}

	billingService := NewBillingService(s.ServiceParams)
	lines, err := billingService.ComputeLines(ctx, proj, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	lines = appendManualLines(lines, req.Items, proj.CurrencyPrecision())

	subtotal, taxRate, taxAmount, total := s.computeTotals(proj, lines)
	dueDate := periodEnd.AddDate(0, 0, s.Config.Billing.DueDays)

	inv := &invoice.Invoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		ProjectID:     proj.ID,
		CustomerID:    proj.CustomerID,
		CustomerName:  proj.CustomerName,
		Currency:      proj.Currency,
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		Subtotal:      subtotal,
		TaxRate:       taxRate,
		TaxAmount:     taxAmount,
		Total:         total,
		InvoiceStatus: types.InvoiceStatusDraft,
		DueDate:       &dueDate,
		Version:       1,
		LineItems:     lines,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	// computed lines carry no identity until they are persisted
	for _, line := range lines {
		line.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM)
		line.InvoiceID = inv.ID
		line.BaseModel = types.GetDefaultBaseModel(ctx)
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		// the period may have been billed between the lock-free check and
		// the transaction; re-check inside it
		exists, err := s.InvoiceRepo.ExistsForPeriod(ctx, proj.ID, periodStart, periodEnd)
		if err != nil {
			return err
		}
		if exists {
			return ierr.NewError("invoice already exists for period").
				WithHintf("Project %s already has a non-cancelled invoice overlapping this period", proj.ID).
				Mark(ierr.ErrDuplicatePeriod)
		}

		number, err := s.InvoiceRepo.GetNextInvoiceNumber(ctx, proj.ID)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number

		return s.InvoiceRepo.CreateWithLineItems(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("generated invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"project_id", proj.ID,
		"lines", len(inv.LineItems),
		"total", inv.Total)

	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	total, err := s.InvoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		items = append(items, dto.NewInvoiceResponse(inv))
	}

	return &dto.ListInvoicesResponse{
		Items:      items,
		Pagination: types.NewPaginationResponse(total, filter.GetLimit(), filter.GetOffset()),
	}, nil
}

func (s *invoiceService) ApproveInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	return s.transition(ctx, id, types.InvoiceStatusApproved, func(inv *invoice.Invoice, now time.Time) {
		inv.ApprovedAt = &now
	})
}

func (s *invoiceService) MarkInvoiceSent(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	return s.transition(ctx, id, types.InvoiceStatusSent, func(inv *invoice.Invoice, now time.Time) {
		inv.SentAt = &now
	})
}

func (s *invoiceService) MarkInvoicePaid(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	return s.transition(ctx, id, types.InvoiceStatusPaid, func(inv *invoice.Invoice, now time.Time) {
		inv.PaidAt = &now
	})
}

// CancelInvoice cancels a pre-paid invoice. Cancelling releases the invoice's
// records for future billing, since only non-cancelled invoices hold claims.
func (s *invoiceService) CancelInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	return s.transition(ctx, id, types.InvoiceStatusCancelled, func(inv *invoice.Invoice, now time.Time) {
		inv.CancelledAt = &now
	})
}

func (s *invoiceService) transition(ctx context.Context, id string, to types.InvoiceStatus, apply func(*invoice.Invoice, time.Time)) (*dto.InvoiceResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !inv.InvoiceStatus.CanTransitionTo(to) {
		return nil, ierr.NewError("invalid invoice status transition").
			WithHintf("Invoice %s cannot move from %s to %s", inv.InvoiceNumber, inv.InvoiceStatus, to).
			WithReportableDetails(map[string]any{
				"from": inv.InvoiceStatus,
				"to":   to,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	now := time.Now().UTC()
	inv.InvoiceStatus = to
	inv.Version++
	apply(inv, now)

	inv.Touch(ctx)
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.Logger.Infow("invoice status changed",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"status", to)

	return dto.NewInvoiceResponse(inv), nil
}

// appendManualLines attaches caller-supplied flat lines after the computed
// ones. Manual lines carry no rule and no record claims.
func appendManualLines(lines []*invoice.LineItem, items []dto.ManualLineItemRequest, precision int32) []*invoice.LineItem {
	for _, item := range items {
		qty := item.Quantity
		if qty.IsZero() {
			qty = decimal.NewFromInt(1)
		}
		lines = append(lines, &invoice.LineItem{
			RuleType:    types.RuleTypeFixed,
			DisplayName: item.DisplayName,
			Quantity:    qty,
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice,
			Amount:      qty.Mul(item.UnitPrice).Round(precision),
		})
	}
	for i, line := range lines {
		line.Sequence = i + 1
	}
	return lines
}

// computeTotals sums line amounts and applies tax, rounding only at the final
// amounts. A project without a configured tax rate falls back to the
// deployment default.
func (s *invoiceService) computeTotals(proj *project.Project, lines []*invoice.LineItem) (subtotal, taxRate, taxAmount, total decimal.Decimal) {
	subtotal = decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Amount)
	}

	taxRate = proj.TaxRate
	if taxRate.IsZero() {
		taxRate = s.Config.GetDefaultTaxRate()
	}

	precision := proj.CurrencyPrecision()
	taxAmount = subtotal.Mul(taxRate).Round(precision)
	total = subtotal.Add(taxAmount)
	return subtotal, taxRate, taxAmount, total
}
