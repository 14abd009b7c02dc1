package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/warebill/warebill/internal/api/dto"
	"github.com/warebill/warebill/internal/domain/billingrule"
	"github.com/warebill/warebill/internal/domain/performance"
	"github.com/warebill/warebill/internal/domain/project"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/testutil"
	"github.com/warebill/warebill/internal/types"
)

type InvoiceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service InvoiceService

	proj *project.Project
	req  dto.GenerateInvoiceRequest
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewInvoiceService(s.serviceParams())

	s.proj = &project.Project{
		ID:           "proj_test",
		Code:         "PRJ-TEST",
		Name:         "Nagoya DC",
		CustomerID:   "cust_1",
		CustomerName: "Aichi Parts",
		Currency:     "jpy",
		TaxRate:      decimal.NewFromFloat(0.10),
		BaseModel:    types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().ProjectRepo.Create(s.GetContext(), s.proj))

	rule := &billingrule.BillingRule{
		ID:            "rule_ea",
		ProjectID:     s.proj.ID,
		Name:          "Piece handling",
		RuleType:      types.RuleTypeEA,
		PriceSource:   types.PriceSourceFixedPrice,
		GroupingKey:   types.GroupingKeyPartNo,
		Priority:      1,
		IsActive:      true,
		ConfigPayload: json.RawMessage(`{"unit_price": "16.5"}`),
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().BillingRuleRepo.Create(s.GetContext(), rule))

	s.Require().NoError(s.GetStores().PerformanceRepo.Insert(s.GetContext(), []*performance.Record{
		{
			ID:        "delv_1",
			Kind:      types.PerformanceKindDelivery,
			Number:    "DN-1",
			Date:      time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
			PartNo:    "A-100",
			Quantity:  decimal.NewFromInt(3),
			Unit:      "EA",
			ProjectID: s.proj.ID,
		},
		{
			ID:        "delv_2",
			Kind:      types.PerformanceKindDelivery,
			Number:    "DN-2",
			Date:      time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
			PartNo:    "B-200",
			Quantity:  decimal.NewFromInt(2),
			Unit:      "EA",
			ProjectID: s.proj.ID,
		},
	}))

	s.req = dto.GenerateInvoiceRequest{
		ProjectID:   s.proj.ID,
		PeriodStart: "2025-01-01",
		PeriodEnd:   "2025-01-31",
	}
}

func (s *InvoiceServiceSuite) previewReq() dto.PreviewInvoiceRequest {
	return dto.PreviewInvoiceRequest{
		ProjectID:   s.req.ProjectID,
		PeriodStart: s.req.PeriodStart,
		PeriodEnd:   s.req.PeriodEnd,
	}
}

func (s *InvoiceServiceSuite) serviceParams() ServiceParams {
	return ServiceParams{
		Logger:          s.GetLogger(),
		Config:          s.GetConfig(),
		DB:              s.GetDB(),
		Cache:           s.GetCache(),
		Locks:           s.GetLocks(),
		ProjectRepo:     s.GetStores().ProjectRepo,
		BillingRuleRepo: s.GetStores().BillingRuleRepo,
		MasterRuleRepo:  s.GetStores().MasterRuleRepo,
		PerformanceRepo: s.GetStores().PerformanceRepo,
		PriceListRepo:   s.GetStores().PriceListRepo,
		InvoiceRepo:     s.GetStores().InvoiceRepo,
	}
}

func (s *InvoiceServiceSuite) TestPreviewComputesTotalsWithoutPersisting() {
	preview, err := s.service.PreviewInvoice(s.GetContext(), s.previewReq())
	s.Require().NoError(err)
	s.Require().Len(preview.LineItems, 2)

	// jpy lines round to whole units: 3 * 16.5 = 49.5 -> 50, 2 * 16.5 = 33
	s.Equal("50", preview.LineItems[0].Amount.String())
	s.Equal("33", preview.LineItems[1].Amount.String())
	s.Equal("83", preview.Subtotal.String())
	s.Equal("8", preview.TaxAmount.String())
	s.Equal("91", preview.Total.String())

	count, err := s.GetStores().InvoiceRepo.Count(s.GetContext(), types.NewInvoiceFilter())
	s.Require().NoError(err)
	s.Zero(count)

	// previewing claims nothing, so it repeats identically
	again, err := s.service.PreviewInvoice(s.GetContext(), s.previewReq())
	s.Require().NoError(err)
	s.Equal(preview.Subtotal.String(), again.Subtotal.String())
	s.Equal(len(preview.LineItems), len(again.LineItems))

	s.Equal(2, preview.LineCount)
	s.Require().Len(preview.ActiveRules, 1)
	s.Equal("rule_ea", preview.ActiveRules[0].ID)
	s.Equal(2, preview.PerformanceSummary.DeliveryCount)
	s.Equal(0, preview.PerformanceSummary.LaborCount)
	s.Equal(2, preview.PerformanceSummary.RecordCount)
	s.Empty(preview.Warnings)
}

func (s *InvoiceServiceSuite) TestPreviewWithoutRulesWarnsInsteadOfFailing() {
	s.Require().NoError(s.GetStores().BillingRuleRepo.Delete(s.GetContext(), "rule_ea"))

	preview, err := s.service.PreviewInvoice(s.GetContext(), s.previewReq())
	s.Require().NoError(err)
	s.Empty(preview.LineItems)
	s.Equal("0", preview.Subtotal.String())
	s.Require().Len(preview.Warnings, 1)
	s.Contains(preview.Warnings[0], "no active billing rule")

	// generation stays strict
	_, err = s.service.GenerateInvoice(s.GetContext(), s.req)
	s.True(ierr.IsNoApplicableRule(err))
}

func (s *InvoiceServiceSuite) TestPreviewFlagsUnresolvablePrices() {
	rule := &billingrule.BillingRule{
		ID:            "rule_pl",
		ProjectID:     s.proj.ID,
		Name:          "Listed handling",
		RuleType:      types.RuleTypeEA,
		PriceSource:   types.PriceSourcePriceList,
		GroupingKey:   types.GroupingKeyNone,
		Priority:      5,
		IsActive:      true,
		ConfigPayload: json.RawMessage(`{"price_list_code": "missing"}`),
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().BillingRuleRepo.Create(s.GetContext(), rule))

	preview, err := s.service.PreviewInvoice(s.GetContext(), s.previewReq())
	s.Require().NoError(err)

	// the higher-priority price-list rule claims both deliveries
	s.Require().Len(preview.LineItems, 1)
	s.True(preview.LineItems[0].PriceMissing)
	s.Equal("0", preview.LineItems[0].Amount.String())
	s.Require().Len(preview.Warnings, 1)
	s.Contains(preview.Warnings[0], "Listed handling")

	// the same condition aborts generation entirely
	_, err = s.service.GenerateInvoice(s.GetContext(), s.req)
	s.True(ierr.IsPriceNotFound(err))
	count, err := s.GetStores().InvoiceRepo.Count(s.GetContext(), types.NewInvoiceFilter())
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *InvoiceServiceSuite) TestGenerateFromPeriodMonth() {
	resp, err := s.service.GenerateInvoice(s.GetContext(), dto.GenerateInvoiceRequest{
		ProjectID:   s.proj.ID,
		PeriodMonth: "2025-01",
	})
	s.Require().NoError(err)
	s.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), resp.PeriodStart)
	s.Equal(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), resp.PeriodEnd)
	s.Len(resp.LineItems, 2)
}

func (s *InvoiceServiceSuite) TestGenerateAppendsManualItems() {
	req := s.req
	req.Items = []dto.ManualLineItemRequest{
		{DisplayName: "Special packaging", Quantity: decimal.NewFromInt(4), UnitPrice: decimal.NewFromInt(250)},
	}

	resp, err := s.service.GenerateInvoice(s.GetContext(), req)
	s.Require().NoError(err)
	s.Require().Len(resp.LineItems, 3)

	manual := resp.LineItems[2]
	s.Nil(manual.RuleID)
	s.Equal("Special packaging", manual.DisplayName)
	s.Equal("1000", manual.Amount.String())
	s.Equal(3, manual.Sequence)
	s.Equal("1083", resp.Subtotal.String())
}

func (s *InvoiceServiceSuite) TestGenerateInvoice() {
	resp, err := s.service.GenerateInvoice(s.GetContext(), s.req)
	s.Require().NoError(err)

	s.Equal("INV-00001", resp.InvoiceNumber)
	s.Equal(types.InvoiceStatusDraft, resp.InvoiceStatus)
	s.Equal(types.InvoiceStatusDraft, resp.DisplayStatus)
	s.Equal(1, resp.Version)
	s.Require().Len(resp.LineItems, 2)

	// subtotal equals the sum of line amounts
	sum := decimal.Zero
	for _, line := range resp.LineItems {
		sum = sum.Add(line.Amount)
	}
	s.Equal(sum.String(), resp.Subtotal.String())

	s.Require().NotNil(resp.DueDate)
	wantDue := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC).AddDate(0, 0, s.GetConfig().Billing.DueDays)
	s.Equal(wantDue, resp.DueDate.UTC())
}

func (s *InvoiceServiceSuite) TestGenerateRejectsOverlappingPeriod() {
	_, err := s.service.GenerateInvoice(s.GetContext(), s.req)
	s.Require().NoError(err)

	_, err = s.service.GenerateInvoice(s.GetContext(), s.req)
	s.Error(err)
	s.True(ierr.IsDuplicatePeriod(err))

	// a partially overlapping window is rejected too
	_, err = s.service.GenerateInvoice(s.GetContext(), dto.GenerateInvoiceRequest{
		ProjectID:   s.proj.ID,
		PeriodStart: "2025-01-20",
		PeriodEnd:   "2025-02-10",
	})
	s.True(ierr.IsDuplicatePeriod(err))
}

func (s *InvoiceServiceSuite) TestStatusTransitions() {
	resp, err := s.service.GenerateInvoice(s.GetContext(), s.req)
	s.Require().NoError(err)

	approved, err := s.service.ApproveInvoice(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusApproved, approved.InvoiceStatus)
	s.NotNil(approved.ApprovedAt)
	s.Equal(2, approved.Version)

	sent, err := s.service.MarkInvoiceSent(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusSent, sent.InvoiceStatus)
	s.NotNil(sent.SentAt)

	paid, err := s.service.MarkInvoicePaid(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPaid, paid.InvoiceStatus)
	s.NotNil(paid.PaidAt)
	s.Equal(4, paid.Version)
}

func (s *InvoiceServiceSuite) TestInvalidTransitionsRejected() {
	resp, err := s.service.GenerateInvoice(s.GetContext(), s.req)
	s.Require().NoError(err)

	// a draft cannot be sent or paid directly
	_, err = s.service.MarkInvoiceSent(s.GetContext(), resp.ID)
	s.True(ierr.IsInvalidOperation(err))
	_, err = s.service.MarkInvoicePaid(s.GetContext(), resp.ID)
	s.True(ierr.IsInvalidOperation(err))

	// a paid invoice is terminal
	_, err = s.service.ApproveInvoice(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	_, err = s.service.MarkInvoiceSent(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	_, err = s.service.MarkInvoicePaid(s.GetContext(), resp.ID)
	s.Require().NoError(err)

	_, err = s.service.CancelInvoice(s.GetContext(), resp.ID)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceServiceSuite) TestCancelReleasesRecordsForRebilling() {
	resp, err := s.service.GenerateInvoice(s.GetContext(), s.req)
	s.Require().NoError(err)

	cancelled, err := s.service.CancelInvoice(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusCancelled, cancelled.InvoiceStatus)
	s.NotNil(cancelled.CancelledAt)

	// the period and its records become billable again
	again, err := s.service.GenerateInvoice(s.GetContext(), s.req)
	s.Require().NoError(err)
	s.Equal("INV-00002", again.InvoiceNumber)
	s.Equal(resp.Subtotal.String(), again.Subtotal.String())
}

func (s *InvoiceServiceSuite) TestSecondPeriodBillsOnlyNewRecords() {
	_, err := s.service.GenerateInvoice(s.GetContext(), s.req)
	s.Require().NoError(err)

	s.Require().NoError(s.GetStores().PerformanceRepo.Insert(s.GetContext(), []*performance.Record{{
		ID:        "delv_feb",
		Kind:      types.PerformanceKindDelivery,
		Number:    "DN-3",
		Date:      time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC),
		PartNo:    "A-100",
		Quantity:  decimal.NewFromInt(4),
		Unit:      "EA",
		ProjectID: s.proj.ID,
	}}))

	feb, err := s.service.GenerateInvoice(s.GetContext(), dto.GenerateInvoiceRequest{
		ProjectID:   s.proj.ID,
		PeriodStart: "2025-02-01",
		PeriodEnd:   "2025-02-28",
	})
	s.Require().NoError(err)
	s.Require().Len(feb.LineItems, 1)
	s.Equal([]string{"delv_feb"}, feb.LineItems[0].SourceRecordIDs)
	// 4 * 16.5 = 66
	s.Equal("66", feb.Subtotal.String())
}

func (s *InvoiceServiceSuite) TestOverdueIsDerivedNotStored() {
	resp, err := s.service.GenerateInvoice(s.GetContext(), s.req)
	s.Require().NoError(err)

	_, err = s.service.ApproveInvoice(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	sent, err := s.service.MarkInvoiceSent(s.GetContext(), resp.ID)
	s.Require().NoError(err)

	inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusSent, inv.InvoiceStatus)

	// due dates from the 2025 window are long past, so display derives overdue
	s.Equal(types.InvoiceStatusOverdue, sent.DisplayStatus)
	s.Equal(types.InvoiceStatusOverdue, inv.DerivedStatus(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)))
	s.Equal(types.InvoiceStatusSent, inv.DerivedStatus(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))
}

func (s *InvoiceServiceSuite) TestTaxRateFallsBackToDefault() {
	s.proj.TaxRate = decimal.Zero
	s.Require().NoError(s.GetStores().ProjectRepo.Update(s.GetContext(), s.proj))

	preview, err := s.service.PreviewInvoice(s.GetContext(), s.previewReq())
	s.Require().NoError(err)
	s.Equal(s.GetConfig().GetDefaultTaxRate().String(), preview.TaxRate.String())
}

func (s *InvoiceServiceSuite) TestListInvoicesFiltersByStatus() {
	resp, err := s.service.GenerateInvoice(s.GetContext(), s.req)
	s.Require().NoError(err)
	_, err = s.service.ApproveInvoice(s.GetContext(), resp.ID)
	s.Require().NoError(err)

	filter := types.NewInvoiceFilter()
	filter.ProjectID = s.proj.ID
	filter.InvoiceStatus = []types.InvoiceStatus{types.InvoiceStatusApproved}

	list, err := s.service.ListInvoices(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Require().Len(list.Items, 1)
	s.Equal(resp.ID, list.Items[0].ID)
	s.Equal(1, list.Pagination.Total)

	filter.InvoiceStatus = []types.InvoiceStatus{types.InvoiceStatusPaid}
	list, err = s.service.ListInvoices(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Empty(list.Items)
}
