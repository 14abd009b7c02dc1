package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/warebill/warebill/internal/domain/billingrule"
	"github.com/warebill/warebill/internal/domain/masterrule"
	"github.com/warebill/warebill/internal/domain/performance"
	"github.com/warebill/warebill/internal/domain/pricelist"
	"github.com/warebill/warebill/internal/domain/project"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/testutil"
	"github.com/warebill/warebill/internal/types"
)

type BillingServiceSuite struct {
	testutil.BaseServiceTestSuite
	service BillingService

	proj        *project.Project
	periodStart time.Time
	periodEnd   time.Time
}

func TestBillingService(t *testing.T) {
	suite.Run(t, new(BillingServiceSuite))
}

func (s *BillingServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewBillingService(s.serviceParams())

	s.proj = &project.Project{
		ID:           "proj_test",
		Code:         "PRJ-TEST",
		Name:         "Nagoya DC",
		CustomerID:   "cust_1",
		CustomerName: "Aichi Parts",
		Currency:     "usd",
		TaxRate:      decimal.NewFromFloat(0.10),
		BaseModel:    types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().ProjectRepo.Create(s.GetContext(), s.proj))

	s.periodStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.periodEnd = time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
}

func (s *BillingServiceSuite) serviceParams() ServiceParams {
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

func (s *BillingServiceSuite) createRule(name string, ruleType types.RuleType, source types.PriceSource, groupingKey types.GroupingKey, priority int, config string) *billingrule.BillingRule {
	rule := &billingrule.BillingRule{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_RULE),
		ProjectID:     s.proj.ID,
		Name:          name,
		RuleType:      ruleType,
		PriceSource:   source,
		GroupingKey:   groupingKey,
		Priority:      priority,
		IsActive:      true,
		ConfigPayload: json.RawMessage(config),
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(rule.Validate())
	s.Require().NoError(s.GetStores().BillingRuleRepo.Create(s.GetContext(), rule))
	return rule
}

func (s *BillingServiceSuite) addDelivery(id string, day int, partNo string, qty float64, palletNo, containerNo string, volume float64) {
	s.Require().NoError(s.GetStores().PerformanceRepo.Insert(s.GetContext(), []*performance.Record{{
		ID:          id,
		Kind:        types.PerformanceKindDelivery,
		Number:      "DN-" + id,
		Date:        time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC),
		PartNo:      partNo,
		PartName:    "Part " + partNo,
		Quantity:    decimal.NewFromFloat(qty),
		Unit:        "EA",
		PalletNo:    palletNo,
		ContainerNo: containerNo,
		Volume:      decimal.NewFromFloat(volume),
		ProjectID:   s.proj.ID,
	}}))
}

func (s *BillingServiceSuite) addLabor(id string, day int, workType string, hours, rate float64) {
	s.Require().NoError(s.GetStores().PerformanceRepo.Insert(s.GetContext(), []*performance.Record{{
		ID:        id,
		Kind:      types.PerformanceKindLabor,
		Number:    "LB-" + id,
		Date:      time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC),
		WorkType:  workType,
		Hours:     decimal.NewFromFloat(hours),
		LaborRate: decimal.NewFromFloat(rate),
		ProjectID: s.proj.ID,
	}}))
}

func (s *BillingServiceSuite) compute() []*invoiceLineView {
	lines, err := s.service.ComputeLines(s.GetContext(), s.proj, s.periodStart, s.periodEnd)
	s.Require().NoError(err)

	views := make([]*invoiceLineView, 0, len(lines))
	for _, line := range lines {
		views = append(views, &invoiceLineView{
			DisplayName: line.DisplayName,
			Quantity:    line.Quantity.String(),
			UnitPrice:   line.UnitPrice.String(),
			Amount:      line.Amount.String(),
			Unit:        line.Unit,
			Sequence:    line.Sequence,
			SourceIDs:   line.SourceRecordIDs,
		})
	}
	return views
}

type invoiceLineView struct {
	DisplayName string
	Quantity    string
	UnitPrice   string
	Amount      string
	Unit        string
	Sequence    int
	SourceIDs   []string
}

func (s *BillingServiceSuite) TestEAGroupedByPartNo() {
	s.createRule("Piece handling", types.RuleTypeEA, types.PriceSourceFixedPrice, types.GroupingKeyPartNo, 1,
		`{"unit_price": "5"}`)
	s.addDelivery("delv_1", 5, "A-100", 10, "", "", 0)
	s.addDelivery("delv_2", 12, "A-100", 5, "", "", 0)
	s.addDelivery("delv_3", 20, "B-200", 3, "", "", 0)

	lines := s.compute()
	s.Require().Len(lines, 2)

	s.Equal("Piece handling - A-100", lines[0].DisplayName)
	s.Equal("15", lines[0].Quantity)
	s.Equal("75", lines[0].Amount)
	s.Equal([]string{"delv_1", "delv_2"}, lines[0].SourceIDs)

	s.Equal("Piece handling - B-200", lines[1].DisplayName)
	s.Equal("3", lines[1].Quantity)
	s.Equal("15", lines[1].Amount)

	s.Equal(1, lines[0].Sequence)
	s.Equal(2, lines[1].Sequence)
}

func (s *BillingServiceSuite) TestPalletDistinctCount() {
	s.createRule("Pallet storage", types.RuleTypePallet, types.PriceSourcePalletRate, types.GroupingKeyNone, 1,
		`{"unit_price": "100"}`)
	s.addDelivery("delv_1", 3, "A-100", 10, "PLT-01", "", 0)
	s.addDelivery("delv_2", 4, "A-100", 10, "PLT-01", "", 0)
	s.addDelivery("delv_3", 5, "B-200", 10, "PLT-02", "", 0)

	lines := s.compute()
	s.Require().Len(lines, 1)
	s.Equal("Pallet storage", lines[0].DisplayName)
	s.Equal("2", lines[0].Quantity)
	s.Equal("PLT", lines[0].Unit)
	s.Equal("200", lines[0].Amount)
}

func (s *BillingServiceSuite) TestLaborHoursWeightedRate() {
	s.createRule("Warehouse labor", types.RuleTypeLabor, types.PriceSourceLaborRate, types.GroupingKeyWorkType, 1, `{}`)
	s.addLabor("labor_1", 6, "picking", 2, 1000)
	s.addLabor("labor_2", 7, "picking", 1, 1300)
	s.addLabor("labor_3", 8, "packing", 4, 900)

	lines := s.compute()
	s.Require().Len(lines, 2)

	// buckets sort by key: packing before picking
	s.Equal("Warehouse labor - packing", lines[0].DisplayName)
	s.Equal("4", lines[0].Quantity)
	s.Equal("3600", lines[0].Amount)
	s.Equal("HR", lines[0].Unit)

	// (2h*1000 + 1h*1300) / 3h = 1100
	s.Equal("Warehouse labor - picking", lines[1].DisplayName)
	s.Equal("3", lines[1].Quantity)
	s.Equal("1100", lines[1].UnitPrice)
	s.Equal("3300", lines[1].Amount)
}

func (s *BillingServiceSuite) TestVolumeFromPriceList() {
	entry := &pricelist.Entry{
		ID:        "price_handling",
		ProjectID: s.proj.ID,
		Code:      "handling",
		Name:      "Handling tariff",
		Currency:  s.proj.Currency,
		Values: map[string]decimal.Decimal{
			"unit_price": decimal.NewFromInt(8),
		},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().PriceListRepo.Create(s.GetContext(), entry))

	s.createRule("Volume handling", types.RuleTypeVolume, types.PriceSourcePriceList, types.GroupingKeyNone, 1,
		`{"price_list_code": "handling"}`)
	s.addDelivery("delv_1", 9, "A-100", 1, "", "", 2.5)
	s.addDelivery("delv_2", 10, "A-100", 1, "", "", 1.5)

	lines := s.compute()
	s.Require().Len(lines, 1)
	s.Equal("4", lines[0].Quantity)
	s.Equal("M3", lines[0].Unit)
	s.Equal("32", lines[0].Amount)
}

func (s *BillingServiceSuite) TestContainerDistinctCount() {
	s.createRule("Container drayage", types.RuleTypeContainer, types.PriceSourceContractRate, types.GroupingKeyNone, 1,
		`{"unit_price": "50000"}`)
	s.addDelivery("delv_1", 2, "A-100", 1, "", "CONT-1", 0)
	s.addDelivery("delv_2", 3, "A-100", 1, "", "CONT-1", 0)
	s.addDelivery("delv_3", 4, "B-200", 1, "", "CONT-2", 0)

	lines := s.compute()
	s.Require().Len(lines, 1)
	s.Equal("2", lines[0].Quantity)
	s.Equal("CNT", lines[0].Unit)
	s.Equal("100000", lines[0].Amount)
}

func (s *BillingServiceSuite) TestCompositeRateFormula() {
	s.createRule("Tiered handling", types.RuleTypeEA, types.PriceSourceCompositeRate, types.GroupingKeyNone, 1,
		`{"formula": "max(100 / quantity, 6)"}`)
	s.addDelivery("delv_1", 5, "A-100", 10, "", "", 0)
	s.addDelivery("delv_2", 6, "B-200", 10, "", "", 0)

	// 100 / 20 = 5, floored at 6 by the formula; 20 * 6 = 120
	lines := s.compute()
	s.Require().Len(lines, 1)
	s.Equal("20", lines[0].Quantity)
	s.Equal("6", lines[0].UnitPrice)
	s.Equal("120", lines[0].Amount)
}

func (s *BillingServiceSuite) TestPriorityClaimsRecordsOnce() {
	s.createRule("Premium parts", types.RuleTypeEA, types.PriceSourceFixedPrice, types.GroupingKeyNone, 10,
		`{"unit_price": "20", "filters": [{"field": "part_no", "operator": "eq", "value": "A-100"}]}`)
	s.createRule("Standard parts", types.RuleTypeEA, types.PriceSourceFixedPrice, types.GroupingKeyNone, 1,
		`{"unit_price": "5"}`)

	s.addDelivery("delv_1", 5, "A-100", 4, "", "", 0)
	s.addDelivery("delv_2", 6, "B-200", 7, "", "", 0)

	lines := s.compute()
	s.Require().Len(lines, 2)

	// the higher-priority rule claims the A-100 record exclusively
	s.Equal("Premium parts", lines[0].DisplayName)
	s.Equal("4", lines[0].Quantity)
	s.Equal("80", lines[0].Amount)
	s.Equal([]string{"delv_1"}, lines[0].SourceIDs)

	s.Equal("Standard parts", lines[1].DisplayName)
	s.Equal("7", lines[1].Quantity)
	s.Equal("35", lines[1].Amount)
	s.Equal([]string{"delv_2"}, lines[1].SourceIDs)
}

func (s *BillingServiceSuite) TestEqualPrioritySequenceBreaksTie() {
	first := s.createRule("First rule", types.RuleTypeEA, types.PriceSourceFixedPrice, types.GroupingKeyNone, 5,
		`{"unit_price": "10"}`)
	second := s.createRule("Second rule", types.RuleTypeEA, types.PriceSourceFixedPrice, types.GroupingKeyNone, 5,
		`{"unit_price": "99"}`)
	s.Less(first.Sequence, second.Sequence)

	s.addDelivery("delv_1", 5, "A-100", 2, "", "", 0)

	// the earlier-created rule wins the tie and claims everything
	lines := s.compute()
	s.Require().Len(lines, 1)
	s.Equal("First rule", lines[0].DisplayName)
	s.Equal("20", lines[0].Amount)
}

func (s *BillingServiceSuite) TestNoApplicableRule() {
	s.addDelivery("delv_1", 5, "A-100", 2, "", "", 0)

	_, err := s.service.ComputeLines(s.GetContext(), s.proj, s.periodStart, s.periodEnd)
	s.Error(err)
	s.True(ierr.IsNoApplicableRule(err))
}

func (s *BillingServiceSuite) TestRuleOutsideEffectiveWindowIgnored() {
	expired := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	rule := s.createRule("Old tariff", types.RuleTypeEA, types.PriceSourceFixedPrice, types.GroupingKeyNone, 1,
		`{"unit_price": "5"}`)
	rule.EffectiveTo = &expired
	s.Require().NoError(s.GetStores().BillingRuleRepo.Update(s.GetContext(), rule))

	_, err := s.service.ComputeLines(s.GetContext(), s.proj, s.periodStart, s.periodEnd)
	s.True(ierr.IsNoApplicableRule(err))
}

func (s *BillingServiceSuite) TestPeriodBoundariesAreInclusive() {
	s.createRule("Piece handling", types.RuleTypeEA, types.PriceSourceFixedPrice, types.GroupingKeyNone, 1,
		`{"unit_price": "1"}`)
	s.addDelivery("delv_first", 1, "A-100", 2, "", "", 0)
	s.addDelivery("delv_last", 31, "A-100", 3, "", "", 0)

	lines := s.compute()
	s.Require().Len(lines, 1)
	s.Equal("5", lines[0].Quantity)
}

func (s *BillingServiceSuite) TestFilterInAndDateRange() {
	s.createRule("Late January A or B", types.RuleTypeEA, types.PriceSourceFixedPrice, types.GroupingKeyNone, 1,
		`{"unit_price": "2", "filters": [
			{"field": "part_no", "operator": "in", "values": ["A-100", "B-200"]},
			{"field": "date", "operator": "gte", "value": "2025-01-15"}
		]}`)

	s.addDelivery("delv_1", 10, "A-100", 1, "", "", 0)
	s.addDelivery("delv_2", 20, "A-100", 4, "", "", 0)
	s.addDelivery("delv_3", 25, "B-200", 6, "", "", 0)
	s.addDelivery("delv_4", 28, "C-300", 9, "", "", 0)

	lines := s.compute()
	s.Require().Len(lines, 1)
	s.Equal("10", lines[0].Quantity)
	s.Equal([]string{"delv_2", "delv_3"}, lines[0].SourceIDs)
}

func (s *BillingServiceSuite) TestQuantityThresholdFilter() {
	s.createRule("Bulk only", types.RuleTypeEA, types.PriceSourceFixedPrice, types.GroupingKeyNone, 1,
		`{"unit_price": "3", "filters": [{"field": "quantity", "operator": "gt", "value": "5"}]}`)

	s.addDelivery("delv_small", 5, "A-100", 5, "", "", 0)
	s.addDelivery("delv_big", 6, "A-100", 6, "", "", 0)

	lines := s.compute()
	s.Require().Len(lines, 1)
	s.Equal("6", lines[0].Quantity)
	s.Equal([]string{"delv_big"}, lines[0].SourceIDs)
}

func (s *BillingServiceSuite) TestMissingGroupingFieldExcludesRecord() {
	s.createRule("Pallet handling", types.RuleTypePallet, types.PriceSourcePalletRate, types.GroupingKeyPalletNo, 1,
		`{"unit_price": "100"}`)
	s.addDelivery("delv_1", 5, "A-100", 1, "PLT-01", "", 0)
	s.addDelivery("delv_loose", 6, "A-100", 1, "", "", 0)

	lines := s.compute()
	s.Require().Len(lines, 1)
	s.Equal("Pallet handling - PLT-01", lines[0].DisplayName)
	s.Equal([]string{"delv_1"}, lines[0].SourceIDs)
}

func (s *BillingServiceSuite) createMasterRule() *masterrule.MasterBillingRule {
	master := &masterrule.MasterBillingRule{
		ID:        "mrule_test",
		ProjectID: s.proj.ID,
		Name:      "Monthly base",
		IsActive:  true,
		Items: []masterrule.LineTemplate{
			{
				IsFixed:   true,
				ItemName:  "Warehouse management fee",
				Unit:      "MONTH",
				UnitPrice: decimal.NewFromInt(50000),
			},
			{
				ItemName:  "System usage",
				Quantity:  decimal.NewFromInt(2),
				Unit:      "LICENSE",
				UnitPrice: decimal.NewFromInt(300),
			},
		},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().MasterRuleRepo.Create(s.GetContext(), master))
	return master
}

func (s *BillingServiceSuite) TestFixedRuleEmitsMasterItems() {
	s.createMasterRule()
	s.createRule("Base fees", types.RuleTypeFixed, types.PriceSourceFixedPrice, types.GroupingKeyNone, 1, `{}`)

	lines := s.compute()
	s.Require().Len(lines, 2)

	// flat fees keep the configured amount verbatim
	s.Equal("Warehouse management fee", lines[0].DisplayName)
	s.Equal("1", lines[0].Quantity)
	s.Equal("50000", lines[0].Amount)

	s.Equal("System usage", lines[1].DisplayName)
	s.Equal("2", lines[1].Quantity)
	s.Equal("600", lines[1].Amount)
}

func (s *BillingServiceSuite) TestFixedRuleWithoutMasterEmitsNothing() {
	s.createRule("Base fees", types.RuleTypeFixed, types.PriceSourceFixedPrice, types.GroupingKeyNone, 1, `{}`)

	lines, err := s.service.ComputeLines(s.GetContext(), s.proj, s.periodStart, s.periodEnd)
	s.NoError(err)
	s.Empty(lines)
}

func (s *BillingServiceSuite) TestMixedRuleCombinesFixedAndVariable() {
	s.createMasterRule()
	rule := s.createRule("Base plus handling", types.RuleTypeMixed, types.PriceSourceFixedPrice, types.GroupingKeyNone, 1,
		`{"components": [{
			"rule_type": "EA",
			"price_source": "fixed_price",
			"config": {"unit_price": "5", "group_by": ["part_no"]}
		}]}`)

	s.addDelivery("delv_1", 5, "A-100", 10, "", "", 0)
	s.addDelivery("delv_2", 6, "B-200", 4, "", "", 0)

	lines, err := s.service.ComputeLines(s.GetContext(), s.proj, s.periodStart, s.periodEnd)
	s.Require().NoError(err)
	s.Require().Len(lines, 3)

	// the master's fixed line comes first; the non-fixed template line is
	// not part of a mixed rule
	s.Equal("Warehouse management fee", lines[0].DisplayName)
	s.Equal("50000", lines[0].Amount.String())

	s.Equal("Base plus handling - A-100", lines[1].DisplayName)
	s.Equal("50", lines[1].Amount.String())
	s.Equal("Base plus handling - B-200", lines[2].DisplayName)
	s.Equal("20", lines[2].Amount.String())

	// every line bills under the mixed rule
	for _, line := range lines {
		s.Require().NotNil(line.RuleID)
		s.Equal(rule.ID, *line.RuleID)
	}
}

func (s *BillingServiceSuite) TestMixedComponentFormulaFallback() {
	s.createRule("Composite handling", types.RuleTypeMixed, types.PriceSourceFixedPrice, types.GroupingKeyNone, 1,
		`{"formula": "quantity * 2",
		  "components": [{
			"rule_type": "EA",
			"price_source": "composite_rate",
			"config": {}
		}]}`)

	s.addDelivery("delv_1", 5, "A-100", 3, "", "", 0)

	// the component has no formula of its own, so the rule-level formula
	// applies: price 6, amount 18
	lines := s.compute()
	s.Require().Len(lines, 1)
	s.Equal("6", lines[0].UnitPrice)
	s.Equal("18", lines[0].Amount)
}

func (s *BillingServiceSuite) TestPreviewIsRepeatable() {
	s.createRule("Piece handling", types.RuleTypeEA, types.PriceSourceFixedPrice, types.GroupingKeyPartNo, 1,
		`{"unit_price": "5"}`)
	s.addDelivery("delv_1", 5, "A-100", 10, "", "", 0)
	s.addDelivery("delv_2", 6, "B-200", 3, "", "", 0)

	first, err := s.service.ComputeLines(s.GetContext(), s.proj, s.periodStart, s.periodEnd)
	s.Require().NoError(err)
	second, err := s.service.ComputeLines(s.GetContext(), s.proj, s.periodStart, s.periodEnd)
	s.Require().NoError(err)

	// identical inputs must serialize identically, IDs included
	firstJSON, err := json.Marshal(first)
	s.Require().NoError(err)
	secondJSON, err := json.Marshal(second)
	s.Require().NoError(err)
	s.Equal(string(firstJSON), string(secondJSON))
}
