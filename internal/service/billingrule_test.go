package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
	"github.com/warebill/warebill/internal/api/dto"
	"github.com/warebill/warebill/internal/domain/project"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/testutil"
	"github.com/warebill/warebill/internal/types"
)

type BillingRuleServiceSuite struct {
	testutil.BaseServiceTestSuite
	service BillingRuleService

	proj *project.Project
}

func TestBillingRuleService(t *testing.T) {
	suite.Run(t, new(BillingRuleServiceSuite))
}

func (s *BillingRuleServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewBillingRuleService(ServiceParams{
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
	})

	s.proj = &project.Project{
		ID:        "proj_test",
		Code:      "PRJ-TEST",
		Name:      "Nagoya DC",
		Currency:  "usd",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().ProjectRepo.Create(s.GetContext(), s.proj))
}

func (s *BillingRuleServiceSuite) create(req dto.CreateBillingRuleRequest) *dto.BillingRuleResponse {
	resp, err := s.service.CreateBillingRule(s.GetContext(), req)
	s.Require().NoError(err)
	return resp
}

func (s *BillingRuleServiceSuite) TestCreateAppliesDefaults() {
	resp := s.create(dto.CreateBillingRuleRequest{
		ProjectID:   s.proj.ID,
		Name:        "Piece handling",
		RuleType:    types.RuleTypeEA,
		PriceSource: types.PriceSourceFixedPrice,
		Config:      json.RawMessage(`{"unit_price": "5"}`),
	})

	s.Equal(types.GroupingKeyNone, resp.GroupingKey)
	s.True(resp.IsActive)
	s.Equal(int64(1), resp.Sequence)

	second := s.create(dto.CreateBillingRuleRequest{
		ProjectID:   s.proj.ID,
		Name:        "Pallet storage",
		RuleType:    types.RuleTypePallet,
		PriceSource: types.PriceSourcePalletRate,
		Config:      json.RawMessage(`{"unit_price": "100"}`),
	})
	s.Equal(int64(2), second.Sequence)
}

func (s *BillingRuleServiceSuite) TestCreateRequiresExistingProject() {
	_, err := s.service.CreateBillingRule(s.GetContext(), dto.CreateBillingRuleRequest{
		ProjectID:   "proj_missing",
		Name:        "Orphan rule",
		RuleType:    types.RuleTypeEA,
		PriceSource: types.PriceSourceFixedPrice,
	})
	s.True(ierr.IsNotFound(err))
}

func (s *BillingRuleServiceSuite) TestCreateRejectsInvalidConfig() {
	testCases := []struct {
		name string
		req  dto.CreateBillingRuleRequest
	}{
		{
			name: "negative unit price",
			req: dto.CreateBillingRuleRequest{
				ProjectID:   s.proj.ID,
				Name:        "Bad price",
				RuleType:    types.RuleTypeEA,
				PriceSource: types.PriceSourceFixedPrice,
				Config:      json.RawMessage(`{"unit_price": "-1"}`),
			},
		},
		{
			name: "mixed component with non-variable type",
			req: dto.CreateBillingRuleRequest{
				ProjectID:   s.proj.ID,
				Name:        "Bad mixed",
				RuleType:    types.RuleTypeMixed,
				PriceSource: types.PriceSourceFixedPrice,
				Config: json.RawMessage(`{"components": [{
					"rule_type": "FIXED",
					"price_source": "fixed_price",
					"config": {}
				}]}`),
			},
		},
		{
			name: "mixed grouping key without group_by fields",
			req: dto.CreateBillingRuleRequest{
				ProjectID:   s.proj.ID,
				Name:        "Bad grouping",
				RuleType:    types.RuleTypeEA,
				PriceSource: types.PriceSourceFixedPrice,
				GroupingKey: types.GroupingKeyMixed,
				Config:      json.RawMessage(`{"unit_price": "5"}`),
			},
		},
		{
			name: "unknown filter operator",
			req: dto.CreateBillingRuleRequest{
				ProjectID:   s.proj.ID,
				Name:        "Bad filter",
				RuleType:    types.RuleTypeEA,
				PriceSource: types.PriceSourceFixedPrice,
				Config:      json.RawMessage(`{"unit_price": "5", "filters": [{"field": "part_no", "operator": "matches", "value": "A"}]}`),
			},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := s.service.CreateBillingRule(s.GetContext(), tc.req)
			s.True(ierr.IsValidation(err))
		})
	}
}

func (s *BillingRuleServiceSuite) TestListEffectiveOrdering() {
	low := s.create(dto.CreateBillingRuleRequest{
		ProjectID:   s.proj.ID,
		Name:        "Catch-all",
		RuleType:    types.RuleTypeEA,
		PriceSource: types.PriceSourceFixedPrice,
		Priority:    1,
		Config:      json.RawMessage(`{"unit_price": "5"}`),
	})
	highFirst := s.create(dto.CreateBillingRuleRequest{
		ProjectID:   s.proj.ID,
		Name:        "Premium first",
		RuleType:    types.RuleTypeEA,
		PriceSource: types.PriceSourceFixedPrice,
		Priority:    10,
		Config:      json.RawMessage(`{"unit_price": "20"}`),
	})
	highSecond := s.create(dto.CreateBillingRuleRequest{
		ProjectID:   s.proj.ID,
		Name:        "Premium second",
		RuleType:    types.RuleTypeEA,
		PriceSource: types.PriceSourceFixedPrice,
		Priority:    10,
		Config:      json.RawMessage(`{"unit_price": "30"}`),
	})

	rules, err := s.service.ListEffectiveRules(s.GetContext(), s.proj.ID, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().Len(rules, 3)

	// priority descending, creation sequence breaking the tie
	s.Equal(highFirst.ID, rules[0].ID)
	s.Equal(highSecond.ID, rules[1].ID)
	s.Equal(low.ID, rules[2].ID)
}

func (s *BillingRuleServiceSuite) TestListEffectiveHonorsWindowsAndActivity() {
	asOf := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	current := s.create(dto.CreateBillingRuleRequest{
		ProjectID:     s.proj.ID,
		Name:          "Current tariff",
		RuleType:      types.RuleTypeEA,
		PriceSource:   types.PriceSourceFixedPrice,
		EffectiveFrom: lo.ToPtr(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		Config:        json.RawMessage(`{"unit_price": "5"}`),
	})
	s.create(dto.CreateBillingRuleRequest{
		ProjectID:   s.proj.ID,
		Name:        "Expired tariff",
		RuleType:    types.RuleTypeEA,
		PriceSource: types.PriceSourceFixedPrice,
		EffectiveTo: lo.ToPtr(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)),
		Config:      json.RawMessage(`{"unit_price": "4"}`),
	})
	s.create(dto.CreateBillingRuleRequest{
		ProjectID:     s.proj.ID,
		Name:          "Future tariff",
		RuleType:      types.RuleTypeEA,
		PriceSource:   types.PriceSourceFixedPrice,
		EffectiveFrom: lo.ToPtr(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)),
		Config:        json.RawMessage(`{"unit_price": "6"}`),
	})
	s.create(dto.CreateBillingRuleRequest{
		ProjectID:   s.proj.ID,
		Name:        "Disabled tariff",
		RuleType:    types.RuleTypeEA,
		PriceSource: types.PriceSourceFixedPrice,
		IsActive:    lo.ToPtr(false),
		Config:      json.RawMessage(`{"unit_price": "7"}`),
	})

	rules, err := s.service.ListEffectiveRules(s.GetContext(), s.proj.ID, asOf)
	s.Require().NoError(err)
	s.Require().Len(rules, 1)
	s.Equal(current.ID, rules[0].ID)

	// a window's last day is still effective
	lastDay := s.create(dto.CreateBillingRuleRequest{
		ProjectID:   s.proj.ID,
		Name:        "Ends today",
		RuleType:    types.RuleTypeEA,
		PriceSource: types.PriceSourceFixedPrice,
		EffectiveTo: lo.ToPtr(asOf),
		Config:      json.RawMessage(`{"unit_price": "8"}`),
	})
	rules, err = s.service.ListEffectiveRules(s.GetContext(), s.proj.ID, asOf)
	s.Require().NoError(err)
	s.Require().Len(rules, 2)
	ids := []string{rules[0].ID, rules[1].ID}
	s.Contains(ids, lastDay.ID)
}

func (s *BillingRuleServiceSuite) TestUpdatePreservesSequence() {
	resp := s.create(dto.CreateBillingRuleRequest{
		ProjectID:   s.proj.ID,
		Name:        "Piece handling",
		RuleType:    types.RuleTypeEA,
		PriceSource: types.PriceSourceFixedPrice,
		Priority:    1,
		Config:      json.RawMessage(`{"unit_price": "5"}`),
	})

	updated, err := s.service.UpdateBillingRule(s.GetContext(), resp.ID, dto.UpdateBillingRuleRequest{
		Name:     lo.ToPtr("Piece handling v2"),
		Priority: lo.ToPtr(9),
		Config:   json.RawMessage(`{"unit_price": "6"}`),
	})
	s.Require().NoError(err)
	s.Equal("Piece handling v2", updated.Name)
	s.Equal(9, updated.Priority)
	s.Equal(resp.Sequence, updated.Sequence)
	s.Equal(resp.RuleType, updated.RuleType)
}

func (s *BillingRuleServiceSuite) TestUpdateRejectsConfigMismatch() {
	resp := s.create(dto.CreateBillingRuleRequest{
		ProjectID:   s.proj.ID,
		Name:        "Piece handling",
		RuleType:    types.RuleTypeEA,
		PriceSource: types.PriceSourceFixedPrice,
		Config:      json.RawMessage(`{"unit_price": "5"}`),
	})

	// the payload is re-validated against the immutable rule type
	_, err := s.service.UpdateBillingRule(s.GetContext(), resp.ID, dto.UpdateBillingRuleRequest{
		Config: json.RawMessage(`{"unit_price": "-5"}`),
	})
	s.True(ierr.IsValidation(err))
}

func (s *BillingRuleServiceSuite) TestDeleteHidesRule() {
	resp := s.create(dto.CreateBillingRuleRequest{
		ProjectID:   s.proj.ID,
		Name:        "Piece handling",
		RuleType:    types.RuleTypeEA,
		PriceSource: types.PriceSourceFixedPrice,
		Config:      json.RawMessage(`{"unit_price": "5"}`),
	})

	s.Require().NoError(s.service.DeleteBillingRule(s.GetContext(), resp.ID))

	_, err := s.service.GetBillingRule(s.GetContext(), resp.ID)
	s.True(ierr.IsNotFound(err))

	rules, err := s.service.ListEffectiveRules(s.GetContext(), s.proj.ID, time.Now().UTC())
	s.Require().NoError(err)
	s.Empty(rules)
}

func (s *BillingRuleServiceSuite) TestListFiltersByTypeAndActivity() {
	s.create(dto.CreateBillingRuleRequest{
		ProjectID:   s.proj.ID,
		Name:        "Piece handling",
		RuleType:    types.RuleTypeEA,
		PriceSource: types.PriceSourceFixedPrice,
		Config:      json.RawMessage(`{"unit_price": "5"}`),
	})
	s.create(dto.CreateBillingRuleRequest{
		ProjectID:   s.proj.ID,
		Name:        "Pallet storage",
		RuleType:    types.RuleTypePallet,
		PriceSource: types.PriceSourcePalletRate,
		IsActive:    lo.ToPtr(false),
		Config:      json.RawMessage(`{"unit_price": "100"}`),
	})

	filter := types.NewBillingRuleFilter()
	filter.ProjectID = s.proj.ID
	filter.RuleTypes = []types.RuleType{types.RuleTypePallet}

	list, err := s.service.ListBillingRules(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Require().Len(list.Items, 1)
	s.Equal("Pallet storage", list.Items[0].Name)

	filter.RuleTypes = nil
	filter.IsActive = lo.ToPtr(true)
	list, err = s.service.ListBillingRules(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Require().Len(list.Items, 1)
	s.Equal("Piece handling", list.Items[0].Name)
	s.Equal(1, list.Pagination.Total)
}
