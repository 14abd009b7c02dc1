package service

import (
	"testing"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/warebill/warebill/internal/api/dto"
	"github.com/warebill/warebill/internal/domain/masterrule"
	"github.com/warebill/warebill/internal/domain/project"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/testutil"
	"github.com/warebill/warebill/internal/types"
)

type MasterRuleServiceSuite struct {
	testutil.BaseServiceTestSuite
	service MasterRuleService

	proj *project.Project
}

func TestMasterRuleService(t *testing.T) {
	suite.Run(t, new(MasterRuleServiceSuite))
}

func (s *MasterRuleServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewMasterRuleService(s.serviceParams())

	s.proj = &project.Project{
		ID:           "proj_test",
		Code:         "PRJ-TEST",
		Name:         "Nagoya DC",
		CustomerID:   "cust_1",
		CustomerName: "Aichi Parts",
		Currency:     "jpy",
		BaseModel:    types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().ProjectRepo.Create(s.GetContext(), s.proj))
}

func (s *MasterRuleServiceSuite) serviceParams() ServiceParams {
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

func (s *MasterRuleServiceSuite) createMasterRule(name string, isActive bool) *dto.MasterRuleResponse {
	resp, err := s.service.CreateMasterRule(s.GetContext(), dto.CreateMasterRuleRequest{
		ProjectID: s.proj.ID,
		Name:      name,
		IsActive:  lo.ToPtr(isActive),
		Items: []masterrule.LineTemplate{
			{IsFixed: true, ItemName: "Warehouse management fee", UnitPrice: decimal.NewFromInt(50000)},
		},
	})
	s.Require().NoError(err)
	return resp
}

func (s *MasterRuleServiceSuite) TestCreateSecondActiveDeactivatesFirst() {
	first := s.createMasterRule("2024 contract", true)
	second := s.createMasterRule("2025 contract", true)

	stored, err := s.GetStores().MasterRuleRepo.Get(s.GetContext(), first.ID)
	s.Require().NoError(err)
	s.False(stored.IsActive)

	active, err := s.GetStores().MasterRuleRepo.GetActiveByProject(s.GetContext(), s.proj.ID)
	s.Require().NoError(err)
	s.Equal(second.ID, active.ID)
}

func (s *MasterRuleServiceSuite) TestActivatingViaUpdateDeactivatesOthers() {
	first := s.createMasterRule("2024 contract", true)
	second := s.createMasterRule("2025 contract", false)

	active, err := s.GetStores().MasterRuleRepo.GetActiveByProject(s.GetContext(), s.proj.ID)
	s.Require().NoError(err)
	s.Equal(first.ID, active.ID)

	_, err = s.service.UpdateMasterRule(s.GetContext(), second.ID, dto.UpdateMasterRuleRequest{
		IsActive: lo.ToPtr(true),
	})
	s.Require().NoError(err)

	stored, err := s.GetStores().MasterRuleRepo.Get(s.GetContext(), first.ID)
	s.Require().NoError(err)
	s.False(stored.IsActive)

	active, err = s.GetStores().MasterRuleRepo.GetActiveByProject(s.GetContext(), s.proj.ID)
	s.Require().NoError(err)
	s.Equal(second.ID, active.ID)
}

func (s *MasterRuleServiceSuite) TestCreateRequiresExistingProject() {
	_, err := s.service.CreateMasterRule(s.GetContext(), dto.CreateMasterRuleRequest{
		ProjectID: "proj_missing",
		Name:      "Orphan",
		Items: []masterrule.LineTemplate{
			{IsFixed: true, ItemName: "Fee", UnitPrice: decimal.NewFromInt(1)},
		},
	})
	s.True(ierr.IsNotFound(err))
}

func (s *MasterRuleServiceSuite) TestDeleteLeavesProjectWithoutActiveRule() {
	created := s.createMasterRule("2025 contract", true)

	s.Require().NoError(s.service.DeleteMasterRule(s.GetContext(), created.ID))

	_, err := s.GetStores().MasterRuleRepo.GetActiveByProject(s.GetContext(), s.proj.ID)
	s.True(ierr.IsNotFound(err))
}
