package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/warebill/warebill/internal/api/dto"
	"github.com/warebill/warebill/internal/domain/project"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/formula"
	"github.com/warebill/warebill/internal/testutil"
	"github.com/warebill/warebill/internal/types"
)

type PriceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service PriceService

	proj *project.Project
}

func TestPriceService(t *testing.T) {
	suite.Run(t, new(PriceServiceSuite))
}

func (s *PriceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewPriceService(ServiceParams{
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

func (s *PriceServiceSuite) createEntry() {
	_, err := s.service.CreatePriceListEntry(s.GetContext(), dto.CreatePriceListEntryRequest{
		ProjectID: s.proj.ID,
		Code:      "handling",
		Name:      "Handling tariff",
		Currency:  "usd",
		Values: map[string]decimal.Decimal{
			"unit_price": decimal.NewFromInt(8),
			"rush":       decimal.NewFromInt(12),
		},
	})
	s.Require().NoError(err)
}

func (s *PriceServiceSuite) TestResolveConstantSources() {
	price := decimal.NewFromFloat(4.5)
	inputs := PriceInputs{UnitPrice: &price}

	for _, source := range []types.PriceSource{
		types.PriceSourceFixedPrice,
		types.PriceSourcePalletRate,
		types.PriceSourceContractRate,
	} {
		got, err := s.service.Resolve(s.GetContext(), s.proj.ID, source, inputs, PriceContext{})
		s.Require().NoError(err)
		s.Equal("4.5", got.String())
	}
}

func (s *PriceServiceSuite) TestResolveConstantWithoutPrice() {
	_, err := s.service.Resolve(s.GetContext(), s.proj.ID, types.PriceSourceFixedPrice, PriceInputs{}, PriceContext{})
	s.True(ierr.IsPriceNotFound(err))
}

func (s *PriceServiceSuite) TestResolveFromPriceList() {
	s.createEntry()

	// the field defaults to unit_price
	got, err := s.service.Resolve(s.GetContext(), s.proj.ID, types.PriceSourcePriceList,
		PriceInputs{PriceListCode: "handling"}, PriceContext{})
	s.Require().NoError(err)
	s.Equal("8", got.String())

	got, err = s.service.Resolve(s.GetContext(), s.proj.ID, types.PriceSourcePriceList,
		PriceInputs{PriceListCode: "handling", PriceField: "rush"}, PriceContext{})
	s.Require().NoError(err)
	s.Equal("12", got.String())
}

func (s *PriceServiceSuite) TestResolvePriceListMisses() {
	s.createEntry()

	_, err := s.service.Resolve(s.GetContext(), s.proj.ID, types.PriceSourcePriceList,
		PriceInputs{}, PriceContext{})
	s.True(ierr.IsPriceNotFound(err), "missing code")

	_, err = s.service.Resolve(s.GetContext(), s.proj.ID, types.PriceSourcePriceList,
		PriceInputs{PriceListCode: "unknown"}, PriceContext{})
	s.True(ierr.IsPriceNotFound(err), "unknown code")

	_, err = s.service.Resolve(s.GetContext(), s.proj.ID, types.PriceSourcePriceList,
		PriceInputs{PriceListCode: "handling", PriceField: "weekend"}, PriceContext{})
	s.True(ierr.IsPriceNotFound(err), "unknown field")
}

func (s *PriceServiceSuite) TestResolveLaborRate() {
	pctx := PriceContext{
		LaborRate:    decimal.NewFromInt(1100),
		HasLaborRate: true,
	}
	got, err := s.service.Resolve(s.GetContext(), s.proj.ID, types.PriceSourceLaborRate, PriceInputs{}, pctx)
	s.Require().NoError(err)
	s.Equal("1100", got.String())

	// without hours there is no rate to derive
	_, err = s.service.Resolve(s.GetContext(), s.proj.ID, types.PriceSourceLaborRate, PriceInputs{}, PriceContext{})
	s.True(ierr.IsPriceNotFound(err))
}

func (s *PriceServiceSuite) TestResolveCompositeRate() {
	pctx := PriceContext{Vars: formula.Vars{
		"quantity": decimal.NewFromInt(40),
	}}

	got, err := s.service.Resolve(s.GetContext(), s.proj.ID, types.PriceSourceCompositeRate,
		PriceInputs{Formula: "max(200 / quantity, 3)"}, pctx)
	s.Require().NoError(err)
	s.Equal("5", got.String())

	_, err = s.service.Resolve(s.GetContext(), s.proj.ID, types.PriceSourceCompositeRate,
		PriceInputs{}, pctx)
	s.True(ierr.IsPriceNotFound(err), "missing formula")

	_, err = s.service.Resolve(s.GetContext(), s.proj.ID, types.PriceSourceCompositeRate,
		PriceInputs{Formula: "quantity - 100"}, pctx)
	s.True(ierr.IsInvalidOperation(err), "negative result")
}

func (s *PriceServiceSuite) TestCreateEntryRejectsDuplicateCode() {
	s.createEntry()

	_, err := s.service.CreatePriceListEntry(s.GetContext(), dto.CreatePriceListEntryRequest{
		ProjectID: s.proj.ID,
		Code:      "handling",
		Values: map[string]decimal.Decimal{
			"unit_price": decimal.NewFromInt(9),
		},
	})
	s.True(ierr.IsAlreadyExists(err))
}

func (s *PriceServiceSuite) TestListEntries() {
	s.createEntry()

	list, err := s.service.ListPriceListEntries(s.GetContext(), s.proj.ID)
	s.Require().NoError(err)
	s.Require().Len(list.Items, 1)
	s.Equal("handling", list.Items[0].Code)
}
