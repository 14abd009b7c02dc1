package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warebill/warebill/internal/api/dto"
	"github.com/warebill/warebill/internal/cache"
	"github.com/warebill/warebill/internal/domain/pricelist"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/formula"
	"github.com/warebill/warebill/internal/types"
)

// PriceInputs are the price-bearing fields of a rule config. Which field is
// read depends on the rule's price source; the others are ignored.
type PriceInputs struct {
	UnitPrice     *decimal.Decimal
	PriceListCode string
	PriceField    string
	Formula       string
}

// PriceContext carries the bucket-derived values a resolution may need:
// formula variables for composite_rate and the derived labor rate for
// labor_rate sources.
type PriceContext struct {
	Vars      formula.Vars
	LaborRate decimal.Decimal
	// HasLaborRate is false when the bucket holds no labor hours; resolving
	// a labor_rate source then fails rather than billing at zero
	HasLaborRate bool
}

type PriceService interface {
	CreatePriceListEntry(ctx context.Context, req dto.CreatePriceListEntryRequest) (*dto.PriceListEntryResponse, error)
	ListPriceListEntries(ctx context.Context, projectID string) (*dto.ListPriceListEntriesResponse, error)

	// Resolve returns the unit price of a rule for one bucket. Every failure
	// path returns ErrPriceNotFound or ErrValidation; a resolved price is
	// never negative.
	Resolve(ctx context.Context, projectID string, source types.PriceSource, inputs PriceInputs, pctx PriceContext) (decimal.Decimal, error)
}

type priceService struct {
	ServiceParams
}

func NewPriceService(params ServiceParams) PriceService {
	return &priceService{
		ServiceParams: params,
	}
}

func (s *priceService) CreatePriceListEntry(ctx context.Context, req dto.CreatePriceListEntryRequest) (*dto.PriceListEntryResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.ProjectRepo.Get(ctx, req.ProjectID); err != nil {
		return nil, err
	}

	entry := req.ToEntry(ctx)
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	if err := s.PriceListRepo.Create(ctx, entry); err != nil {
		return nil, err
	}

	// a stale cached entry must not outlive the write
	s.Cache.Delete(ctx, cache.GenerateKey(cache.PrefixPriceList, entry.ProjectID, entry.Code))

	return &dto.PriceListEntryResponse{Entry: entry}, nil
}

func (s *priceService) ListPriceListEntries(ctx context.Context, projectID string) (*dto.ListPriceListEntriesResponse, error) {
	entries, err := s.PriceListRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.PriceListEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, &dto.PriceListEntryResponse{Entry: e})
	}

	return &dto.ListPriceListEntriesResponse{
		Items:      items,
		Pagination: newFullListPagination(len(items)),
	}, nil
}

func (s *priceService) Resolve(ctx context.Context, projectID string, source types.PriceSource, inputs PriceInputs, pctx PriceContext) (decimal.Decimal, error) {
	switch {
	case source.IsConstant():
		if inputs.UnitPrice == nil {
			return decimal.Zero, ierr.NewError("rule has no configured unit price").
				WithHintf("Price source %s requires a configured unit price", source).
				Mark(ierr.ErrPriceNotFound)
		}
		return *inputs.UnitPrice, nil

	case source == types.PriceSourcePriceList:
		return s.resolveFromPriceList(ctx, projectID, inputs)

	case source == types.PriceSourceLaborRate:
		if !pctx.HasLaborRate {
			return decimal.Zero, ierr.NewError("no labor hours to derive a rate from").
				WithHint("Labor rate pricing requires labor records with hours").
				Mark(ierr.ErrPriceNotFound)
		}
		return pctx.LaborRate, nil

	case source == types.PriceSourceCompositeRate:
		return s.resolveFromFormula(inputs.Formula, pctx.Vars)
	}

	return decimal.Zero, ierr.NewError("invalid price source").
		WithHintf("Price source %s cannot be resolved", source).
		Mark(ierr.ErrValidation)
}

func (s *priceService) resolveFromPriceList(ctx context.Context, projectID string, inputs PriceInputs) (decimal.Decimal, error) {
	if inputs.PriceListCode == "" {
		return decimal.Zero, ierr.NewError("rule has no price list code").
			WithHint("Price list pricing requires a price_list_code").
			Mark(ierr.ErrPriceNotFound)
	}
	field := inputs.PriceField
	if field == "" {
		field = "unit_price"
	}

	entry, err := s.getPriceListEntry(ctx, projectID, inputs.PriceListCode)
	if err != nil {
		return decimal.Zero, err
	}

	v, ok := entry.Value(field)
	if !ok {
		return decimal.Zero, ierr.NewError("price field not found on price list entry").
			WithHintf("Entry %s has no value %q", entry.Code, field).
			WithReportableDetails(map[string]any{
				"code":  entry.Code,
				"field": field,
			}).
			Mark(ierr.ErrPriceNotFound)
	}
	return v, nil
}

func (s *priceService) getPriceListEntry(ctx context.Context, projectID, code string) (*pricelist.Entry, error) {
	key := cache.GenerateKey(cache.PrefixPriceList, projectID, code)
	if cached, ok := s.Cache.Get(ctx, key); ok {
		if entry, ok := cached.(*pricelist.Entry); ok {
			return entry, nil
		}
	}

	entry, err := s.PriceListRepo.GetByCode(ctx, projectID, code)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.NewError("price list entry not found").
				WithHintf("No price list entry %q exists for this project", code).
				Mark(ierr.ErrPriceNotFound)
		}
		return nil, err
	}

	s.Cache.Set(ctx, key, entry, 5*time.Minute)
	return entry, nil
}

func (s *priceService) resolveFromFormula(src string, vars formula.Vars) (decimal.Decimal, error) {
	if src == "" {
		return decimal.Zero, ierr.NewError("rule has no formula").
			WithHint("Composite rate pricing requires a formula").
			Mark(ierr.ErrPriceNotFound)
	}

	expr, err := formula.Parse(src)
	if err != nil {
		return decimal.Zero, err
	}
	v, err := expr.Evaluate(vars)
	if err != nil {
		return decimal.Zero, err
	}
	if v.IsNegative() {
		return decimal.Zero, ierr.NewError("formula produced a negative price").
			WithHintf("Formula %q evaluated below zero", src).
			Mark(ierr.ErrInvalidOperation)
	}
	return v, nil
}
