package dto

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warebill/warebill/internal/domain/pricelist"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/types"
	"github.com/warebill/warebill/internal/validator"
)

type CreatePriceListEntryRequest struct {
	ProjectID string                     `json:"project_id" binding:"required"`
	Code      string                     `json:"code" binding:"required"`
	Name      string                     `json:"name"`
	Currency  string                     `json:"currency"`
	Values    map[string]decimal.Decimal `json:"values" binding:"required"`
}

func (r *CreatePriceListEntryRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if len(r.Values) == 0 {
		return ierr.NewError("at least one price value is required").
			WithHint("Please provide price values").
			Mark(ierr.ErrValidation)
	}
	for field, v := range r.Values {
		if v.IsNegative() {
			return ierr.NewError("price values must be non negative").
				WithHintf("Value %q is negative", field).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

func (r *CreatePriceListEntryRequest) ToEntry(ctx context.Context) *pricelist.Entry {
	return &pricelist.Entry{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PRICE_LIST_ENTRY),
		ProjectID: r.ProjectID,
		Code:      r.Code,
		Name:      r.Name,
		Currency:  r.Currency,
		Values:    r.Values,
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
}

type PriceListEntryResponse struct {
	*pricelist.Entry
}

type ListPriceListEntriesResponse = types.ListResponse[*PriceListEntryResponse]
