package dto

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warebill/warebill/internal/domain/project"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/types"
	"github.com/warebill/warebill/internal/validator"
)

type CreateProjectRequest struct {
	Name         string `json:"name" binding:"required"`
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	Currency     string `json:"currency" binding:"required"`
	// TaxRate is a fraction, e.g. "0.10" for 10%
	TaxRate string `json:"tax_rate,omitempty"`
}

func (r *CreateProjectRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if len(r.Currency) != 3 {
		return ierr.NewError("currency must be a three-letter ISO code").
			WithHint("Please provide a valid currency code, e.g. jpy or usd").
			Mark(ierr.ErrValidation)
	}
	if r.TaxRate != "" {
		rate, err := decimal.NewFromString(r.TaxRate)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Tax rate must be a decimal fraction, e.g. 0.10").
				Mark(ierr.ErrValidation)
		}
		if rate.IsNegative() {
			return ierr.NewError("tax rate must be non negative").
				WithHint("Please provide a valid tax rate").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

func (r *CreateProjectRequest) ToProject(ctx context.Context) *project.Project {
	taxRate := decimal.Zero
	if r.TaxRate != "" {
		taxRate, _ = decimal.NewFromString(r.TaxRate)
	}
	return &project.Project{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PROJECT),
		Code:         types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_PROJECT),
		Name:         r.Name,
		CustomerID:   r.CustomerID,
		CustomerName: r.CustomerName,
		Currency:     r.Currency,
		TaxRate:      taxRate,
		BaseModel:    types.GetDefaultBaseModel(ctx),
	}
}

type UpdateProjectRequest struct {
	Name         *string `json:"name,omitempty"`
	CustomerName *string `json:"customer_name,omitempty"`
	TaxRate      *string `json:"tax_rate,omitempty"`
}

type ProjectResponse struct {
	*project.Project
}

type ListProjectsResponse = types.ListResponse[*ProjectResponse]
