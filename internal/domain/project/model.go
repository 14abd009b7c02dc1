package project

import (
	"github.com/shopspring/decimal"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/types"
)

// Project is a customer contract/site whose activity is billed. It carries the
// settings the engine looks up: currency (precision derivation only, no
// conversion) and tax rate.
type Project struct {
	ID           string          `db:"id" json:"id"`
	Code         string          `db:"code" json:"code"`
	Name         string          `db:"name" json:"name"`
	CustomerID   string          `db:"customer_id" json:"customer_id"`
	CustomerName string          `db:"customer_name" json:"customer_name"`
	Currency     string          `db:"currency" json:"currency"`
	TaxRate      decimal.Decimal `db:"tax_rate" json:"tax_rate"`
	types.BaseModel
}

// CurrencyPrecision returns the rounding precision for the project's currency
func (p *Project) CurrencyPrecision() int32 {
	return types.CurrencyPrecision(p.Currency)
}

func (p *Project) Validate() error {
	if p.Name == "" {
		return ierr.NewError("project name is required").
			WithHint("Please provide a project name").
			Mark(ierr.ErrValidation)
	}
	if p.Currency == "" {
		return ierr.NewError("project currency is required").
			WithHint("Please provide a three-letter ISO currency code").
			Mark(ierr.ErrValidation)
	}
	if p.TaxRate.IsNegative() {
		return ierr.NewError("tax rate must be non negative").
			WithHint("Please provide a valid tax rate").
			Mark(ierr.ErrValidation)
	}
	return nil
}
